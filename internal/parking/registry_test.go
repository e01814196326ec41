package parking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegistryInitialize(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(6))

	assert.Equal(t, 6, r.Capacity())

	slots := r.Snapshot()
	require.Len(t, slots, 6)
	for i, slot := range slots {
		assert.Equal(t, i+1, slot.Number)
		assert.False(t, slot.IsOccupied)
		assert.Nil(t, slot.Vehicle)
	}
}

func TestRegistryInitializeRejectsNonPositiveCapacity(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(2))
	_, err := r.Park("KA-01-HH-1234", "White", "Car")
	require.NoError(t, err)

	for _, capacity := range []int{0, -3} {
		err := r.Initialize(capacity)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	}

	// A rejected initialize leaves the lot alone.
	assert.Equal(t, 2, r.Capacity())
	assert.True(t, r.Snapshot()[0].IsOccupied)
}

func TestRegistryInitializeResetsOccupancy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(2))
	_, _ = r.Park("KA-01-HH-1234", "White", "Car")
	_, _ = r.Park("KA-01-HH-9999", "White", "Car")

	require.NoError(t, r.Initialize(3))

	report := BuildReport(r.Snapshot())
	assert.Equal(t, 0, report.Occupied)
	assert.Equal(t, 3, report.Available)

	slotNumber, err := r.Park("KA-01-P-333", "White", "Truck")
	require.NoError(t, err)
	assert.Equal(t, 1, slotNumber)
}

func TestRegistryParkUninitialized(t *testing.T) {
	r := NewRegistry()

	_, err := r.Park("KA-01-HH-1234", "White", "Car")
	assert.ErrorIs(t, err, ErrLotFull)
}

func TestRegistryZeroValue(t *testing.T) {
	var r Registry

	_, err := r.Park("KA-01-HH-1234", "White", "Car")
	assert.ErrorIs(t, err, ErrLotFull)
	assert.ErrorIs(t, r.Leave(1), ErrSlotNotFound)
	assert.Empty(t, r.Snapshot())
	assert.Equal(t, 0, r.Capacity())

	require.NoError(t, r.Initialize(1))
	slotNumber, err := r.Park("KA-01-HH-1234", "White", "Car")
	require.NoError(t, err)
	assert.Equal(t, 1, slotNumber)
}

func TestRegistryPark(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(3))

	for want, reg := range []string{"KA01HH1234", "KA01HH9999", "KA01BB0001"} {
		slotNumber, err := r.Park(reg, "White", "Car")
		require.NoError(t, err)
		assert.Equal(t, want+1, slotNumber)
	}

	before := r.Snapshot()
	_, err := r.Park("KA01HH7777", "Blue", "Car")
	assert.ErrorIs(t, err, ErrLotFull)
	assert.Equal(t, before, r.Snapshot(), "a rejected park must not mutate the lot")
}

func TestRegistryLeave(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(3))
	_, _ = r.Park("KA01HH1234", "White", "Car")
	_, _ = r.Park("KA01HH9999", "Black", "Car")

	require.NoError(t, r.Leave(1))

	slots := r.Snapshot()
	assert.False(t, slots[0].IsOccupied)
	assert.Nil(t, slots[0].Vehicle)

	slotNumber, err := r.Park("KA01BB0001", "Red", "Car")
	require.NoError(t, err)
	assert.Equal(t, 1, slotNumber, "expected to reuse slot 1")
}

func TestRegistryLeaveUnknownSlot(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Leave(1), ErrSlotNotFound)

	require.NoError(t, r.Initialize(2))
	assert.ErrorIs(t, r.Leave(0), ErrSlotNotFound)
	assert.ErrorIs(t, r.Leave(3), ErrSlotNotFound)
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(3))
	_, _ = r.Park("KA01HH1234", "White", "Car")
	_, _ = r.Park("KA01HH9999", "Black", "Car")

	require.NoError(t, r.Leave(2))
	once := r.Snapshot()
	require.NoError(t, r.Leave(2))
	assert.Equal(t, once, r.Snapshot())

	// The freed slot is handed out once, not twice.
	first, err := r.Park("A1", "Red", "Car")
	require.NoError(t, err)
	second, err := r.Park("A2", "Red", "Car")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, []int{first, second})

	_, err = r.Park("A3", "Red", "Car")
	assert.ErrorIs(t, err, ErrLotFull)
}

func TestRegistryFirstFitAfterScatteredLeaves(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(6))
	for i := 1; i <= 6; i++ {
		_, err := r.Park(fmt.Sprintf("KA-01-HH-%04d", i), "White", "Car")
		require.NoError(t, err)
	}

	require.NoError(t, r.Leave(5))
	require.NoError(t, r.Leave(2))
	require.NoError(t, r.Leave(4))

	for _, want := range []int{2, 4, 5} {
		got, err := r.Park("NEW-1", "Red", "Car")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(1))
	_, _ = r.Park("KA01HH1234", "White", "Car")

	snapshot := r.Snapshot()
	snapshot[0].Vehicle.RegistrationNumber = "changed"
	snapshot[0].IsOccupied = false

	fresh := r.Snapshot()
	assert.True(t, fresh[0].IsOccupied)
	assert.Equal(t, "KA01HH1234", fresh[0].Vehicle.RegistrationNumber)
}

func TestRegistryTwoSlotScenario(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Initialize(2))

	slotNumber, err := r.Park("KA-01-HH-1234", "White", "Car")
	require.NoError(t, err)
	assert.Equal(t, 1, slotNumber)

	slotNumber, err = r.Park("KA-01-HH-9999", "White", "Car")
	require.NoError(t, err)
	assert.Equal(t, 2, slotNumber)

	_, err = r.Park("KA-01-P-333", "White", "Truck")
	assert.ErrorIs(t, err, ErrLotFull)

	require.NoError(t, r.Leave(1))

	slotNumber, err = r.Park("KA-01-P-333", "White", "Truck")
	require.NoError(t, err)
	assert.Equal(t, 1, slotNumber)
}

func TestRegistryFillsInOrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 200).Draw(rt, "capacity")

		r := NewRegistry()
		if err := r.Initialize(capacity); err != nil {
			rt.Fatalf("initialize(%d): %v", capacity, err)
		}

		report := BuildReport(r.Snapshot())
		if report.Available != capacity || report.Occupied != 0 {
			rt.Fatalf("fresh lot: occupied=%d available=%d capacity=%d", report.Occupied, report.Available, capacity)
		}

		for want := 1; want <= capacity; want++ {
			got, err := r.Park(fmt.Sprintf("R%d", want), "White", "Car")
			if err != nil {
				rt.Fatalf("park %d: %v", want, err)
			}
			if got != want {
				rt.Fatalf("expected slot %d, got %d", want, got)
			}
		}

		if _, err := r.Park("overflow", "White", "Car"); err != ErrLotFull {
			rt.Fatalf("expected ErrLotFull after %d parks, got %v", capacity, err)
		}
	})
}

// The registry must agree with a naive first-fit scan over any sequence of
// parks and leaves.
func TestRegistryMatchesLinearScanProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 20).Draw(rt, "capacity")
		steps := rapid.IntRange(1, 100).Draw(rt, "steps")

		r := NewRegistry()
		if err := r.Initialize(capacity); err != nil {
			rt.Fatal(err)
		}
		model := make([]bool, capacity)

		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "park") {
				want := 0
				for n, occupied := range model {
					if !occupied {
						want = n + 1
						break
					}
				}

				got, err := r.Park(fmt.Sprintf("R%d", i), "White", "Car")
				if want == 0 {
					if err != ErrLotFull {
						rt.Fatalf("step %d: expected ErrLotFull, got slot %d err %v", i, got, err)
					}
					continue
				}
				if err != nil || got != want {
					rt.Fatalf("step %d: expected slot %d, got %d err %v", i, want, got, err)
				}
				model[want-1] = true
				continue
			}

			slotNumber := rapid.IntRange(1, capacity).Draw(rt, "leave")
			if err := r.Leave(slotNumber); err != nil {
				rt.Fatalf("step %d: leave %d: %v", i, slotNumber, err)
			}
			model[slotNumber-1] = false
		}

		report := BuildReport(r.Snapshot())
		occupied := 0
		for _, o := range model {
			if o {
				occupied++
			}
		}
		if report.Occupied != occupied || report.Occupied+report.Available != capacity {
			rt.Fatalf("report %+v disagrees with model occupied=%d", report, occupied)
		}
	})
}
