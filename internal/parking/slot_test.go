package parking

import "testing"

func TestNewSlot(t *testing.T) {
	slot := NewSlot(4)

	if slot.Number != 4 {
		t.Errorf("Expected slot number 4, got %d", slot.Number)
	}

	if slot.IsOccupied {
		t.Error("Expected new slot to be unoccupied")
	}

	if slot.Vehicle != nil {
		t.Error("Expected new slot to have no vehicle")
	}
}

func TestSlotParkAndLeave(t *testing.T) {
	slot := NewSlot(1)
	vehicle := NewVehicle("KA-01-HH-1234", "White", "Car")

	slot.Park(vehicle)
	if !slot.IsOccupied || slot.Vehicle != vehicle {
		t.Fatal("Expected slot to hold the parked vehicle")
	}

	leavingVehicle := slot.Leave()
	if slot.IsOccupied {
		t.Error("Expected slot to be unoccupied after leaving")
	}
	if slot.Vehicle != nil {
		t.Error("Expected slot to have no vehicle after leaving")
	}
	if leavingVehicle != vehicle {
		t.Error("Expected leaving vehicle to be the same as parked vehicle")
	}

	if again := slot.Leave(); again != nil {
		t.Errorf("Expected no vehicle from an empty slot, got %v", again)
	}
}

func TestSlotCopyIsDetached(t *testing.T) {
	slot := NewSlot(2)
	slot.Park(NewVehicle("KA-01-HH-9999", "White", "Car"))

	snapshot := slot.copy()
	snapshot.Vehicle.Color = "Black"

	if slot.Vehicle.Color != "White" {
		t.Errorf("Expected original vehicle to stay White, got %s", slot.Vehicle.Color)
	}
}
