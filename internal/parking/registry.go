package parking

import "fmt"

// Registry owns the slots of one lot. It is not safe for concurrent use; wrap
// the service in a SyncService when more than one goroutine can reach it.
type Registry struct {
	capacity int
	slots    []*Slot
	free     *freeSlots
}

// NewRegistry returns an uninitialized registry. Parking into it always
// reports ErrLotFull until Initialize is called. The zero value behaves the
// same way.
func NewRegistry() *Registry {
	return &Registry{free: newFreeSlots(0)}
}

// Initialize discards every slot and creates capacity fresh, free slots
// numbered from 1.
func (r *Registry) Initialize(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("initialize with %d slots: %w", capacity, ErrInvalidCapacity)
	}

	slots := make([]*Slot, capacity)
	for i := 0; i < capacity; i++ {
		slots[i] = NewSlot(i + 1)
	}

	r.capacity = capacity
	r.slots = slots
	r.free = newFreeSlots(capacity)
	return nil
}

func (r *Registry) Capacity() int {
	return r.capacity
}

// Park puts the vehicle into the lowest-numbered free slot.
func (r *Registry) Park(registrationNumber, color, vehicleType string) (int, error) {
	number, ok := r.free.take()
	if !ok {
		return 0, ErrLotFull
	}

	r.slots[number-1].Park(NewVehicle(registrationNumber, color, vehicleType))
	return number, nil
}

// Leave frees the slot. Leaving an already free slot is a no-op.
func (r *Registry) Leave(slotNumber int) error {
	if slotNumber < 1 || slotNumber > r.capacity {
		return fmt.Errorf("slot %d: %w", slotNumber, ErrSlotNotFound)
	}

	slot := r.slots[slotNumber-1]
	if !slot.IsOccupied {
		return nil
	}

	slot.Leave()
	r.free.release(slotNumber)
	return nil
}

// Snapshot returns a copy of every slot in slot-number order.
func (r *Registry) Snapshot() []Slot {
	out := make([]Slot, len(r.slots))
	for i, slot := range r.slots {
		out[i] = slot.copy()
	}
	return out
}
