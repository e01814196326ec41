package parking

// Slot is a numbered parking space. A free slot never carries a vehicle.
type Slot struct {
	Number     int
	IsOccupied bool
	Vehicle    *Vehicle
}

func NewSlot(number int) *Slot {
	return &Slot{
		Number:     number,
		IsOccupied: false,
		Vehicle:    nil,
	}
}

func (s *Slot) Park(vehicle *Vehicle) {
	s.Vehicle = vehicle
	s.IsOccupied = true
}

// Leave empties the slot and returns the vehicle that was in it, if any.
func (s *Slot) Leave() *Vehicle {
	vehicle := s.Vehicle
	s.Vehicle = nil
	s.IsOccupied = false
	return vehicle
}

// copy returns a detached value so callers never alias registry state.
func (s *Slot) copy() Slot {
	out := Slot{Number: s.Number, IsOccupied: s.IsOccupied}
	if s.Vehicle != nil {
		v := *s.Vehicle
		out.Vehicle = &v
	}
	return out
}
