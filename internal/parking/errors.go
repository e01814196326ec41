package parking

import "errors"

var (
	ErrInvalidCapacity      = errors.New("capacity must be greater than 0")
	ErrLotFull              = errors.New("parking lot is full")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrVehicleNotFound      = errors.New("vehicle not found")
	ErrUnparsablePlateDigit = errors.New("registration does not end in a digit")
)
