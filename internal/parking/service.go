package parking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// UseCase is everything the shell and the HTTP server need from a lot.
type UseCase interface {
	CreateParkingLot(ctx context.Context, capacity int) error
	Park(ctx context.Context, registrationNumber, color, vehicleType string) (int, error)
	Leave(ctx context.Context, slotNumber int) error
	Report(ctx context.Context) Report
	Slots(ctx context.Context) []Slot
	RegistrationsByColor(ctx context.Context, color string) []string
	SlotsByColor(ctx context.Context, color string) []int
	SlotForRegistration(ctx context.Context, registrationNumber string) (int, error)
}

// Service is the single-threaded UseCase backed by a Registry.
type Service struct {
	registry *Registry
	logger   *slog.Logger
}

var _ UseCase = (*Service)(nil)

func NewService(registry *Registry, logger *slog.Logger) *Service {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		logger:   logger.With(slog.String("component", "parking")),
	}
}

func (s *Service) CreateParkingLot(ctx context.Context, capacity int) error {
	previous := s.registry.Capacity()
	if err := s.registry.Initialize(capacity); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "parking lot created",
		slog.Int("capacity", capacity),
		slog.Int("previous_capacity", previous),
	)
	return nil
}

func (s *Service) Park(ctx context.Context, registrationNumber, color, vehicleType string) (int, error) {
	slotNumber, err := s.registry.Park(registrationNumber, color, vehicleType)
	if err != nil {
		s.logger.DebugContext(ctx, "park rejected",
			slog.String("registration", registrationNumber),
			slog.String("error", err.Error()),
		)
		return 0, err
	}

	s.logger.DebugContext(ctx, "vehicle parked",
		slog.String("registration", registrationNumber),
		slog.String("color", color),
		slog.String("vehicle_type", vehicleType),
		slog.Int("slot", slotNumber),
	)
	return slotNumber, nil
}

func (s *Service) Leave(ctx context.Context, slotNumber int) error {
	if err := s.registry.Leave(slotNumber); err != nil {
		s.logger.WarnContext(ctx, "leave on unknown slot",
			slog.Int("slot", slotNumber),
			slog.Int("capacity", s.registry.Capacity()),
		)
		return err
	}

	s.logger.DebugContext(ctx, "slot freed", slog.Int("slot", slotNumber))
	return nil
}

func (s *Service) Report(ctx context.Context) Report {
	report := BuildReport(s.registry.Snapshot())
	for _, registration := range report.Unclassified {
		s.logger.WarnContext(ctx, "registration excluded from plate parity",
			slog.String("registration", registration),
			slog.String("error", ErrUnparsablePlateDigit.Error()),
		)
	}
	return report
}

func (s *Service) Slots(ctx context.Context) []Slot {
	return s.registry.Snapshot()
}

// RegistrationsByColor matches colors case-insensitively, in slot order.
func (s *Service) RegistrationsByColor(ctx context.Context, color string) []string {
	registrations := []string{}
	for _, slot := range s.registry.Snapshot() {
		if slot.IsOccupied && strings.EqualFold(slot.Vehicle.Color, color) {
			registrations = append(registrations, slot.Vehicle.RegistrationNumber)
		}
	}
	return registrations
}

func (s *Service) SlotsByColor(ctx context.Context, color string) []int {
	numbers := []int{}
	for _, slot := range s.registry.Snapshot() {
		if slot.IsOccupied && strings.EqualFold(slot.Vehicle.Color, color) {
			numbers = append(numbers, slot.Number)
		}
	}
	return numbers
}

func (s *Service) SlotForRegistration(ctx context.Context, registrationNumber string) (int, error) {
	for _, slot := range s.registry.Snapshot() {
		if slot.IsOccupied && slot.Vehicle.RegistrationNumber == registrationNumber {
			return slot.Number, nil
		}
	}
	return 0, fmt.Errorf("%s: %w", registrationNumber, ErrVehicleNotFound)
}

// IsNotFound reports whether err means a slot or vehicle lookup came up empty.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSlotNotFound) || errors.Is(err, ErrVehicleNotFound)
}
