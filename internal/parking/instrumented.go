package parking

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedService traces every call into the wrapped UseCase and records
// operation metrics. Occupancy is observed from the lot itself at collection
// time, so the wrapped UseCase must be safe for concurrent reads.
type InstrumentedService struct {
	next   UseCase
	tracer trace.Tracer

	// Metrics
	parkingOperations metric.Int64Counter
	leavingOperations metric.Int64Counter
	operationDuration metric.Float64Histogram
	occupancyGauge    metric.Int64ObservableGauge
	totalSlotsGauge   metric.Int64ObservableGauge
	registration      metric.Registration
}

var _ UseCase = (*InstrumentedService)(nil)

func NewInstrumentedService(next UseCase, tracer trace.Tracer, meter metric.Meter) (*InstrumentedService, error) {
	parkingOperations, err := meter.Int64Counter("parking_operations_total",
		metric.WithDescription("Total number of parking operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	leavingOperations, err := meter.Int64Counter("leaving_operations_total",
		metric.WithDescription("Total number of leaving operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking lot operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64ObservableGauge("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	totalSlotsGauge, err := meter.Int64ObservableGauge("parking_lot_total_slots",
		metric.WithDescription("Total number of parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	s := &InstrumentedService{
		next:              next,
		tracer:            tracer,
		parkingOperations: parkingOperations,
		leavingOperations: leavingOperations,
		operationDuration: operationDuration,
		occupancyGauge:    occupancyGauge,
		totalSlotsGauge:   totalSlotsGauge,
	}

	s.registration, err = meter.RegisterCallback(s.observeOccupancy, occupancyGauge, totalSlotsGauge)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Close stops occupancy observation.
func (s *InstrumentedService) Close() error {
	return s.registration.Unregister()
}

func (s *InstrumentedService) observeOccupancy(ctx context.Context, o metric.Observer) error {
	slots := s.next.Slots(ctx)
	occupied := 0
	for _, slot := range slots {
		if slot.IsOccupied {
			occupied++
		}
	}
	o.ObserveInt64(s.occupancyGauge, int64(occupied))
	o.ObserveInt64(s.totalSlotsGauge, int64(len(slots)))
	return nil
}

func (s *InstrumentedService) CreateParkingLot(ctx context.Context, capacity int) error {
	ctx, span := s.tracer.Start(ctx, "parking_lot.create",
		trace.WithAttributes(attribute.Int("parking_lot.capacity", capacity)))
	defer span.End()

	start := time.Now()
	err := s.next.CreateParkingLot(ctx, capacity)
	s.finish(ctx, span, "create", start, err)

	if err == nil {
		span.AddEvent("parking_lot_created")
	}
	return err
}

func (s *InstrumentedService) Park(ctx context.Context, registrationNumber, color, vehicleType string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "parking_lot.park",
		trace.WithAttributes(
			attribute.String("vehicle.registration_number", registrationNumber),
			attribute.String("vehicle.color", color),
			attribute.String("vehicle.type", vehicleType),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("finding_available_slot")

	slotNumber, err := s.next.Park(ctx, registrationNumber, color, vehicleType)

	labels := []attribute.KeyValue{
		attribute.String("operation", "park"),
		attribute.String("vehicle_type", vehicleType),
		attribute.String("status", statusOf(err)),
	}
	s.parkingOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	s.finish(ctx, span, "park", start, err)

	if err == nil {
		span.SetAttributes(attribute.Int("allocated_slot_number", slotNumber))
		span.AddEvent("slot_allocated", trace.WithAttributes(
			attribute.Int("slot_number", slotNumber),
		))
	}

	return slotNumber, err
}

func (s *InstrumentedService) Leave(ctx context.Context, slotNumber int) error {
	ctx, span := s.tracer.Start(ctx, "parking_lot.leave",
		trace.WithAttributes(
			attribute.Int("slot_number", slotNumber),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_slot")

	err := s.next.Leave(ctx, slotNumber)

	s.leavingOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", "leave"),
		attribute.String("status", statusOf(err)),
	))
	s.finish(ctx, span, "leave", start, err)

	if err == nil {
		span.AddEvent("slot_released")
	}
	return err
}

func (s *InstrumentedService) Report(ctx context.Context) Report {
	ctx, span := s.tracer.Start(ctx, "parking_lot.report")
	defer span.End()

	start := time.Now()
	report := s.next.Report(ctx)

	span.SetAttributes(
		attribute.Int("occupied_slots_count", report.Occupied),
		attribute.Int("total_capacity", report.Capacity),
		attribute.Int("unclassified_plates_count", len(report.Unclassified)),
	)
	s.finish(ctx, span, "report", start, nil)

	return report
}

func (s *InstrumentedService) Slots(ctx context.Context) []Slot {
	ctx, span := s.tracer.Start(ctx, "parking_lot.slots")
	defer span.End()

	start := time.Now()
	slots := s.next.Slots(ctx)

	span.SetAttributes(attribute.Int("total_capacity", len(slots)))
	s.finish(ctx, span, "slots", start, nil)

	return slots
}

func (s *InstrumentedService) RegistrationsByColor(ctx context.Context, color string) []string {
	ctx, span := s.tracer.Start(ctx, "parking_lot.registrations_by_color",
		trace.WithAttributes(attribute.String("vehicle.color", color)))
	defer span.End()

	start := time.Now()
	registrations := s.next.RegistrationsByColor(ctx, color)

	span.SetAttributes(attribute.Int("match_count", len(registrations)))
	s.finish(ctx, span, "registrations_by_color", start, nil)

	return registrations
}

func (s *InstrumentedService) SlotsByColor(ctx context.Context, color string) []int {
	ctx, span := s.tracer.Start(ctx, "parking_lot.slots_by_color",
		trace.WithAttributes(attribute.String("vehicle.color", color)))
	defer span.End()

	start := time.Now()
	numbers := s.next.SlotsByColor(ctx, color)

	span.SetAttributes(attribute.Int("match_count", len(numbers)))
	s.finish(ctx, span, "slots_by_color", start, nil)

	return numbers
}

func (s *InstrumentedService) SlotForRegistration(ctx context.Context, registrationNumber string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "parking_lot.get_slot_by_registration",
		trace.WithAttributes(
			attribute.String("registration_number", registrationNumber),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("searching_by_registration")

	slotNumber, err := s.next.SlotForRegistration(ctx, registrationNumber)

	if err != nil {
		span.AddEvent("vehicle_not_found")
	} else {
		span.SetAttributes(attribute.Int("found_slot_number", slotNumber))
		span.AddEvent("vehicle_found", trace.WithAttributes(
			attribute.Int("slot_number", slotNumber),
		))
	}

	// A missing vehicle is an answer, not a failure.
	s.record(ctx, "get_slot_by_registration", start, statusOf(err))

	return slotNumber, err
}

func (s *InstrumentedService) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.record(ctx, operation, start, statusOf(err))
}

func (s *InstrumentedService) record(ctx context.Context, operation string, start time.Time, status string) {
	s.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrLotFull):
		return "full"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrInvalidCapacity):
		return "invalid"
	default:
		return "failed"
	}
}
