package parking

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type instrumentationHarness struct {
	service  *InstrumentedService
	recorder *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
}

func newInstrumentationHarness(t *testing.T) *instrumentationHarness {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tracerProvider.Shutdown(context.Background())
		_ = meterProvider.Shutdown(context.Background())
	})

	base := NewSyncService(NewService(NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil))))
	svc, err := NewInstrumentedService(base, tracerProvider.Tracer("test"), meterProvider.Meter("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return &instrumentationHarness{service: svc, recorder: recorder, reader: reader}
}

func (h *instrumentationHarness) collect(t *testing.T) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, h.reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func (h *instrumentationHarness) spanNames() []string {
	var names []string
	for _, span := range h.recorder.Ended() {
		names = append(names, span.Name())
	}
	return names
}

func TestInstrumentedServiceSpans(t *testing.T) {
	h := newInstrumentationHarness(t)
	ctx := context.Background()

	require.NoError(t, h.service.CreateParkingLot(ctx, 1))

	slotNumber, err := h.service.Park(ctx, "KA01HH1234", "White", "Car")
	require.NoError(t, err)
	assert.Equal(t, 1, slotNumber)

	_, err = h.service.Park(ctx, "KA01HH9999", "White", "Car")
	assert.ErrorIs(t, err, ErrLotFull)

	foundSlot, err := h.service.SlotForRegistration(ctx, "KA01HH1234")
	require.NoError(t, err)
	assert.Equal(t, 1, foundSlot)

	assert.Equal(t, []string{"KA01HH1234"}, h.service.RegistrationsByColor(ctx, "white"))
	assert.Equal(t, []int{1}, h.service.SlotsByColor(ctx, "White"))
	assert.Equal(t, 1, h.service.Report(ctx).Occupied)

	require.NoError(t, h.service.Leave(ctx, 1))
	assert.ErrorIs(t, h.service.Leave(ctx, 9), ErrSlotNotFound)

	assert.Equal(t, []string{
		"parking_lot.create",
		"parking_lot.park",
		"parking_lot.park",
		"parking_lot.get_slot_by_registration",
		"parking_lot.registrations_by_color",
		"parking_lot.slots_by_color",
		"parking_lot.report",
		"parking_lot.leave",
		"parking_lot.leave",
	}, h.spanNames())

	ended := h.recorder.Ended()
	assert.Equal(t, codes.Unset, ended[1].Status().Code)
	assert.Equal(t, codes.Error, ended[2].Status().Code)
	assert.Equal(t, codes.Error, ended[8].Status().Code)
}

func TestInstrumentedServiceMetrics(t *testing.T) {
	h := newInstrumentationHarness(t)
	ctx := context.Background()

	require.NoError(t, h.service.CreateParkingLot(ctx, 3))
	_, _ = h.service.Park(ctx, "A-1", "White", "Car")
	_, _ = h.service.Park(ctx, "A-2", "White", "Car")
	_ = h.service.Leave(ctx, 1)

	metrics := h.collect(t)

	parks, ok := metrics["parking_operations_total"].(metricdata.Sum[int64])
	require.True(t, ok, "parking_operations_total missing")
	var parkTotal int64
	for _, dp := range parks.DataPoints {
		parkTotal += dp.Value
	}
	assert.Equal(t, int64(2), parkTotal)

	leaves, ok := metrics["leaving_operations_total"].(metricdata.Sum[int64])
	require.True(t, ok, "leaving_operations_total missing")
	require.Len(t, leaves.DataPoints, 1)
	assert.Equal(t, int64(1), leaves.DataPoints[0].Value)

	occupancy, ok := metrics["parking_lot_occupancy"].(metricdata.Gauge[int64])
	require.True(t, ok, "parking_lot_occupancy missing")
	require.Len(t, occupancy.DataPoints, 1)
	assert.Equal(t, int64(1), occupancy.DataPoints[0].Value)

	total, ok := metrics["parking_lot_total_slots"].(metricdata.Gauge[int64])
	require.True(t, ok, "parking_lot_total_slots missing")
	require.Len(t, total.DataPoints, 1)
	assert.Equal(t, int64(3), total.DataPoints[0].Value)

	_, ok = metrics["operation_duration_seconds"].(metricdata.Histogram[float64])
	assert.True(t, ok, "operation_duration_seconds missing")
}

func TestInstrumentedShellTraces(t *testing.T) {
	h := newInstrumentationHarness(t)
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.recorder)).Tracer("shell")

	shell := NewShell(h.service, strings.NewReader("create_parking_lot 1\nbogus\nexit\n"), io.Discard,
		WithTracer(tracer), WithPrompt(""))
	require.NoError(t, shell.Run(context.Background()))

	names := h.spanNames()
	assert.Contains(t, names, "shell.run")
	assert.Contains(t, names, "shell.process_command")
	assert.Contains(t, names, "parking_lot.create")
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "success", statusOf(nil))
	assert.Equal(t, "full", statusOf(ErrLotFull))
	assert.Equal(t, "not_found", statusOf(ErrSlotNotFound))
	assert.Equal(t, "not_found", statusOf(ErrVehicleNotFound))
	assert.Equal(t, "invalid", statusOf(ErrInvalidCapacity))
	assert.Equal(t, "failed", statusOf(io.ErrUnexpectedEOF))
}
