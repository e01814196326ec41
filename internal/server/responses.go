package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"parking-lot/internal/parking"
)

// Error codes carried in Response.Code so clients need not parse messages.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeLotFull         = "lot_full"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Response is the envelope around every JSON body the API writes.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

var (
	errMissingVehicleFields = errors.New("registration, color and vehicle_type are required")
	errBadSlotNumber        = errors.New("slot_number must be a positive integer")
)

type ParkingLotCreateRequest struct {
	Capacity int `json:"capacity"`
}

type ParkVehicleRequest struct {
	Registration string `json:"registration"`
	Color        string `json:"color"`
	VehicleType  string `json:"vehicle_type"`
}

func (r ParkVehicleRequest) validate() error {
	if r.Registration == "" || r.Color == "" || r.VehicleType == "" {
		return errMissingVehicleFields
	}
	return nil
}

// LeaveSlotRequest uses a pointer so an absent slot_number is told apart
// from an explicit one.
type LeaveSlotRequest struct {
	SlotNumber *int `json:"slot_number"`
}

func (r LeaveSlotRequest) validate() error {
	if r.SlotNumber == nil || *r.SlotNumber <= 0 {
		return errBadSlotNumber
	}
	return nil
}

type CreateResponse struct {
	Capacity int `json:"capacity"`
}

type LeaveResponse struct {
	SlotNumber int `json:"slot_number"`
}

type VehicleResponse struct {
	SlotNumber   int    `json:"slot_number"`
	Registration string `json:"registration"`
	Color        string `json:"color"`
	VehicleType  string `json:"vehicle_type"`
}

func newVehicleResponse(slot parking.Slot) VehicleResponse {
	return VehicleResponse{
		SlotNumber:   slot.Number,
		Registration: slot.Vehicle.RegistrationNumber,
		Color:        slot.Vehicle.Color,
		VehicleType:  slot.Vehicle.Type,
	}
}

type SlotStatus struct {
	SlotNumber   int    `json:"slot_number"`
	Registration string `json:"registration,omitempty"`
	Color        string `json:"color,omitempty"`
	VehicleType  string `json:"vehicle_type,omitempty"`
	Occupied     bool   `json:"occupied"`
}

type StatusResponse struct {
	Capacity  int          `json:"capacity"`
	Occupied  int          `json:"occupied"`
	Available int          `json:"available"`
	Slots     []SlotStatus `json:"slots"`
}

func newStatusResponse(snapshot []parking.Slot) StatusResponse {
	resp := StatusResponse{
		Capacity: len(snapshot),
		Slots:    make([]SlotStatus, 0, len(snapshot)),
	}
	for _, slot := range snapshot {
		status := SlotStatus{SlotNumber: slot.Number}
		if slot.IsOccupied {
			resp.Occupied++
			status.Occupied = true
			status.Registration = slot.Vehicle.RegistrationNumber
			status.Color = slot.Vehicle.Color
			status.VehicleType = slot.Vehicle.Type
		}
		resp.Slots = append(resp.Slots, status)
	}
	resp.Available = resp.Capacity - resp.Occupied
	return resp
}

type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type ReportResponse struct {
	Capacity     int          `json:"capacity"`
	Occupied     int          `json:"occupied"`
	Available    int          `json:"available"`
	VehicleTypes []GroupCount `json:"vehicle_types"`
	Colors       []GroupCount `json:"colors"`
	OddPlates    []string     `json:"odd_plates"`
	EvenPlates   []string     `json:"even_plates"`
	Unclassified []string     `json:"unclassified,omitempty"`
}

func newReportResponse(r parking.Report) ReportResponse {
	return ReportResponse{
		Capacity:     r.Capacity,
		Occupied:     r.Occupied,
		Available:    r.Available,
		VehicleTypes: groupCounts(r.VehicleTypes),
		Colors:       groupCounts(r.Colors),
		OddPlates:    nonNil(r.OddPlates),
		EvenPlates:   nonNil(r.EvenPlates),
		Unclassified: r.Unclassified,
	}
}

func groupCounts(groups []parking.GroupCount) []GroupCount {
	out := make([]GroupCount, len(groups))
	for i, g := range groups {
		out[i] = GroupCount{Key: g.Key, Count: g.Count}
	}
	return out
}

// nonNil keeps empty lists as [] rather than null on the wire.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type TypeCountResponse struct {
	VehicleType string `json:"vehicle_type"`
	Count       int    `json:"count"`
}

type PlatesResponse struct {
	Parity        string   `json:"parity"`
	Registrations []string `json:"registrations"`
}

type ColorRegistrationsResponse struct {
	Color         string   `json:"color"`
	Registrations []string `json:"registrations"`
}

type ColorSlotsResponse struct {
	Color       string `json:"color"`
	SlotNumbers []int  `json:"slot_numbers"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func metaFrom(ctx context.Context) *Meta {
	meta := &Meta{}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.HasTraceID() {
		meta.TraceID = spanCtx.TraceID().String()
	}
	meta.RequestID, _ = ctx.Value(RequestIDKey).(string)
	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    metaFrom(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Code:    code,
		Meta:    metaFrom(ctx),
	})
}
