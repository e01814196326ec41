package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"parking-lot/internal/parking"
)

type Handler struct {
	useCase     parking.UseCase
	logger      *slog.Logger
	serviceName string
}

func NewHandler(useCase parking.UseCase, logger *slog.Logger, serviceName string) *Handler {
	return &Handler{
		useCase:     useCase,
		logger:      logger,
		serviceName: serviceName,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Service is healthy", HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
	})
}

func (h *Handler) CreateParkingLot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkingLotCreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.useCase.CreateParkingLot(ctx, req.Capacity); err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Parking lot created successfully", CreateResponse{Capacity: req.Capacity})
}

func (h *Handler) ParkVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req ParkVehicleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
		return
	}

	slotNumber, err := h.useCase.Park(ctx, req.Registration, req.Color, req.VehicleType)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Vehicle parked successfully", VehicleResponse{
		SlotNumber:   slotNumber,
		Registration: req.Registration,
		Color:        req.Color,
		VehicleType:  req.VehicleType,
	})
}

func (h *Handler) LeaveSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req LeaveSlotRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
		return
	}

	if err := h.useCase.Leave(ctx, *req.SlotNumber); err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	WriteSuccess(ctx, w, "Slot vacated successfully", LeaveResponse{SlotNumber: *req.SlotNumber})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	WriteSuccess(ctx, w, "Status retrieved successfully", newStatusResponse(h.useCase.Slots(ctx)))
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	WriteSuccess(ctx, w, "Report generated successfully", newReportResponse(h.useCase.Report(ctx)))
}

func (h *Handler) CountByType(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vehicleType := chi.URLParam(r, "type")

	WriteSuccess(ctx, w, "Vehicle count retrieved", TypeCountResponse{
		VehicleType: vehicleType,
		Count:       h.useCase.Report(ctx).TypeCount(vehicleType),
	})
}

func (h *Handler) PlatesByParity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parity, ok := parking.ParsePlateParity(chi.URLParam(r, "parity"))
	if !ok {
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidArgument, "Parity must be odd or even")
		return
	}

	WriteSuccess(ctx, w, "Registrations retrieved", PlatesResponse{
		Parity:        parity.String(),
		Registrations: nonNil(h.useCase.Report(ctx).Plates(parity)),
	})
}

func (h *Handler) RegistrationsByColor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	color := chi.URLParam(r, "color")

	WriteSuccess(ctx, w, "Registrations retrieved", ColorRegistrationsResponse{
		Color:         color,
		Registrations: nonNil(h.useCase.RegistrationsByColor(ctx, color)),
	})
}

func (h *Handler) SlotsByColor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	color := chi.URLParam(r, "color")

	WriteSuccess(ctx, w, "Slot numbers retrieved", ColorSlotsResponse{
		Color:       color,
		SlotNumbers: nonNil(h.useCase.SlotsByColor(ctx, color)),
	})
}

func (h *Handler) FindByRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registration := strings.TrimSpace(chi.URLParam(r, "registration"))
	if registration == "" {
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidArgument, "Registration number is required")
		return
	}

	slotNumber, err := h.useCase.SlotForRegistration(ctx, registration)
	if err != nil {
		h.writeUseCaseError(w, r, err)
		return
	}

	for _, slot := range h.useCase.Slots(ctx) {
		if slot.Number == slotNumber && slot.IsOccupied {
			WriteSuccess(ctx, w, "Vehicle found", newVehicleResponse(slot))
			return
		}
	}

	// The vehicle left between the two reads.
	WriteError(ctx, w, http.StatusNotFound, CodeNotFound, "Vehicle not found")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(r.Context(), w, http.StatusBadRequest, CodeInvalidArgument, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) writeUseCaseError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, parking.ErrInvalidCapacity):
		WriteError(ctx, w, http.StatusBadRequest, CodeInvalidArgument, err.Error())
	case errors.Is(err, parking.ErrLotFull):
		WriteError(ctx, w, http.StatusConflict, CodeLotFull, "Sorry, parking lot is full")
	case parking.IsNotFound(err):
		WriteError(ctx, w, http.StatusNotFound, CodeNotFound, err.Error())
	default:
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteError(ctx, w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
