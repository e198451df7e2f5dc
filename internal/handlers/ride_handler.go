package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ecoride/backend/internal/middleware"
	"github.com/ecoride/backend/internal/models"
	"github.com/ecoride/backend/internal/services"
)

// RideHandler exposes ride publishing, the search/detail query surface
// and the driver lifecycle operations (start, complete, cancel).
type RideHandler struct {
	rides     *services.RideService
	engine    *services.BookingEngine
	validator *services.ValidationHelper
}

func NewRideHandler(rides *services.RideService, engine *services.BookingEngine) *RideHandler {
	return &RideHandler{
		rides:     rides,
		engine:    engine,
		validator: services.NewValidationHelper(),
	}
}

// Publish creates a new ride
// @Summary Publish a ride
// @Description Publish a carpool ride with all seats available
// @Tags rides
// @Accept json
// @Produce json
// @Param request body models.PublishRideRequest true "Ride details"
// @Success 201 {object} models.Ride
// @Failure 400 {object} services.ErrorResponse
// @Router /rides [post]
func (h *RideHandler) Publish(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req models.PublishRideRequest
	if err := dec.Decode(&req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ride, err := h.rides.Publish(r.Context(), callerID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSchedule):
			respondError(w, http.StatusBadRequest, "invalid_schedule", err.Error(), nil)
		case errors.Is(err, services.ErrVehicleNotOwned):
			respondError(w, http.StatusBadRequest, "vehicle_not_owned", err.Error(), nil)
		default:
			respondEngineError(w, err)
		}
		return
	}

	respondJSON(w, http.StatusCreated, ride)
}

// Search lists bookable rides
// @Summary Search rides
// @Description List published future rides with seats left
// @Tags rides
// @Produce json
// @Param from query string false "Departure city"
// @Param to query string false "Arrival city"
// @Param date query string false "Departure date (YYYY-MM-DD)"
// @Param max_price query int false "Maximum price in credits"
// @Success 200 {array} models.RideSummary
// @Router /rides [get]
func (h *RideHandler) Search(w http.ResponseWriter, r *http.Request) {
	criteria := models.RideSearchCriteria{
		DepartureCity: r.URL.Query().Get("from"),
		ArrivalCity:   r.URL.Query().Get("to"),
		Date:          r.URL.Query().Get("date"),
	}
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		maxPrice, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || maxPrice < 0 {
			respondError(w, http.StatusBadRequest, "validation_error", "Invalid max_price", nil)
			return
		}
		criteria.MaxPrice = maxPrice
	}
	if criteria.Date != "" {
		if _, err := time.Parse("2006-01-02", criteria.Date); err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "Invalid date, expected YYYY-MM-DD", nil)
			return
		}
	}

	rides, err := h.rides.Search(r.Context(), criteria)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if rides == nil {
		rides = []models.RideSummary{}
	}

	respondJSON(w, http.StatusOK, rides)
}

// Detail returns one ride
// @Summary Ride detail
// @Description Return a ride with its driver information
// @Tags rides
// @Produce json
// @Param id path int true "Ride ID"
// @Success 200 {object} models.RideSummary
// @Failure 404 {object} services.ErrorResponse
// @Router /rides/{id} [get]
func (h *RideHandler) Detail(w http.ResponseWriter, r *http.Request) {
	rideID, err := pathID(r, "rideId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "Invalid ride id", nil)
		return
	}

	ride, err := h.rides.Detail(r.Context(), rideID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ride)
}

// History lists the caller's published rides
// @Summary My rides
// @Description Return the authenticated driver's ride history
// @Tags rides
// @Produce json
// @Success 200 {array} models.Ride
// @Router /rides/mine [get]
func (h *RideHandler) History(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	rides, err := h.rides.DriverHistory(r.Context(), callerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if rides == nil {
		rides = []models.Ride{}
	}

	respondJSON(w, http.StatusOK, rides)
}

// Start begins a ride
// @Summary Start a ride
// @Description Move a published ride to in_progress
// @Tags rides
// @Produce json
// @Param id path int true "Ride ID"
// @Success 200 {object} map[string]string
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /rides/{id}/start [post]
func (h *RideHandler) Start(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	rideID, err := pathID(r, "rideId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "Invalid ride id", nil)
		return
	}

	startedAt, err := h.engine.StartRide(r.Context(), rideID, callerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"actual_start_datetime": startedAt.Format(time.RFC3339),
	})
}

// Complete finishes a ride and pays the driver
// @Summary Complete a ride
// @Description Close an in_progress ride and credit the driver's earnings
// @Tags rides
// @Produce json
// @Param id path int true "Ride ID"
// @Success 200 {object} services.CompleteRideResult
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /rides/{id}/complete [post]
func (h *RideHandler) Complete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	rideID, err := pathID(r, "rideId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "Invalid ride id", nil)
		return
	}

	result, err := h.engine.CompleteRide(r.Context(), rideID, callerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Cancel cancels a ride and refunds all passengers
// @Summary Cancel a ride
// @Description Cancel a published ride, refunding every confirmed booking
// @Tags rides
// @Produce json
// @Param id path int true "Ride ID"
// @Success 200 {object} services.CancelRideResult
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /rides/{id}/cancel [post]
func (h *RideHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	rideID, err := pathID(r, "rideId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "Invalid ride id", nil)
		return
	}

	result, err := h.engine.CancelRide(r.Context(), rideID, callerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
