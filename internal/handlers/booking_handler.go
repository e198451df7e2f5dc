package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/ecoride/backend/internal/middleware"
	"github.com/ecoride/backend/internal/models"
	"github.com/ecoride/backend/internal/repository"
	"github.com/ecoride/backend/internal/services"
)

// BookingHandler exposes the booking engine over HTTP. It only parses and
// validates requests; every business rule lives in the engine.
type BookingHandler struct {
	engine    *services.BookingEngine
	bookings  *repository.BookingRepo
	validator *services.ValidationHelper
}

func NewBookingHandler(engine *services.BookingEngine, bookings *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{
		engine:    engine,
		bookings:  bookings,
		validator: services.NewValidationHelper(),
	}
}

// Create books seats on a ride
// @Summary Book seats on a ride
// @Description Reserve seats and debit the passenger's credits atomically
// @Tags bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} services.BookingResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /bookings [post]
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req models.CreateBookingRequest
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

	result, err := h.engine.CreateBooking(r.Context(), req.RideID, callerID, req.SeatsRequested)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// Cancel cancels a booking
// @Summary Cancel a booking
// @Description Refund the passenger and release the seats atomically
// @Tags bookings
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} services.CancelBookingResult
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	bookingID, err := pathID(r, "bookingId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "Invalid booking id", nil)
		return
	}

	result, err := h.engine.CancelBooking(r.Context(), bookingID, callerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// List returns the caller's booking history
// @Summary List my bookings
// @Description Return the authenticated passenger's bookings, newest trips first
// @Tags bookings
// @Produce json
// @Success 200 {array} models.BookingSummary
// @Router /bookings [get]
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	bookings, err := h.bookings.FindByPassenger(r.Context(), callerID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	if bookings == nil {
		bookings = []models.BookingSummary{}
	}

	respondJSON(w, http.StatusOK, bookings)
}
