package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ecoride/backend/internal/services"
)

func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, statusCode int, kind, message string, details map[string]string) {
	respondJSON(w, statusCode, services.ErrorResponse{Kind: kind, Error: message, Details: details})
}

// respondEngineError maps booking engine failures to HTTP responses.
// State-conflict errors carry the numbers involved so the UI can explain
// exactly what went wrong; internal failures stay generic.
func respondEngineError(w http.ResponseWriter, err error) {
	var seatsErr *services.InsufficientSeatsError
	if errors.As(err, &seatsErr) {
		respondError(w, http.StatusConflict, "insufficient_seats", err.Error(), map[string]string{
			"available": strconv.Itoa(seatsErr.Available),
			"requested": strconv.Itoa(seatsErr.Requested),
		})
		return
	}

	var creditsErr *services.InsufficientCreditsError
	if errors.As(err, &creditsErr) {
		respondError(w, http.StatusConflict, "insufficient_credits", err.Error(), map[string]string{
			"balance":  strconv.FormatInt(creditsErr.Balance, 10),
			"required": strconv.FormatInt(creditsErr.Required, 10),
		})
		return
	}

	var stateErr *services.WrongStateError
	if errors.As(err, &stateErr) {
		respondError(w, http.StatusConflict, "wrong_state", err.Error(), map[string]string{
			"current":  stateErr.Current,
			"expected": stateErr.Expected,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrRideNotBookable):
		respondError(w, http.StatusConflict, "ride_not_bookable", err.Error(), nil)
	case errors.Is(err, services.ErrInsufficientSeats):
		respondError(w, http.StatusConflict, "insufficient_seats", err.Error(), nil)
	case errors.Is(err, services.ErrInsufficientCredits):
		respondError(w, http.StatusConflict, "insufficient_credits", err.Error(), nil)
	case errors.Is(err, services.ErrSelfBookingForbidden):
		respondError(w, http.StatusConflict, "self_booking_forbidden", err.Error(), nil)
	case errors.Is(err, services.ErrAlreadyCancelled):
		respondError(w, http.StatusConflict, "already_cancelled", err.Error(), nil)
	case errors.Is(err, services.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error(), nil)
	case services.IsNotFound(err):
		respondError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case services.IsClientError(err):
		respondError(w, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		log.Printf("[HTTP] internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Request could not be processed", nil)
	}
}

func pathID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}
