package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoride/backend/internal/config"
	"github.com/ecoride/backend/internal/middleware"
	"github.com/ecoride/backend/internal/models"
	"github.com/ecoride/backend/internal/repository"
	"github.com/ecoride/backend/internal/services"
)

func newBookingHandler(t *testing.T) (*BookingHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.BookingConfig{PlatformFeeCredits: 2, SignupGrantCredits: 20, MaxSeatsPerBooking: 8}
	engine := services.NewBookingEngine(db, cfg, nil)
	return NewBookingHandler(engine, repository.NewBookingRepo(db)), mock
}

func authedRequest(method, target, body string, userID int64) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func TestBookingHandler_Create(t *testing.T) {
	t.Run("books seats and returns the new balance", func(t *testing.T) {
		handler, mock := newBookingHandler(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM rides WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "driver_id", "price_credits", "seats_total", "seats_available", "status"}).
				AddRow(1, 9, 20, 3, 3, models.RideStatusPublished))
		mock.ExpectQuery("SELECT credits FROM users WHERE id = \\$1 FOR UPDATE").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(50))
		mock.ExpectExec("UPDATE rides SET seats_available").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO bookings").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectQuery("UPDATE users SET credits = credits \\+ \\$1").
			WillReturnRows(sqlmock.NewRows([]string{"credits"}).AddRow(10))
		mock.ExpectExec("INSERT INTO credit_transactions").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		req := authedRequest(http.MethodPost, "/api/v1/bookings", `{"ride_id":1,"seats_requested":2}`, 7)
		w := httptest.NewRecorder()
		handler.Create(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var result services.BookingResult
		require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
		assert.Equal(t, int64(42), result.BookingID)
		assert.Equal(t, int64(40), result.TotalCost)
		assert.Equal(t, int64(10), result.NewBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict response explains the seat shortage", func(t *testing.T) {
		handler, mock := newBookingHandler(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM rides WHERE id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "driver_id", "price_credits", "seats_total", "seats_available", "status"}).
				AddRow(1, 9, 20, 3, 1, models.RideStatusPublished))
		mock.ExpectRollback()

		req := authedRequest(http.MethodPost, "/api/v1/bookings", `{"ride_id":1,"seats_requested":2}`, 7)
		w := httptest.NewRecorder()
		handler.Create(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp services.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "insufficient_seats", resp.Kind)
		assert.Equal(t, "1", resp.Details["available"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects seats above the per-booking cap", func(t *testing.T) {
		handler, mock := newBookingHandler(t)

		req := authedRequest(http.MethodPost, "/api/v1/bookings", `{"ride_id":1,"seats_requested":9}`, 7)
		w := httptest.NewRecorder()
		handler.Create(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("requires authentication", func(t *testing.T) {
		handler, mock := newBookingHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{"ride_id":1,"seats_requested":1}`))
		w := httptest.NewRecorder()
		handler.Create(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingHandler_List(t *testing.T) {
	t.Run("empty history returns an empty array", func(t *testing.T) {
		handler, mock := newBookingHandler(t)

		mock.ExpectQuery("WHERE b.passenger_id = \\$1").
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		req := authedRequest(http.MethodGet, "/api/v1/bookings", "", 7)
		w := httptest.NewRecorder()
		handler.List(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
