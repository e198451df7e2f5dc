package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoride/backend/internal/models"
)

func validPublishRequest() *models.PublishRideRequest {
	departure := time.Now().Add(48 * time.Hour)
	return &models.PublishRideRequest{
		VehicleID:         3,
		DepartureCity:     "Lyon",
		DepartureDatetime: departure,
		ArrivalCity:       "Paris",
		ArrivalDatetime:   departure.Add(4 * time.Hour),
		PriceCredits:      20,
		SeatsTotal:        3,
	}
}

func TestRideService_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes with all seats available", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT owner_id FROM vehicles WHERE id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(9))
		mock.ExpectQuery("INSERT INTO rides").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		service := NewRideService(db)
		ride, err := service.Publish(ctx, 9, validPublishRequest())
		require.NoError(t, err)
		assert.Equal(t, int64(1), ride.ID)
		assert.Equal(t, 3, ride.SeatsAvailable)
		assert.Equal(t, models.RideStatusPublished, ride.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a vehicle owned by someone else", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT owner_id FROM vehicles WHERE id = \\$1").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(5))

		service := NewRideService(db)
		_, err = service.Publish(ctx, 9, validPublishRequest())
		assert.ErrorIs(t, err, ErrVehicleNotOwned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a departure in the past", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		req := validPublishRequest()
		req.DepartureDatetime = time.Now().Add(-time.Hour)
		req.ArrivalDatetime = time.Now().Add(3 * time.Hour)

		service := NewRideService(db)
		_, err = service.Publish(ctx, 9, req)
		assert.ErrorIs(t, err, ErrInvalidSchedule)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects arrival before departure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		req := validPublishRequest()
		req.ArrivalDatetime = req.DepartureDatetime.Add(-time.Hour)

		service := NewRideService(db)
		_, err = service.Publish(ctx, 9, req)
		assert.ErrorIs(t, err, ErrInvalidSchedule)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRideService_Detail(t *testing.T) {
	t.Run("missing ride maps to not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("WHERE r.id = \\$1").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		service := NewRideService(db)
		_, err = service.Detail(context.Background(), 99)
		assert.ErrorIs(t, err, ErrRideNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
