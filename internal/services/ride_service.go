package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ecoride/backend/internal/models"
	"github.com/ecoride/backend/internal/repository"
)

var (
	ErrVehicleNotOwned = errors.New("vehicle does not belong to the driver")
	ErrInvalidSchedule = errors.New("arrival must be after departure, and departure in the future")
)

// RideService covers ride publishing and the read-only query surface
// (search, detail, histories). Anything that moves credits or seats goes
// through the BookingEngine instead.
type RideService struct {
	db    *sql.DB
	rides *repository.RideRepo
}

func NewRideService(db *sql.DB) *RideService {
	return &RideService{
		db:    db,
		rides: repository.NewRideRepo(db),
	}
}

// Publish creates a new ride for the driver with all seats available.
func (s *RideService) Publish(ctx context.Context, driverID int64, req *models.PublishRideRequest) (*models.Ride, error) {
	if !req.ArrivalDatetime.After(req.DepartureDatetime) || req.DepartureDatetime.Before(time.Now()) {
		return nil, ErrInvalidSchedule
	}

	var ownerID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id FROM vehicles WHERE id = $1`, req.VehicleID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		return nil, ErrVehicleNotOwned
	}
	if err != nil {
		return nil, fmt.Errorf("look up vehicle %d: %w", req.VehicleID, err)
	}
	if ownerID != driverID {
		return nil, ErrVehicleNotOwned
	}

	ride := &models.Ride{
		DriverID:          driverID,
		VehicleID:         req.VehicleID,
		DepartureCity:     req.DepartureCity,
		DepartureAddress:  req.DepartureAddress,
		DepartureDatetime: req.DepartureDatetime,
		ArrivalCity:       req.ArrivalCity,
		ArrivalAddress:    req.ArrivalAddress,
		ArrivalDatetime:   req.ArrivalDatetime,
		PriceCredits:      req.PriceCredits,
		SeatsTotal:        req.SeatsTotal,
		SeatsAvailable:    req.SeatsTotal,
		Status:            models.RideStatusPublished,
		Preferences:       req.Preferences,
	}

	id, err := s.rides.Create(ctx, ride)
	if err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}
	ride.ID = id
	return ride, nil
}

// Search lists bookable rides matching the criteria.
func (s *RideService) Search(ctx context.Context, criteria models.RideSearchCriteria) ([]models.RideSummary, error) {
	return s.rides.Search(ctx, criteria)
}

// Detail returns one ride with driver info, or ErrRideNotFound.
func (s *RideService) Detail(ctx context.Context, rideID int64) (*models.RideSummary, error) {
	ride, err := s.rides.FindByID(ctx, rideID)
	if err == sql.ErrNoRows {
		return nil, ErrRideNotFound
	}
	return ride, err
}

// DriverHistory returns all rides published by the driver.
func (s *RideService) DriverHistory(ctx context.Context, driverID int64) ([]models.Ride, error) {
	return s.rides.FindByDriver(ctx, driverID)
}
