package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ecoride/backend/internal/models"
)

// RideRepo is the durable ride inventory: route, schedule, price, the live
// seats_available counter and the ride status machine.
type RideRepo struct {
	db *sql.DB
}

func NewRideRepo(db *sql.DB) *RideRepo {
	return &RideRepo{db: db}
}

// Create publishes a new ride with all seats available.
func (r *RideRepo) Create(ctx context.Context, ride *models.Ride) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO rides
			(driver_id, vehicle_id, departure_city, departure_address, departure_datetime,
			 arrival_city, arrival_address, arrival_datetime,
			 price_credits, seats_total, seats_available, status, preferences, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11, $12, $13)
		RETURNING id`,
		ride.DriverID, ride.VehicleID,
		ride.DepartureCity, ride.DepartureAddress, ride.DepartureDatetime,
		ride.ArrivalCity, ride.ArrivalAddress, ride.ArrivalDatetime,
		ride.PriceCredits, ride.SeatsTotal, models.RideStatusPublished,
		ride.Preferences, time.Now()).Scan(&id)
	return id, err
}

// GetForUpdate loads a ride under an exclusive row lock. This is always
// the first lock an engine operation takes; user balance rows come after.
func (r *RideRepo) GetForUpdate(tx *sql.Tx, rideID int64) (*models.Ride, error) {
	var ride models.Ride
	err := tx.QueryRow(`
		SELECT id, driver_id, price_credits, seats_total, seats_available, status
		FROM rides WHERE id = $1
		FOR UPDATE`, rideID).Scan(
		&ride.ID, &ride.DriverID, &ride.PriceCredits,
		&ride.SeatsTotal, &ride.SeatsAvailable, &ride.Status)
	if err != nil {
		return nil, err
	}
	return &ride, nil
}

// AdjustSeats moves seats_available by delta (negative on booking,
// positive on cancellation). The WHERE guard keeps the counter within
// [0, seats_total]; a miss surfaces as ErrSeatBoundsViolated.
func (r *RideRepo) AdjustSeats(tx *sql.Tx, rideID int64, delta int) error {
	res, err := tx.Exec(`
		UPDATE rides SET seats_available = seats_available + $1
		WHERE id = $2
		  AND seats_available + $1 >= 0
		  AND seats_available + $1 <= seats_total`,
		delta, rideID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("ride %d delta %d: %w", rideID, delta, ErrSeatBoundsViolated)
	}
	return nil
}

// SetStatus transitions the ride status with a compare-and-swap: the
// update only applies if the current status equals from.
func (r *RideRepo) SetStatus(tx *sql.Tx, rideID int64, from, to string) error {
	res, err := tx.Exec(`
		UPDATE rides SET status = $1 WHERE id = $2 AND status = $3`,
		to, rideID, from)
	if err != nil {
		return err
	}
	return requireOneRow(res, rideID, from, to)
}

// MarkInProgress is the StartRide transition; records the actual start time.
func (r *RideRepo) MarkInProgress(tx *sql.Tx, rideID int64, from string, startedAt time.Time) error {
	res, err := tx.Exec(`
		UPDATE rides SET status = $1, actual_start_datetime = $2
		WHERE id = $3 AND status = $4`,
		models.RideStatusInProgress, startedAt, rideID, from)
	if err != nil {
		return err
	}
	return requireOneRow(res, rideID, from, models.RideStatusInProgress)
}

// MarkCompleted is the CompleteRide transition; records the actual end time.
func (r *RideRepo) MarkCompleted(tx *sql.Tx, rideID int64, endedAt time.Time) error {
	res, err := tx.Exec(`
		UPDATE rides SET status = $1, actual_end_datetime = $2
		WHERE id = $3 AND status = $4`,
		models.RideStatusCompleted, endedAt, rideID, models.RideStatusInProgress)
	if err != nil {
		return err
	}
	return requireOneRow(res, rideID, models.RideStatusInProgress, models.RideStatusCompleted)
}

func requireOneRow(res sql.Result, rideID int64, from, to string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("ride %d %s->%s: %w", rideID, from, to, ErrStatusConflict)
	}
	return nil
}

// FindByID returns the ride detail with driver info, or sql.ErrNoRows.
func (r *RideRepo) FindByID(ctx context.Context, rideID int64) (*models.RideSummary, error) {
	var s models.RideSummary
	var avatar sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT r.id, r.driver_id, r.vehicle_id,
		       r.departure_city, COALESCE(r.departure_address, ''), r.departure_datetime,
		       r.arrival_city, COALESCE(r.arrival_address, ''), r.arrival_datetime,
		       r.price_credits, r.seats_total, r.seats_available, r.status, COALESCE(r.preferences, ''),
		       u.pseudo, u.avatar_url
		FROM rides r
		INNER JOIN users u ON u.id = r.driver_id
		WHERE r.id = $1`, rideID).Scan(
		&s.ID, &s.DriverID, &s.VehicleID,
		&s.DepartureCity, &s.DepartureAddress, &s.DepartureDatetime,
		&s.ArrivalCity, &s.ArrivalAddress, &s.ArrivalDatetime,
		&s.PriceCredits, &s.SeatsTotal, &s.SeatsAvailable, &s.Status, &s.Preferences,
		&s.DriverPseudo, &avatar)
	if err != nil {
		return nil, err
	}
	s.DriverAvatar = avatar.String
	return &s, nil
}

// Search lists published, future rides with seats left, filtered by the
// criteria. City filters are case-insensitive substring matches like the
// listing page expects.
func (r *RideRepo) Search(ctx context.Context, c models.RideSearchCriteria) ([]models.RideSummary, error) {
	query := `
		SELECT r.id, r.driver_id, r.departure_city, r.departure_datetime,
		       r.arrival_city, r.arrival_datetime,
		       r.price_credits, r.seats_total, r.seats_available, r.status,
		       u.pseudo, u.avatar_url
		FROM rides r
		INNER JOIN users u ON u.id = r.driver_id
		WHERE r.status = $1
		  AND r.seats_available > 0
		  AND r.departure_datetime >= NOW()`
	args := []interface{}{models.RideStatusPublished}

	if c.DepartureCity != "" {
		args = append(args, "%"+c.DepartureCity+"%")
		query += fmt.Sprintf(" AND r.departure_city ILIKE $%d", len(args))
	}
	if c.ArrivalCity != "" {
		args = append(args, "%"+c.ArrivalCity+"%")
		query += fmt.Sprintf(" AND r.arrival_city ILIKE $%d", len(args))
	}
	if c.Date != "" {
		args = append(args, c.Date)
		query += fmt.Sprintf(" AND DATE(r.departure_datetime) = $%d", len(args))
	}
	if c.MaxPrice > 0 {
		args = append(args, c.MaxPrice)
		query += fmt.Sprintf(" AND r.price_credits <= $%d", len(args))
	}
	query += " ORDER BY r.departure_datetime ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.RideSummary
	for rows.Next() {
		var s models.RideSummary
		var avatar sql.NullString
		if err := rows.Scan(&s.ID, &s.DriverID, &s.DepartureCity, &s.DepartureDatetime,
			&s.ArrivalCity, &s.ArrivalDatetime,
			&s.PriceCredits, &s.SeatsTotal, &s.SeatsAvailable, &s.Status,
			&s.DriverPseudo, &avatar); err != nil {
			return nil, err
		}
		s.DriverAvatar = avatar.String
		results = append(results, s)
	}
	return results, rows.Err()
}

// FindByDriver returns a driver's ride history, newest departure first.
func (r *RideRepo) FindByDriver(ctx context.Context, driverID int64) ([]models.Ride, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, driver_id, vehicle_id, departure_city, departure_datetime,
		       arrival_city, arrival_datetime, price_credits, seats_total, seats_available, status
		FROM rides
		WHERE driver_id = $1
		ORDER BY departure_datetime DESC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []models.Ride
	for rows.Next() {
		var ride models.Ride
		if err := rows.Scan(&ride.ID, &ride.DriverID, &ride.VehicleID,
			&ride.DepartureCity, &ride.DepartureDatetime,
			&ride.ArrivalCity, &ride.ArrivalDatetime,
			&ride.PriceCredits, &ride.SeatsTotal, &ride.SeatsAvailable, &ride.Status); err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}
