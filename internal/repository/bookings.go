package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ecoride/backend/internal/models"
)

// BookingRepo is the durable record of bookings, linking passengers to
// rides. Rows are never deleted; cancellation flips the status.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// Create inserts a confirmed booking inside the engine transaction.
func (r *BookingRepo) Create(tx *sql.Tx, b *models.Booking) (int64, error) {
	var id int64
	err := tx.QueryRow(`
		INSERT INTO bookings
			(ride_id, passenger_id, seats_booked, price_paid, status, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		b.RideID, b.PassengerID, b.SeatsBooked, b.PricePaid,
		models.BookingStatusConfirmed, b.TransactionID, time.Now()).Scan(&id)
	return id, err
}

// Get loads a booking without locking it. Used to discover the owning
// ride before taking locks, so the ride row can be locked first and the
// booking re-read under its own lock afterwards.
func (r *BookingRepo) Get(tx *sql.Tx, bookingID int64) (*models.Booking, error) {
	var b models.Booking
	err := tx.QueryRow(`
		SELECT id, ride_id, passenger_id, seats_booked, price_paid, status
		FROM bookings WHERE id = $1`, bookingID).Scan(
		&b.ID, &b.RideID, &b.PassengerID, &b.SeatsBooked, &b.PricePaid, &b.Status)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetForUpdate loads a booking under an exclusive row lock.
func (r *BookingRepo) GetForUpdate(tx *sql.Tx, bookingID int64) (*models.Booking, error) {
	var b models.Booking
	err := tx.QueryRow(`
		SELECT id, ride_id, passenger_id, seats_booked, price_paid, status
		FROM bookings WHERE id = $1
		FOR UPDATE`, bookingID).Scan(
		&b.ID, &b.RideID, &b.PassengerID, &b.SeatsBooked, &b.PricePaid, &b.Status)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Cancel flips a confirmed booking to cancelled. Compare-and-swap on the
// status so a concurrent cancellation cannot refund twice.
func (r *BookingRepo) Cancel(tx *sql.Tx, bookingID int64) error {
	res, err := tx.Exec(`
		UPDATE bookings SET status = $1 WHERE id = $2 AND status = $3`,
		models.BookingStatusCancelled, bookingID, models.BookingStatusConfirmed)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("booking %d confirmed->cancelled: %w", bookingID, ErrStatusConflict)
	}
	return nil
}

// FindConfirmedByRide returns a ride's confirmed bookings in ascending
// booking id, locked for the cascading refund of CancelRide. The stable
// order keeps retries and ledger output deterministic.
func (r *BookingRepo) FindConfirmedByRide(tx *sql.Tx, rideID int64) ([]models.Booking, error) {
	rows, err := tx.Query(`
		SELECT id, ride_id, passenger_id, seats_booked, price_paid, status
		FROM bookings
		WHERE ride_id = $1 AND status = $2
		ORDER BY id
		FOR UPDATE`, rideID, models.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.RideID, &b.PassengerID,
			&b.SeatsBooked, &b.PricePaid, &b.Status); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// FindByPassenger returns a passenger's booking history, newest departure
// first (dashboard view, read-only).
func (r *BookingRepo) FindByPassenger(ctx context.Context, passengerID int64) ([]models.BookingSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.id, b.ride_id, b.passenger_id, b.seats_booked, b.price_paid, b.status, b.created_at,
		       r.departure_city, r.arrival_city, r.departure_datetime, r.status,
		       u.pseudo
		FROM bookings b
		INNER JOIN rides r ON r.id = b.ride_id
		INNER JOIN users u ON u.id = r.driver_id
		WHERE b.passenger_id = $1
		ORDER BY r.departure_datetime DESC`, passengerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.BookingSummary
	for rows.Next() {
		var s models.BookingSummary
		if err := rows.Scan(&s.ID, &s.RideID, &s.PassengerID, &s.SeatsBooked, &s.PricePaid, &s.Status, &s.CreatedAt,
			&s.DepartureCity, &s.ArrivalCity, &s.DepartureDatetime, &s.RideStatus,
			&s.DriverPseudo); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}
