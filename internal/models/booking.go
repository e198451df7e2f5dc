package models

import "time"

// Booking statuses. Bookings are never hard-deleted; cancellation is a
// status flip so the audit trail survives.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking links a passenger to a ride. PricePaid is fixed at creation time
// (seats_booked * ride.price_credits) and is the exact amount refunded on
// cancellation.
type Booking struct {
	ID            int64     `json:"id" db:"id"`
	RideID        int64     `json:"ride_id" db:"ride_id"`
	PassengerID   int64     `json:"passenger_id" db:"passenger_id"`
	SeatsBooked   int       `json:"seats_booked" db:"seats_booked"`
	PricePaid     int64     `json:"price_paid" db:"price_paid"`
	Status        string    `json:"status" db:"status"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// CreateBookingRequest is the payload for POST /bookings.
type CreateBookingRequest struct {
	RideID         int64 `json:"ride_id" validate:"required,gt=0"`
	SeatsRequested int   `json:"seats_requested" validate:"required,gte=1,lte=8"`
}

// BookingSummary is a passenger-dashboard row: the booking plus the ride
// and driver fields the history page shows.
type BookingSummary struct {
	Booking
	DepartureCity     string    `json:"departure_city" db:"departure_city"`
	ArrivalCity       string    `json:"arrival_city" db:"arrival_city"`
	DepartureDatetime time.Time `json:"departure_datetime" db:"departure_datetime"`
	RideStatus        string    `json:"ride_status" db:"ride_status"`
	DriverPseudo      string    `json:"driver_pseudo" db:"driver_pseudo"`
}
