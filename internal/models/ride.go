package models

import "time"

// Ride statuses. Transitions are enforced with compare-and-swap updates:
// published -> in_progress -> completed, or published -> cancelled.
const (
	RideStatusPublished  = "published"
	RideStatusInProgress = "in_progress"
	RideStatusCompleted  = "completed"
	RideStatusCancelled  = "cancelled"
)

// Ride is a published carpool trip. seats_available is the live seat
// counter and must stay within [0, seats_total] at all times.
type Ride struct {
	ID                  int64      `json:"id" db:"id"`
	DriverID            int64      `json:"driver_id" db:"driver_id"`
	VehicleID           int64      `json:"vehicle_id" db:"vehicle_id"`
	DepartureCity       string     `json:"departure_city" db:"departure_city"`
	DepartureAddress    string     `json:"departure_address" db:"departure_address"`
	DepartureDatetime   time.Time  `json:"departure_datetime" db:"departure_datetime"`
	ArrivalCity         string     `json:"arrival_city" db:"arrival_city"`
	ArrivalAddress      string     `json:"arrival_address" db:"arrival_address"`
	ArrivalDatetime     time.Time  `json:"arrival_datetime" db:"arrival_datetime"`
	PriceCredits        int64      `json:"price_credits" db:"price_credits"`
	SeatsTotal          int        `json:"seats_total" db:"seats_total"`
	SeatsAvailable      int        `json:"seats_available" db:"seats_available"`
	Status              string     `json:"status" db:"status"`
	Preferences         string     `json:"preferences,omitempty" db:"preferences"` // free-form JSON (smoking, pets, music)
	ActualStartDatetime *time.Time `json:"actual_start_datetime,omitempty" db:"actual_start_datetime"`
	ActualEndDatetime   *time.Time `json:"actual_end_datetime,omitempty" db:"actual_end_datetime"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// PublishRideRequest is the payload for POST /rides.
type PublishRideRequest struct {
	VehicleID         int64     `json:"vehicle_id" validate:"required,gt=0"`
	DepartureCity     string    `json:"departure_city" validate:"required,min=2"`
	DepartureAddress  string    `json:"departure_address"`
	DepartureDatetime time.Time `json:"departure_datetime" validate:"required"`
	ArrivalCity       string    `json:"arrival_city" validate:"required,min=2"`
	ArrivalAddress    string    `json:"arrival_address"`
	ArrivalDatetime   time.Time `json:"arrival_datetime" validate:"required"`
	PriceCredits      int64     `json:"price_credits" validate:"required,gt=0"`
	SeatsTotal        int       `json:"seats_total" validate:"required,gt=0,lte=8"`
	Preferences       string    `json:"preferences"`
}

// RideSearchCriteria filters GET /rides. Zero values mean "no filter".
type RideSearchCriteria struct {
	DepartureCity string
	ArrivalCity   string
	Date          string // YYYY-MM-DD, matches any departure that day
	MaxPrice      int64
}

// RideSummary is a search/history row: the ride plus the driver fields the
// listing page shows.
type RideSummary struct {
	Ride
	DriverPseudo string `json:"driver_pseudo" db:"driver_pseudo"`
	DriverAvatar string `json:"driver_avatar,omitempty" db:"driver_avatar"`
}
