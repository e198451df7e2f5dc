package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the booking engine. Handlers match these with
// errors.Is to pick status codes; the structured variants below carry the
// numbers the UI needs to explain the failure.
var (
	ErrRideNotFound         = errors.New("ride not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrRideNotBookable      = errors.New("ride is not bookable")
	ErrInsufficientSeats    = errors.New("insufficient seats available")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrSelfBookingForbidden = errors.New("drivers cannot book their own ride")
	ErrForbidden            = errors.New("caller does not own this resource")
	ErrAlreadyCancelled     = errors.New("booking already cancelled")
	ErrWrongState           = errors.New("ride is not in the required state")
)

// InsufficientSeatsError reports how many seats are actually left.
type InsufficientSeatsError struct {
	RideID    int64
	Requested int
	Available int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("ride %d: requested %d seats, only %d available",
		e.RideID, e.Requested, e.Available)
}

func (e *InsufficientSeatsError) Unwrap() error { return ErrInsufficientSeats }

// InsufficientCreditsError reports the caller's balance against the cost.
type InsufficientCreditsError struct {
	UserID   int64
	Balance  int64
	Required int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("user %d: balance %d credits, need %d",
		e.UserID, e.Balance, e.Required)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// WrongStateError reports an invalid ride status transition.
type WrongStateError struct {
	RideID   int64
	Current  string
	Expected string
}

func (e *WrongStateError) Error() string {
	return fmt.Sprintf("ride %d: status is %q, expected %q", e.RideID, e.Current, e.Expected)
}

func (e *WrongStateError) Unwrap() error { return ErrWrongState }

// IsClientError reports whether the error is a business-rule violation the
// caller can act on, as opposed to an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRideNotBookable) ||
		errors.Is(err, ErrInsufficientSeats) ||
		errors.Is(err, ErrInsufficientCredits) ||
		errors.Is(err, ErrSelfBookingForbidden) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrWrongState)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRideNotFound) || errors.Is(err, ErrBookingNotFound)
}
