package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecoride/backend/internal/config"
	"github.com/ecoride/backend/internal/database"
	"github.com/ecoride/backend/internal/models"
	"github.com/ecoride/backend/internal/repository"
)

// EventPublisher delivers fire-and-forget notification events. Publish
// failures are logged and never roll back a committed operation.
type EventPublisher interface {
	Publish(topic string, event any) error
}

// Notification topics.
const (
	TopicBookingConfirmed = "booking_confirmed"
	TopicBookingCancelled = "booking_cancelled"
	TopicRideCancelled    = "ride_cancelled"
	TopicRideStarted      = "ride_started"
	TopicRideCompleted    = "ride_completed"
)

// BookingEngine is the single authority for every operation that touches
// credits and seat inventory together. Each operation runs as one database
// transaction and takes its row locks in a fixed order: the ride row
// first, then user balance rows in ascending user id. Holding the ride
// lock also freezes the set of confirmed bookings, since every booking
// mutation goes through here and locks the ride first.
type BookingEngine struct {
	db       *sql.DB
	ledger   *repository.LedgerRepo
	rides    *repository.RideRepo
	bookings *repository.BookingRepo
	cfg      *config.BookingConfig
	events   EventPublisher
}

func NewBookingEngine(db *sql.DB, cfg *config.BookingConfig, events EventPublisher) *BookingEngine {
	return &BookingEngine{
		db:       db,
		ledger:   repository.NewLedgerRepo(db),
		rides:    repository.NewRideRepo(db),
		bookings: repository.NewBookingRepo(db),
		cfg:      cfg,
		events:   events,
	}
}

// BookingResult is the success payload of CreateBooking.
type BookingResult struct {
	BookingID  int64 `json:"booking_id"`
	TotalCost  int64 `json:"total_cost"`
	NewBalance int64 `json:"new_balance"`
}

// CancelBookingResult is the success payload of CancelBooking.
type CancelBookingResult struct {
	RefundAmount int64 `json:"refund_amount"`
	NewBalance   int64 `json:"new_balance"`
}

// CancelRideResult is the success payload of CancelRide.
type CancelRideResult struct {
	RefundedCount int   `json:"refunded_count"`
	TotalRefunded int64 `json:"total_refunded"`
}

// CompleteRideResult is the success payload of CompleteRide.
type CompleteRideResult struct {
	Earnings         int64 `json:"earnings"`
	NewDriverBalance int64 `json:"new_driver_balance"`
	PassengerCount   int   `json:"passenger_count"`
}

// CreateBooking reserves seats on a published ride and debits the
// passenger, atomically. The seat check and the seat decrement happen
// under the same ride row lock, so two passengers racing for the last
// seat resolve to exactly one success.
func (e *BookingEngine) CreateBooking(ctx context.Context, rideID, passengerID int64, seatsRequested int) (*BookingResult, error) {
	if seatsRequested < 1 || seatsRequested > e.cfg.MaxSeatsPerBooking {
		return nil, fmt.Errorf("seats requested must be between 1 and %d: %w",
			e.cfg.MaxSeatsPerBooking, ErrInsufficientSeats)
	}

	var result BookingResult
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		ride, err := e.rides.GetForUpdate(tx, rideID)
		if err == sql.ErrNoRows {
			return ErrRideNotBookable
		}
		if err != nil {
			return fmt.Errorf("lock ride %d: %w", rideID, err)
		}
		if ride.Status != models.RideStatusPublished {
			return ErrRideNotBookable
		}
		if ride.DriverID == passengerID {
			return ErrSelfBookingForbidden
		}
		if seatsRequested > ride.SeatsAvailable {
			return &InsufficientSeatsError{
				RideID:    rideID,
				Requested: seatsRequested,
				Available: ride.SeatsAvailable,
			}
		}

		totalCost := ride.PriceCredits * int64(seatsRequested)

		balance, err := e.ledger.LockBalance(tx, passengerID)
		if err != nil {
			return fmt.Errorf("lock balance of user %d: %w", passengerID, err)
		}
		if balance < totalCost {
			return &InsufficientCreditsError{
				UserID:   passengerID,
				Balance:  balance,
				Required: totalCost,
			}
		}

		if err := e.rides.AdjustSeats(tx, rideID, -seatsRequested); err != nil {
			return err
		}

		txnID := uuid.NewString()
		bookingID, err := e.bookings.Create(tx, &models.Booking{
			RideID:        rideID,
			PassengerID:   passengerID,
			SeatsBooked:   seatsRequested,
			PricePaid:     totalCost,
			TransactionID: txnID,
		})
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		newBalance, err := e.ledger.ApplyDelta(tx, models.CreditTransaction{
			TransactionID: txnID,
			UserID:        passengerID,
			Amount:        -totalCost,
			Kind:          models.TxKindDebit,
			ReferenceType: models.TxRefBooking,
			ReferenceID:   bookingID,
			Description:   fmt.Sprintf("Booking of %d seat(s) on ride %d", seatsRequested, rideID),
		})
		if err != nil {
			return err
		}

		result = BookingResult{BookingID: bookingID, TotalCost: totalCost, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(TopicBookingConfirmed, map[string]any{
		"booking_id":   result.BookingID,
		"ride_id":      rideID,
		"passenger_id": passengerID,
		"seats":        seatsRequested,
		"total_cost":   result.TotalCost,
	})
	return &result, nil
}

// CancelBooking refunds a passenger's confirmed booking and releases its
// seats. Only the booking's passenger may cancel; no time cutoff is
// enforced before departure.
func (e *BookingEngine) CancelBooking(ctx context.Context, bookingID, callerID int64) (*CancelBookingResult, error) {
	var result CancelBookingResult
	var rideID int64
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		// Unlocked read first: the ride row must be locked before the
		// booking row, or this would deadlock against CancelRide.
		peek, err := e.bookings.Get(tx, bookingID)
		if err == sql.ErrNoRows {
			return ErrBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("load booking %d: %w", bookingID, err)
		}
		if peek.PassengerID != callerID {
			return ErrForbidden
		}

		if _, err := e.rides.GetForUpdate(tx, peek.RideID); err != nil {
			return fmt.Errorf("lock ride %d: %w", peek.RideID, err)
		}

		booking, err := e.bookings.GetForUpdate(tx, bookingID)
		if err != nil {
			return fmt.Errorf("lock booking %d: %w", bookingID, err)
		}
		if booking.Status != models.BookingStatusConfirmed {
			return ErrAlreadyCancelled
		}

		if err := e.bookings.Cancel(tx, bookingID); err != nil {
			return err
		}
		if err := e.rides.AdjustSeats(tx, booking.RideID, booking.SeatsBooked); err != nil {
			return err
		}

		newBalance, err := e.ledger.ApplyDelta(tx, models.CreditTransaction{
			TransactionID: uuid.NewString(),
			UserID:        callerID,
			Amount:        booking.PricePaid,
			Kind:          models.TxKindRefund,
			ReferenceType: models.TxRefBooking,
			ReferenceID:   bookingID,
			Description:   fmt.Sprintf("Refund for cancelled booking %d", bookingID),
		})
		if err != nil {
			return err
		}

		rideID = booking.RideID
		result = CancelBookingResult{RefundAmount: booking.PricePaid, NewBalance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(TopicBookingCancelled, map[string]any{
		"booking_id":   bookingID,
		"ride_id":      rideID,
		"passenger_id": callerID,
		"refund":       result.RefundAmount,
	})
	return &result, nil
}

// CancelRide cancels a published ride and refunds every confirmed booking
// in one transaction, releasing each booking's seats back to the counter
// so seats_total - seats_available always equals the confirmed seat sum.
// Bookings are processed in ascending booking id and passenger balances
// locked in ascending user id. The transaction size is bounded by the
// ride's seat capacity: a ride can never hold more confirmed bookings
// than seats_total.
func (e *BookingEngine) CancelRide(ctx context.Context, rideID, callerID int64) (*CancelRideResult, error) {
	var result CancelRideResult
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		ride, err := e.rides.GetForUpdate(tx, rideID)
		if err == sql.ErrNoRows {
			return ErrRideNotFound
		}
		if err != nil {
			return fmt.Errorf("lock ride %d: %w", rideID, err)
		}
		if ride.DriverID != callerID {
			return ErrForbidden
		}
		if ride.Status != models.RideStatusPublished {
			return &WrongStateError{RideID: rideID, Current: ride.Status, Expected: models.RideStatusPublished}
		}

		confirmed, err := e.bookings.FindConfirmedByRide(tx, rideID)
		if err != nil {
			return fmt.Errorf("load confirmed bookings of ride %d: %w", rideID, err)
		}

		if _, err := e.ledger.LockBalances(tx, passengerIDsAscending(confirmed)); err != nil {
			return fmt.Errorf("lock passenger balances: %w", err)
		}

		txnID := uuid.NewString()
		for _, booking := range confirmed {
			if err := e.bookings.Cancel(tx, booking.ID); err != nil {
				return err
			}
			if err := e.rides.AdjustSeats(tx, rideID, booking.SeatsBooked); err != nil {
				return err
			}
			if _, err := e.ledger.ApplyDelta(tx, models.CreditTransaction{
				TransactionID: txnID,
				UserID:        booking.PassengerID,
				Amount:        booking.PricePaid,
				Kind:          models.TxKindRefund,
				ReferenceType: models.TxRefBooking,
				ReferenceID:   booking.ID,
				Description:   fmt.Sprintf("Refund for ride %d cancelled by driver", rideID),
			}); err != nil {
				return err
			}
			result.RefundedCount++
			result.TotalRefunded += booking.PricePaid
		}

		return e.rides.SetStatus(tx, rideID, models.RideStatusPublished, models.RideStatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	e.notify(TopicRideCancelled, map[string]any{
		"ride_id":        rideID,
		"driver_id":      callerID,
		"refunded_count": result.RefundedCount,
		"total_refunded": result.TotalRefunded,
	})
	return &result, nil
}

// StartRide moves a published ride to in_progress and records the actual
// start time. No credit or seat effects; this is the state-machine gate
// before CompleteRide.
func (e *BookingEngine) StartRide(ctx context.Context, rideID, callerID int64) (time.Time, error) {
	startedAt := time.Now()
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		ride, err := e.rides.GetForUpdate(tx, rideID)
		if err == sql.ErrNoRows {
			return ErrRideNotFound
		}
		if err != nil {
			return fmt.Errorf("lock ride %d: %w", rideID, err)
		}
		if ride.DriverID != callerID {
			return ErrForbidden
		}
		if ride.Status != models.RideStatusPublished {
			return &WrongStateError{RideID: rideID, Current: ride.Status, Expected: models.RideStatusPublished}
		}
		return e.rides.MarkInProgress(tx, rideID, models.RideStatusPublished, startedAt)
	})
	if err != nil {
		return time.Time{}, err
	}

	e.notify(TopicRideStarted, map[string]any{"ride_id": rideID, "driver_id": callerID})
	return startedAt, nil
}

// CompleteRide pays the driver and closes the ride. Earnings are computed
// per booked seat: (price - platform fee per seat) * total seats across
// confirmed bookings, never less than zero per seat.
func (e *BookingEngine) CompleteRide(ctx context.Context, rideID, callerID int64) (*CompleteRideResult, error) {
	var result CompleteRideResult
	err := database.WithTx(ctx, e.db, func(tx *sql.Tx) error {
		ride, err := e.rides.GetForUpdate(tx, rideID)
		if err == sql.ErrNoRows {
			return ErrRideNotFound
		}
		if err != nil {
			return fmt.Errorf("lock ride %d: %w", rideID, err)
		}
		if ride.DriverID != callerID {
			return ErrForbidden
		}
		if ride.Status != models.RideStatusInProgress {
			return &WrongStateError{RideID: rideID, Current: ride.Status, Expected: models.RideStatusInProgress}
		}

		confirmed, err := e.bookings.FindConfirmedByRide(tx, rideID)
		if err != nil {
			return fmt.Errorf("load confirmed bookings of ride %d: %w", rideID, err)
		}

		seatsSold := 0
		for _, booking := range confirmed {
			seatsSold += booking.SeatsBooked
		}

		earningsPerSeat := ride.PriceCredits - e.cfg.PlatformFeeCredits
		if earningsPerSeat < 0 {
			earningsPerSeat = 0
		}
		earnings := earningsPerSeat * int64(seatsSold)

		newBalance, err := e.ledger.ApplyDelta(tx, models.CreditTransaction{
			TransactionID: uuid.NewString(),
			UserID:        ride.DriverID,
			Amount:        earnings,
			Kind:          models.TxKindPayout,
			ReferenceType: models.TxRefRide,
			ReferenceID:   rideID,
			Description:   fmt.Sprintf("Earnings for ride %d (%d seat(s) across %d booking(s))", rideID, seatsSold, len(confirmed)),
		})
		if err != nil {
			return err
		}

		if err := e.rides.MarkCompleted(tx, rideID, time.Now()); err != nil {
			return err
		}

		result = CompleteRideResult{
			Earnings:         earnings,
			NewDriverBalance: newBalance,
			PassengerCount:   len(confirmed),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.notify(TopicRideCompleted, map[string]any{
		"ride_id":   rideID,
		"driver_id": callerID,
		"earnings":  result.Earnings,
	})
	return &result, nil
}

// notify publishes a notification event without blocking the caller.
func (e *BookingEngine) notify(topic string, event map[string]any) {
	if e.events == nil {
		return
	}
	go func() {
		if err := e.events.Publish(topic, event); err != nil {
			log.Printf("[EVENTS] publish %s failed: %v", topic, err)
		}
	}()
}

func passengerIDsAscending(bookings []models.Booking) []int64 {
	seen := make(map[int64]bool, len(bookings))
	ids := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		if !seen[b.PassengerID] {
			seen[b.PassengerID] = true
			ids = append(ids, b.PassengerID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
