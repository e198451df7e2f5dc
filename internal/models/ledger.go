package models

import "time"

// Credit transaction kinds. Debits carry a negative amount, everything
// else a positive one.
const (
	TxKindDebit  = "debit"  // passenger pays for a booking
	TxKindCredit = "credit" // signup grant or admin adjustment
	TxKindRefund = "refund" // booking or ride cancellation
	TxKindPayout = "payout" // driver earnings on ride completion
)

// Reference types for the polymorphic reference_id column.
const (
	TxRefBooking = "booking"
	TxRefRide    = "ride"
	TxRefAccount = "account"
)

// CreditTransaction is one append-only ledger row. Rows are never updated
// or deleted; every change to users.credits writes exactly one of these,
// with balance_after recording the post-change balance inside the same
// database transaction.
type CreditTransaction struct {
	ID            int64     `json:"id" db:"id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"` // uuid, groups rows from one engine operation
	UserID        int64     `json:"user_id" db:"user_id"`
	Amount        int64     `json:"amount" db:"amount"` // signed
	Kind          string    `json:"kind" db:"kind"`
	ReferenceType string    `json:"reference_type" db:"reference_type"`
	ReferenceID   int64     `json:"reference_id" db:"reference_id"`
	BalanceAfter  int64     `json:"balance_after" db:"balance_after"`
	Description   string    `json:"description" db:"description"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
