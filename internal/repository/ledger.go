package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ecoride/backend/internal/models"
)

// Storage-level sentinels. The booking engine translates these into its
// typed business errors.
var (
	// ErrBalanceWouldGoNegative is the SQL-level guard against a debit
	// exceeding the balance. The engine checks balances under lock before
	// debiting, so hitting this means a logic bug, not a user error.
	ErrBalanceWouldGoNegative = errors.New("balance update would go negative")

	// ErrStatusConflict is returned when a compare-and-swap update matched
	// no row because the current status differs from the expected one.
	ErrStatusConflict = errors.New("status compare-and-swap matched no row")

	// ErrSeatBoundsViolated is returned when a seat adjustment would push
	// seats_available outside [0, seats_total].
	ErrSeatBoundsViolated = errors.New("seat adjustment out of bounds")
)

// LedgerRepo is the durable record of user credit balances plus the
// append-only credit_transactions log. All mutations take a *sql.Tx: a
// balance can only change inside a booking engine transaction.
type LedgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// LockBalance acquires an exclusive row lock on the user's balance and
// returns the current credits. Lock order is always ride row first, then
// user rows; callers with multiple users go through LockBalances.
func (r *LedgerRepo) LockBalance(tx *sql.Tx, userID int64) (int64, error) {
	var credits int64
	err := tx.QueryRow(`
		SELECT credits FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&credits)
	if err != nil {
		return 0, err
	}
	return credits, nil
}

// LockBalances locks several balance rows in ascending user-id order, the
// ordering every engine operation uses so concurrent cancellations and
// bookings cannot deadlock.
func (r *LedgerRepo) LockBalances(tx *sql.Tx, userIDs []int64) (map[int64]int64, error) {
	if len(userIDs) == 0 {
		return map[int64]int64{}, nil
	}

	rows, err := tx.Query(`
		SELECT id, credits FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[int64]int64, len(userIDs))
	for rows.Next() {
		var id, credits int64
		if err := rows.Scan(&id, &credits); err != nil {
			return nil, err
		}
		balances[id] = credits
	}
	return balances, rows.Err()
}

// ApplyDelta adjusts a user's balance and appends the matching ledger row
// in one step. The WHERE guard refuses any update that would take the
// balance negative. Returns the post-change balance.
func (r *LedgerRepo) ApplyDelta(tx *sql.Tx, entry models.CreditTransaction) (int64, error) {
	var balanceAfter int64
	err := tx.QueryRow(`
		UPDATE users SET credits = credits + $1, updated_at = $2
		WHERE id = $3 AND credits + $1 >= 0
		RETURNING credits`,
		entry.Amount, time.Now(), entry.UserID).Scan(&balanceAfter)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("user %d: %w", entry.UserID, ErrBalanceWouldGoNegative)
	}
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		INSERT INTO credit_transactions
			(transaction_id, user_id, amount, kind, reference_type, reference_id, balance_after, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.TransactionID, entry.UserID, entry.Amount, entry.Kind,
		entry.ReferenceType, entry.ReferenceID, balanceAfter, entry.Description, time.Now())
	if err != nil {
		return 0, fmt.Errorf("append ledger entry: %w", err)
	}
	return balanceAfter, nil
}

// GetBalance reads a balance outside any transaction (display only).
func (r *LedgerRepo) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var credits int64
	err := r.db.QueryRowContext(ctx,
		`SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	return credits, err
}

// ListTransactions returns a user's ledger history, newest first.
func (r *LedgerRepo) ListTransactions(ctx context.Context, userID int64) ([]models.CreditTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transaction_id, user_id, amount, kind, reference_type, reference_id, balance_after, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CreditTransaction
	for rows.Next() {
		var e models.CreditTransaction
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.UserID, &e.Amount, &e.Kind,
			&e.ReferenceType, &e.ReferenceID, &e.BalanceAfter, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
