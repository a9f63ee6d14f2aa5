package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrEmptyOperation      = errors.New("ledger operation has no legs")
)

// Querier is satisfied by pgxpool.Pool and pgx.Tx, so legs can be applied
// inside a transaction owned by another repository (booking, cancellation).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository owns transaction rows and the balance adjustments paired with
// them.
type Repository interface {
	// Apply inserts one transaction row per leg and adjusts each account's
	// balance by the leg amount. A debit that would push a balance negative
	// fails with ErrInsufficientCredits. Callers that need atomicity across
	// legs must pass a pgx.Tx as q.
	Apply(ctx context.Context, q Querier, op Operation) error

	// LatestTransaction returns the most recent transaction for the account,
	// or nil when the account has none.
	LatestTransaction(ctx context.Context, q Querier, accountID uuid.UUID) (*Transaction, error)

	// ListTransactions returns the account's transactions, newest first.
	ListTransactions(ctx context.Context, accountID uuid.UUID) ([]Transaction, error)

	// SumTransactions recomputes the balance from the log for auditing.
	SumTransactions(ctx context.Context, accountID uuid.UUID) (int, error)

	// AllocateOnce grants a plan's monthly credits idempotently within one
	// calendar month per package id. Returns whether an allocation happened.
	AllocateOnce(ctx context.Context, accountID uuid.UUID, amount int, packageID string, now time.Time) (bool, error)
}
