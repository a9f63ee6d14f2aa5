package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the repository needs; tests inject a
// mock.
type PgxPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Querier
}

type PgRepository struct {
	pool PgxPool
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Apply(ctx context.Context, q Querier, op Operation) error {
	if len(op.Legs) == 0 {
		return ErrEmptyOperation
	}
	if q == nil {
		q = r.pool
	}

	for _, leg := range op.Legs {
		_, err := q.Exec(ctx, `
			INSERT INTO credit_transactions (id, account_id, amount, type, package_id, created_at)
			VALUES ($1, $2, $3, $4, $5, now())
		`, uuid.New(), leg.AccountID, leg.Amount, leg.Type, leg.PackageID)
		if err != nil {
			return fmt.Errorf("insert credit transaction: %w", err)
		}

		tag, err := q.Exec(ctx, `
			UPDATE accounts
			SET credits = credits + $2,
			    updated_at = now()
			WHERE id = $1
			  AND credits + $2 >= 0
		`, leg.AccountID, leg.Amount)
		if err != nil {
			return fmt.Errorf("adjust balance: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Either the account is gone or the debit would go negative;
			// the balance check ran under the caller's transaction, so a
			// concurrent booking cannot sneak past it.
			row := q.QueryRow(ctx, `SELECT credits FROM accounts WHERE id = $1`, leg.AccountID)
			var credits int
			if scanErr := row.Scan(&credits); scanErr != nil {
				if errors.Is(scanErr, pgx.ErrNoRows) {
					return fmt.Errorf("ledger account %s not found", leg.AccountID)
				}
				return fmt.Errorf("check balance: %w", scanErr)
			}
			return ErrInsufficientCredits
		}
	}

	return nil
}

func (r *PgRepository) LatestTransaction(ctx context.Context, q Querier, accountID uuid.UUID) (*Transaction, error) {
	if q == nil {
		q = r.pool
	}

	row := q.QueryRow(ctx, `
		SELECT id, account_id, amount, type, package_id, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, accountID)

	return scanTransaction(row)
}

func (r *PgRepository) ListTransactions(ctx context.Context, accountID uuid.UUID) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, account_id, amount, type, package_id, created_at
		FROM credit_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *tx)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) SumTransactions(ctx context.Context, accountID uuid.UUID) (int, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_transactions
		WHERE account_id = $1
	`, accountID)

	var sum int
	if err := row.Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}

// AllocateOnce grants the plan's monthly credits unless the account's latest
// transaction already carries the same package id within now's calendar
// month. The check and the insert share one serializable transaction so two
// concurrent calls cannot both allocate.
func (r *PgRepository) AllocateOnce(ctx context.Context, accountID uuid.UUID, amount int, packageID string, now time.Time) (bool, error) {
	allocated, err := r.allocateOnce(ctx, accountID, amount, packageID, now)
	if serializationFailure(err) {
		// A concurrent call won the race; the retry finds its transaction
		// row and skips.
		allocated, err = r.allocateOnce(ctx, accountID, amount, packageID, now)
	}
	return allocated, err
}

// serializationFailure reports whether Postgres aborted a serializable
// transaction with SQLSTATE 40001. The transaction is safe to re-run; the
// retry observes the winner's committed rows.
func serializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func (r *PgRepository) allocateOnce(ctx context.Context, accountID uuid.UUID, amount int, packageID string, now time.Time) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return false, fmt.Errorf("begin allocation tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	latest, err := r.LatestTransaction(ctx, tx, accountID)
	if err != nil {
		return false, fmt.Errorf("load latest transaction: %w", err)
	}
	if latest != nil && sameMonth(latest.CreatedAt, now) &&
		latest.PackageID != nil && *latest.PackageID == packageID {
		return false, nil
	}

	if err := r.Apply(ctx, tx, AllocationOperation(accountID, amount, packageID)); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit allocation tx: %w", err)
	}
	return true, nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var tx Transaction

	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.Amount,
		&tx.Type,
		&tx.PackageID,
		&tx.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &tx, nil
}

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
