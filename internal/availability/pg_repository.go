package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const windowColumns = `id, doctor_id, start_time, end_time, status, created_at, updated_at`

// PgxPool is the subset of pgxpool.Pool the repository needs; tests inject a
// mock.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool PgxPool
}

func NewPgRepository(pool PgxPool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window

	err := row.Scan(
		&w.ID,
		&w.DoctorID,
		&w.StartTime,
		&w.EndTime,
		&w.Status,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoWindow
		}
		return nil, err
	}

	return &w, nil
}

func (r *PgRepository) GetActiveWindow(ctx context.Context, doctorID uuid.UUID) (*Window, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1 AND status = 'AVAILABLE'
		ORDER BY created_at DESC
		LIMIT 1
	`, doctorID)
	return scanWindow(row)
}

func (r *PgRepository) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+windowColumns+`
		FROM availability_windows
		WHERE doctor_id = $1
		ORDER BY start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ReplaceWindow(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (*Window, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin replace window tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Drop stale windows, but never one whose slot is actually booked: a
	// window survives when its exact start/end pair matches any of the
	// doctor's appointments.
	_, err = tx.Exec(ctx, `
		DELETE FROM availability_windows w
		WHERE w.doctor_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.doctor_id = $1
			  AND a.start_time = w.start_time
			  AND a.end_time = w.end_time
		  )
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("delete stale windows: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO availability_windows (id, doctor_id, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'AVAILABLE', now(), now())
		RETURNING `+windowColumns+`
	`, uuid.New(), doctorID, start, end)

	w, err := scanWindow(row)
	if err != nil {
		return nil, fmt.Errorf("insert window: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit replace window tx: %w", err)
	}

	return w, nil
}
