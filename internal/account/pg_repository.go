package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, name, email, role, specialty, verification_status, credits, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanAccount(row pgx.Row, notFound error) (*Account, error) {
	var a Account

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Email,
		&a.Role,
		&a.Specialty,
		&a.VerificationStatus,
		&a.Credits,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id)
	return scanAccount(row, ErrAccountNotFound)
}

func (r *PgRepository) GetPatient(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND role = 'PATIENT'
	`, id)
	return scanAccount(row, ErrPatientNotFound)
}

func (r *PgRepository) GetVerifiedDoctor(ctx context.Context, id uuid.UUID) (*Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1 AND role = 'DOCTOR' AND verification_status = 'VERIFIED'
	`, id)
	return scanAccount(row, ErrDoctorNotFound)
}

func (r *PgRepository) ListVerifiedDoctors(ctx context.Context, specialty string) ([]Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE role = 'DOCTOR' AND verification_status = 'VERIFIED'
	`
	args := []any{}
	if specialty != "" {
		query += ` AND specialty = $1`
		args = append(args, specialty)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Account
	for rows.Next() {
		a, err := scanAccount(rows, ErrAccountNotFound)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
