package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medimeet/scheduling/internal/ledger"
)

const appointmentColumns = `id, patient_id, doctor_id, start_time, end_time, status,
	video_session_id, video_session_token, patient_description, notes, created_at, updated_at`

// PgxPool is the subset of pgxpool.Pool the repository needs; tests inject a
// mock.
type PgxPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool   PgxPool
	ledger ledger.Repository
}

func NewPgRepository(pool PgxPool, ledgerRepo ledger.Repository) *PgRepository {
	return &PgRepository{
		pool:   pool,
		ledger: ledgerRepo,
	}
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.VideoSessionID,
		&a.VideoSessionToken,
		&a.PatientDescription,
		&a.Notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListScheduledThrough(ctx context.Context, doctorID uuid.UUID, through time.Time) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status = 'SCHEDULED'
		  AND start_time <= $2
		ORDER BY start_time
	`, doctorID, through)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_time
	`, patientID)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY start_time
	`, doctorID)
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
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

// serializationFailure reports whether Postgres aborted a serializable
// transaction with SQLSTATE 40001. The transaction is safe to re-run; the
// retry observes the winner's committed rows.
func serializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func (r *PgRepository) CreateScheduled(ctx context.Context, appt *Appointment, funding ledger.Operation) (*Appointment, error) {
	created, err := r.createScheduled(ctx, appt, funding)
	if serializationFailure(err) {
		// Lost a race against a concurrent booking. The re-run sees the
		// winner's row, so the overlap check reports the conflict.
		created, err = r.createScheduled(ctx, appt, funding)
		if serializationFailure(err) {
			return nil, ErrSlotUnavailable
		}
	}
	return created, err
}

func (r *PgRepository) createScheduled(ctx context.Context, appt *Appointment, funding ledger.Operation) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Half-open interval overlap, re-checked under the transaction: the slot
	// list the caller saw may be stale.
	var overlapping bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND status = 'SCHEDULED'
			  AND start_time < $3
			  AND end_time > $2
		)
	`, appt.DoctorID, appt.StartTime, appt.EndTime).Scan(&overlapping)
	if err != nil {
		return nil, fmt.Errorf("check overlap: %w", err)
	}
	if overlapping {
		return nil, ErrSlotUnavailable
	}

	if err := r.ledger.Apply(ctx, tx, funding); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, start_time, end_time, status,
			video_session_id, patient_description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'SCHEDULED', $6, $7, now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), appt.PatientID, appt.DoctorID, appt.StartTime, appt.EndTime,
		appt.VideoSessionID, appt.PatientDescription)

	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	return created, nil
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID, reversal ledger.Operation) (*Appointment, error) {
	cancelled, err := r.cancel(ctx, id, reversal)
	if serializationFailure(err) {
		// The retry's conditional UPDATE finds whatever status the
		// concurrent writer committed.
		cancelled, err = r.cancel(ctx, id, reversal)
	}
	return cancelled, err
}

func (r *PgRepository) cancel(ctx context.Context, id uuid.UUID, reversal ledger.Operation) (*Appointment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'CANCELLED',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'SCHEDULED'
		RETURNING `+appointmentColumns+`
	`, id)

	cancelled, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotScheduled
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	if err := r.ledger.Apply(ctx, tx, reversal); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel tx: %w", err)
	}

	return cancelled, nil
}

func (r *PgRepository) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'COMPLETED',
		    updated_at = now()
		WHERE id = $1
		  AND status = 'SCHEDULED'
		RETURNING `+appointmentColumns+`
	`, id)

	completed, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrNotScheduled
		}
		return nil, err
	}

	return completed, nil
}

func (r *PgRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET notes = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, notes)

	return scanAppointment(row)
}

func (r *PgRepository) SetSessionToken(ctx context.Context, id uuid.UUID, token string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET video_session_token = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, token)
	if err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}
