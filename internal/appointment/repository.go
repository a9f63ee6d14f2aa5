package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medimeet/scheduling/internal/ledger"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotUnavailable     = errors.New("this time slot is already booked")
	ErrNotScheduled        = errors.New("appointment is not currently scheduled")
)

// Repository contains all DB interactions needed by the service. The
// invariant-bearing writes (booking, cancellation) run the overlap check or
// status flip and the paired ledger legs inside one serializable transaction;
// the store's isolation is the sole concurrency-correctness mechanism.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListScheduledThrough returns the doctor's SCHEDULED appointments
	// starting no later than the given instant, for slot generation.
	ListScheduledThrough(ctx context.Context, doctorID uuid.UUID, through time.Time) ([]Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)

	// CreateScheduled re-validates the requested interval against the
	// doctor's SCHEDULED appointments, applies the funding operation, and
	// inserts the appointment, all in one serializable transaction. Fails
	// with ErrSlotUnavailable on overlap, ledger.ErrInsufficientCredits on a
	// failed debit; nothing is persisted on failure.
	CreateScheduled(ctx context.Context, appt *Appointment, funding ledger.Operation) (*Appointment, error)

	// Cancel flips SCHEDULED to CANCELLED and applies the reversal operation
	// in the same transaction. Fails with ErrNotScheduled from any other
	// state.
	Cancel(ctx context.Context, id uuid.UUID, reversal ledger.Operation) (*Appointment, error)

	// Complete flips SCHEDULED to COMPLETED. Fails with ErrNotScheduled from
	// any other state. Time and role gating happen in the service.
	Complete(ctx context.Context, id uuid.UUID) (*Appointment, error)

	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error)
	SetSessionToken(ctx context.Context, id uuid.UUID, token string) error
}
