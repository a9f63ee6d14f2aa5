package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrDoctorNotFound  = errors.New("doctor not found or not verified")
)

// Repository contains the account lookups needed by the scheduling services.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetPatient returns the account only when its role is PATIENT.
	GetPatient(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetVerifiedDoctor returns the account only when its role is DOCTOR and
	// it has passed verification.
	GetVerifiedDoctor(ctx context.Context, id uuid.UUID) (*Account, error)

	// ListVerifiedDoctors returns verified doctors, optionally filtered by
	// specialty (empty string means all).
	ListVerifiedDoctors(ctx context.Context, specialty string) ([]Account, error)
}
