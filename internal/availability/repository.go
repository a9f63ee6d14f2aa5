package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoWindow     = errors.New("no availability set by doctor")
	ErrInvalidRange = errors.New("start time must be before end time")
)

type Repository interface {
	// GetActiveWindow returns the doctor's current AVAILABLE window or
	// ErrNoWindow.
	GetActiveWindow(ctx context.Context, doctorID uuid.UUID) (*Window, error)

	// ListWindows returns all of the doctor's windows ordered by start time.
	ListWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error)

	// ReplaceWindow deletes the doctor's windows whose exact start/end pair
	// matches none of the doctor's appointments, then inserts the new window.
	// Both steps run in one transaction.
	ReplaceWindow(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (*Window, error)
}
