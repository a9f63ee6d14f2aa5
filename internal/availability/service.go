package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medimeet/scheduling/internal/account"
)

type Service struct {
	repo     Repository
	accounts account.Repository
	logger   *zap.Logger
}

func NewService(repo Repository, accounts account.Repository, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		logger:   logger,
	}
}

// SetWindow replaces the doctor's daily availability window. Stale windows
// with no matching appointment are cleaned up by the repository in the same
// transaction.
func (s *Service) SetWindow(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (*Window, error) {
	if !start.Before(end) {
		return nil, ErrInvalidRange
	}

	doctor, err := s.accounts.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Role != account.RoleDoctor {
		return nil, account.ErrDoctorNotFound
	}

	w, err := s.repo.ReplaceWindow(ctx, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("replace availability window: %w", err)
	}

	s.logger.Info("availability window set",
		zap.String("doctor_id", doctorID.String()),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	return w, nil
}

// GetWindow returns the doctor's current window, or ErrNoWindow.
func (s *Service) GetWindow(ctx context.Context, doctorID uuid.UUID) (*Window, error) {
	return s.repo.GetActiveWindow(ctx, doctorID)
}

// ListWindows returns all windows for the doctor dashboard.
func (s *Service) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]Window, error) {
	doctor, err := s.accounts.GetByID(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor.Role != account.RoleDoctor {
		return nil, account.ErrDoctorNotFound
	}
	return s.repo.ListWindows(ctx, doctorID)
}
