package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medimeet/scheduling/internal/account"
	"github.com/medimeet/scheduling/internal/availability"
	"github.com/medimeet/scheduling/internal/ledger"
	"github.com/medimeet/scheduling/internal/schedule"
	"github.com/medimeet/scheduling/internal/video"
)

var (
	ErrForbidden         = errors.New("not a party to this appointment")
	ErrInvalidInterval   = errors.New("appointment must be a single 30-minute slot")
	ErrTooEarly          = errors.New("cannot complete before the scheduled end time")
	ErrTokenNotAvailable = errors.New("session tokens become available 30 minutes before the start time")
)

// Token availability and lifetime around an appointment.
const (
	tokenLeadTime = 30 * time.Minute
	tokenTailTime = time.Hour
)

// ViewCache invalidates and serves cached appointment-list views; a nil-safe
// no-op implementation is fine for tests.
type ViewCache interface {
	GetPatientView(ctx context.Context, patientID uuid.UUID) ([]byte, bool)
	SetPatientView(ctx context.Context, patientID uuid.UUID, payload []byte) error
	GetDoctorView(ctx context.Context, doctorID uuid.UUID) ([]byte, bool)
	SetDoctorView(ctx context.Context, doctorID uuid.UUID, payload []byte) error
	InvalidatePatient(ctx context.Context, patientID uuid.UUID) error
	InvalidateDoctor(ctx context.Context, doctorID uuid.UUID) error
}

type Service struct {
	repo     Repository
	accounts account.Repository
	windows  availability.Repository
	video    video.Provider
	cache    ViewCache
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(repo Repository, accounts account.Repository, windows availability.Repository,
	provider video.Provider, cache ViewCache, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		windows:  windows,
		video:    provider,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Tests use it to pin "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetSlots projects the doctor's availability window over the horizon,
// excluding past and booked intervals. The result is derived fresh on every
// call; it goes stale the moment anyone books.
func (s *Service) GetSlots(ctx context.Context, doctorID uuid.UUID) ([]schedule.DaySlots, error) {
	if _, err := s.accounts.GetVerifiedDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	window, err := s.windows.GetActiveWindow(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	existing, err := s.repo.ListScheduledThrough(ctx, doctorID, schedule.HorizonEnd(now))
	if err != nil {
		return nil, fmt.Errorf("load scheduled appointments: %w", err)
	}

	booked := make([]schedule.Interval, 0, len(existing))
	for _, a := range existing {
		booked = append(booked, a.Interval())
	}

	return schedule.BuildDays(window.StartTime, window.EndTime, booked, now), nil
}

type BookRequest struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	Description string
}

// Book reserves the requested slot for the patient and pays for it. The
// overlap re-check, the paired debit/credit, and the appointment insert
// commit atomically; the video session is provisioned first so a provider
// failure aborts before any ledger mutation.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if !req.EndTime.Equal(req.StartTime.Add(schedule.SlotDuration)) {
		return nil, ErrInvalidInterval
	}

	doctor, err := s.accounts.GetVerifiedDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	patient, err := s.accounts.GetPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	// Advisory pre-check; the authoritative check is the conditional debit
	// inside the booking transaction.
	if patient.Credits < ledger.AppointmentCost {
		return nil, ledger.ErrInsufficientCredits
	}

	sessionID, err := s.video.CreateSession(ctx)
	if err != nil {
		s.logger.Error("video session provisioning failed",
			zap.String("doctor_id", doctor.ID.String()),
			zap.Error(err),
		)
		return nil, video.ErrSessionProvisioning
	}

	appt := &Appointment{
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		VideoSessionID: &sessionID,
	}
	if req.Description != "" {
		appt.PatientDescription = &req.Description
	}

	created, err := s.repo.CreateScheduled(ctx, appt, ledger.FundingOperation(patient.ID, doctor.ID))
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, created)

	s.logger.Info("appointment booked",
		zap.String("appointment_id", created.ID.String()),
		zap.String("doctor_id", doctor.ID.String()),
		zap.Time("start", created.StartTime),
	)

	return created, nil
}

// Cancel moves a scheduled appointment to CANCELLED and refunds the booking.
// Either party may cancel at any time before completion.
func (s *Service) Cancel(ctx context.Context, appointmentID, requesterID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if !appt.IsParty(requesterID) {
		return nil, ErrForbidden
	}

	cancelled, err := s.repo.Cancel(ctx, appt.ID, ledger.ReversalOperation(appt.PatientID, appt.DoctorID))
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, cancelled)

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", cancelled.ID.String()),
		zap.String("requester_id", requesterID.String()),
	)

	return cancelled, nil
}

// Complete marks a finished consultation. Only the assigned doctor may do
// this, and only after the appointment's end time has passed.
func (s *Service) Complete(ctx context.Context, appointmentID, doctorID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.DoctorID != doctorID {
		return nil, ErrForbidden
	}
	if appt.Status != StatusScheduled {
		return nil, ErrNotScheduled
	}
	if s.now().Before(appt.EndTime) {
		return nil, ErrTooEarly
	}

	completed, err := s.repo.Complete(ctx, appt.ID)
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, completed)

	return completed, nil
}

// AddNotes attaches or replaces the doctor's notes, at any status.
func (s *Service) AddNotes(ctx context.Context, appointmentID, doctorID uuid.UUID, notes string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.DoctorID != doctorID {
		return nil, ErrForbidden
	}

	updated, err := s.repo.UpdateNotes(ctx, appt.ID, notes)
	if err != nil {
		return nil, err
	}

	s.invalidateViews(ctx, updated)

	return updated, nil
}

// TokenGrant is what a caller needs to join a consultation session.
type TokenGrant struct {
	SessionID string
	Token     string
	ExpiresAt time.Time
}

// IssueAccessToken issues a join token for either party of a scheduled
// appointment. Tokens become available 30 minutes before the start time;
// there is no upper bound after the start, so a late joiner still gets one.
// Re-issuing is allowed and simply replaces the stored token.
func (s *Service) IssueAccessToken(ctx context.Context, appointmentID, requesterID uuid.UUID) (*TokenGrant, error) {
	requester, err := s.accounts.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if !appt.IsParty(requester.ID) {
		return nil, ErrForbidden
	}
	if appt.Status != StatusScheduled {
		return nil, ErrNotScheduled
	}
	if appt.VideoSessionID == nil {
		return nil, video.ErrUnknownSession
	}

	if s.now().Before(appt.StartTime.Add(-tokenLeadTime)) {
		return nil, ErrTokenNotAvailable
	}

	expiry := appt.EndTime.Add(tokenTailTime)

	token, err := s.video.IssueToken(ctx, *appt.VideoSessionID, video.RolePublisher, expiry, map[string]string{
		"name":    requester.Name,
		"role":    string(requester.Role),
		"user_id": requester.ID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	if err := s.repo.SetSessionToken(ctx, appt.ID, token); err != nil {
		return nil, err
	}

	return &TokenGrant{
		SessionID: *appt.VideoSessionID,
		Token:     token,
		ExpiresAt: expiry,
	}, nil
}

// ListPatientAppointments serves the patient's appointments through the view
// cache; bookings and cancellations invalidate it.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	if s.cache != nil {
		if payload, ok := s.cache.GetPatientView(ctx, patientID); ok {
			var cached []Appointment
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		}
	}

	appts, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(appts); err == nil {
			if err := s.cache.SetPatientView(ctx, patientID, payload); err != nil {
				s.logger.Debug("set patient view cache failed", zap.Error(err))
			}
		}
	}

	return appts, nil
}

// ListDoctorAppointments mirrors ListPatientAppointments for the doctor's
// dashboard.
func (s *Service) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	if s.cache != nil {
		if payload, ok := s.cache.GetDoctorView(ctx, doctorID); ok {
			var cached []Appointment
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		}
	}

	appts, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(appts); err == nil {
			if err := s.cache.SetDoctorView(ctx, doctorID, payload); err != nil {
				s.logger.Debug("set doctor view cache failed", zap.Error(err))
			}
		}
	}

	return appts, nil
}

func (s *Service) invalidateViews(ctx context.Context, appt *Appointment) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePatient(ctx, appt.PatientID); err != nil {
		s.logger.Warn("invalidate patient view failed", zap.Error(err))
	}
	if err := s.cache.InvalidateDoctor(ctx, appt.DoctorID); err != nil {
		s.logger.Warn("invalidate doctor view failed", zap.Error(err))
	}
}
