package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medimeet/scheduling/internal/schedule"
)

type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Appointment is one confirmed or resolved booking between a patient and a
// doctor. Rows are never deleted; terminal states are COMPLETED and
// CANCELLED.
type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	DoctorID           uuid.UUID
	StartTime          time.Time
	EndTime            time.Time
	Status             Status
	VideoSessionID     *string
	VideoSessionToken  *string
	PatientDescription *string
	Notes              *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a *Appointment) Interval() schedule.Interval {
	return schedule.Interval{Start: a.StartTime, End: a.EndTime}
}

func (a *Appointment) IsParty(accountID uuid.UUID) bool {
	return a.PatientID == accountID || a.DoctorID == accountID
}
