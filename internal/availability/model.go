package availability

import (
	"time"

	"github.com/google/uuid"
)

type WindowStatus string

const StatusAvailable WindowStatus = "AVAILABLE"

// Window is a doctor's recurring daily availability. StartTime and EndTime
// carry dates, but only their time of day is meaningful; the slot generator
// re-anchors them onto each projected day.
type Window struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Status    WindowStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
