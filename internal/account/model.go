package account

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "PATIENT"
	RoleDoctor  Role = "DOCTOR"
	RoleAdmin   Role = "ADMIN"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Account is a person on the platform. The credits balance is owned by the
// ledger and only changes through ledger operations.
type Account struct {
	ID                 uuid.UUID
	Name               string
	Email              *string
	Role               Role
	Specialty          *string
	VerificationStatus VerificationStatus
	Credits            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a *Account) IsVerifiedDoctor() bool {
	return a.Role == RoleDoctor && a.VerificationStatus == VerificationVerified
}
