package ledger

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TypeCreditPurchase       TransactionType = "CREDIT_PURCHASE"
	TypeAppointmentDeduction TransactionType = "APPOINTMENT_DEDUCTION"
)

// AppointmentCost is the flat credit price of one consultation.
const AppointmentCost = 2

// Credits granted per subscription plan, once per calendar month.
const (
	PlanFree     = "free_user"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

var PlanCredits = map[string]int{
	PlanFree:     0,
	PlanStandard: 10,
	PlanPremium:  24,
}

// Transaction is one append-only ledger row. The sum of an account's
// transactions always equals its credits balance; balances are adjusted by
// increments alongside each insert, never overwritten.
type Transaction struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Amount    int
	Type      TransactionType
	PackageID *string
	CreatedAt time.Time
}

// Leg is one side of a ledger operation: a signed amount applied to one
// account, recorded with the given transaction type.
type Leg struct {
	AccountID uuid.UUID
	Amount    int
	Type      TransactionType
	PackageID *string
}

// Operation is a set of legs applied atomically. Either every leg commits
// (transaction row plus balance increment) or none do.
type Operation struct {
	Legs []Leg
}

// FundingOperation pays for a booking: debit the patient, credit the doctor.
func FundingOperation(patientID, doctorID uuid.UUID) Operation {
	return Operation{Legs: []Leg{
		{AccountID: patientID, Amount: -AppointmentCost, Type: TypeAppointmentDeduction},
		{AccountID: doctorID, Amount: AppointmentCost, Type: TypeAppointmentDeduction},
	}}
}

// ReversalOperation is the exact inverse of FundingOperation, applied when a
// scheduled appointment is cancelled.
func ReversalOperation(patientID, doctorID uuid.UUID) Operation {
	return Operation{Legs: []Leg{
		{AccountID: patientID, Amount: AppointmentCost, Type: TypeAppointmentDeduction},
		{AccountID: doctorID, Amount: -AppointmentCost, Type: TypeAppointmentDeduction},
	}}
}

// AllocationOperation grants a plan's monthly credits to one account.
func AllocationOperation(accountID uuid.UUID, amount int, packageID string) Operation {
	pkg := packageID
	return Operation{Legs: []Leg{
		{AccountID: accountID, Amount: amount, Type: TypeCreditPurchase, PackageID: &pkg},
	}}
}
