package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medimeet/scheduling/internal/account"
	"github.com/medimeet/scheduling/internal/entitlement"
)

type stubAccounts struct {
	byID map[uuid.UUID]*account.Account
}

func (s *stubAccounts) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	if a, ok := s.byID[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, account.ErrAccountNotFound
}

func (s *stubAccounts) GetPatient(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil || a.Role != account.RolePatient {
		return nil, account.ErrPatientNotFound
	}
	return a, nil
}

func (s *stubAccounts) GetVerifiedDoctor(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil || !a.IsVerifiedDoctor() {
		return nil, account.ErrDoctorNotFound
	}
	return a, nil
}

func (s *stubAccounts) ListVerifiedDoctors(context.Context, string) ([]account.Account, error) {
	return nil, nil
}

type stubLedgerRepo struct {
	allocated    bool
	allocateErr  error
	lastPackage  string
	lastAmount   int
	allocateHits int
}

func (s *stubLedgerRepo) Apply(context.Context, Querier, Operation) error { return nil }

func (s *stubLedgerRepo) LatestTransaction(context.Context, Querier, uuid.UUID) (*Transaction, error) {
	return nil, nil
}

func (s *stubLedgerRepo) ListTransactions(context.Context, uuid.UUID) ([]Transaction, error) {
	return nil, nil
}

func (s *stubLedgerRepo) SumTransactions(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (s *stubLedgerRepo) AllocateOnce(_ context.Context, _ uuid.UUID, amount int, packageID string, _ time.Time) (bool, error) {
	s.allocateHits++
	if s.allocateErr != nil {
		return false, s.allocateErr
	}
	s.lastAmount = amount
	s.lastPackage = packageID
	return s.allocated, nil
}

func newPatient(credits int) *account.Account {
	return &account.Account{
		ID:      uuid.New(),
		Name:    "Pat Doe",
		Role:    account.RolePatient,
		Credits: credits,
	}
}

func TestAllocateMonthlyCreditsPicksRichestPlan(t *testing.T) {
	patient := newPatient(0)
	repo := &stubLedgerRepo{allocated: true}
	accounts := &stubAccounts{byID: map[uuid.UUID]*account.Account{patient.ID: patient}}
	plans := &entitlement.StaticChecker{Plans: map[uuid.UUID]string{patient.ID: PlanPremium}}

	svc := NewService(repo, accounts, plans, zap.NewNop())

	_, err := svc.AllocateMonthlyCredits(context.Background(), patient.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, PlanPremium, repo.lastPackage)
	require.Equal(t, 24, repo.lastAmount)
}

func TestAllocateMonthlyCreditsSkipsNonPatients(t *testing.T) {
	doctor := &account.Account{ID: uuid.New(), Role: account.RoleDoctor}
	repo := &stubLedgerRepo{}
	accounts := &stubAccounts{byID: map[uuid.UUID]*account.Account{doctor.ID: doctor}}

	svc := NewService(repo, accounts, &entitlement.StaticChecker{}, zap.NewNop())

	got, err := svc.AllocateMonthlyCredits(context.Background(), doctor.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, doctor.ID, got.ID)
	require.Zero(t, repo.allocateHits)
}

func TestAllocateMonthlyCreditsSkipsAccountsWithoutPlan(t *testing.T) {
	patient := newPatient(3)
	repo := &stubLedgerRepo{}
	accounts := &stubAccounts{byID: map[uuid.UUID]*account.Account{patient.ID: patient}}

	svc := NewService(repo, accounts, &entitlement.StaticChecker{}, zap.NewNop())

	got, err := svc.AllocateMonthlyCredits(context.Background(), patient.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, got.Credits)
	require.Zero(t, repo.allocateHits)
}

func TestAllocateMonthlyCreditsSwallowsLedgerFailure(t *testing.T) {
	patient := newPatient(5)
	repo := &stubLedgerRepo{allocateErr: errors.New("serialization conflict")}
	accounts := &stubAccounts{byID: map[uuid.UUID]*account.Account{patient.ID: patient}}
	plans := &entitlement.StaticChecker{Plans: map[uuid.UUID]string{patient.ID: PlanStandard}}

	svc := NewService(repo, accounts, plans, zap.NewNop())

	got, err := svc.AllocateMonthlyCredits(context.Background(), patient.ID, time.Now())
	require.NoError(t, err, "allocation is best effort, failures must not propagate")
	require.Equal(t, 5, got.Credits, "account must come back unchanged")
}

func TestFundingAndReversalAreInverses(t *testing.T) {
	patientID := uuid.New()
	doctorID := uuid.New()

	fund := FundingOperation(patientID, doctorID)
	reverse := ReversalOperation(patientID, doctorID)

	net := map[uuid.UUID]int{}
	for _, leg := range append(fund.Legs, reverse.Legs...) {
		net[leg.AccountID] += leg.Amount
	}

	require.Zero(t, net[patientID])
	require.Zero(t, net[doctorID])
}
