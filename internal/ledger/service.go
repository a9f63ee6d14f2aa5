package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medimeet/scheduling/internal/account"
	"github.com/medimeet/scheduling/internal/entitlement"
)

// Service layers plan resolution and allocation policy over the repository.
type Service struct {
	repo     Repository
	accounts account.Repository
	plans    entitlement.Checker
	logger   *zap.Logger
}

func NewService(repo Repository, accounts account.Repository, plans entitlement.Checker, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		plans:    plans,
		logger:   logger,
	}
}

// AllocateMonthlyCredits tops up the account's balance according to its
// subscription plan, at most once per calendar month per plan. It is a
// best-effort side job attached to unrelated requests: any failure is logged
// and the account is returned unchanged rather than propagating an error.
func (s *Service) AllocateMonthlyCredits(ctx context.Context, accountID uuid.UUID, now time.Time) (*account.Account, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// Only patients hold prepaid plans.
	if acct.Role != account.RolePatient {
		return acct, nil
	}

	plan, ok := s.resolvePlan(ctx, acct.ID)
	if !ok {
		return acct, nil
	}

	allocated, err := s.repo.AllocateOnce(ctx, acct.ID, PlanCredits[plan], plan, now)
	if err != nil {
		s.logger.Warn("monthly credit allocation failed",
			zap.String("account_id", acct.ID.String()),
			zap.String("plan", plan),
			zap.Error(err),
		)
		return acct, nil
	}
	if !allocated {
		return acct, nil
	}

	updated, err := s.accounts.GetByID(ctx, acct.ID)
	if err != nil {
		s.logger.Warn("reload account after allocation failed",
			zap.String("account_id", acct.ID.String()),
			zap.Error(err),
		)
		return acct, nil
	}
	return updated, nil
}

// resolvePlan checks the richest plan first so an upgraded account is
// allocated at its new tier even mid-month.
func (s *Service) resolvePlan(ctx context.Context, accountID uuid.UUID) (string, bool) {
	for _, plan := range []string{PlanPremium, PlanStandard, PlanFree} {
		has, err := s.plans.HasPlan(ctx, accountID, plan)
		if err != nil {
			s.logger.Warn("entitlement check failed",
				zap.String("account_id", accountID.String()),
				zap.String("plan", plan),
				zap.Error(err),
			)
			return "", false
		}
		if has {
			return plan, true
		}
	}
	return "", false
}

// AuditBalance reports whether the account balance matches the transaction
// log sum.
func (s *Service) AuditBalance(ctx context.Context, accountID uuid.UUID) (balance, sum int, consistent bool, err error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return 0, 0, false, err
	}

	sum, err = s.repo.SumTransactions(ctx, accountID)
	if err != nil {
		return 0, 0, false, err
	}

	return acct.Credits, sum, acct.Credits == sum, nil
}
