// Package entitlement answers "does this account hold this subscription
// plan" against an external billing system.
package entitlement

import (
	"context"

	"github.com/google/uuid"
)

// Checker is the external plan lookup. Failures are surfaced to the caller
// and never retried here.
type Checker interface {
	HasPlan(ctx context.Context, accountID uuid.UUID, plan string) (bool, error)
}

// StaticChecker maps accounts to a single plan. Used by the seed command and
// in dev environments without a billing backend.
type StaticChecker struct {
	Plans map[uuid.UUID]string
}

func (c *StaticChecker) HasPlan(_ context.Context, accountID uuid.UUID, plan string) (bool, error) {
	return c.Plans[accountID] == plan, nil
}
