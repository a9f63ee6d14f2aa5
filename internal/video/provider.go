// Package video wraps the external consultation-session provider. Sessions
// and tokens are opaque to the rest of the system; a provisioning failure is
// surfaced immediately and never retried here.
package video

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionProvisioning = errors.New("failed to provision video session")
	ErrUnknownSession      = errors.New("unknown video session")
)

// Role of a token holder when joining a session.
const (
	RolePublisher = "publisher"
)

// Provider creates sessions and issues short-lived access tokens for them.
type Provider interface {
	CreateSession(ctx context.Context) (string, error)
	IssueToken(ctx context.Context, sessionID, role string, expiry time.Time, data map[string]string) (string, error)
}
