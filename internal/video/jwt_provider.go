package video

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTProvider issues HMAC-signed session tokens compatible with providers
// that accept application-signed client tokens. Session ids are opaque
// uuid-based handles.
type JWTProvider struct {
	appID string
	key   []byte
	now   func() time.Time
}

func NewJWTProvider(appID, secret string) (*JWTProvider, error) {
	if secret == "" {
		return nil, fmt.Errorf("video provider secret is required")
	}
	return &JWTProvider{
		appID: appID,
		key:   []byte(secret),
		now:   time.Now,
	}, nil
}

func (p *JWTProvider) CreateSession(_ context.Context) (string, error) {
	return fmt.Sprintf("%s_%s", p.appID, uuid.NewString()), nil
}

func (p *JWTProvider) IssueToken(_ context.Context, sessionID, role string, expiry time.Time, data map[string]string) (string, error) {
	if sessionID == "" {
		return "", ErrUnknownSession
	}

	connectionData, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode connection data: %w", err)
	}

	claims := jwt.MapClaims{
		"application_id":  p.appID,
		"session_id":      sessionID,
		"role":            role,
		"connection_data": string(connectionData),
		"iat":             p.now().Unix(),
		"exp":             expiry.Unix(),
		"jti":             uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}
