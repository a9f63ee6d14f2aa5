package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPChecker queries the billing service over HTTP:
// GET {base}/accounts/{id}/plans/{plan} -> {"active": bool}
type HTTPChecker struct {
	baseURL string
	client  *http.Client
}

func NewHTTPChecker(baseURL string) *HTTPChecker {
	return &HTTPChecker{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type planResponse struct {
	Active bool `json:"active"`
}

func (c *HTTPChecker) HasPlan(ctx context.Context, accountID uuid.UUID, plan string) (bool, error) {
	url := fmt.Sprintf("%s/accounts/%s/plans/%s", c.baseURL, accountID, plan)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("build plan request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("query plan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("plan lookup returned status %d", resp.StatusCode)
	}

	var body planResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode plan response: %w", err)
	}

	return body.Active, nil
}
