package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ViewCache stores rendered appointment-list views per account. Bookings and
// cancellations invalidate the affected accounts so callers never see a list
// that omits a live appointment. A cache miss is never an error: the view is
// re-derived from Postgres.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{
		client: client,
		ttl:    ttl,
	}
}

func patientViewKey(id uuid.UUID) string {
	return fmt.Sprintf("views:appointments:patient:%s", id.String())
}

func doctorViewKey(id uuid.UUID) string {
	return fmt.Sprintf("views:appointments:doctor:%s", id.String())
}

func (c *ViewCache) GetPatientView(ctx context.Context, patientID uuid.UUID) ([]byte, bool) {
	return c.get(ctx, patientViewKey(patientID))
}

func (c *ViewCache) SetPatientView(ctx context.Context, patientID uuid.UUID, payload []byte) error {
	return c.client.Set(ctx, patientViewKey(patientID), payload, c.ttl).Err()
}

func (c *ViewCache) GetDoctorView(ctx context.Context, doctorID uuid.UUID) ([]byte, bool) {
	return c.get(ctx, doctorViewKey(doctorID))
}

func (c *ViewCache) SetDoctorView(ctx context.Context, doctorID uuid.UUID, payload []byte) error {
	return c.client.Set(ctx, doctorViewKey(doctorID), payload, c.ttl).Err()
}

func (c *ViewCache) InvalidatePatient(ctx context.Context, patientID uuid.UUID) error {
	if err := c.client.Del(ctx, patientViewKey(patientID)).Err(); err != nil {
		return fmt.Errorf("invalidate patient view: %w", err)
	}
	return nil
}

func (c *ViewCache) InvalidateDoctor(ctx context.Context, doctorID uuid.UUID) error {
	if err := c.client.Del(ctx, doctorViewKey(doctorID)).Err(); err != nil {
		return fmt.Errorf("invalidate doctor view: %w", err)
	}
	return nil
}

func (c *ViewCache) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Absent key and flaky cache both read as a miss.
		return nil, false
	}
	return data, true
}
