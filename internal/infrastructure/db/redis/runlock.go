package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/checklisthq/schema-engine/internal/core/domain"
)

const lockTTL = 10 * time.Minute

// RunLock serializes engine runs per tenant with a Redis SET NX lease.
// Key format: runlock:<tenant_id>. The lease expires after lockTTL so a
// crashed run cannot wedge a tenant forever; release only deletes the key
// when it still holds this run's token.
type RunLock struct {
	client *redis.Client
}

// NewRunLock creates a RunLock wrapping the given Redis client.
func NewRunLock(client *redis.Client) *RunLock {
	return &RunLock{client: client}
}

// Acquire takes the per-tenant lease. It returns domain.ErrTenantLocked
// when another run currently holds it.
func (l *RunLock) Acquire(ctx context.Context, tenantID string) (func(), error) {
	key := l.key(tenantID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("run lock acquire: %w", err)
	}
	if !ok {
		return nil, domain.ErrTenantLocked
	}

	release := func() {
		// Best-effort compare-and-delete; an expired lease is already gone.
		const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
		_ = l.client.Eval(context.Background(), script, []string{key}, token).Err()
	}
	return release, nil
}

func (l *RunLock) key(tenantID string) string {
	return fmt.Sprintf("runlock:%s", tenantID)
}
