package repo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "robot:online:"

// PresenceRepository mirrors robot liveness into Redis so other processes
// (web frontends, cron jobs) can read presence without touching the gateway.
// Entries expire on their own when heartbeats stop.
type PresenceRepository struct {
	client *redis.Client
}

func NewPresenceRepository(client *redis.Client) *PresenceRepository {
	return &PresenceRepository{client: client}
}

// SetOnline marks the device online for ttl; refreshed on every heartbeat.
func (r *PresenceRepository) SetOnline(ctx context.Context, deviceID string, ttl time.Duration) error {
	return r.client.Set(ctx, presenceKeyPrefix+deviceID, time.Now().Unix(), ttl).Err()
}

func (r *PresenceRepository) SetOffline(ctx context.Context, deviceID string) error {
	return r.client.Del(ctx, presenceKeyPrefix+deviceID).Err()
}

func (r *PresenceRepository) IsOnline(ctx context.Context, deviceID string) (bool, error) {
	_, err := r.client.Get(ctx, presenceKeyPrefix+deviceID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
