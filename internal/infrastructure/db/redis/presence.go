package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The online key carries a safety TTL so a crashed node cannot leave an
// account marked online forever.
const onlineTTL = 24 * time.Hour

// PresenceStore mirrors coarse presence state into Redis. The hub remains
// the authority for delivery decisions; this store only feeds the
// last-seen/online hints on the user list endpoint.
// Keys: presence:online:<id>, presence:last_seen:<id>.
type PresenceStore struct {
	client *redis.Client
}

func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

// SetOnline records the account as online and refreshes last-seen.
func (p *PresenceStore) SetOnline(ctx context.Context, accountID string) error {
	if err := p.client.Set(ctx, onlineKey(accountID), "1", onlineTTL).Err(); err != nil {
		return fmt.Errorf("presence set online: %w", err)
	}
	return p.touchLastSeen(ctx, accountID)
}

// SetOffline clears the online flag and stamps last-seen.
func (p *PresenceStore) SetOffline(ctx context.Context, accountID string) error {
	if err := p.client.Del(ctx, onlineKey(accountID)).Err(); err != nil {
		return fmt.Errorf("presence set offline: %w", err)
	}
	return p.touchLastSeen(ctx, accountID)
}

// LastSeen returns the recorded last-seen time, or the zero time when the
// account was never observed.
func (p *PresenceStore) LastSeen(ctx context.Context, accountID string) (time.Time, error) {
	val, err := p.client.Get(ctx, lastSeenKey(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("presence last seen: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, fmt.Errorf("presence last seen parse: %w", err)
	}
	return ts, nil
}

func (p *PresenceStore) touchLastSeen(ctx context.Context, accountID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := p.client.Set(ctx, lastSeenKey(accountID), now, 0).Err(); err != nil {
		return fmt.Errorf("presence touch last seen: %w", err)
	}
	return nil
}

func onlineKey(id string) string   { return "presence:online:" + id }
func lastSeenKey(id string) string { return "presence:last_seen:" + id }
