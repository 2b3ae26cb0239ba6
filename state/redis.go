package state

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ErrNoSnapshot is returned by a SnapshotStore when nothing has been saved.
var ErrNoSnapshot = errors.New("no snapshot")

// SnapshotStore is the durable-storage port for the serialized aggregate.
type SnapshotStore interface {
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context) error
}

// RedisSnapshotStore persists the snapshot blob under a single prefixed key.
type RedisSnapshotStore struct {
	client *redis.Client
	key    string
}

// NewRedisSnapshotStore creates a snapshot store on client. An empty prefix
// defaults to "loginrisk".
func NewRedisSnapshotStore(client *redis.Client, prefix string) *RedisSnapshotStore {
	if prefix == "" {
		prefix = "loginrisk"
	}
	return &RedisSnapshotStore{
		client: client,
		key:    prefix + ":state:snapshot",
	}
}

// Save writes the snapshot blob. Snapshots carry no TTL: the aggregate is
// the client's durable auth state, not a cache entry.
func (s *RedisSnapshotStore) Save(ctx context.Context, data []byte) error {
	return s.client.Set(ctx, s.key, data, 0).Err()
}

// Load reads the snapshot blob, mapping a missing key to ErrNoSnapshot.
func (s *RedisSnapshotStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Clear removes the persisted snapshot.
func (s *RedisSnapshotStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
