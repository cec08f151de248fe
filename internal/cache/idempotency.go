package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// IdempotencyRecord is a stored response replayed for a repeated request
type IdempotencyRecord struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyKey scopes a client supplied key to the caller and endpoint
type IdempotencyKey struct {
	UserID   int64
	TeamID   int64
	Endpoint string
	Key      string
}

func (k IdempotencyKey) String() string {
	return fmt.Sprintf("idempotency:%d:%d:%s:%s", k.TeamID, k.UserID, k.Endpoint, k.Key)
}

// IdempotencyStore keeps responses to requests that carried an Idempotency-Key header
type IdempotencyStore struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewIdempotencyStore creates a new idempotency store on top of the Redis cache
func NewIdempotencyStore(cache *RedisCache, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{cache: cache, ttl: ttl}
}

// Lookup returns the stored response for key, if any
func (s *IdempotencyStore) Lookup(ctx context.Context, key IdempotencyKey) (*IdempotencyRecord, bool, error) {
	if !s.cache.Enabled() {
		return nil, false, nil
	}

	var record IdempotencyRecord
	err := s.cache.Get(ctx, key.String(), &record)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &record, true, nil
}

// Save stores the response for key. The first stored response wins.
func (s *IdempotencyStore) Save(ctx context.Context, key IdempotencyKey, record IdempotencyRecord) error {
	if !s.cache.Enabled() {
		return nil
	}
	_, err := s.cache.SetNX(ctx, key.String(), record, s.ttl)
	return err
}
