// Package session holds pending-disambiguation state between the two steps
// of an ambiguous submission: the service parks the candidate set under a
// token and the submitter's confirm call consumes it.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pending is one parked disambiguation: the key as submitted plus the
// candidate names sharing it.
type Pending struct {
	Token        string    `json:"token"`
	SubmittedKey string    `json:"submitted_key"`
	Candidates   []string  `json:"candidates"`
	CreatedAt    time.Time `json:"created_at"`
}

// PendingStore parks and consumes disambiguations. Entries expire after the
// store's TTL; Take removes the entry whether or not the caller proceeds.
type PendingStore interface {
	Put(ctx context.Context, p Pending) error
	// Take consumes the entry for token, returning nil when absent or expired.
	Take(ctx context.Context, token string) (*Pending, error)
}

// InMemory is a map-backed store for single-instance deployments and tests.
type InMemory struct {
	ttl time.Duration
	mu  sync.Mutex
	m   map[string]Pending
	now func() time.Time
}

// NewInMemory creates a store whose entries expire after ttl.
func NewInMemory(ttl time.Duration) *InMemory {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &InMemory{ttl: ttl, m: make(map[string]Pending), now: time.Now}
}

// Put parks a pending disambiguation.
func (s *InMemory) Put(ctx context.Context, p Pending) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.Token] = p
	return nil
}

// Take consumes the entry for token.
func (s *InMemory) Take(ctx context.Context, token string) (*Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[token]
	if !ok {
		return nil, nil
	}
	delete(s.m, token)
	if s.now().Sub(p.CreatedAt) > s.ttl {
		return nil, nil
	}
	return &p, nil
}

// RedisStore keeps pending entries in Redis with a TTL, so confirms survive
// a process restart.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisStore{client: client, ttl: ttl, prefix: "meallog:pending:"}
}

// Put parks a pending disambiguation under its token.
func (s *RedisStore) Put(ctx context.Context, p Pending) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+p.Token, data, s.ttl).Err()
}

// Take consumes the entry for token.
func (s *RedisStore) Take(ctx context.Context, token string) (*Pending, error) {
	data, err := s.client.GetDel(ctx, s.prefix+token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
