// Package sendflow holds the in-progress send form draft that QR handlers
// pre-fill for the client. Drafts are per-session, Redis-backed, and expire
// on their own if the client never completes the send.
package sendflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/scan-gateway/internal/storage"
)

const draftKeyPrefix = "draft:"

// DefaultTTL is how long an untouched draft survives
const DefaultTTL = 30 * time.Minute

// Draft is the send form state a scan can pre-fill
type Draft struct {
	Address     string    `json:"address,omitempty"`
	SearchQuery string    `json:"searchQuery,omitempty"`
	Amount      string    `json:"amount,omitempty"`
	FormOpen    bool      `json:"formOpen"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RedisStore persists drafts as Redis hashes, one per session. Each setter
// writes its own field, so writes are atomic and independently observable;
// last write wins.
type RedisStore struct {
	redis *storage.RedisCache
	ttl   time.Duration
}

// NewRedisStore creates a draft store on top of a Redis connection
func NewRedisStore(redis *storage.RedisCache, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{redis: redis, ttl: ttl}
}

// SetAddress sets the draft's destination address
func (s *RedisStore) SetAddress(ctx context.Context, sessionID, address string) error {
	return s.setField(ctx, sessionID, "address", address)
}

// SetSearchQuery sets the draft's recipient search query
func (s *RedisStore) SetSearchQuery(ctx context.Context, sessionID, query string) error {
	return s.setField(ctx, sessionID, "searchQuery", query)
}

// SetAmount sets the draft's transfer amount
func (s *RedisStore) SetAmount(ctx context.Context, sessionID, amount string) error {
	return s.setField(ctx, sessionID, "amount", amount)
}

// OpenForm marks the send form as open for the session
func (s *RedisStore) OpenForm(ctx context.Context, sessionID string) error {
	return s.setField(ctx, sessionID, "formOpen", "1")
}

// Get returns the session's draft, or nil when none exists
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Draft, error) {
	fields, err := s.redis.HGetAll(ctx, draftKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	draft := &Draft{
		Address:     fields["address"],
		SearchQuery: fields["searchQuery"],
		Amount:      fields["amount"],
		FormOpen:    fields["formOpen"] == "1",
	}
	if ts, err := strconv.ParseInt(fields["updatedAt"], 10, 64); err == nil {
		draft.UpdatedAt = time.Unix(0, ts).UTC()
	}
	return draft, nil
}

// Clear removes the session's draft
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, draftKey(sessionID)); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}

func (s *RedisStore) setField(ctx context.Context, sessionID, field, value string) error {
	key := draftKey(sessionID)
	if err := s.redis.HSet(ctx, key,
		field, value,
		"updatedAt", strconv.FormatInt(time.Now().UnixNano(), 10),
	); err != nil {
		return fmt.Errorf("failed to set draft %s: %w", field, err)
	}
	// Refresh the TTL on every write so active sessions never expire mid-flow.
	if err := s.redis.Expire(ctx, key, s.ttl); err != nil {
		return fmt.Errorf("failed to set draft expiry: %w", err)
	}
	return nil
}

func draftKey(sessionID string) string {
	return draftKeyPrefix + sessionID
}
