package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segyhp/microloan-engine/internal/domain"

	"github.com/redis/go-redis/v9"
)

// LedgerCache keeps computed ledger states so that read paths can skip the
// payment scan. Entries are dropped after every write to the loan and are
// stamped with the loan's updated_at; a lookup with another version misses.
type LedgerCache interface {
	Get(ctx context.Context, loanID uuid.UUID, version time.Time) (*domain.LedgerState, bool, error)
	Set(ctx context.Context, loanID uuid.UUID, version time.Time, state domain.LedgerState) error
	Invalidate(ctx context.Context, loanIDs ...uuid.UUID) error
}

type ledgerEntry struct {
	Version time.Time          `json:"version"`
	State   domain.LedgerState `json:"state"`
}

func encodeEntry(version time.Time, state domain.LedgerState) ([]byte, error) {
	return json.Marshal(ledgerEntry{Version: version.UTC(), State: state})
}

// decodeEntry returns nil when the entry belongs to another version of the loan.
func decodeEntry(raw []byte, version time.Time) (*domain.LedgerState, error) {
	var entry ledgerEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	if !entry.Version.Equal(version) {
		return nil, nil
	}
	return &entry.State, nil
}

type redisLedgerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedgerCache(client *redis.Client, ttl time.Duration) LedgerCache {
	return &redisLedgerCache{client: client, ttl: ttl}
}

func ledgerKey(loanID uuid.UUID) string {
	return fmt.Sprintf("loan:%s:ledger", loanID)
}

func (c *redisLedgerCache) Get(ctx context.Context, loanID uuid.UUID, version time.Time) (*domain.LedgerState, bool, error) {
	raw, err := c.client.Get(ctx, ledgerKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	state, err := decodeEntry(raw, version)
	if err != nil || state == nil {
		return nil, false, err
	}
	return state, true, nil
}

func (c *redisLedgerCache) Set(ctx context.Context, loanID uuid.UUID, version time.Time, state domain.LedgerState) error {
	raw, err := encodeEntry(version, state)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, ledgerKey(loanID), raw, c.ttl).Err()
}

func (c *redisLedgerCache) Invalidate(ctx context.Context, loanIDs ...uuid.UUID) error {
	if len(loanIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(loanIDs))
	for _, id := range loanIDs {
		keys = append(keys, ledgerKey(id))
	}
	return c.client.Del(ctx, keys...).Err()
}

type nopLedgerCache struct{}

// NewNopLedgerCache returns a cache that never hits.
func NewNopLedgerCache() LedgerCache {
	return nopLedgerCache{}
}

func (nopLedgerCache) Get(context.Context, uuid.UUID, time.Time) (*domain.LedgerState, bool, error) {
	return nil, false, nil
}

func (nopLedgerCache) Set(context.Context, uuid.UUID, time.Time, domain.LedgerState) error {
	return nil
}

func (nopLedgerCache) Invalidate(context.Context, ...uuid.UUID) error { return nil }
