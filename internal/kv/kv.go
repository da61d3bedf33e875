// Package kv defines the on-device key-value cache and its backends.
//
// The cache has no transactions: every Set is independent, so callers that
// need several related values to change together keep them in one record.
package kv

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/and161185/drinkless/internal/errs"
)

// Cache is a durable string-keyed store.
type Cache interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key; removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Clear removes every key owned by this cache.
	Clear(ctx context.Context) error
}

// GetJSON loads key and decodes it into dest.
// A missing key reports (false, nil); an undecodable value reports errs.ErrCorrupt.
func GetJSON(ctx context.Context, c Cache, key string, dest any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return true, fmt.Errorf("%s: %w", key, errs.ErrCorrupt)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(b))
}
