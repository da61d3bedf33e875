// Package limiter locks out login attempts after repeated bad passwords.
package limiter

import (
	"context"
	"crypto/sha256"
	"net"
	"time"
)

// Limiter tracks failed logins per (username, client).
type Limiter interface {
	// Allow returns how long the pair must wait; zero means allowed.
	Allow(ctx context.Context, username string, client []byte) (time.Duration, error)
	// Failure records a bad password and returns the lockout it caused, if any.
	Failure(ctx context.Context, username string, client []byte) (time.Duration, error)
	// Success clears the pair.
	Success(ctx context.Context, username string, client []byte) error
}

// Policy bounds failed attempts.
type Policy struct {
	Window   time.Duration // failures older than this are forgotten
	MaxFails int
	BlockFor time.Duration
}

// DefaultPolicy allows five failures per quarter hour.
func DefaultPolicy() Policy {
	return Policy{Window: 15 * time.Minute, MaxFails: 5, BlockFor: 15 * time.Minute}
}

// ClientKey hashes the host of a peer address so raw addresses are never stored.
func ClientKey(addr string) []byte {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	h := sha256.Sum256([]byte(addr))
	return h[:]
}
