package limiter

import (
	"context"
	"sync"
	"time"
)

type attempts struct {
	fails        int
	lastFail     time.Time
	blockedUntil time.Time
}

// Memory is an in-process Limiter for servers without PostgreSQL.
type Memory struct {
	policy Policy
	now    func() time.Time

	mu sync.Mutex
	m  map[string]*attempts
}

// NewMemory constructs a Memory limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{policy: p, now: time.Now, m: map[string]*attempts{}}
}

func key(username string, client []byte) string { return username + "\x00" + string(client) }

// Allow implements Limiter.
func (l *Memory) Allow(_ context.Context, username string, client []byte) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.m[key(username, client)]
	if !ok {
		return 0, nil
	}
	if wait := a.blockedUntil.Sub(l.now()); wait > 0 {
		return wait, nil
	}
	return 0, nil
}

// Failure implements Limiter.
func (l *Memory) Failure(_ context.Context, username string, client []byte) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	k := key(username, client)
	a, ok := l.m[k]
	if !ok || now.Sub(a.lastFail) > l.policy.Window {
		a = &attempts{}
		l.m[k] = a
	}
	a.fails++
	a.lastFail = now
	if a.fails >= l.policy.MaxFails {
		a.blockedUntil = now.Add(l.policy.BlockFor)
		a.fails = 0
		return l.policy.BlockFor, nil
	}
	return 0, nil
}

// Success implements Limiter.
func (l *Memory) Success(_ context.Context, username string, client []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.m, key(username, client))
	return nil
}
