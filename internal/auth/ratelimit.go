package auth

import (
	"sync"
	"time"
)

// Login limiter library defaults. The deployed instance configures a much
// tighter window in cmd/api; both are intentional, see HOMEGRID_LOGIN_WINDOW.
const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
)

// LoginLimiter throttles credential guessing by identity key (email),
// independent of source address. It keeps an ordered list of failure
// timestamps per key inside a sliding window. One mutex serializes all map
// access: pruning rewrites a key's slice while concurrent requests may be
// asking for the same key's count, so per-key locking is not enough.
type LoginLimiter struct {
	mu          sync.Mutex
	attempts    map[string][]time.Time
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLoginLimiter builds an isolated limiter instance. Non-positive
// arguments fall back to the library defaults.
func NewLoginLimiter(maxAttempts int, window time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &LoginLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// IsLimited prunes expired failures for key and reports whether the
// remaining count has reached the limit.
func (l *LoginLimiter) IsLimited(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key)) >= l.maxAttempts
}

// RecordFailure appends a failure timestamp for key. Growth is bounded only
// by the pruning in IsLimited/Attempts, so every attempt must be gated
// through IsLimited first.
func (l *LoginLimiter) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[key] = append(l.attempts[key], l.now())
}

// Reset forgets key entirely. Called after every successful login.
func (l *LoginLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

// Attempts prunes and returns the current failure count for key.
func (l *LoginLimiter) Attempts(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(key))
}

// Sweep drops keys whose failures have all expired. Pruning is otherwise
// lazy, so a key that is never checked again would survive until process
// restart. Sweep never touches a key with a live failure and therefore
// cannot change any observable count.
func (l *LoginLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.window)
	for key, stamps := range l.attempts {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(l.attempts, key)
		}
	}
}

// prune drops timestamps older than the window for key and returns what
// remains. Caller must hold mu.
func (l *LoginLimiter) prune(key string) []time.Time {
	stamps, ok := l.attempts[key]
	if !ok {
		return nil
	}
	cutoff := l.now().Add(-l.window)
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, key)
		return nil
	}
	l.attempts[key] = kept
	return kept
}
