package security

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter throttles API requests with a global bucket plus one bucket
// per session, so a single chatty session cannot starve the rest.
type RateLimiter struct {
	globalLimiter   *rate.Limiter
	sessionLimiters map[string]*rate.Limiter
	mu              sync.RWMutex

	requestsPerSecond float64
	burst             int
}

// NewRateLimiter creates a rate limiter. The per-session buckets share the
// same rate as the global one.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		globalLimiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		sessionLimiters:   make(map[string]*rate.Limiter),
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
	}
}

// Allow reports whether a request for the session may proceed now.
func (rl *RateLimiter) Allow(sessionID string) bool {
	if !rl.globalLimiter.Allow() {
		return false
	}
	return rl.sessionLimiter(sessionID).Allow()
}

// Forget drops a session's bucket; call when the session is deleted.
func (rl *RateLimiter) Forget(sessionID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.sessionLimiters, sessionID)
}

func (rl *RateLimiter) sessionLimiter(sessionID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.sessionLimiters[sessionID]
	rl.mu.RUnlock()
	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if limiter, exists := rl.sessionLimiters[sessionID]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(rl.requestsPerSecond), rl.burst)
	rl.sessionLimiters[sessionID] = limiter
	return limiter
}
