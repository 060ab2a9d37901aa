package ai

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter rate limits embedding calls per user. A denied call is treated
// like any other embedding unavailability: retrieval degrades to lexical-only.
type KeyedLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter

	every time.Duration
	burst int
}

// NewKeyedLimiter creates a limiter allowing one call per every, with burst.
func NewKeyedLimiter(every time.Duration, burst int) *KeyedLimiter {
	if every <= 0 {
		every = time.Second / 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &KeyedLimiter{
		limits: make(map[string]*rate.Limiter),
		every:  every,
		burst:  burst,
	}
}

// AllowUser checks if a call is allowed for the given user.
func (l *KeyedLimiter) AllowUser(userID int32) bool {
	return l.allow(strconv.FormatInt(int64(userID), 10))
}

func (l *KeyedLimiter) allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limits[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(l.every), l.burst)
		l.limits[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
