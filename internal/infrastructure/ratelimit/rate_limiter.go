package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is a refilling bucket guarding one user+action pair.
type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	mutex      sync.Mutex
}

// RateLimiter hands out token buckets keyed by user and action.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	mutex   sync.RWMutex
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
	}
}

func NewTokenBucket(maxTokens, refillRate int, refillTime time.Duration) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token when one is available. When the bucket is
// empty it reports how long until the next token arrives.
func (tb *TokenBucket) Allow() (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()

	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed/tb.refillTime) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	nextRefill := tb.lastRefill.Add(tb.refillTime)
	return false, nextRefill.Sub(now)
}

func (tb *TokenBucket) Tokens() int {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.tokens
}

// Allow checks whether userID may perform action right now.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[key]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		if bucket, exists = rl.buckets[key]; !exists {
			bucket = newBucketFor(action)
			rl.buckets[key] = bucket
		}
		rl.mutex.Unlock()
	}

	return bucket.Allow()
}

func newBucketFor(action string) *TokenBucket {
	switch action {
	case "send_message":
		// 10 messages per minute
		return NewTokenBucket(10, 1, 6*time.Second)
	case "create_conversation":
		// 5 new conversations per hour
		return NewTokenBucket(5, 1, 12*time.Minute)
	case "typing":
		// 30 typing events per minute
		return NewTokenBucket(30, 1, 2*time.Second)
	default:
		// 20 actions per minute
		return NewTokenBucket(20, 1, 3*time.Second)
	}
}

// Cleanup drops buckets idle for over an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastRefill)
		bucket.mutex.Unlock()
		if idle > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine evicts idle buckets on a timer for the life of
// the process.
func (rl *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			rl.Cleanup()
		}
	}()
}
