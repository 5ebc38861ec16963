package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// MemoryStore keeps counters and buckets in process memory. It is only
// correct for a single instance.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*windowEntry
	buckets map[string]*bucketEntry
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type windowEntry struct {
	count     int64
	resetTime time.Time
}

type bucketEntry struct {
	tokens    float64
	updatedAt time.Time
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return newMemoryStore(time.Now, time.Minute)
}

func newMemoryStore(now func() time.Time, cleanupInterval time.Duration) *MemoryStore {
	store := &MemoryStore{
		windows: make(map[string]*windowEntry),
		buckets: make(map[string]*bucketEntry),
		now:     now,
		stop:    make(chan struct{}),
	}

	if cleanupInterval > 0 {
		go store.cleanup(cleanupInterval)
	}

	return store
}

func (s *MemoryStore) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, exists := s.windows[key]; exists && now.Before(e.resetTime) {
		e.count++
		return e.count, e.resetTime.Sub(now), nil
	}

	s.windows[key] = &windowEntry{
		count:     1,
		resetTime: now.Add(window),
	}

	return 1, window, nil
}

func (s *MemoryStore) TakePoints(ctx context.Context, key string, budget, cost int64, duration time.Duration, now time.Time) (BucketState, error) {
	if err := ctx.Err(); err != nil {
		return BucketState{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.buckets[key]
	if !exists || !now.Before(e.expiresAt) {
		e = &bucketEntry{tokens: float64(budget), updatedAt: now}
		s.buckets[key] = e
	}

	tokens, allowed, fullIn := takePoints(e.tokens, e.updatedAt, budget, cost, duration, now)
	e.tokens = tokens
	if now.After(e.updatedAt) {
		e.updatedAt = now
	}
	e.expiresAt = now.Add(fullIn)

	return BucketState{
		Allowed:   allowed,
		Remaining: int64(math.Floor(tokens)),
		FullIn:    fullIn,
	}, nil
}

// takePoints mirrors the Lua script used by RedisStore.
func takePoints(tokens float64, updatedAt time.Time, budget, cost int64, duration time.Duration, now time.Time) (float64, bool, time.Duration) {
	durationMs := float64(duration.Milliseconds())
	if durationMs <= 0 {
		durationMs = 1
	}

	if elapsed := now.Sub(updatedAt).Milliseconds(); elapsed > 0 {
		tokens = math.Min(float64(budget), tokens+float64(elapsed)*float64(budget)/durationMs)
	}

	allowed := false
	if tokens >= float64(cost) {
		tokens -= float64(cost)
		allowed = true
	}

	fullIn := time.Duration(math.Ceil((float64(budget)-tokens)*durationMs/float64(budget))) * time.Millisecond
	return tokens, allowed, fullIn
}

func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.windows {
		if !now.Before(entry.resetTime) {
			delete(s.windows, key)
		}
	}
	for key, entry := range s.buckets {
		if !now.Before(entry.expiresAt) {
			delete(s.buckets, key)
		}
	}
}
