package repo

import (
	"context"
	"sync"
	"time"
)

// MemoryEventLog remembers event keys for a while so repeated gateway
// callbacks are acknowledged without being applied twice. It is the fallback
// when no redis is configured and only dedupes within one process.
type MemoryEventLog struct {
	mu   sync.Mutex
	ttl  time.Duration
	m    map[string]time.Time
	Now  func() time.Time
	hits int
}

func NewMemoryEventLog(ttl time.Duration) *MemoryEventLog {
	return &MemoryEventLog{ttl: ttl, m: make(map[string]time.Time), Now: time.Now}
}

// Seen records key and reports whether it was already recorded and unexpired.
func (l *MemoryEventLog) Seen(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.Now()
	l.hits++
	if l.hits%256 == 0 {
		for k, exp := range l.m {
			if !now.Before(exp) {
				delete(l.m, k)
			}
		}
	}
	if exp, ok := l.m[key]; ok && now.Before(exp) {
		return true, nil
	}
	l.m[key] = now.Add(l.ttl)
	return false, nil
}

func (l *MemoryEventLog) Forget(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.m, key)
	l.mu.Unlock()
	return nil
}
