package lock

import (
	"sync"
	"time"
)

// Keyed is a non-blocking per key lock. An entry exists only while its key
// is held, so the map never holds more than capacity keys. Entries held
// longer than ttl are treated as abandoned and may be taken over.
type Keyed struct {
	mu       sync.Mutex
	held     map[string]entry
	capacity int
	ttl      time.Duration
	seq      uint64
	now      func() time.Time
}

type entry struct {
	token      uint64
	acquiredAt time.Time
}

func NewKeyed(capacity int, ttl time.Duration) *Keyed {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Keyed{
		held:     make(map[string]entry),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// TryAcquire returns a release func and true when key was free. It never
// waits. The release func is idempotent and only frees its own acquisition.
func (k *Keyed) TryAcquire(key string) (func(), bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	if current, ok := k.held[key]; ok {
		if now.Sub(current.acquiredAt) < k.ttl {
			return nil, false
		}
		delete(k.held, key)
	}

	if len(k.held) >= k.capacity {
		k.reclaimLocked(now)
		if len(k.held) >= k.capacity {
			return nil, false
		}
	}

	k.seq++
	token := k.seq
	k.held[key] = entry{token: token, acquiredAt: now}

	var once sync.Once
	return func() {
		once.Do(func() { k.release(key, token) })
	}, true
}

func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.held)
}

func (k *Keyed) release(key string, token uint64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if current, ok := k.held[key]; ok && current.token == token {
		delete(k.held, key)
	}
}

func (k *Keyed) reclaimLocked(now time.Time) {
	for key, e := range k.held {
		if now.Sub(e.acquiredAt) >= k.ttl {
			delete(k.held, key)
		}
	}
}
