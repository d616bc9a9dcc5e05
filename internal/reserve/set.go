// ABOUTME: Thread-safe TTL set of recently allocated identifiers.
// ABOUTME: Lets concurrent ledger allocations skip values another request just took.

package reserve

import (
	"container/list"
	"sync"
	"time"
)

type entry struct {
	reservedAt time.Time
	element    *list.Element
}

// Set is a TTL-bounded, size-limited set of reserved keys. The oldest
// reservation is evicted first when the set is full.
type Set struct {
	mu      sync.Mutex
	held    map[string]*entry
	order   *list.List // keys in reservation order (oldest at front)
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a reservation set. A background goroutine drops expired
// reservations every interval of ttl (at most once a minute).
func New(ttl time.Duration, maxSize int) *Set {
	s := &Set{
		held:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go s.cleanup()
	return s
}

// Reserve atomically claims key. It returns true when the caller now holds
// the reservation and false when someone else holds an unexpired one.
func (s *Set) Reserve(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.held[key]; ok && time.Since(e.reservedAt) < s.ttl {
		return false
	}

	s.reserveLocked(key)
	return true
}

// Release drops a reservation, e.g. after the submission it guarded failed.
func (s *Set) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.held[key]; ok {
		s.order.Remove(e.element)
		delete(s.held, key)
	}
}

// reserveLocked must be called with mu held.
func (s *Set) reserveLocked(key string) {
	now := time.Now()

	if e, exists := s.held[key]; exists {
		e.reservedAt = now
		s.order.MoveToBack(e.element)
		return
	}

	if len(s.held) >= s.maxSize {
		s.evictOldest()
	}

	elem := s.order.PushBack(key)
	s.held[key] = &entry{reservedAt: now, element: elem}
}

// evictOldest must be called with mu held.
func (s *Set) evictOldest() {
	front := s.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	s.order.Remove(front)
	delete(s.held, key)
}

func (s *Set) cleanup() {
	interval := s.ttl
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

// sweep removes all expired reservations.
func (s *Set) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.held {
		if now.Sub(e.reservedAt) >= s.ttl {
			s.order.Remove(e.element)
			delete(s.held, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (s *Set) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}
