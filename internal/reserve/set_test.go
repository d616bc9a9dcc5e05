// ABOUTME: Tests for the identifier reservation set.
// ABOUTME: Validates TTL expiry, release, eviction, sweeping, and concurrent claims.

package reserve

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// holds reports whether key carries an unexpired reservation.
func holds(s *Set, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.held[key]
	return ok && time.Since(e.reservedAt) < s.ttl
}

// size counts reservations, including expired ones not yet swept.
func size(s *Set) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.held)
}

func TestSet_ReserveOnce(t *testing.T) {
	s := New(5*time.Minute, 100)
	defer s.Close()

	assert.True(t, s.Reserve("asset:8"))
	assert.False(t, s.Reserve("asset:8"))
	assert.True(t, holds(s, "asset:8"))
	assert.False(t, holds(s, "asset:9"))
}

func TestSet_ReservationExpires(t *testing.T) {
	s := New(10*time.Millisecond, 100)
	defer s.Close()

	assert.True(t, s.Reserve("emissions:3"))
	time.Sleep(20 * time.Millisecond)

	assert.False(t, holds(s, "emissions:3"))
	assert.True(t, s.Reserve("emissions:3"))
}

func TestSet_Release(t *testing.T) {
	s := New(5*time.Minute, 100)
	defer s.Close()

	s.Reserve("asset:1")
	s.Release("asset:1")

	assert.False(t, holds(s, "asset:1"))
	assert.Equal(t, 0, size(s))
	assert.True(t, s.Reserve("asset:1"))

	// releasing an unknown key is a no-op
	s.Release("asset:404")
}

func TestSet_EvictsOldestAtCapacity(t *testing.T) {
	s := New(5*time.Minute, 2)
	defer s.Close()

	s.Reserve("a")
	s.Reserve("b")
	s.Reserve("c")

	assert.False(t, holds(s, "a"))
	assert.True(t, holds(s, "b"))
	assert.True(t, holds(s, "c"))
	assert.Equal(t, 2, size(s))
}

func TestSet_Sweep(t *testing.T) {
	s := New(10*time.Millisecond, 100)
	defer s.Close()

	s.Reserve("x")
	s.Reserve("y")
	time.Sleep(20 * time.Millisecond)

	s.sweep()
	assert.Equal(t, 0, size(s))
}

func TestSet_ConcurrentReserve(t *testing.T) {
	s := New(5*time.Minute, 1000)
	defer s.Close()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Reserve("asset:42") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestSet_CloseTwice(t *testing.T) {
	s := New(time.Minute, 10)
	s.Close()
	s.Close()
}
