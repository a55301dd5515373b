// Package pool keeps bounded free lists of reusable GPU resources so the
// per-frame pipeline does not allocate and free multi-megabyte buffers on
// every camera frame.
//
// Ownership moves to the caller on Checkout and back to the pool on Recycle.
// Callers must wait for any GPU command using a resource to complete before
// recycling it.
package pool

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAllocation is returned when a resource could not be allocated
var ErrAllocation = errors.New("pool: allocation failed")

// DefaultCapacity is the per-key free-list limit used when none is configured
const DefaultCapacity = 8

// Config holds pool sizing
type Config struct {
	// Capacity is the maximum number of free entries kept per key
	Capacity int `json:"capacity" yaml:"capacity"`
}

// DefaultConfig returns the default pool sizing
func DefaultConfig() Config {
	return Config{Capacity: DefaultCapacity}
}

// Stats is a snapshot of pool activity
type Stats struct {
	Created  uint64  `json:"created"`
	Reused   uint64  `json:"reused"`
	Recycled uint64  `json:"recycled"`
	Dropped  uint64  `json:"dropped"`
	Free     int     `json:"free"`
	HitRate  float64 `json:"hitRate"`
}

// Keyed is a bounded free list per key. All state is guarded by one mutex;
// allocation and disposal run outside the lock.
type Keyed[K comparable, R any] struct {
	mu       sync.Mutex
	free     map[K][]R
	capacity int

	created  uint64
	reused   uint64
	recycled uint64
	dropped  uint64

	alloc   func(K) (R, error)
	keyOf   func(R) K
	dispose func(R)
}

// NewKeyed creates a keyed pool. alloc creates a resource for a key, keyOf
// recovers the key of a recycled resource and dispose releases resources the
// pool drops. dispose may be nil.
func NewKeyed[K comparable, R any](capacity int, alloc func(K) (R, error), keyOf func(R) K, dispose func(R)) *Keyed[K, R] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Keyed[K, R]{
		free:     make(map[K][]R),
		capacity: capacity,
		alloc:    alloc,
		keyOf:    keyOf,
		dispose:  dispose,
	}
}

// Checkout returns a free resource for key, or allocates a new one
func (p *Keyed[K, R]) Checkout(key K) (R, error) {
	p.mu.Lock()
	if list := p.free[key]; len(list) > 0 {
		r := list[len(list)-1]
		var zero R
		list[len(list)-1] = zero
		p.free[key] = list[:len(list)-1]
		p.reused++
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	r, err := p.alloc(key)
	if err != nil {
		var zero R
		return zero, fmt.Errorf("%w: %w", ErrAllocation, err)
	}

	p.mu.Lock()
	p.created++
	p.mu.Unlock()
	return r, nil
}

// Recycle returns r to the free list for its key. When the list is full the
// resource is dropped and disposed.
func (p *Keyed[K, R]) Recycle(r R) {
	key := p.keyOf(r)

	p.mu.Lock()
	list := p.free[key]
	if len(list) >= p.capacity {
		p.dropped++
		p.mu.Unlock()
		if p.dispose != nil {
			p.dispose(r)
		}
		return
	}
	p.free[key] = append(list, r)
	p.recycled++
	p.mu.Unlock()
}

// Clear drops every free entry
func (p *Keyed[K, R]) Clear() {
	p.mu.Lock()
	old := p.free
	p.free = make(map[K][]R)
	p.mu.Unlock()

	if p.dispose == nil {
		return
	}
	for _, list := range old {
		for _, r := range list {
			p.dispose(r)
		}
	}
}

// FreeCount returns the number of free entries for key
func (p *Keyed[K, R]) FreeCount(key K) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free[key])
}

// Stats returns a snapshot of pool counters
func (p *Keyed[K, R]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	free := 0
	for _, list := range p.free {
		free += len(list)
	}
	s := Stats{
		Created:  p.created,
		Reused:   p.reused,
		Recycled: p.recycled,
		Dropped:  p.dropped,
		Free:     free,
	}
	if total := p.created + p.reused; total > 0 {
		s.HitRate = float64(p.reused) / float64(total)
	}
	return s
}
