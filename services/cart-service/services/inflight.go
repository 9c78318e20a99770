package services

import (
	"context"
	"sync"

	apperrors "github.com/Bharatkumawat03/pedalWB-sub001/services/common/errors"
)

// MemoryInFlightGuard tracks in-flight keys inside one process.
type MemoryInFlightGuard struct {
	mu   sync.Mutex
	held map[string]*heldKey
}

// heldKey is a one-slot semaphore. waiters counts goroutines holding or
// waiting for it so the entry can be dropped once nobody needs it.
type heldKey struct {
	slot    chan struct{}
	waiters int
}

func NewMemoryInFlightGuard() *MemoryInFlightGuard {
	return &MemoryInFlightGuard{held: make(map[string]*heldKey)}
}

func (g *MemoryInFlightGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.held[key]; busy {
		return nil, apperrors.ErrRequestInFlight
	}
	h := &heldKey{slot: make(chan struct{}, 1), waiters: 1}
	h.slot <- struct{}{}
	g.held[key] = h
	return g.releaser(key, h), nil
}

// Lock blocks until key is free or ctx is done.
func (g *MemoryInFlightGuard) Lock(ctx context.Context, key string) (func(), error) {
	g.mu.Lock()
	h, ok := g.held[key]
	if !ok {
		h = &heldKey{slot: make(chan struct{}, 1)}
		g.held[key] = h
	}
	h.waiters++
	g.mu.Unlock()

	select {
	case h.slot <- struct{}{}:
		return g.releaser(key, h), nil
	case <-ctx.Done():
		g.mu.Lock()
		g.drop(key, h)
		g.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (g *MemoryInFlightGuard) releaser(key string, h *heldKey) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			<-h.slot
			g.drop(key, h)
			g.mu.Unlock()
		})
	}
}

// drop forgets one waiter. Callers hold g.mu.
func (g *MemoryInFlightGuard) drop(key string, h *heldKey) {
	h.waiters--
	if h.waiters == 0 {
		delete(g.held, key)
	}
}
