package hazel

import "sync"

// ParticlePool is a fixed-capacity reuse arena for Particle instances.
// Emitters obtain particles from a pool instead of allocating per spawn,
// eliminating per-frame allocation churn at high emit rates.
//
// The pool never fails: once capacity pooled particles are live, Obtain
// serves unpooled fallback instances and counts the overflow so exhaustion
// is observable rather than a silent leak.
//
// A pool is safe for concurrent use by multiple emitters.
type ParticlePool struct {
	// OnExhausted, when non-nil, is invoked (outside the pool lock) each
	// time Obtain falls back to an unpooled instance. Set before first use.
	OnExhausted func()

	mu        sync.Mutex
	capacity  int
	free      []*Particle // LIFO free list of recycled pooled particles
	allocated int         // pooled particles created so far, never exceeds capacity
	overflow  uint64
}

// NewParticlePool creates a pool that owns at most capacity particles.
// A non-positive capacity defaults to 128, matching the emitter default.
func NewParticlePool(capacity int) *ParticlePool {
	if capacity <= 0 {
		capacity = 128
	}
	return &ParticlePool{
		capacity: capacity,
		free:     make([]*Particle, 0, capacity),
	}
}

// Obtain returns an active particle reinitialized with the given state.
// It reuses a recycled particle when one is free, allocates a pooled one
// while under capacity, and otherwise returns an unpooled fallback that
// Recycle will scrub but not retain.
func (pl *ParticlePool) Obtain(x, y, size float64, c Color, lifetime float64) *Particle {
	pl.mu.Lock()

	if n := len(pl.free); n > 0 {
		p := pl.free[n-1]
		pl.free[n-1] = nil
		pl.free = pl.free[:n-1]
		p.free = false
		p.reset(x, y, size, c, lifetime)
		pl.mu.Unlock()
		return p
	}

	if pl.allocated < pl.capacity {
		pl.allocated++
		pl.mu.Unlock()
		p := &Particle{pooled: true}
		p.reset(x, y, size, c, lifetime)
		return p
	}

	pl.overflow++
	cb := pl.OnExhausted
	pl.mu.Unlock()
	if cb != nil {
		cb()
	}
	p := &Particle{}
	p.reset(x, y, size, c, lifetime)
	return p
}

// Recycle returns a particle to the free list after clearing the strong
// references it held. Recycling nil, an unpooled fallback, or an
// already-free particle is a no-op; the free list is never corrupted by a
// double recycle.
func (pl *ParticlePool) Recycle(p *Particle) {
	if p == nil {
		return
	}
	p.scrub()
	if !p.pooled {
		return
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if p.free {
		return
	}
	p.free = true
	pl.free = append(pl.free, p)
}

// Cap returns the pool's fixed capacity.
func (pl *ParticlePool) Cap() int {
	return pl.capacity
}

// Live returns the number of pooled particles currently checked out.
func (pl *ParticlePool) Live() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.allocated - len(pl.free)
}

// Overflow returns how many times Obtain has fallen back to an unpooled
// instance because the pool was exhausted.
func (pl *ParticlePool) Overflow() uint64 {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.overflow
}
