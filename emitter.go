package hazel

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween/ease"
)

// EmitterConfig controls how particles are spawned and behave.
type EmitterConfig struct {
	// MaxParticles caps the emitter's live particle count. New particles
	// are silently dropped when full. Also sizes the backing pool when the
	// emitter creates its own.
	MaxParticles int
	// EmitRate is the number of particles spawned per second.
	EmitRate float64
	// Lifetime is the range of particle lifetimes in seconds.
	Lifetime Range
	// Speed is the range of initial particle speeds in pixels per second.
	Speed Range
	// Angle is the range of emission angles in radians.
	Angle Range
	// StartSize is the range of bounding-box sizes at birth, interpolated
	// to EndSize over lifetime.
	StartSize Range
	// EndSize is the range of bounding-box sizes at death.
	EndSize Range
	// StartAlpha is the range of alpha values at birth, interpolated to
	// EndAlpha over lifetime.
	StartAlpha Range
	// EndAlpha is the range of alpha values at death.
	EndAlpha Range
	// RotationSpeed is the range of angular velocities in radians per second.
	RotationSpeed Range
	// Gravity is the constant acceleration applied to all particles.
	Gravity Vec2
	// StartColor is the tint at birth, interpolated to EndColor over lifetime.
	StartColor Color
	// EndColor is the tint at death.
	EndColor Color
	// Sprite is an optional image payload attached to each spawned
	// particle. Nil particles render as tinted quads.
	Sprite *ebiten.Image
	// Ease shapes the lifetime interpolation of size, alpha, and color.
	// Nil means linear. Any gween ease function works, e.g. ease.OutQuad.
	Ease ease.TweenFunc
}

// ParticleEmitter owns a bounded collection of live particles, advances
// them each tick, and pushes them into the spatial indexes through the
// registration protocol. Particles are obtained from and recycled to a
// ParticlePool rather than allocated per spawn.
//
// Update and the Register methods may be called from different goroutines;
// registration takes a defensive snapshot of the particle collection.
type ParticleEmitter struct {
	mu        sync.Mutex
	config    EmitterConfig
	pool      *ParticlePool
	particles []*Particle
	emitAccum float64
	active    bool
	x, y      float64
}

// NewParticleEmitter creates an emitter with its own pool sized to
// cfg.MaxParticles.
func NewParticleEmitter(cfg EmitterConfig) *ParticleEmitter {
	if cfg.MaxParticles <= 0 {
		cfg.MaxParticles = 128
	}
	return NewParticleEmitterWithPool(cfg, NewParticlePool(cfg.MaxParticles))
}

// NewParticleEmitterWithPool creates an emitter backed by a shared pool.
// Several emitters may draw from one pool; exhaustion then shows up on the
// pool's Overflow counter rather than as a failure.
func NewParticleEmitterWithPool(cfg EmitterConfig, pool *ParticlePool) *ParticleEmitter {
	if cfg.MaxParticles <= 0 {
		cfg.MaxParticles = 128
	}
	return &ParticleEmitter{
		config:    cfg,
		pool:      pool,
		particles: make([]*Particle, 0, cfg.MaxParticles),
	}
}

// Start begins emitting particles.
func (e *ParticleEmitter) Start() {
	e.mu.Lock()
	e.active = true
	e.mu.Unlock()
}

// Stop stops emitting new particles. Existing particles continue to live out.
func (e *ParticleEmitter) Stop() {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()
}

// Reset stops emitting and recycles every live particle back to the pool.
func (e *ParticleEmitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = false
	e.emitAccum = 0
	for _, p := range e.particles {
		p.Deactivate()
		e.pool.Recycle(p)
	}
	e.particles = e.particles[:0]
}

// IsActive reports whether the emitter is currently emitting new particles.
func (e *ParticleEmitter) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// AliveCount returns the number of live particles.
func (e *ParticleEmitter) AliveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.particles)
}

// Config returns a pointer to the emitter's config for live tuning.
func (e *ParticleEmitter) Config() *EmitterConfig {
	return &e.config
}

// SetPosition moves the emitter's spawn origin.
func (e *ParticleEmitter) SetPosition(x, y float64) {
	e.mu.Lock()
	e.x, e.y = x, y
	e.mu.Unlock()
}

// Position returns the emitter's spawn origin.
func (e *ParticleEmitter) Position() (x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.x, e.y
}

// Pool returns the emitter's backing pool.
func (e *ParticleEmitter) Pool() *ParticlePool {
	return e.pool
}

// Update advances particle simulation by dt seconds: integrates position
// and rotation, interpolates size/alpha/color through the configured ease,
// retires expired particles to the pool, and spawns new ones.
func (e *ParticleEmitter) Update(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	gx := e.config.Gravity.X * dt
	gy := e.config.Gravity.Y * dt

	// Advance live particles, swap-removing and recycling the dead.
	i := 0
	for i < len(e.particles) {
		p := e.particles[i]
		p.Life -= dt
		if p.Life <= 0 || !p.IsActive() {
			p.Deactivate()
			e.pool.Recycle(p)
			last := len(e.particles) - 1
			e.particles[i] = e.particles[last]
			e.particles[last] = nil
			e.particles = e.particles[:last]
			continue
		}

		p.VelX += p.AccelX*dt + gx
		p.VelY += p.AccelY*dt + gy
		p.X += p.VelX * dt
		p.Y += p.VelY * dt
		p.Rotation += p.RotationSpeed * dt

		t := 1.0 - p.Life/p.MaxLife
		k := e.curve(t)
		p.Size = lerp(p.startSize, p.endSize, k)
		p.Alpha = lerp(p.startAlpha, p.endAlpha, k)
		p.Color.R = lerp(p.startColor.R, p.endColor.R, k)
		p.Color.G = lerp(p.startColor.G, p.endColor.G, k)
		p.Color.B = lerp(p.startColor.B, p.endColor.B, k)

		i++
	}

	// Emit new particles.
	if e.active && e.config.EmitRate > 0 {
		e.emitAccum += e.config.EmitRate * dt
		for e.emitAccum >= 1.0 {
			e.emitAccum -= 1.0
			if len(e.particles) < e.config.MaxParticles {
				e.spawnParticle()
			}
		}
	}
}

// curve maps lifetime progress t in [0, 1] through the configured ease.
func (e *ParticleEmitter) curve(t float64) float64 {
	if e.config.Ease == nil {
		return t
	}
	return float64(e.config.Ease(float32(t), 0, 1, 1))
}

// spawnParticle obtains a particle from the pool and initializes it from
// the config ranges at the emitter's origin.
func (e *ParticleEmitter) spawnParticle() {
	lifetime := e.config.Lifetime.Random()
	if lifetime <= 0 {
		lifetime = 1.0
	}
	size := e.config.StartSize.Random()

	p := e.pool.Obtain(e.x, e.y, size, e.config.StartColor, lifetime)

	angle := e.config.Angle.Random()
	speed := e.config.Speed.Random()
	p.VelX = math.Cos(angle) * speed
	p.VelY = math.Sin(angle) * speed
	p.RotationSpeed = e.config.RotationSpeed.Random()
	p.Sprite = e.config.Sprite

	p.startSize = size
	p.endSize = e.config.EndSize.Random()
	p.startAlpha = e.config.StartAlpha.Random()
	p.endAlpha = e.config.EndAlpha.Random()
	p.startColor = e.config.StartColor
	p.endColor = e.config.EndColor
	p.Alpha = p.startAlpha

	e.particles = append(e.particles, p)
}

// ActiveParticles returns a snapshot of the emitter's live, active
// particles. The slice is freshly allocated so callers tolerate concurrent
// mutation by the simulation tick.
func (e *ParticleEmitter) ActiveParticles() []*Particle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Particle, 0, len(e.particles))
	for _, p := range e.particles {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// RegisterInSpatialGrid inserts each active particle's AABB, derived from
// its center position and size, into the grid.
func (e *ParticleEmitter) RegisterInSpatialGrid(grid *SpatialHashGrid) {
	for _, p := range e.ActiveParticles() {
		b := p.Bounds()
		grid.Insert(p, b.X, b.Y, b.Width, b.Height)
	}
}

// RegisterInQuadTree submits a snapshot of the emitter's active particles
// through the tree's batch-insert path.
func (e *ParticleEmitter) RegisterInQuadTree(tree *ParticleQuadTree) {
	tree.InsertParticles(e.ActiveParticles())
}

// Random returns a random float64 in [Min, Max].
func (r Range) Random() float64 {
	if r.Min == r.Max {
		return r.Min
	}
	return r.Min + rand.Float64()*(r.Max-r.Min)
}
