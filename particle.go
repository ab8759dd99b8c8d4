package hazel

import (
	"github.com/hajimehoshi/ebiten/v2"
)

// Particle is a single point-like simulation record. Particles are mutated
// every tick by their owning emitter and indexed by position and size only;
// the spatial indexes never take ownership of a Particle.
//
// The bounding box is a square of side Size centered on (X, Y).
type Particle struct {
	// X, Y is the particle's center position in world coordinates.
	X, Y float64
	// Size is the side length of the particle's square bounding box.
	Size float64
	// VelX, VelY is the particle's velocity in world units per second.
	VelX, VelY float64
	// AccelX, AccelY is the per-second change applied to velocity each tick.
	AccelX, AccelY float64
	// Rotation is the particle's orientation in radians.
	// RotationSpeed is applied per second.
	Rotation      float64
	RotationSpeed float64
	// Life is the remaining lifetime in seconds; MaxLife the initial lifetime.
	Life    float64
	MaxLife float64

	// Color is the particle's tint. Sprite-less emitters render particles
	// as tinted quads.
	Color Color
	// Alpha is the current opacity in [0, 1], interpolated over lifetime.
	Alpha float64
	// Sprite is an optional image payload. Cleared when the particle is
	// recycled so the pool never pins texture memory.
	Sprite *ebiten.Image
	// Body is an optional opaque handle for physics-backed emitters.
	// Cleared on recycle.
	Body any

	// Per-particle interpolation endpoints, set by the owning emitter at
	// spawn and consumed by its Update.
	startSize, endSize   float64
	startAlpha, endAlpha float64
	startColor, endColor Color

	active bool
	pooled bool // allocated by a ParticlePool (vs. overflow fallback)
	free   bool // currently on the pool's free list
}

// IsActive reports whether the particle participates in simulation and
// spatial indexing. Inactive particles are rejected at insertion and never
// returned from queries.
func (p *Particle) IsActive() bool {
	return p != nil && p.active
}

// Deactivate retires the particle. It remains owned by its emitter until
// recycled.
func (p *Particle) Deactivate() {
	p.active = false
}

// Bounds returns the particle's square AABB centered on its position.
func (p *Particle) Bounds() Rect {
	half := p.Size / 2
	return Rect{X: p.X - half, Y: p.Y - half, Width: p.Size, Height: p.Size}
}

// reset reinitializes a particle for reuse. Velocity, acceleration, and
// rotation are zeroed; the emitter overwrites them after Obtain.
func (p *Particle) reset(x, y, size float64, c Color, lifetime float64) {
	p.X, p.Y = x, y
	p.Size = size
	p.VelX, p.VelY = 0, 0
	p.AccelX, p.AccelY = 0, 0
	p.Rotation, p.RotationSpeed = 0, 0
	p.Life = lifetime
	p.MaxLife = lifetime
	p.Color = c
	p.Alpha = c.A
	p.Sprite = nil
	p.Body = nil
	p.startSize, p.endSize = size, size
	p.startAlpha, p.endAlpha = c.A, c.A
	p.startColor, p.endColor = c, c
	p.active = true
}

// scrub drops strong references held by the particle so a pooled instance
// cannot pin sprites or physics bodies while sitting on the free list.
func (p *Particle) scrub() {
	p.Sprite = nil
	p.Body = nil
	p.active = false
}
