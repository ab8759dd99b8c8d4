package hazel

import (
	"testing"
)

// staticSource is a fixed ParticleSource for tests.
type staticSource struct {
	particles []*Particle
}

func (s *staticSource) ActiveParticles() []*Particle {
	out := make([]*Particle, 0, len(s.particles))
	for _, p := range s.particles {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out
}

// panicRegistrar simulates a malfunctioning emitter.
type panicRegistrar struct{}

func (panicRegistrar) RegisterInSpatialGrid(*SpatialHashGrid) { panic("broken emitter") }
func (panicRegistrar) RegisterInQuadTree(*ParticleQuadTree)   { panic("broken emitter") }

func newTestSystem() (*SpatialSystem, *SpatialHashGrid, *ParticleQuadTree) {
	grid := NewSpatialHashGrid(GridConfig{CellSize: 50})
	tree := NewParticleQuadTree(Rect{0, 0, 1000, 1000}, 10, 5)
	return NewSpatialSystem(grid, tree), grid, tree
}

func TestSpatialSystemRebuild(t *testing.T) {
	sys, grid, tree := newTestSystem()

	src := &staticSource{particles: []*Particle{
		testParticle(100, 100, 4),
		testParticle(200, 200, 4),
	}}
	sys.Add(SourceRegistrar{Source: src})

	sys.Rebuild()

	if got := grid.NearbyObjects(100, 100, 20); len(got) != 1 {
		t.Errorf("grid query = %d results, want 1", len(got))
	}
	if tree.TotalParticleCount() != 2 {
		t.Errorf("tree holds %d, want 2", tree.TotalParticleCount())
	}
}

func TestSpatialSystemRebuildReplacesPreviousTick(t *testing.T) {
	sys, grid, tree := newTestSystem()

	p := testParticle(100, 100, 4)
	src := &staticSource{particles: []*Particle{p}}
	sys.Add(SourceRegistrar{Source: src})

	sys.Rebuild()
	if tree.TotalParticleCount() != 1 {
		t.Fatalf("tree holds %d, want 1", tree.TotalParticleCount())
	}

	// Next tick the particle has moved; the rebuild must not retain the
	// old position.
	p.X, p.Y = 600, 600
	sys.Rebuild()

	if got := grid.NearbyObjects(100, 100, 20); len(got) != 0 {
		t.Errorf("stale grid entry survived rebuild: %v", got)
	}
	if got := tree.QueryRange(590, 590, 20, 20); len(got) != 1 {
		t.Errorf("moved particle not found: %d results", len(got))
	}
	if tree.TotalParticleCount() != 1 {
		t.Errorf("tree holds %d after rebuild, want 1", tree.TotalParticleCount())
	}
}

func TestSpatialSystemIsolatesPanickingEmitter(t *testing.T) {
	sys, grid, tree := newTestSystem()

	good := &staticSource{particles: []*Particle{testParticle(100, 100, 4)}}
	sys.Add(panicRegistrar{})
	sys.Add(SourceRegistrar{Source: good})

	sys.Rebuild() // must not panic

	if got := grid.NearbyObjects(100, 100, 20); len(got) != 1 {
		t.Errorf("healthy emitter's particles missing: %d results", len(got))
	}
	if tree.TotalParticleCount() != 1 {
		t.Errorf("tree holds %d, want 1", tree.TotalParticleCount())
	}
	if sys.FailedRegistrations() != 1 {
		t.Errorf("failed registrations = %d, want 1", sys.FailedRegistrations())
	}
}

func TestSpatialSystemNilIndexes(t *testing.T) {
	src := &staticSource{particles: []*Particle{testParticle(10, 10, 2)}}

	gridOnly := NewSpatialHashGrid(GridConfig{CellSize: 50})
	sys := NewSpatialSystem(gridOnly, nil)
	sys.Add(SourceRegistrar{Source: src})
	sys.Rebuild()
	if got := gridOnly.NearbyObjects(10, 10, 10); len(got) != 1 {
		t.Errorf("grid-only system: %d results, want 1", len(got))
	}

	treeOnly := NewParticleQuadTree(Rect{0, 0, 100, 100}, 10, 4)
	sys2 := NewSpatialSystem(nil, treeOnly)
	sys2.Add(SourceRegistrar{Source: src})
	sys2.Rebuild()
	if treeOnly.TotalParticleCount() != 1 {
		t.Errorf("tree-only system holds %d, want 1", treeOnly.TotalParticleCount())
	}
}

func TestSpatialSystemAddRemove(t *testing.T) {
	sys, _, tree := newTestSystem()
	reg := SourceRegistrar{Source: &staticSource{particles: []*Particle{testParticle(10, 10, 2)}}}

	sys.Add(reg)
	if sys.EmitterCount() != 1 {
		t.Errorf("emitter count = %d, want 1", sys.EmitterCount())
	}

	sys.Remove(reg)
	if sys.EmitterCount() != 0 {
		t.Errorf("emitter count = %d, want 0", sys.EmitterCount())
	}
	sys.Remove(reg) // removing an unknown registrar is a no-op

	sys.Rebuild()
	if tree.TotalParticleCount() != 0 {
		t.Error("removed emitter still registered")
	}
}

func TestSpatialSystemManyEmitters(t *testing.T) {
	sys, grid, tree := newTestSystem()

	const emitters = 16
	for i := 0; i < emitters; i++ {
		src := &staticSource{particles: []*Particle{
			testParticle(float64(i*60+10), float64(i*30+10), 4),
			testParticle(float64(i*60+20), float64(i*30+20), 4),
		}}
		sys.Add(SourceRegistrar{Source: src})
	}

	sys.Rebuild()

	if tree.TotalParticleCount() != emitters*2 {
		t.Errorf("tree holds %d, want %d", tree.TotalParticleCount(), emitters*2)
	}
	if got := grid.PotentialCollisions(0, 0, 1000, 500); len(got) != emitters*2 {
		t.Errorf("grid query = %d, want %d", len(got), emitters*2)
	}
}

func BenchmarkSpatialSystemRebuild(b *testing.B) {
	sys, _, _ := newTestSystem()
	for i := 0; i < 8; i++ {
		particles := make([]*Particle, 500)
		for j := range particles {
			particles[j] = testParticle(float64((i*500+j)*7%1000), float64((i*500+j)*13%1000), 3)
		}
		sys.Add(SourceRegistrar{Source: &staticSource{particles: particles}})
	}

	b.ReportAllocs()
	for b.Loop() {
		sys.Rebuild()
	}
}
