package hazel

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ParticleSource is the capability interface the spatial layer consumes:
// anything exposing a snapshot of its active particles can be indexed.
type ParticleSource interface {
	// ActiveParticles returns a defensive snapshot of the source's active
	// particles, safe to iterate while the simulation tick mutates the
	// originals.
	ActiveParticles() []*Particle
}

// SpatialRegistrar is the registration protocol emitters implement to push
// their live particles into the spatial indexes each frame.
type SpatialRegistrar interface {
	RegisterInSpatialGrid(*SpatialHashGrid)
	RegisterInQuadTree(*ParticleQuadTree)
}

// SourceRegistrar adapts any ParticleSource into a SpatialRegistrar, for
// emitter variants that only expose their particles.
type SourceRegistrar struct {
	Source ParticleSource
}

// RegisterInSpatialGrid inserts each particle's AABB into the grid.
func (r SourceRegistrar) RegisterInSpatialGrid(grid *SpatialHashGrid) {
	for _, p := range r.Source.ActiveParticles() {
		b := p.Bounds()
		grid.Insert(p, b.X, b.Y, b.Width, b.Height)
	}
}

// RegisterInQuadTree submits the source's particles via the batch path.
func (r SourceRegistrar) RegisterInQuadTree(tree *ParticleQuadTree) {
	tree.InsertParticles(r.Source.ActiveParticles())
}

// SpatialSystem owns the per-tick rebuild of the active spatial indexes.
// It holds an optional grid and/or tree (either may be nil), plus the set
// of registered emitters. Each Rebuild clears the indexes and re-registers
// every emitter; the indexes are rebuilt, not incrementally maintained,
// because particle populations change completely between frames.
type SpatialSystem struct {
	mu         sync.Mutex
	grid       *SpatialHashGrid
	tree       *ParticleQuadTree
	registrars []SpatialRegistrar
	debug      bool
	failed     atomic.Uint64
}

// NewSpatialSystem creates a system rebuilding the given indexes. Pass nil
// for an index that isn't in use.
func NewSpatialSystem(grid *SpatialHashGrid, tree *ParticleQuadTree) *SpatialSystem {
	return &SpatialSystem{grid: grid, tree: tree}
}

// Grid returns the system's spatial hash grid, or nil.
func (s *SpatialSystem) Grid() *SpatialHashGrid { return s.grid }

// Tree returns the system's quadtree, or nil.
func (s *SpatialSystem) Tree() *ParticleQuadTree { return s.tree }

// SetDebug toggles per-rebuild timing output on stderr.
func (s *SpatialSystem) SetDebug(enabled bool) {
	s.mu.Lock()
	s.debug = enabled
	s.mu.Unlock()
}

// Add registers an emitter for inclusion in subsequent rebuilds.
func (s *SpatialSystem) Add(r SpatialRegistrar) {
	s.mu.Lock()
	s.registrars = append(s.registrars, r)
	s.mu.Unlock()
}

// Remove unregisters an emitter. Removing an unknown registrar is a no-op.
func (s *SpatialSystem) Remove(r SpatialRegistrar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, reg := range s.registrars {
		if reg == r {
			s.registrars = append(s.registrars[:i], s.registrars[i+1:]...)
			return
		}
	}
}

// EmitterCount returns the number of registered emitters.
func (s *SpatialSystem) EmitterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registrars)
}

// FailedRegistrations returns how many emitter registrations have panicked
// and been skipped since the system was created.
func (s *SpatialSystem) FailedRegistrations() uint64 {
	return s.failed.Load()
}

// Rebuild clears the indexes and re-registers every emitter, fanning the
// registration out across a bounded worker pool. A panicking emitter is
// recovered, logged, and skipped: one malfunctioning emitter must not
// abort spatial indexing for the rest of the system.
func (s *SpatialSystem) Rebuild() {
	s.mu.Lock()
	regs := make([]SpatialRegistrar, len(s.registrars))
	copy(regs, s.registrars)
	debug := s.debug
	s.mu.Unlock()

	var stats rebuildStats
	stats.emitterCount = len(regs)

	start := time.Now()
	if s.grid != nil {
		s.grid.Clear()
	}
	if s.tree != nil {
		s.tree.Clear()
	}
	stats.clearTime = time.Since(start)

	start = time.Now()
	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, r := range regs {
		g.Go(func() error {
			defer func() {
				if v := recover(); v != nil {
					s.failed.Add(1)
					failed.Add(1)
					warnf("emitter registration panicked, skipping: %v", v)
				}
			}()
			if s.grid != nil {
				r.RegisterInSpatialGrid(s.grid)
			}
			if s.tree != nil {
				r.RegisterInQuadTree(s.tree)
			}
			return nil
		})
	}
	_ = g.Wait() // registration never returns errors; panics are recovered above
	stats.registerTime = time.Since(start)
	stats.failedCount = int(failed.Load())

	if debug {
		if s.grid != nil {
			stats.gridCells = s.grid.CellCount()
			stats.gridObjects = s.grid.ObjectCount()
		}
		if s.tree != nil {
			stats.treeParticles = s.tree.TotalParticleCount()
			stats.treeDepth = s.tree.MaxDepth()
		}
		debugLogRebuild(stats)
	}
}
