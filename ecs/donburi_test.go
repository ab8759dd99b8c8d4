package ecs

import (
	"testing"

	"github.com/yohamta/donburi"

	"github.com/phanxgames/hazel"
)

func newWorldWithParticles(t *testing.T, coords ...[2]float64) (donburi.World, []*hazel.Particle) {
	t.Helper()
	world := donburi.NewWorld()
	pool := hazel.NewParticlePool(len(coords))

	particles := make([]*hazel.Particle, 0, len(coords))
	for _, c := range coords {
		p := pool.Obtain(c[0], c[1], 4, hazel.ColorWhite, 1)
		particles = append(particles, p)

		entity := world.Create(ParticleComponent)
		entry := world.Entry(entity)
		ParticleComponent.SetValue(entry, ParticleRef{Particle: p})
	}
	return world, particles
}

func TestNewDonburiSource(t *testing.T) {
	world := donburi.NewWorld()
	if reg := NewDonburiSource(world); reg == nil {
		t.Fatal("NewDonburiSource returned nil")
	}
}

func TestDonburiSourceRegistersInGrid(t *testing.T) {
	world, _ := newWorldWithParticles(t, [2]float64{100, 100}, [2]float64{200, 200})
	reg := NewDonburiSource(world)

	grid := hazel.NewSpatialHashGrid(hazel.GridConfig{CellSize: 50})
	reg.RegisterInSpatialGrid(grid)

	if got := grid.NearbyObjects(100, 100, 20); len(got) != 1 {
		t.Errorf("grid query = %d results, want 1", len(got))
	}
	if got := grid.PotentialCollisions(0, 0, 300, 300); len(got) != 2 {
		t.Errorf("grid query = %d results, want 2", len(got))
	}
}

func TestDonburiSourceRegistersInTree(t *testing.T) {
	world, _ := newWorldWithParticles(t, [2]float64{100, 100}, [2]float64{200, 200})
	reg := NewDonburiSource(world)

	tree := hazel.NewParticleQuadTree(hazel.Rect{Width: 1000, Height: 1000}, 10, 5)
	reg.RegisterInQuadTree(tree)

	if tree.TotalParticleCount() != 2 {
		t.Errorf("tree holds %d, want 2", tree.TotalParticleCount())
	}
}

func TestDonburiSourceSkipsInactive(t *testing.T) {
	world, particles := newWorldWithParticles(t, [2]float64{100, 100}, [2]float64{200, 200})
	particles[0].Deactivate()

	reg := NewDonburiSource(world)
	tree := hazel.NewParticleQuadTree(hazel.Rect{Width: 1000, Height: 1000}, 10, 5)
	reg.RegisterInQuadTree(tree)

	if tree.TotalParticleCount() != 1 {
		t.Errorf("tree holds %d, want 1 (inactive skipped)", tree.TotalParticleCount())
	}
}

func TestDonburiSourceInSpatialSystem(t *testing.T) {
	world, _ := newWorldWithParticles(t, [2]float64{100, 100})

	grid := hazel.NewSpatialHashGrid(hazel.GridConfig{CellSize: 50})
	sys := hazel.NewSpatialSystem(grid, nil)
	sys.Add(NewDonburiSource(world))

	sys.Rebuild()
	if got := grid.NearbyObjects(100, 100, 20); len(got) != 1 {
		t.Errorf("grid query = %d results, want 1", len(got))
	}
}
