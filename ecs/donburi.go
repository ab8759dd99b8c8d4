// Package ecs provides ECS adapters for hazel.
package ecs

import (
	"github.com/phanxgames/hazel"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

// ParticleRef attaches a hazel particle to a Donburi entity. The entity
// owns simulation of the particle; the adapter only reads it.
type ParticleRef struct {
	Particle *hazel.Particle
}

// ParticleComponent is the Donburi component type for ParticleRef. Add it
// to any entity whose particle should appear in the spatial indexes.
var ParticleComponent = donburi.NewComponentType[ParticleRef]()

type donburiSource struct {
	world donburi.World
	query *donburi.Query
}

// NewDonburiSource returns a SpatialRegistrar backed by a Donburi world.
// Each rebuild it snapshots every entity carrying ParticleComponent and
// registers the active particles, so ECS-driven effects share the same
// indexes as plain emitters.
func NewDonburiSource(world donburi.World) hazel.SpatialRegistrar {
	return hazel.SourceRegistrar{Source: &donburiSource{
		world: world,
		query: donburi.NewQuery(filter.Contains(ParticleComponent)),
	}}
}

func (s *donburiSource) ActiveParticles() []*hazel.Particle {
	out := make([]*hazel.Particle, 0, s.query.Count(s.world))
	s.query.Each(s.world, func(entry *donburi.Entry) {
		p := ParticleComponent.Get(entry).Particle
		if p.IsActive() {
			out = append(out, p)
		}
	})
	return out
}
