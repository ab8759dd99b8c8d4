// Package hazel provides the spatial partitioning layer of a 2D game:
// two interchangeable spatial indexes, a uniform [SpatialHashGrid] and an
// adaptive, depth-bounded [ParticleQuadTree], plus the pooled particle
// lifecycle and emitter registration protocol they index.
//
// Both indexes answer "what is near (x, y)?" for thousands of transient
// particles per frame, support concurrent population and concurrent
// queries, and tolerate degenerate input (NaN/Infinity coordinates,
// zero-size bounds, pathological clustering) without ever failing a frame.
//
// # Per-tick flow
//
// Emitters advance particle state, then the engine rebuilds the active
// index from scratch and consumers query it:
//
//	pool := hazel.NewParticlePool(4096)
//	emitter := hazel.NewParticleEmitterWithPool(cfg, pool)
//	emitter.Start()
//
//	grid := hazel.NewSpatialHashGrid(hazel.GridConfig{CellSize: 50})
//	tree := hazel.NewParticleQuadTree(hazel.Rect{0, 0, 1000, 1000}, 10, 5)
//	system := hazel.NewSpatialSystem(grid, tree)
//	system.Add(emitter)
//
//	// each simulation tick:
//	emitter.Update(dt)
//	system.Rebuild()
//	near := grid.NearbyObjects(x, y, 32)
//	hits := tree.QueryRange(x, y, w, h)
//
// Indexes are rebuilt, not incrementally maintained: particle populations
// and positions change completely between frames.
//
// # Error model
//
// Nothing in this package is fatal. Invalid geometry is rejected per item
// and counted (see the Rejected methods); a failed node split degrades to
// a flat list; a panicking emitter or query subtree is recovered, logged
// to stderr, and skipped. The worst case is a slower index or a dropped
// particle for one tick, never a crash.
//
// The ECS adapter for [Donburi] lives in hazel/ecs.
//
// [Donburi]: https://github.com/yohamta/donburi
package hazel
