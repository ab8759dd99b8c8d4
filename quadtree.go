package hazel

import (
	"sync"
	"sync/atomic"
)

// batchInsertThreshold is the batch size below which InsertParticles falls
// back to repeated single insertion; grouping overhead only pays off above it.
const batchInsertThreshold = 20

// ParticleQuadTree is an adaptive, depth-bounded spatial index for
// particles. It gives tighter locality than a uniform grid when particle
// density is clustered and non-uniform.
//
// A tree is rebuilt every simulation tick: constructed (or Cleared),
// populated by emitters, queried by collision and render consumers, then
// cleared again. It is not a durable structure across frames.
//
// A single reader/writer lock guards each tree instance: Insert,
// InsertParticles, and Clear are exclusive; QueryRange, ContainsPoint, and
// the diagnostic accessors may run concurrently with each other.
type ParticleQuadTree struct {
	mu         sync.RWMutex
	root       *quadNode
	maxObjects int
	maxLevels  int
	rejected   atomic.Uint64
}

// quadNode is one tree node: a bounds rectangle, a local particle list, and
// four lazily created child slots. children[0] != nil marks a split node.
type quadNode struct {
	minX, minY float64
	maxX, maxY float64
	midX, midY float64 // precomputed for O(1) quadrant decisions
	level      int
	objects    []*Particle
	children   [4]*quadNode
}

// NewParticleQuadTree creates a tree over the given world bounds.
// maxObjects is the per-node split threshold (default 10); maxLevels is the
// hard depth cap (default 5) past which nodes never split and degrade to a
// flat list. Degenerate bounds (zero-size, NaN, infinite) are replaced with
// a unit rectangle; every insertion is then rejected as out of bounds
// rather than crashing.
func NewParticleQuadTree(bounds Rect, maxObjects, maxLevels int) *ParticleQuadTree {
	if maxObjects <= 0 {
		maxObjects = 10
	}
	if maxLevels <= 0 {
		maxLevels = 5
	}
	if !bounds.Valid() || bounds.Width <= 0 || bounds.Height <= 0 {
		bounds = Rect{0, 0, 1, 1}
	}
	return &ParticleQuadTree{
		root:       newQuadNode(bounds.X, bounds.Y, bounds.X+bounds.Width, bounds.Y+bounds.Height, 0),
		maxObjects: maxObjects,
		maxLevels:  maxLevels,
	}
}

func newQuadNode(minX, minY, maxX, maxY float64, level int) *quadNode {
	return &quadNode{
		minX: minX, minY: minY,
		maxX: maxX, maxY: maxY,
		midX: (minX + maxX) / 2, midY: (minY + maxY) / 2,
		level: level,
	}
}

// Insert adds one particle to the tree. Nil, inactive, and
// out-of-bounds/NaN particles are rejected immediately (counted, see
// Rejected) and never partially placed.
func (t *ParticleQuadTree) Insert(p *Particle) {
	if !p.IsActive() {
		t.rejected.Add(1)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.root.contains(p.X, p.Y) {
		t.rejected.Add(1)
		return
	}
	t.root.insert(p, t.maxObjects, t.maxLevels)
}

// InsertParticles adds a batch of particles in one locked pass. The batch
// is filtered to active, in-bounds, finite particles first; small batches
// fall back to repeated single insertion, larger ones are grouped by
// quadrant up front so each child is descended into once per batch rather
// than once per particle.
func (t *ParticleQuadTree) InsertParticles(batch []*Particle) {
	if len(batch) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	valid := make([]*Particle, 0, len(batch))
	for _, p := range batch {
		if p.IsActive() && t.root.contains(p.X, p.Y) {
			valid = append(valid, p)
		}
	}
	if n := len(batch) - len(valid); n > 0 {
		t.rejected.Add(uint64(n))
	}
	if len(valid) == 0 {
		return
	}
	t.root.insertBatch(valid, t.maxObjects, t.maxLevels)
}

// QueryRange returns every active particle whose point lies inside the
// query rectangle, collected from this node and every descendant whose
// bounds intersect it. Subtrees that cannot intersect are pruned without
// descending. The result is a snapshot slice, never a live view; invalid
// query geometry yields nil.
func (t *ParticleQuadTree) QueryRange(x, y, width, height float64) []*Particle {
	r := Rect{X: x, Y: y, Width: width, Height: height}
	if !r.Valid() {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var results []*Particle
	t.root.querySafe(r, &results)
	return results
}

// ContainsPoint reports whether (x, y) lies within the tree's bounds.
func (t *ParticleQuadTree) ContainsPoint(x, y float64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.contains(x, y)
}

// Clear recursively discards all particles and child nodes, returning the
// tree to a single empty root. The tree is immediately reusable for the
// next tick's rebuild.
func (t *ParticleQuadTree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.root.clear()
}

// TotalParticleCount returns the sum of local-list sizes across the whole
// subtree. It reflects retained entries, including particles deactivated
// after insertion; diagnostics and tuning only.
func (t *ParticleQuadTree) TotalParticleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.count()
}

// MaxDepth returns the deepest level currently present, root being 1.
// Diagnostics only; never exceeds the configured maxLevels.
func (t *ParticleQuadTree) MaxDepth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root.depth()
}

// Rejected returns how many insertions have been refused (nil, inactive,
// or out-of-bounds particles) since the tree was created. Particles that
// drift outside the world bounds vanish from spatial queries; this counter
// is how that shows up in diagnostics.
func (t *ParticleQuadTree) Rejected() uint64 {
	return t.rejected.Load()
}

// Bounds returns the tree's world bounds.
func (t *ParticleQuadTree) Bounds() Rect {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := t.root
	return Rect{X: n.minX, Y: n.minY, Width: n.maxX - n.minX, Height: n.maxY - n.minY}
}

// --- node operations (caller holds the tree lock) ---

func (n *quadNode) contains(x, y float64) bool {
	// NaN fails every comparison, so NaN coordinates are rejected here too.
	return x >= n.minX && x <= n.maxX && y >= n.minY && y <= n.maxY
}

func (n *quadNode) intersects(r Rect) bool {
	return r.X <= n.maxX && r.X+r.Width >= n.minX &&
		r.Y <= n.maxY && r.Y+r.Height >= n.minY
}

// quadrant returns the child index owning (x, y): bit 0 set for the right
// half, bit 1 for the bottom half. Points exactly on a midline go to the
// top/left child, whose edge they share.
func (n *quadNode) quadrant(x, y float64) int {
	q := 0
	if x > n.midX {
		q |= 1
	}
	if y > n.midY {
		q |= 2
	}
	return q
}

func (n *quadNode) insert(p *Particle, maxObjects, maxLevels int) {
	if n.children[0] != nil {
		n.children[n.quadrant(p.X, p.Y)].insert(p, maxObjects, maxLevels)
		return
	}
	n.objects = append(n.objects, p)
	if len(n.objects) > maxObjects && n.level < maxLevels-1 {
		n.split()
	}
}

// split converts a flat node into four children and redistributes its local
// particles one level down. The children are built into a temporary array
// and installed in a single assignment, so no partial child state is ever
// observable; if anything here panicked the node would simply continue as
// an unsplit flat list.
func (n *quadNode) split() {
	lv := n.level + 1
	var kids [4]*quadNode
	kids[0] = newQuadNode(n.minX, n.minY, n.midX, n.midY, lv)
	kids[1] = newQuadNode(n.midX, n.minY, n.maxX, n.midY, lv)
	kids[2] = newQuadNode(n.minX, n.midY, n.midX, n.maxY, lv)
	kids[3] = newQuadNode(n.midX, n.midY, n.maxX, n.maxY, lv)

	for _, p := range n.objects {
		q := n.quadrant(p.X, p.Y)
		kids[q].objects = append(kids[q].objects, p)
	}

	n.children = kids
	n.objects = nil
}

func (n *quadNode) insertBatch(batch []*Particle, maxObjects, maxLevels int) {
	if len(batch) < batchInsertThreshold {
		for _, p := range batch {
			n.insert(p, maxObjects, maxLevels)
		}
		return
	}

	if n.children[0] == nil {
		// Flat node with room (or at the depth cap): keep the whole
		// batch local. Otherwise split once and fall through to the
		// grouped descent below.
		if len(n.objects)+len(batch) <= maxObjects || n.level >= maxLevels-1 {
			n.objects = append(n.objects, batch...)
			return
		}
		n.split()
	}

	// Group the batch by quadrant up front and descend into each child
	// once, instead of re-traversing from here per particle.
	var groups [4][]*Particle
	for _, p := range batch {
		q := n.quadrant(p.X, p.Y)
		if c := n.children[q]; c != nil && c.contains(p.X, p.Y) {
			groups[q] = append(groups[q], p)
		} else {
			// Quadrant determination failed (boundary case or missing
			// child): the particle stays here rather than being dropped.
			n.objects = append(n.objects, p)
		}
	}
	for q, grp := range groups {
		if len(grp) > 0 {
			n.children[q].insertBatch(grp, maxObjects, maxLevels)
		}
	}
}

// querySafe runs queryRange for this subtree, converting a panic anywhere
// below into "no results from this subtree" so one broken node cannot
// abort the whole query.
func (n *quadNode) querySafe(r Rect, out *[]*Particle) {
	defer func() {
		if v := recover(); v != nil {
			warnf("quadtree query: subtree at level %d panicked: %v", n.level, v)
		}
	}()
	n.queryRange(r, out)
}

func (n *quadNode) queryRange(r Rect, out *[]*Particle) {
	if !n.intersects(r) {
		return
	}
	for _, p := range n.objects {
		if p.IsActive() && r.Contains(p.X, p.Y) {
			*out = append(*out, p)
		}
	}
	if n.children[0] != nil {
		for _, c := range n.children {
			c.querySafe(r, out)
		}
	}
}

func (n *quadNode) clear() {
	for i, c := range n.children {
		if c != nil {
			c.clear()
			n.children[i] = nil
		}
	}
	n.objects = nil
}

func (n *quadNode) count() int {
	total := len(n.objects)
	for _, c := range n.children {
		if c != nil {
			total += c.count()
		}
	}
	return total
}

func (n *quadNode) depth() int {
	deepest := n.level + 1
	for _, c := range n.children {
		if c != nil {
			if d := c.depth(); d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}
