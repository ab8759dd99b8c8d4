package hazel

import (
	"math"
	"sync"
	"sync/atomic"
)

// GridObject is any reference stored in a SpatialHashGrid. The grid holds
// weak references only: it never mutates or retains objects across a Clear.
// Values must be comparable (pointers qualify) so query results can be
// deduplicated.
type GridObject any

// Activatable is implemented by grid objects that can be retired mid-tick
// (Particle implements it). Queries skip objects reporting inactive, so a
// particle deactivated after registration is never returned.
type Activatable interface {
	IsActive() bool
}

// GridConfig configures a SpatialHashGrid. The zero value is usable:
// every field has a sensible default.
type GridConfig struct {
	// CellSize is the side length of one grid cell in world units,
	// clamped to at least 1. Defaults to 64.
	CellSize int
	// WorldWidth and WorldHeight bound input validation only; the grid
	// does not preallocate cells. Objects wider or taller than twice the
	// corresponding dimension are rejected as runaway values. Zero
	// disables the check on that axis.
	WorldWidth, WorldHeight float64
	// MaxObjectsPerCell caps each cell's member set so pathological
	// clustering cannot grow a cell unbounded. Insertions beyond the cap
	// are dropped. Defaults to 1000.
	MaxObjectsPerCell int
	// MaxCellsPerInsert caps how many cells a single insertion touches.
	// Objects overlapping more cells are sampled across the range on each
	// axis, trading precision for bounded cost. Defaults to 100.
	MaxCellsPerInsert int
}

// SpatialHashGrid is a uniform-cell spatial index mapping world-space cells
// to object sets. It is rebuilt (Clear + Insert) every simulation tick
// rather than incrementally maintained.
//
// Concurrent insertion from multiple emitters is safe: each cell's set is
// created exactly once via atomic insert-if-absent and appended to under a
// per-cell lock. Queries may run concurrently with each other.
type SpatialHashGrid struct {
	cellSize       float64
	worldW, worldH float64
	maxPerCell     int
	maxCells       int

	cells    sync.Map // uint64 cell key -> *gridCell
	rejected atomic.Uint64
}

type gridCell struct {
	mu      sync.Mutex
	objects []GridObject
}

// NewSpatialHashGrid creates a grid from cfg, applying defaults for any
// zero-valued field.
func NewSpatialHashGrid(cfg GridConfig) *SpatialHashGrid {
	if cfg.CellSize < 1 {
		if cfg.CellSize == 0 {
			cfg.CellSize = 64
		} else {
			cfg.CellSize = 1
		}
	}
	if cfg.MaxObjectsPerCell <= 0 {
		cfg.MaxObjectsPerCell = 1000
	}
	if cfg.MaxCellsPerInsert <= 0 {
		cfg.MaxCellsPerInsert = 100
	}
	return &SpatialHashGrid{
		cellSize:   float64(cfg.CellSize),
		worldW:     cfg.WorldWidth,
		worldH:     cfg.WorldHeight,
		maxPerCell: cfg.MaxObjectsPerCell,
		maxCells:   cfg.MaxCellsPerInsert,
	}
}

// Insert adds obj to every cell overlapped by the AABB at (x, y) with the
// given extents. Invalid geometry (NaN or infinite components,
// non-positive extents, or extents beyond twice the world dimensions) is
// rejected as a no-op and counted (see Rejected). One bad particle must
// not stop a frame, so rejection never surfaces as an error.
func (g *SpatialHashGrid) Insert(obj GridObject, x, y, width, height float64) {
	if obj == nil || !g.validBox(x, y, width, height) {
		g.rejected.Add(1)
		return
	}

	minCX, countX := g.cellRange(x, width)
	minCY, countY := g.cellRange(y, height)

	// Huge objects would touch an unbounded number of cells; sample the
	// range so one insertion touches at most MaxCellsPerInsert cells no
	// matter how the box is shaped or how the grid is configured. The
	// per-axis sample counts split the budget proportionally, so an
	// elongated box cannot blow past the cap on its long axis.
	strideX, strideY := 1, 1
	if float64(countX)*float64(countY) > float64(g.maxCells) {
		nx := int(math.Sqrt(float64(g.maxCells) * float64(countX) / float64(countY)))
		nx = min(max(nx, 1), countX, g.maxCells)
		ny := min(max(g.maxCells/nx, 1), countY)
		strideX = (countX + nx - 1) / nx
		strideY = (countY + ny - 1) / ny
	}

	for i := 0; i < countX; i += strideX {
		for j := 0; j < countY; j += strideY {
			g.insertCell(minCX+i, minCY+j, obj)
		}
	}
}

// insertCell appends obj to the cell at (cx, cy), creating the cell's set
// exactly once and dropping the insert when the cell is at capacity.
func (g *SpatialHashGrid) insertCell(cx, cy int, obj GridObject) {
	key := cellKey(cx, cy)
	v, ok := g.cells.Load(key)
	if !ok {
		v, _ = g.cells.LoadOrStore(key, &gridCell{})
	}
	cell := v.(*gridCell)
	cell.mu.Lock()
	if len(cell.objects) < g.maxPerCell {
		cell.objects = append(cell.objects, obj)
	}
	cell.mu.Unlock()
}

// PotentialCollisions returns the deduplicated union of all objects in
// cells overlapped by the query AABB. An object spanning several cells is
// returned once. Invalid geometry yields an empty result. The returned
// slice is a snapshot, never a live view.
func (g *SpatialHashGrid) PotentialCollisions(x, y, width, height float64) []GridObject {
	if !g.validBox(x, y, width, height) {
		return nil
	}

	minCX, countX := g.cellRange(x, width)
	minCY, countY := g.cellRange(y, height)
	maxCX := minCX + countX - 1
	maxCY := minCY + countY - 1

	seen := make(map[GridObject]struct{})
	var results []GridObject
	collect := func(cell *gridCell) {
		cell.mu.Lock()
		for _, obj := range cell.objects {
			if a, ok := obj.(Activatable); ok && !a.IsActive() {
				continue
			}
			if _, dup := seen[obj]; !dup {
				seen[obj] = struct{}{}
				results = append(results, obj)
			}
		}
		cell.mu.Unlock()
	}

	// For enormous query rectangles, walking the cell range would cost
	// O(range) even where no cells exist; walking the populated cells is
	// bounded by actual occupancy instead.
	if float64(countX)*float64(countY) > float64(g.maxCells) {
		g.cells.Range(func(k, v any) bool {
			cx, cy := cellCoords(k.(uint64))
			if cx >= minCX && cx <= maxCX && cy >= minCY && cy <= maxCY {
				collect(v.(*gridCell))
			}
			return true
		})
		return results
	}

	for cx := minCX; cx <= maxCX; cx++ {
		for cy := minCY; cy <= maxCY; cy++ {
			if v, ok := g.cells.Load(cellKey(cx, cy)); ok {
				collect(v.(*gridCell))
			}
		}
	}
	return results
}

// NearbyObjects returns all objects whose cells overlap the square of the
// given radius centered on (x, y). Broadphase only: callers wanting an
// exact circle filter the result by distance.
func (g *SpatialHashGrid) NearbyObjects(x, y, radius float64) []GridObject {
	return g.PotentialCollisions(x-radius, y-radius, 2*radius, 2*radius)
}

// Clear drops every cell. The grid is immediately reusable for the next
// tick's rebuild.
func (g *SpatialHashGrid) Clear() {
	g.cells.Clear()
}

// CellCount returns the number of populated cells. Diagnostics only.
func (g *SpatialHashGrid) CellCount() int {
	n := 0
	g.cells.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// ObjectCount returns the total number of cell memberships, counting an
// object once per cell it occupies. Diagnostics only.
func (g *SpatialHashGrid) ObjectCount() int {
	n := 0
	g.cells.Range(func(_, v any) bool {
		cell := v.(*gridCell)
		cell.mu.Lock()
		n += len(cell.objects)
		cell.mu.Unlock()
		return true
	})
	return n
}

// Rejected returns how many insertions have been refused for invalid
// geometry since the grid was created.
func (g *SpatialHashGrid) Rejected() uint64 {
	return g.rejected.Load()
}

// validBox reports whether the AABB is finite, has positive extents, and
// does not exceed twice the configured world dimensions.
func (g *SpatialHashGrid) validBox(x, y, width, height float64) bool {
	if !isFinite(x) || !isFinite(y) || !isFinite(width) || !isFinite(height) {
		return false
	}
	if width <= 0 || height <= 0 {
		return false
	}
	if g.worldW > 0 && width > 2*g.worldW {
		return false
	}
	if g.worldH > 0 && height > 2*g.worldH {
		return false
	}
	return true
}

// cellRange returns the first cell index covered by [v, v+extent] and how
// many cells the span covers. Indexes are clamped to the int32 coordinate
// range cellKey supports, keeping the float-to-int conversion defined for
// arbitrarily large finite input.
func (g *SpatialHashGrid) cellRange(v, extent float64) (first, count int) {
	lo := math.Floor(v / g.cellSize)
	hi := math.Floor((v + extent) / g.cellSize)
	lo = math.Max(lo, math.MinInt32)
	hi = math.Min(hi, math.MaxInt32)
	if hi < lo {
		hi = lo
	}
	return int(lo), int(hi-lo) + 1
}

// cellKey packs two 32-bit cell coordinates into one 64-bit key. The pack
// is injective over the supported coordinate range, so distinct cells can
// never collide the way a prime-multiply hash mix would.
func cellKey(cx, cy int) uint64 {
	return uint64(uint32(int32(cx)))<<32 | uint64(uint32(int32(cy)))
}

// cellCoords is the inverse of cellKey.
func cellCoords(key uint64) (cx, cy int) {
	return int(int32(uint32(key >> 32))), int(int32(uint32(key)))
}
