package hazel

import (
	"fmt"
	"os"
	"time"
)

// rebuildStats holds per-rebuild timing and occupancy metrics.
// Only reported when SpatialSystem debug is on.
type rebuildStats struct {
	clearTime    time.Duration
	registerTime time.Duration
	emitterCount int
	failedCount  int

	gridCells     int
	gridObjects   int
	treeParticles int
	treeDepth     int
}

// debugLogRebuild prints rebuild timing and occupancy stats to stderr.
func debugLogRebuild(stats rebuildStats) {
	_, _ = fmt.Fprintf(os.Stderr,
		"[hazel] clear: %v | register: %v | emitters: %d | failed: %d\n",
		stats.clearTime, stats.registerTime, stats.emitterCount, stats.failedCount)
	_, _ = fmt.Fprintf(os.Stderr,
		"[hazel] grid cells: %d | grid objects: %d | tree particles: %d | tree depth: %d\n",
		stats.gridCells, stats.gridObjects, stats.treeParticles, stats.treeDepth)
}

// warnf reports a recovered fault to stderr. Faults are logged regardless
// of the debug flag: a skipped emitter or subtree should not fail silently.
func warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "[hazel] warning: "+format+"\n", args...)
}
