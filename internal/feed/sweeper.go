package feed

import (
	"log"
	"time"
)

// SweepStale evicts candidates that are both past the retention window and
// scored below the threshold. This is the only path that removes rows the
// upstream still knows about; posts deleted upstream keep their frozen
// score until they age out here.
func (e *Engine) SweepStale() {
	cutoff := time.Now().Add(-e.RetentionWindow).UnixMilli()

	n, err := e.DB.DeleteStale(cutoff, e.MinScore)
	if err != nil {
		log.Printf("sweep: delete stale: %v", err)
		return
	}
	if n > 0 {
		log.Printf("sweep: removed %d stale candidate(s)", n)
	}
}
