// Package progress tracks crawl counters for incremental operator
// reporting. The tracker is shared between the orchestrator, the log
// reporter, and the optional status endpoint.
package progress

import "sync/atomic"

// Tracker accumulates crawl-session counters. All methods are safe for
// concurrent use.
type Tracker struct {
	entitiesTotal atomic.Int64
	entitiesDone  atomic.Int64
	discovered    atomic.Int64
	downloaded    atomic.Int64
	skipped       atomic.Int64
	failed        atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	EntitiesTotal int64 `json:"entities_total"`
	EntitiesDone  int64 `json:"entities_done"`
	Discovered    int64 `json:"issues_discovered"`
	Downloaded    int64 `json:"issues_downloaded"`
	Skipped       int64 `json:"issues_skipped"`
	Failed        int64 `json:"issues_failed"`
}

// SetEntitiesTotal records how many publications the run will process.
func (t *Tracker) SetEntitiesTotal(n int) { t.entitiesTotal.Store(int64(n)) }

// EntityDone marks one publication finished.
func (t *Tracker) EntityDone() { t.entitiesDone.Add(1) }

// AddDiscovered records n issues found on a listing page.
func (t *Tracker) AddDiscovered(n int) { t.discovered.Add(int64(n)) }

// Downloaded records one successful download.
func (t *Tracker) Downloaded() { t.downloaded.Add(1) }

// Skipped records one dedup skip.
func (t *Tracker) Skipped() { t.skipped.Add(1) }

// Failed records one failed download.
func (t *Tracker) Failed() { t.failed.Add(1) }

// Snapshot returns the current counter values.
func (t *Tracker) Snapshot() Snapshot {
	return Snapshot{
		EntitiesTotal: t.entitiesTotal.Load(),
		EntitiesDone:  t.entitiesDone.Load(),
		Discovered:    t.discovered.Load(),
		Downloaded:    t.downloaded.Load(),
		Skipped:       t.skipped.Load(),
		Failed:        t.failed.Load(),
	}
}
