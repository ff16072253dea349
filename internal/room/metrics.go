package room

import (
	"sync/atomic"
)

// Metrics counts registry activity. Safe for concurrent use.
type Metrics struct {
	RoomsCreated  int64
	RoomsClosed   int64
	Joins         int64
	Leaves        int64
	MovesApplied  int64
	MovesRejected int64
	Resignations  int64
	Restored      int64
}

func (m *Metrics) incCreated()       { atomic.AddInt64(&m.RoomsCreated, 1) }
func (m *Metrics) incClosed()        { atomic.AddInt64(&m.RoomsClosed, 1) }
func (m *Metrics) incJoin()          { atomic.AddInt64(&m.Joins, 1) }
func (m *Metrics) incLeave()         { atomic.AddInt64(&m.Leaves, 1) }
func (m *Metrics) incMove()          { atomic.AddInt64(&m.MovesApplied, 1) }
func (m *Metrics) incRejected()      { atomic.AddInt64(&m.MovesRejected, 1) }
func (m *Metrics) incResign()        { atomic.AddInt64(&m.Resignations, 1) }
func (m *Metrics) addRestored(n int) { atomic.AddInt64(&m.Restored, int64(n)) }

// Snapshot returns a read-only copy suitable for JSON output.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"rooms_created":  atomic.LoadInt64(&m.RoomsCreated),
		"rooms_closed":   atomic.LoadInt64(&m.RoomsClosed),
		"joins":          atomic.LoadInt64(&m.Joins),
		"leaves":         atomic.LoadInt64(&m.Leaves),
		"moves_applied":  atomic.LoadInt64(&m.MovesApplied),
		"moves_rejected": atomic.LoadInt64(&m.MovesRejected),
		"resignations":   atomic.LoadInt64(&m.Resignations),
		"restored":       atomic.LoadInt64(&m.Restored),
	}
}
