package watchdog

import "github.com/pathwatch/navguard/internal/navtypes"

// clientState is the per-client state: a bounded FIFO window plus the
// two debounce timestamps. It has no lock of its own; clientShard embeds
// it next to the mutex that protects every field, generalized from the
// per-symbol map-of-mutable-state pattern in
// the teacher's alert engine.
type clientState struct {
	window            []*navtypes.Record
	lastStuckAlertAt  int64
	lastAccidentAlertAt int64
}

func newClientState() *clientState {
	return &clientState{}
}

func (s *clientState) push(r *navtypes.Record, capacity int) {
	s.window = append(s.window, r)
	if len(s.window) > capacity {
		s.window = s.window[len(s.window)-capacity:]
	}
}

func lastN(records []*navtypes.Record, n int) []*navtypes.Record {
	if len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}
