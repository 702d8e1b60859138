package state

import "github.com/leachuk/jackrabbit/internal/nodeid"

// Walk is a lazy, finite, non-restartable enumeration of transient
// descendants. Mutating the overlay while a walk is in progress is a
// programming error: Next panics rather than silently skipping entries.
// Callers that intend to dispose entries must materialize the walk with
// Collect first.
type Walk struct {
	m        *Manager
	gen      uint64
	ancestor nodeid.ID
	pending  []*NodeState
	err      error
}

func (m *Manager) newWalk(ancestor nodeid.ID, set map[nodeid.ID]*NodeState) *Walk {
	pending := make([]*NodeState, 0, len(set))
	for _, st := range set {
		pending = append(pending, st)
	}
	return &Walk{m: m, gen: m.gen, ancestor: ancestor, pending: pending}
}

// Next returns the next descendant entry. It returns nil, false when the walk
// is exhausted or a base read failed; check Err after exhaustion.
func (w *Walk) Next() (*NodeState, bool) {
	for len(w.pending) > 0 {
		if w.m.gen != w.gen {
			panic("state: overlay mutated during descendant enumeration")
		}
		st := w.pending[0]
		w.pending = w.pending[1:]

		ok, err := w.m.isDescendant(st, w.ancestor)
		if err != nil {
			w.err = err
			w.pending = nil
			return nil, false
		}
		if ok {
			return st, true
		}
	}
	return nil, false
}

// Err returns the base-read error that terminated the walk, if any.
func (w *Walk) Err() error {
	return w.err
}

// Collect drains the walk into a stable snapshot that remains valid across
// subsequent overlay mutation.
func (w *Walk) Collect() ([]*NodeState, error) {
	var out []*NodeState
	for {
		st, ok := w.Next()
		if !ok {
			return out, w.err
		}
		out = append(out, st)
	}
}
