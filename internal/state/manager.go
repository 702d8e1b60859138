package state

import (
	"fmt"

	"github.com/leachuk/jackrabbit/internal/nodeid"
)

// BaseReader supplies the current persistent base state of a node. A nil
// state with a nil error means the node does not exist in the base.
type BaseReader interface {
	Base(id nodeid.ID) (*NodeState, error)
}

// Outcome is the result of disposing a transient entry, applied by the owning
// session to any live handle it tracks.
type Outcome int

const (
	// OutcomeReverted means the entry re-synchronizes to its persistent base.
	OutcomeReverted Outcome = iota

	// OutcomeInvalidated means no base remains; the entry is permanently gone.
	OutcomeInvalidated

	// OutcomeResurrected means a removed node became visible again, mirroring
	// its persistent base.
	OutcomeResurrected
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeReverted:
		return "reverted"
	case OutcomeInvalidated:
		return "invalidated"
	case OutcomeResurrected:
		return "resurrected"
	default:
		return "unknown"
	}
}

// Disposal records what happened to one disposed entry. Base is the current
// persistent state the node reverts to; nil when the outcome is
// OutcomeInvalidated.
type Disposal struct {
	State   *NodeState
	Outcome Outcome
	Base    *NodeState
}

// Manager owns one session's transient overlay: the live transient set and
// the attic. An entry lives in exactly one of the two at a time.
//
// The manager is owned exclusively by its session; it is not safe for
// concurrent use.
type Manager struct {
	base  BaseReader
	live  map[nodeid.ID]*NodeState
	attic map[nodeid.ID]*NodeState

	// gen is bumped on every mutation so that in-flight walks fail fast.
	gen uint64
}

// NewManager creates an empty overlay over the given base.
func NewManager(base BaseReader) *Manager {
	return &Manager{
		base:  base,
		live:  make(map[nodeid.ID]*NodeState),
		attic: make(map[nodeid.ID]*NodeState),
	}
}

// Transient returns the live transient entry for id, if any.
func (m *Manager) Transient(id nodeid.ID) (*NodeState, bool) {
	st, ok := m.live[id]
	return st, ok
}

// InAttic returns the attic entry for id, if any.
func (m *Manager) InAttic(id nodeid.ID) (*NodeState, bool) {
	st, ok := m.attic[id]
	return st, ok
}

// HasTransient reports whether any transient entry exists, in the live set or
// the attic.
func (m *Manager) HasTransient() bool {
	return len(m.live) > 0 || len(m.attic) > 0
}

// LiveCount returns the number of entries in the live transient set.
func (m *Manager) LiveCount() int {
	return len(m.live)
}

// AtticCount returns the number of entries in the attic.
func (m *Manager) AtticCount() int {
	return len(m.attic)
}

// PutTransient records a transient entry in the live set. An attic entry with
// the same id is rejected: an entry lives in exactly one of the two sets.
func (m *Manager) PutTransient(st *NodeState) error {
	if _, ok := m.attic[st.ID]; ok {
		return fmt.Errorf("node %s is in the attic", st.ID)
	}
	m.live[st.ID] = st
	m.gen++
	return nil
}

// MoveToAttic transfers a live transient entry to the attic, marking the node
// as removed but resurrectable until the removal is saved.
func (m *Manager) MoveToAttic(st *NodeState) error {
	if _, ok := m.live[st.ID]; !ok {
		return fmt.Errorf("node %s has no live transient state", st.ID)
	}
	delete(m.live, st.ID)
	m.attic[st.ID] = st
	m.gen++
	return nil
}

// Discard removes a live transient entry without computing a disposal
// outcome. Used when promoting entries to the base on save.
func (m *Manager) Discard(st *NodeState) {
	delete(m.live, st.ID)
	m.gen++
}

// DiscardAttic removes an attic entry without computing a disposal outcome.
func (m *Manager) DiscardAttic(st *NodeState) {
	delete(m.attic, st.ID)
	m.gen++
}

// DisposeTransient discards one live transient entry. The returned disposal
// tells the session whether the node reverts to its base or is permanently
// invalidated.
func (m *Manager) DisposeTransient(st *NodeState) (Disposal, error) {
	if _, ok := m.live[st.ID]; !ok {
		return Disposal{}, fmt.Errorf("node %s has no live transient state", st.ID)
	}
	delete(m.live, st.ID)
	m.gen++
	return m.discardOutcome(st)
}

// DisposeTransientInAttic discards one attic entry, resurrecting the removed
// node if its base still exists.
func (m *Manager) DisposeTransientInAttic(st *NodeState) (Disposal, error) {
	if _, ok := m.attic[st.ID]; !ok {
		return Disposal{}, fmt.Errorf("node %s has no attic state", st.ID)
	}
	delete(m.attic, st.ID)
	m.gen++
	return m.atticOutcome(st)
}

// DisposeAllTransient discards every transient entry in the session,
// unconditionally. This is the root-refresh fast path. Both sets are drained
// before any outcome is computed, so the discard stays total even when a base
// read fails mid-pass; the error then only truncates the returned disposals.
func (m *Manager) DisposeAllTransient() ([]Disposal, error) {
	live := m.LiveStates()
	attic := m.AtticStates()
	m.live = make(map[nodeid.ID]*NodeState)
	m.attic = make(map[nodeid.ID]*NodeState)
	m.gen++

	disposals := make([]Disposal, 0, len(live)+len(attic))
	for _, st := range live {
		d, err := m.discardOutcome(st)
		if err != nil {
			return disposals, err
		}
		disposals = append(disposals, d)
	}
	for _, st := range attic {
		d, err := m.atticOutcome(st)
		if err != nil {
			return disposals, err
		}
		disposals = append(disposals, d)
	}
	return disposals, nil
}

func (m *Manager) atticOutcome(st *NodeState) (Disposal, error) {
	base, err := m.base.Base(st.ID)
	if err != nil {
		return Disposal{}, fmt.Errorf("read base of %s: %w", st.ID, err)
	}
	if base == nil {
		// Base disappeared underneath the removal; nothing to resurrect.
		return Disposal{State: st, Outcome: OutcomeInvalidated}, nil
	}
	return Disposal{State: st, Outcome: OutcomeResurrected, Base: base}, nil
}

func (m *Manager) discardOutcome(st *NodeState) (Disposal, error) {
	if st.Overlayed == nil {
		return Disposal{State: st, Outcome: OutcomeInvalidated}, nil
	}
	base, err := m.base.Base(st.ID)
	if err != nil {
		return Disposal{}, fmt.Errorf("read base of %s: %w", st.ID, err)
	}
	if base == nil {
		return Disposal{State: st, Outcome: OutcomeInvalidated}, nil
	}
	return Disposal{State: st, Outcome: OutcomeReverted, Base: base}, nil
}

// LiveStates returns a snapshot of the live transient set.
func (m *Manager) LiveStates() []*NodeState {
	out := make([]*NodeState, 0, len(m.live))
	for _, st := range m.live {
		out = append(out, st)
	}
	return out
}

// AtticStates returns a snapshot of the attic.
func (m *Manager) AtticStates() []*NodeState {
	out := make([]*NodeState, 0, len(m.attic))
	for _, st := range m.attic {
		out = append(out, st)
	}
	return out
}

// DescendantTransients returns a walk over the live transient entries that
// are descendants of id.
func (m *Manager) DescendantTransients(id nodeid.ID) *Walk {
	return m.newWalk(id, m.live)
}

// DescendantTransientsInAttic returns a walk over the attic entries that are
// descendants of id.
func (m *Manager) DescendantTransientsInAttic(id nodeid.ID) *Walk {
	return m.newWalk(id, m.attic)
}

// isDescendant walks the parent chain of st looking for ancestor. The chain
// may pass through live entries, attic entries, and base states.
func (m *Manager) isDescendant(st *NodeState, ancestor nodeid.ID) (bool, error) {
	seen := map[nodeid.ID]bool{st.ID: true}
	cur := st.ParentID
	for !cur.IsZero() {
		if cur == ancestor {
			return true, nil
		}
		if seen[cur] {
			// Corrupt parent chain; treat as not a descendant.
			return false, nil
		}
		seen[cur] = true

		var parent *NodeState
		if p, ok := m.live[cur]; ok {
			parent = p
		} else if p, ok := m.attic[cur]; ok {
			parent = p
		} else {
			p, err := m.base.Base(cur)
			if err != nil {
				return false, fmt.Errorf("read base of %s: %w", cur, err)
			}
			if p == nil {
				return false, nil
			}
			parent = p
		}
		cur = parent.ParentID
	}
	return false, nil
}
