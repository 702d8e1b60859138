package session

import (
	"fmt"

	"github.com/leachuk/jackrabbit/internal/nodeid"
	"github.com/leachuk/jackrabbit/internal/state"
)

// Handle is a client-visible reference to a node, tracked by the session so
// that disposal outcomes can rebind or invalidate it. A handle whose node was
// discarded with a surviving base reverts to mirroring that base; a handle
// whose node has no base left is permanently invalid.
type Handle struct {
	id    nodeid.ID
	s     *Session
	valid bool
}

// HandleFor resolves a path and returns a tracked handle for the node.
func (s *Session) HandleFor(pathStr string) (*Handle, error) {
	st, err := s.Node(pathStr)
	if err != nil {
		return nil, err
	}
	h := &Handle{id: st.ID, s: s, valid: true}
	s.handles[st.ID] = h
	return h, nil
}

// ID returns the node id the handle is bound to.
func (h *Handle) ID() nodeid.ID { return h.id }

// Valid reports whether the handle still refers to a live node.
func (h *Handle) Valid() bool { return h.valid }

// State returns the node's current overlay-aware state.
func (h *Handle) State() (*state.NodeState, error) {
	if !h.valid {
		return nil, fmt.Errorf("handle for %s is no longer valid", h.id)
	}
	st, err := h.s.nodeState(h.id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, h.id)
	}
	return st, nil
}

// applyDisposal rebinds or invalidates the tracked handle for a disposed
// entry, per the disposal outcome.
func (s *Session) applyDisposal(d state.Disposal) {
	h, ok := s.handles[d.State.ID]
	if !ok {
		return
	}
	switch d.Outcome {
	case state.OutcomeReverted, state.OutcomeResurrected:
		h.valid = true
	case state.OutcomeInvalidated:
		h.valid = false
	}
}
