// Package operation implements the session operations that reconcile and
// mutate the transient overlay: the refresh/revert protocol and the move
// operation's validation and application contract.
package operation

import (
	"fmt"
	"log"

	"github.com/leachuk/jackrabbit/internal/state"
)

// Refresh reconciles the subtree rooted at a target node with the persistent
// base: transient edits are discarded and removed descendants held in the
// attic are resurrected.
type Refresh struct {
	mgr    *state.Manager
	target *state.NodeState
}

// NewRefresh creates a refresh of the subtree rooted at target.
func NewRefresh(mgr *state.Manager, target *state.NodeState) *Refresh {
	return &Refresh{mgr: mgr, target: target}
}

// Perform runs the protocol and returns the disposals that occurred, for the
// session to apply to its handles.
//
// Validation of the target happens before any entry is touched: a failed
// refresh leaves the overlay unchanged.
func (r *Refresh) Perform() ([]state.Disposal, error) {
	// Optimisation for the root node: a root refresh is always total.
	if r.target.IsRoot() {
		return r.mgr.DisposeAllTransient()
	}

	// List of transient entries that should be discarded.
	var marked []*state.NodeState

	if st, ok := r.mgr.Transient(r.target.ID); ok {
		switch st.Status {
		case state.StatusStaleModified, state.StatusStaleDestroyed:
			marked = append(marked, st)
		case state.StatusExistingModified:
			if st.Overlayed != nil && st.ParentID != st.Overlayed.ParentID {
				return nil, fmt.Errorf("%w: %s", ErrMovedItem, st.ID)
			}
			marked = append(marked, st)
		case state.StatusNew:
			return nil, fmt.Errorf("%w: %s", ErrNewItem, st.ID)
		default:
			// Log and ignore.
			log.Printf("unexpected status %s of %s during refresh", st.Status, st.ID)
		}
	}

	if r.target.IsNode {
		// Build the list of new, modified or stale descendants. A new
		// descendant is simply dropped here, unlike a new target.
		descendants, err := r.mgr.DescendantTransients(r.target.ID).Collect()
		if err != nil {
			return nil, err
		}
		for _, st := range descendants {
			switch st.Status {
			case state.StatusStaleModified, state.StatusStaleDestroyed,
				state.StatusNew, state.StatusExistingModified:
				marked = append(marked, st)
			default:
				// Log and ignore.
				log.Printf("unexpected status %s of descendant %s during refresh", st.Status, st.ID)
			}
		}
	}

	// Discard pass: dispose every marked entry. This either reverts the
	// node to its base or permanently invalidates it.
	var disposals []state.Disposal
	for _, st := range marked {
		d, err := r.mgr.DisposeTransient(st)
		if err != nil {
			return disposals, err
		}
		disposals = append(disposals, d)
	}

	if r.target.IsNode {
		// Discard all transient descendants in the attic; this resurrects
		// the removed nodes.
		removed, err := r.mgr.DescendantTransientsInAttic(r.target.ID).Collect()
		if err != nil {
			return disposals, err
		}
		for _, st := range removed {
			d, err := r.mgr.DisposeTransientInAttic(st)
			if err != nil {
				return disposals, err
			}
			disposals = append(disposals, d)
		}
	}

	return disposals, nil
}
