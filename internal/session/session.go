// Package session implements the client-facing session: the edit surface
// over the transient overlay (add, set, remove, move), the refresh protocol
// entry point, and save, which promotes transient state to the persistent
// base.
//
// Each session owns its overlay exclusively. Cross-session concurrency exists
// only at the persistent base: another session's save is what makes this
// session's entries stale, detected by the stale sweep before refresh.
package session

import (
	"errors"
	"fmt"

	"github.com/leachuk/jackrabbit/internal/cas"
	"github.com/leachuk/jackrabbit/internal/nodeid"
	"github.com/leachuk/jackrabbit/internal/operation"
	"github.com/leachuk/jackrabbit/internal/path"
	"github.com/leachuk/jackrabbit/internal/persist"
	"github.com/leachuk/jackrabbit/internal/state"
	"github.com/leachuk/jackrabbit/internal/version"
)

// Session errors.
var (
	ErrNotFound  = errors.New("no such node")
	ErrStale     = errors.New("cannot save a stale item, refresh the item first")
	ErrRoot      = errors.New("operation not allowed on the root node")
	ErrDependent = errors.New("cannot save an item that depends on unsaved changes to its parent, save the parent instead")
)

// Session is one client's view of the repository: the shared persistent base
// plus this session's uncommitted overlay.
type Session struct {
	Store  *persist.Store
	Values cas.CAS

	// Versions, when set, receives a checkpoint for every saved subtree.
	Versions *version.Store

	mgr     *state.Manager
	handles map[nodeid.ID]*Handle
}

// Open creates a session over the given base store and value store.
func Open(store *persist.Store, values cas.CAS) *Session {
	return &Session{
		Store:   store,
		Values:  values,
		mgr:     state.NewManager(store),
		handles: make(map[nodeid.ID]*Handle),
	}
}

// Manager exposes the overlay manager, mainly for tests and diagnostics.
func (s *Session) Manager() *state.Manager { return s.mgr }

// nodeState returns the overlay-aware current state of a node: the live
// transient entry if one exists, the base state otherwise. Attic entries are
// not visible. Returns nil, nil when the node does not exist.
func (s *Session) nodeState(id nodeid.ID) (*state.NodeState, error) {
	if st, ok := s.mgr.Transient(id); ok {
		return st, nil
	}
	if _, ok := s.mgr.InAttic(id); ok {
		return nil, nil
	}
	return s.Store.Node(id)
}

// Resolve implements path.Resolver against the overlay-aware tree.
func (s *Session) Resolve(p path.Path) (nodeid.ID, error) {
	cur := s.Store.RootID()
	for _, elem := range p.Elements() {
		st, err := s.nodeState(cur)
		if err != nil {
			return nodeid.Zero, err
		}
		if st == nil || !st.IsNode {
			return nodeid.Zero, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		child := st.ChildID(elem.Name, elem.NormalizedIndex())
		if child.IsZero() {
			return nodeid.Zero, fmt.Errorf("%w: %s (no item %s)", ErrNotFound, p, elem)
		}
		cur = child
	}
	return cur, nil
}

// Node resolves a path string to the node's current overlay-aware state.
func (s *Session) Node(pathStr string) (*state.NodeState, error) {
	p, err := path.Parse(pathStr)
	if err != nil {
		return nil, err
	}
	id, err := s.Resolve(p)
	if err != nil {
		return nil, err
	}
	st, err := s.nodeState(id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pathStr)
	}
	return st, nil
}

// NodeByID returns the overlay-aware current state of a node by id.
func (s *Session) NodeByID(id nodeid.ID) (*state.NodeState, error) {
	st, err := s.nodeState(id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return st, nil
}

// cow returns the live transient entry for a node, creating a copy-on-write
// shadow of the given current state if none exists yet. The caller must have
// verified the node is not in the attic; with that established, cow cannot
// fail.
func (s *Session) cow(st *state.NodeState) *state.NodeState {
	if existing, ok := s.mgr.Transient(st.ID); ok {
		return existing
	}
	shadow := st.Clone()
	shadow.Overlayed = st
	shadow.Status = state.StatusExistingModified
	// Only fails for attic residents, excluded above.
	_ = s.mgr.PutTransient(shadow)
	return shadow
}

// transientFor fetches the node's current state and returns its live
// transient entry, creating one if needed.
func (s *Session) transientFor(id nodeid.ID) (*state.NodeState, error) {
	st, err := s.nodeState(id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.cow(st), nil
}

// AddNode creates a new container node under parentPath.
func (s *Session) AddNode(parentPath, name string) (*state.NodeState, error) {
	p, err := path.Parse(parentPath)
	if err != nil {
		return nil, err
	}
	parentID, err := s.Resolve(p)
	if err != nil {
		return nil, err
	}
	parent, err := s.nodeState(parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil || !parent.IsNode {
		return nil, fmt.Errorf("%w: %s is not a container", ErrNotFound, parentPath)
	}

	parentT := s.cow(parent)
	child := &state.NodeState{
		ID:       nodeid.New(),
		ParentID: parentT.ID,
		Name:     name,
		IsNode:   true,
		Status:   state.StatusNew,
	}
	if err := s.mgr.PutTransient(child); err != nil {
		return nil, err
	}
	parentT.AddChild(name, child.ID)
	return child, nil
}

// SetValue creates or updates the leaf entry addressed by pathStr. The value
// bytes are stored content-addressed; the entry records the hash.
func (s *Session) SetValue(pathStr string, value []byte) (*state.NodeState, error) {
	p, err := path.Parse(pathStr)
	if err != nil {
		return nil, err
	}
	if p.IsRoot() {
		return nil, fmt.Errorf("%w: set value", ErrRoot)
	}

	hash := cas.SumB3(value)
	if err := s.Values.Put(hash, value); err != nil {
		return nil, fmt.Errorf("store value: %w", err)
	}

	parentPath, _ := p.Parent()
	parentID, err := s.Resolve(parentPath)
	if err != nil {
		return nil, err
	}
	parent, err := s.nodeState(parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil || !parent.IsNode {
		return nil, fmt.Errorf("%w: %s is not a container", ErrNotFound, parentPath)
	}

	elem := p.NameElement()
	parentT := s.cow(parent)

	if existing := parentT.ChildID(elem.Name, elem.NormalizedIndex()); !existing.IsZero() {
		st, err := s.transientFor(existing)
		if err != nil {
			return nil, err
		}
		if st.IsNode {
			return nil, fmt.Errorf("cannot set a value on container node %s", pathStr)
		}
		st.Value = hash
		return st, nil
	}

	entry := &state.NodeState{
		ID:       nodeid.New(),
		ParentID: parentT.ID,
		Name:     elem.Name,
		IsNode:   false,
		Status:   state.StatusNew,
		Value:    hash,
	}
	if err := s.mgr.PutTransient(entry); err != nil {
		return nil, err
	}
	parentT.AddChild(elem.Name, entry.ID)
	return entry, nil
}

// Value returns the value bytes of a leaf entry.
func (s *Session) Value(pathStr string) ([]byte, error) {
	st, err := s.Node(pathStr)
	if err != nil {
		return nil, err
	}
	if st.IsNode {
		return nil, fmt.Errorf("node %s is a container, not a value", pathStr)
	}
	return s.Values.Get(st.Value)
}

// Remove removes the subtree at pathStr from the session's view. Base-backed
// entries move to the attic and can be resurrected by refreshing an ancestor
// before save; never-persisted entries are invalidated outright.
func (s *Session) Remove(pathStr string) error {
	p, err := path.Parse(pathStr)
	if err != nil {
		return err
	}
	if p.IsRoot() {
		return fmt.Errorf("%w: remove", ErrRoot)
	}
	id, err := s.Resolve(p)
	if err != nil {
		return err
	}

	subtree, err := s.collectSubtree(id)
	if err != nil {
		return err
	}

	// Unlink from the parent first; the subtree then becomes unreachable.
	target := subtree[0]
	parentT, err := s.transientFor(target.ParentID)
	if err != nil {
		return err
	}
	parentT.RemoveChild(id)

	for _, st := range subtree {
		if tr, ok := s.mgr.Transient(st.ID); ok && tr.Status == state.StatusNew {
			// Never persisted: nothing to resurrect, gone for good.
			d, err := s.mgr.DisposeTransient(tr)
			if err != nil {
				return err
			}
			s.applyDisposal(d)
			continue
		}
		tr := s.cow(st)
		if err := s.mgr.MoveToAttic(tr); err != nil {
			return err
		}
	}
	return nil
}

// collectSubtree returns the overlay-aware states of a node and all its
// descendants, parents before children.
func (s *Session) collectSubtree(id nodeid.ID) ([]*state.NodeState, error) {
	st, err := s.nodeState(id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := []*state.NodeState{st}
	if st.IsNode {
		for _, c := range st.Children {
			sub, err := s.collectSubtree(c.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// Move relocates the subtree at srcPath under the parent named by destPath.
// Validation is pure; once it passes, application mutates the overlay
// atomically across the three affected nodes.
func (s *Session) Move(srcPath, destPath string) (*operation.Move, error) {
	op, err := operation.CreateMove(srcPath, destPath, s)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyMove(op); err != nil {
		return nil, err
	}
	return op, nil
}

// ApplyMove is the visiting collaborator for a validated move: it re-points
// the moved node's parent linkage, renames it, and fixes both child listings.
// All lookups happen before the first mutation, so a failure leaves the
// overlay unchanged.
func (s *Session) ApplyMove(op *operation.Move) error {
	if op.NodeID() == s.Store.RootID() {
		return fmt.Errorf("%w: move", ErrRoot)
	}

	src, err := s.nodeState(op.NodeID())
	if err != nil {
		return err
	}
	srcParent, err := s.nodeState(op.SourceParentID())
	if err != nil {
		return err
	}
	destParent, err := s.nodeState(op.DestinationParentID())
	if err != nil {
		return err
	}
	if src == nil || srcParent == nil || destParent == nil {
		return fmt.Errorf("%w: move endpoints", ErrNotFound)
	}
	if !destParent.IsNode {
		return fmt.Errorf("destination parent %s is not a container", op.DestinationParentID())
	}

	// Mutation: in-memory only from here on, applied to all three or none.
	srcT := s.cow(src)
	srcParentT := s.cow(srcParent)
	destParentT := s.cow(destParent)

	srcParentT.RemoveChild(srcT.ID)
	destParentT.AddChild(op.DestinationName(), srcT.ID)
	srcT.ParentID = destParentT.ID
	srcT.Name = op.DestinationName()
	return nil
}

// Refresh reconciles the subtree at pathStr with the persistent base. A
// stale sweep runs first so that entries invalidated by other sessions'
// saves are classified correctly.
func (s *Session) Refresh(pathStr string) error {
	st, err := s.Node(pathStr)
	if err != nil {
		return err
	}
	if err := s.sweepStale(); err != nil {
		return err
	}

	disposals, err := operation.NewRefresh(s.mgr, st).Perform()
	for _, d := range disposals {
		s.applyDisposal(d)
	}
	return err
}

// RefreshAll discards every transient entry in the session.
func (s *Session) RefreshAll() error {
	return s.Refresh("/")
}

// sweepStale re-classifies transient entries against the current base. This
// is the commit-visibility mechanism: checksum divergence marks a conflict,
// base disappearance marks destruction.
func (s *Session) sweepStale() error {
	for _, st := range s.mgr.LiveStates() {
		if st.Overlayed == nil {
			continue
		}
		sum, exists, err := s.Store.Checksum(st.ID)
		if err != nil {
			return fmt.Errorf("stale sweep of %s: %w", st.ID, err)
		}
		switch {
		case !exists:
			st.Status = state.StatusStaleDestroyed
		case sum != persist.StateChecksum(st.Overlayed):
			if st.Status == state.StatusExistingModified {
				st.Status = state.StatusStaleModified
			}
		}
	}
	return nil
}

// Save promotes the transient subtree at pathStr to the persistent base in
// one atomic changeset, then discards the promoted entries. Stale entries
// reject the save.
func (s *Session) Save(pathStr string) error {
	st, err := s.Node(pathStr)
	if err != nil {
		return err
	}
	if err := s.sweepStale(); err != nil {
		return err
	}

	var live, attic []*state.NodeState
	if st.IsRoot() {
		live = s.mgr.LiveStates()
		attic = s.mgr.AtticStates()
	} else {
		if tr, ok := s.mgr.Transient(st.ID); ok {
			live = append(live, tr)
		}
		desc, err := s.mgr.DescendantTransients(st.ID).Collect()
		if err != nil {
			return err
		}
		live = append(live, desc...)
		attic, err = s.mgr.DescendantTransientsInAttic(st.ID).Collect()
		if err != nil {
			return err
		}
	}

	// A subtree save must be self-contained: a new or moved entry whose
	// parent linkage is still transient outside the saved set would persist
	// a record the base child listings contradict.
	saved := make(map[nodeid.ID]bool, len(live)+len(attic))
	for _, tr := range live {
		saved[tr.ID] = true
	}
	for _, tr := range attic {
		saved[tr.ID] = true
	}
	for _, tr := range live {
		var parents []nodeid.ID
		switch {
		case tr.Status == state.StatusNew:
			parents = []nodeid.ID{tr.ParentID}
		case tr.Overlayed != nil && tr.ParentID != tr.Overlayed.ParentID:
			parents = []nodeid.ID{tr.ParentID, tr.Overlayed.ParentID}
		}
		for _, pid := range parents {
			if _, ok := s.mgr.Transient(pid); ok && !saved[pid] {
				return fmt.Errorf("%w: %s", ErrDependent, tr.ID)
			}
		}
	}

	cs := persist.Changeset{}
	for _, tr := range live {
		switch tr.Status {
		case state.StatusNew, state.StatusExistingModified:
			cs.Upserts = append(cs.Upserts, tr)
		case state.StatusStaleModified, state.StatusStaleDestroyed:
			return fmt.Errorf("%w: %s", ErrStale, tr.ID)
		}
	}
	for _, tr := range attic {
		cs.Removes = append(cs.Removes, tr.ID)
	}
	if len(cs.Upserts) == 0 && len(cs.Removes) == 0 {
		return nil
	}

	rev, err := s.Store.Apply(cs)
	if err != nil {
		return fmt.Errorf("apply changeset: %w", err)
	}

	// The promoted entries now mirror the base; drop them from the overlay.
	for _, tr := range live {
		s.mgr.Discard(tr)
	}
	for _, tr := range attic {
		s.mgr.DiscardAttic(tr)
		if h, ok := s.handles[tr.ID]; ok {
			h.valid = false
		}
	}

	if s.Versions != nil {
		if _, err := s.Versions.Checkpoint(st.ID, rev); err != nil {
			return fmt.Errorf("checkpoint %s: %w", st.ID, err)
		}
	}
	return nil
}

// SaveAll saves the whole session.
func (s *Session) SaveAll() error {
	return s.Save("/")
}

// Changes summarizes the session's uncommitted state for display.
type Changes struct {
	Live  []*state.NodeState
	Attic []*state.NodeState
}

// PendingChanges returns the current transient entries.
func (s *Session) PendingChanges() Changes {
	return Changes{Live: s.mgr.LiveStates(), Attic: s.mgr.AtticStates()}
}
