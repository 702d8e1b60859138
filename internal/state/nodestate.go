// Package state implements the session-local transient overlay: the node
// state model, the overlay manager owning the live transient set and the
// attic, and the disposal protocol that reverts or invalidates entries.
package state

import (
	"github.com/leachuk/jackrabbit/internal/cas"
	"github.com/leachuk/jackrabbit/internal/nodeid"
)

// ChildEntry is one slot in a container's ordered child listing. Several
// entries may share a name; their order determines same-name-sibling indexes.
type ChildEntry struct {
	Name string
	ID   nodeid.ID
}

// NodeState is one node's entry in the overlay or the persistent base.
//
// ParentID is zero only for the tree root. Overlayed points at a snapshot of
// the persistent base state this entry shadows; it is nil exactly when the
// status is StatusNew.
type NodeState struct {
	ID       nodeid.ID
	ParentID nodeid.ID
	Name     string
	IsNode   bool
	Status   Status

	// Children is the ordered child listing, containers only.
	Children []ChildEntry

	// Value is the content hash of a leaf entry's value.
	Value cas.Hash

	Overlayed *NodeState
}

// IsRoot reports whether the state describes the tree root.
func (s *NodeState) IsRoot() bool {
	return s.ParentID.IsZero()
}

// HasOverlay reports whether the entry shadows a persistent base state.
func (s *NodeState) HasOverlay() bool {
	return s.Overlayed != nil
}

// Clone returns a deep copy. The Overlayed snapshot is shared, not copied;
// it is immutable once taken.
func (s *NodeState) Clone() *NodeState {
	c := *s
	if s.Children != nil {
		c.Children = make([]ChildEntry, len(s.Children))
		copy(c.Children, s.Children)
	}
	return &c
}

// ChildID returns the id of the idx-th (one-based) child named name, or a
// zero id when no such child exists.
func (s *NodeState) ChildID(name string, idx int) nodeid.ID {
	if idx < 1 {
		idx = 1
	}
	seen := 0
	for _, c := range s.Children {
		if c.Name == name {
			seen++
			if seen == idx {
				return c.ID
			}
		}
	}
	return nodeid.Zero
}

// AddChild appends a child entry to the listing.
func (s *NodeState) AddChild(name string, id nodeid.ID) {
	s.Children = append(s.Children, ChildEntry{Name: name, ID: id})
}

// RemoveChild removes the child entry with the given id, preserving order.
// It reports whether an entry was removed.
func (s *NodeState) RemoveChild(id nodeid.ID) bool {
	for i, c := range s.Children {
		if c.ID == id {
			s.Children = append(s.Children[:i], s.Children[i+1:]...)
			return true
		}
	}
	return false
}
