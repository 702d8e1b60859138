package operation

import (
	"fmt"

	"github.com/leachuk/jackrabbit/internal/nodeid"
	"github.com/leachuk/jackrabbit/internal/path"
)

// Move relocates a subtree under a new parent. The value is produced by
// CreateMove after validation and carries everything the applying visitor
// needs: the moved node, both parents, the destination name, and the affected
// ids for downstream conflict and lock checking.
type Move struct {
	srcID        nodeid.ID
	srcParentID  nodeid.ID
	destParentID nodeid.ID
	destName     string

	affected []nodeid.ID
}

// CreateMove validates a proposed relocation and resolves the affected nodes.
// No overlay state is touched; application is a separate step.
func CreateMove(srcPath, destPath string, resolver path.Resolver) (*Move, error) {
	src, err := path.Parse(srcPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	dest, err := path.Parse(destPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}

	// Source must not be an ancestor of (or equal to) the destination.
	if src.Equal(dest) || src.IsAncestorOf(dest) {
		return nil, fmt.Errorf("%w: cannot be descendant of source path (%s, %s)",
			ErrInvalidDestination, dest, src)
	}

	// The destination must be expressed as a bare name.
	if dest.NameElement().Index > path.IndexUndefined {
		return nil, fmt.Errorf("%w: subscript in name element is not allowed (%s)",
			ErrInvalidDestination, dest)
	}

	// The root node cannot be moved.
	if src.IsRoot() || dest.IsRoot() {
		return nil, fmt.Errorf("%w: cannot move the root node", ErrInvalidDestination)
	}

	srcID, err := resolver.Resolve(src)
	if err != nil {
		return nil, fmt.Errorf("resolve source path %s: %w", src, err)
	}
	srcParent, _ := src.Parent()
	srcParentID, err := resolver.Resolve(srcParent)
	if err != nil {
		return nil, fmt.Errorf("resolve source parent path %s: %w", srcParent, err)
	}
	destParent, _ := dest.Parent()
	destParentID, err := resolver.Resolve(destParent)
	if err != nil {
		return nil, fmt.Errorf("resolve destination parent path %s: %w", destParent, err)
	}

	return &Move{
		srcID:        srcID,
		srcParentID:  srcParentID,
		destParentID: destParentID,
		destName:     dest.NameElement().Name,
		affected:     []nodeid.ID{srcID, srcParentID, destParentID},
	}, nil
}

// NodeID returns the id of the moved node.
func (m *Move) NodeID() nodeid.ID { return m.srcID }

// SourceParentID returns the id of the parent the node is moved away from.
func (m *Move) SourceParentID() nodeid.ID { return m.srcParentID }

// DestinationParentID returns the id of the parent the node is moved under.
func (m *Move) DestinationParentID() nodeid.ID { return m.destParentID }

// DestinationName returns the node's name under the new parent.
func (m *Move) DestinationName() string { return m.destName }

// AffectedIDs returns the ids whose state the move touches.
func (m *Move) AffectedIDs() []nodeid.ID { return m.affected }
