package operation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leachuk/jackrabbit/internal/nodeid"
	"github.com/leachuk/jackrabbit/internal/path"
)

// mapResolver resolves canonical path strings from a fixed table.
type mapResolver map[string]nodeid.ID

func (m mapResolver) Resolve(p path.Path) (nodeid.ID, error) {
	id, ok := m[p.String()]
	if !ok {
		return nodeid.Zero, fmt.Errorf("no such path %s", p)
	}
	return id, nil
}

func newResolver() (mapResolver, nodeid.ID, nodeid.ID, nodeid.ID) {
	srcID := nodeid.New()
	srcParentID := nodeid.New()
	destParentID := nodeid.New()
	r := mapResolver{
		"/":    nodeid.New(),
		"/a":   srcParentID,
		"/a/b": srcID,
		"/c":   destParentID,
	}
	return r, srcID, srcParentID, destParentID
}

func TestMoveCycleRejected(t *testing.T) {
	r, _, _, _ := newResolver()

	cases := [][2]string{
		{"/a/b", "/a/b/c"}, // destination inside source
		{"/a", "/a/b"},     // destination inside source, one level
		{"/a/b", "/a/b"},   // destination equals source
	}
	for _, c := range cases {
		if _, err := CreateMove(c[0], c[1], r); !errors.Is(err, ErrInvalidDestination) {
			t.Errorf("move(%s, %s): expected ErrInvalidDestination, got %v", c[0], c[1], err)
		}
	}
}

func TestMoveRootRejected(t *testing.T) {
	r, _, _, _ := newResolver()

	if _, err := CreateMove("/", "/c/b", r); !errors.Is(err, ErrInvalidDestination) {
		t.Errorf("moving the root: expected ErrInvalidDestination, got %v", err)
	}
	if _, err := CreateMove("/a/b", "/", r); !errors.Is(err, ErrInvalidDestination) {
		t.Errorf("moving onto the root: expected ErrInvalidDestination, got %v", err)
	}
}

func TestMoveIndexedDestinationRejected(t *testing.T) {
	r, _, _, _ := newResolver()

	// The subscript is rejected independent of its value, including 1.
	for _, dest := range []string{"/c/b[1]", "/c/b[2]"} {
		if _, err := CreateMove("/a/b", dest, r); !errors.Is(err, ErrInvalidDestination) {
			t.Errorf("move to %s: expected ErrInvalidDestination, got %v", dest, err)
		}
	}
}

func TestMoveMalformedPathRejected(t *testing.T) {
	r, _, _, _ := newResolver()

	for _, c := range [][2]string{
		{"a/b", "/c/b"},
		{"/a/b", "c/b"},
		{"/a//b", "/c/b"},
		{"/a/b", "/c/b[0]"},
	} {
		if _, err := CreateMove(c[0], c[1], r); !errors.Is(err, ErrInvalidDestination) {
			t.Errorf("move(%s, %s): expected ErrInvalidDestination, got %v", c[0], c[1], err)
		}
	}
}

func TestMoveResolutionErrorPropagates(t *testing.T) {
	r, _, _, _ := newResolver()

	_, err := CreateMove("/x/y", "/c/y", r)
	if err == nil {
		t.Fatal("expected resolution error")
	}
	if errors.Is(err, ErrInvalidDestination) {
		t.Errorf("resolution failure misclassified as invalid destination: %v", err)
	}
}

func TestMoveSuccess(t *testing.T) {
	r, srcID, srcParentID, destParentID := newResolver()

	m, err := CreateMove("/a/b", "/c/b", r)
	if err != nil {
		t.Fatalf("CreateMove failed: %v", err)
	}

	if m.NodeID() != srcID {
		t.Errorf("unexpected node id %s", m.NodeID())
	}
	if m.SourceParentID() != srcParentID {
		t.Errorf("unexpected source parent id %s", m.SourceParentID())
	}
	if m.DestinationParentID() != destParentID {
		t.Errorf("unexpected destination parent id %s", m.DestinationParentID())
	}
	if m.DestinationName() != "b" {
		t.Errorf("unexpected destination name %q", m.DestinationName())
	}

	affected := m.AffectedIDs()
	if len(affected) != 3 {
		t.Fatalf("expected 3 affected ids, got %d", len(affected))
	}
	want := map[nodeid.ID]bool{srcID: true, srcParentID: true, destParentID: true}
	for _, id := range affected {
		if !want[id] {
			t.Errorf("unexpected affected id %s", id)
		}
	}
}
