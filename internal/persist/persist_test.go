package persist

import (
	"path/filepath"
	"testing"

	"github.com/leachuk/jackrabbit/internal/cas"
	"github.com/leachuk/jackrabbit/internal/nodeid"
	"github.com/leachuk/jackrabbit/internal/state"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "repository.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenInitializesRoot(t *testing.T) {
	s := openTestStore(t)

	if s.RootID().IsZero() {
		t.Fatal("root id not assigned")
	}
	root, err := s.Node(s.RootID())
	if err != nil {
		t.Fatalf("Node failed: %v", err)
	}
	if root == nil {
		t.Fatal("root record missing")
	}
	if !root.IsRoot() || !root.IsNode {
		t.Errorf("unexpected root record %+v", root)
	}

	rev, err := s.Revision()
	if err != nil {
		t.Fatalf("Revision failed: %v", err)
	}
	if rev != 0 {
		t.Errorf("expected revision 0, got %d", rev)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "repository.db")

	s1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	rootID := s1.RootID()
	s1.Close()

	s2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	if s2.RootID() != rootID {
		t.Errorf("root id changed across opens: %s vs %s", rootID, s2.RootID())
	}
}

func TestApplyRoundTrip(t *testing.T) {
	s := openTestStore(t)

	child := &state.NodeState{
		ID:       nodeid.New(),
		ParentID: s.RootID(),
		Name:     "content",
		IsNode:   true,
		Status:   state.StatusNew,
	}
	leaf := &state.NodeState{
		ID:       nodeid.New(),
		ParentID: child.ID,
		Name:     "title",
		Status:   state.StatusNew,
		Value:    cas.SumB3([]byte("hello")),
	}
	child.AddChild("title", leaf.ID)

	root, err := s.Node(s.RootID())
	if err != nil {
		t.Fatalf("Node failed: %v", err)
	}
	root.AddChild("content", child.ID)

	rev, err := s.Apply(Changeset{Upserts: []*state.NodeState{root, child, leaf}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if rev != 1 {
		t.Errorf("expected revision 1, got %d", rev)
	}

	got, err := s.Node(child.ID)
	if err != nil {
		t.Fatalf("Node failed: %v", err)
	}
	if got.Name != "content" || got.ParentID != s.RootID() || !got.IsNode {
		t.Errorf("unexpected record %+v", got)
	}
	if len(got.Children) != 1 || got.Children[0].Name != "title" || got.Children[0].ID != leaf.ID {
		t.Errorf("unexpected children %+v", got.Children)
	}
	if got.Status != state.StatusExisting {
		t.Errorf("base states must decode as existing, got %s", got.Status)
	}

	gotLeaf, err := s.Node(leaf.ID)
	if err != nil {
		t.Fatalf("Node failed: %v", err)
	}
	if gotLeaf.IsNode || gotLeaf.Value != leaf.Value {
		t.Errorf("unexpected leaf record %+v", gotLeaf)
	}
}

func TestApplyRemoves(t *testing.T) {
	s := openTestStore(t)

	child := &state.NodeState{ID: nodeid.New(), ParentID: s.RootID(), Name: "a", IsNode: true}
	if _, err := s.Apply(Changeset{Upserts: []*state.NodeState{child}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, err := s.Apply(Changeset{Removes: []nodeid.ID{child.ID}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	got, err := s.Node(child.ID)
	if err != nil {
		t.Fatalf("Node failed: %v", err)
	}
	if got != nil {
		t.Error("removed node still present")
	}

	rev, err := s.Revision()
	if err != nil {
		t.Fatalf("Revision failed: %v", err)
	}
	if rev != 2 {
		t.Errorf("expected revision 2, got %d", rev)
	}
}

func TestChecksumTracksContent(t *testing.T) {
	s := openTestStore(t)

	child := &state.NodeState{ID: nodeid.New(), ParentID: s.RootID(), Name: "a", IsNode: true}
	if _, err := s.Apply(Changeset{Upserts: []*state.NodeState{child}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	before, exists, err := s.Checksum(child.ID)
	if err != nil || !exists {
		t.Fatalf("Checksum failed: %v (exists=%v)", err, exists)
	}
	if before != StateChecksum(child) {
		t.Error("stored checksum does not match canonical state checksum")
	}

	child.AddChild("b", nodeid.New())
	if _, err := s.Apply(Changeset{Upserts: []*state.NodeState{child}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	after, exists, err := s.Checksum(child.ID)
	if err != nil || !exists {
		t.Fatalf("Checksum failed: %v (exists=%v)", err, exists)
	}
	if after == before {
		t.Error("checksum unchanged after modification")
	}

	_, exists, err = s.Checksum(nodeid.New())
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	if exists {
		t.Error("checksum reported for unknown node")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	st := &state.NodeState{
		ID:       nodeid.New(),
		ParentID: nodeid.New(),
		Name:     "article",
		IsNode:   true,
		Children: []state.ChildEntry{
			{Name: "title", ID: nodeid.New()},
			{Name: "body", ID: nodeid.New()},
			{Name: "body", ID: nodeid.New()}, // same-name sibling
		},
	}

	got, err := DecodeState(EncodeState(st))
	if err != nil {
		t.Fatalf("DecodeState failed: %v", err)
	}
	if got.ID != st.ID || got.ParentID != st.ParentID || got.Name != st.Name || !got.IsNode {
		t.Errorf("header mismatch: %+v", got)
	}
	if len(got.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(got.Children))
	}
	for i := range st.Children {
		if got.Children[i] != st.Children[i] {
			t.Errorf("child %d mismatch: %+v vs %+v", i, got.Children[i], st.Children[i])
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeState(nil); err == nil {
		t.Error("expected error for empty record")
	}
	if _, err := DecodeState([]byte{0x7f, 1, 2, 3}); err == nil {
		t.Error("expected error for unknown version")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	st := &state.NodeState{
		ID:       nodeid.New(),
		ParentID: nodeid.New(),
		Name:     "article",
		IsNode:   true,
		Children: []state.ChildEntry{{Name: "title", ID: nodeid.New()}},
	}
	full := EncodeState(st)

	// Every proper prefix must fail, including cuts inside the fixed-width
	// value hash and inside the trailing child entry.
	for cut := 0; cut < len(full); cut++ {
		if _, err := DecodeState(full[:cut]); err == nil {
			t.Errorf("truncated record of %d/%d bytes decoded without error", cut, len(full))
		}
	}
}
