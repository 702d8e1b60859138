package state

import (
	"fmt"
	"testing"

	"github.com/leachuk/jackrabbit/internal/nodeid"
)

// fakeBase is an in-memory base tree for overlay tests.
type fakeBase struct {
	nodes map[nodeid.ID]*NodeState
}

func newFakeBase() *fakeBase {
	return &fakeBase{nodes: make(map[nodeid.ID]*NodeState)}
}

func (f *fakeBase) Base(id nodeid.ID) (*NodeState, error) {
	st, ok := f.nodes[id]
	if !ok {
		return nil, nil
	}
	return st.Clone(), nil
}

func (f *fakeBase) add(st *NodeState) *NodeState {
	f.nodes[st.ID] = st
	return st
}

func baseNode(parent nodeid.ID, name string) *NodeState {
	return &NodeState{
		ID:       nodeid.New(),
		ParentID: parent,
		Name:     name,
		IsNode:   true,
		Status:   StatusExisting,
	}
}

// transientOver creates an ExistingModified shadow of a base state and puts
// it in the live set.
func transientOver(t *testing.T, m *Manager, base *NodeState) *NodeState {
	t.Helper()
	tr := base.Clone()
	tr.Overlayed = base
	tr.Status = StatusExistingModified
	if err := m.PutTransient(tr); err != nil {
		t.Fatalf("PutTransient failed: %v", err)
	}
	return tr
}

func TestDisposeTransientReverts(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	a := base.add(baseNode(root.ID, "a"))

	m := NewManager(base)
	tr := transientOver(t, m, a)

	d, err := m.DisposeTransient(tr)
	if err != nil {
		t.Fatalf("DisposeTransient failed: %v", err)
	}
	if d.Outcome != OutcomeReverted {
		t.Errorf("expected reverted, got %s", d.Outcome)
	}
	if d.Base == nil || d.Base.ID != a.ID {
		t.Error("expected base state in disposal")
	}
	if _, ok := m.Transient(a.ID); ok {
		t.Error("entry still in live set after disposal")
	}
}

func TestDisposeTransientInvalidatesNew(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))

	m := NewManager(base)
	fresh := &NodeState{ID: nodeid.New(), ParentID: root.ID, Name: "n", IsNode: true, Status: StatusNew}
	if err := m.PutTransient(fresh); err != nil {
		t.Fatalf("PutTransient failed: %v", err)
	}

	d, err := m.DisposeTransient(fresh)
	if err != nil {
		t.Fatalf("DisposeTransient failed: %v", err)
	}
	if d.Outcome != OutcomeInvalidated {
		t.Errorf("expected invalidated, got %s", d.Outcome)
	}
}

func TestDisposeTransientInvalidatesWhenBaseGone(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	a := base.add(baseNode(root.ID, "a"))

	m := NewManager(base)
	tr := transientOver(t, m, a)
	tr.Status = StatusStaleDestroyed
	delete(base.nodes, a.ID)

	d, err := m.DisposeTransient(tr)
	if err != nil {
		t.Fatalf("DisposeTransient failed: %v", err)
	}
	if d.Outcome != OutcomeInvalidated {
		t.Errorf("expected invalidated, got %s", d.Outcome)
	}
}

func TestDisposeTransientNotPresent(t *testing.T) {
	base := newFakeBase()
	m := NewManager(base)
	st := &NodeState{ID: nodeid.New(), Status: StatusNew}
	if _, err := m.DisposeTransient(st); err == nil {
		t.Error("expected error disposing unknown entry")
	}
}

func TestAtticExclusivity(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	a := base.add(baseNode(root.ID, "a"))

	m := NewManager(base)
	tr := transientOver(t, m, a)
	if err := m.MoveToAttic(tr); err != nil {
		t.Fatalf("MoveToAttic failed: %v", err)
	}

	if _, ok := m.Transient(a.ID); ok {
		t.Error("entry in live set after move to attic")
	}
	if _, ok := m.InAttic(a.ID); !ok {
		t.Error("entry not in attic after move")
	}

	// An attic resident cannot re-enter the live set.
	if err := m.PutTransient(tr); err == nil {
		t.Error("expected PutTransient to reject attic resident")
	}
}

func TestDisposeTransientInAtticResurrects(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	a := base.add(baseNode(root.ID, "a"))

	m := NewManager(base)
	tr := transientOver(t, m, a)
	if err := m.MoveToAttic(tr); err != nil {
		t.Fatalf("MoveToAttic failed: %v", err)
	}

	d, err := m.DisposeTransientInAttic(tr)
	if err != nil {
		t.Fatalf("DisposeTransientInAttic failed: %v", err)
	}
	if d.Outcome != OutcomeResurrected {
		t.Errorf("expected resurrected, got %s", d.Outcome)
	}
	if m.AtticCount() != 0 {
		t.Error("attic not empty after disposal")
	}
}

func TestDisposeAllTransient(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	a := base.add(baseNode(root.ID, "a"))
	b := base.add(baseNode(root.ID, "b"))

	m := NewManager(base)
	transientOver(t, m, a)
	trB := transientOver(t, m, b)
	if err := m.MoveToAttic(trB); err != nil {
		t.Fatalf("MoveToAttic failed: %v", err)
	}

	disposals, err := m.DisposeAllTransient()
	if err != nil {
		t.Fatalf("DisposeAllTransient failed: %v", err)
	}
	if len(disposals) != 2 {
		t.Errorf("expected 2 disposals, got %d", len(disposals))
	}
	if m.HasTransient() {
		t.Error("overlay not empty after total disposal")
	}
}

// flakyBase fails base reads for one id.
type flakyBase struct {
	*fakeBase
	failID nodeid.ID
}

func (f *flakyBase) Base(id nodeid.ID) (*NodeState, error) {
	if id == f.failID {
		return nil, fmt.Errorf("backing store unavailable")
	}
	return f.fakeBase.Base(id)
}

func TestDisposeAllTransientTotalOnBaseError(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	a := base.add(baseNode(root.ID, "a"))
	b := base.add(baseNode(root.ID, "b"))

	m := NewManager(&flakyBase{fakeBase: base, failID: a.ID})
	transientOver(t, m, a)
	transientOver(t, m, b)

	_, err := m.DisposeAllTransient()
	if err == nil {
		t.Fatal("expected base-read error")
	}
	// The discard is total regardless of where the outcome pass failed.
	if m.HasTransient() {
		t.Error("overlay not empty after failed total disposal")
	}
}

func TestDescendantTransients(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	p := base.add(baseNode(root.ID, "p"))
	c := base.add(baseNode(p.ID, "c"))
	gc := base.add(baseNode(c.ID, "gc"))
	sibling := base.add(baseNode(root.ID, "sibling"))

	m := NewManager(base)
	transientOver(t, m, c)
	transientOver(t, m, gc)
	transientOver(t, m, sibling)

	got, err := m.DescendantTransients(p.ID).Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 descendants, got %d", len(got))
	}
	for _, st := range got {
		if st.ID != c.ID && st.ID != gc.ID {
			t.Errorf("unexpected descendant %s", st.ID)
		}
	}
}

func TestDescendantTransientsInAttic(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	p := base.add(baseNode(root.ID, "p"))
	c := base.add(baseNode(p.ID, "c"))

	m := NewManager(base)
	tr := transientOver(t, m, c)
	if err := m.MoveToAttic(tr); err != nil {
		t.Fatalf("MoveToAttic failed: %v", err)
	}

	live, err := m.DescendantTransients(p.ID).Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(live) != 0 {
		t.Errorf("attic entry leaked into live enumeration")
	}

	attic, err := m.DescendantTransientsInAttic(p.ID).Collect()
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(attic) != 1 || attic[0].ID != c.ID {
		t.Errorf("expected attic descendant %s, got %v", c.ID, attic)
	}
}

func TestWalkFailsFastOnMutation(t *testing.T) {
	base := newFakeBase()
	root := base.add(baseNode(nodeid.Zero, ""))
	p := base.add(baseNode(root.ID, "p"))
	c1 := base.add(baseNode(p.ID, "c1"))
	c2 := base.add(baseNode(p.ID, "c2"))

	m := NewManager(base)
	transientOver(t, m, c1)
	transientOver(t, m, c2)

	w := m.DescendantTransients(p.ID)
	if _, ok := w.Next(); !ok {
		t.Fatal("expected at least one descendant")
	}

	// Mutate the overlay mid-walk; the next step must panic.
	fresh := &NodeState{ID: nodeid.New(), ParentID: p.ID, Name: "n", IsNode: true, Status: StatusNew}
	if err := m.PutTransient(fresh); err != nil {
		t.Fatalf("PutTransient failed: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic on mutated walk")
		}
	}()
	w.Next()
}
