package cas

import (
	"bytes"
	"path/filepath"
	"testing"

	"go.etcd.io/bbolt"
)

func testRoundTrip(t *testing.T, c CAS) {
	t.Helper()

	data := []byte("hello transient world")
	hash := SumB3(data)

	ok, err := c.Has(hash)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if ok {
		t.Fatal("blob present before Put")
	}

	if err := c.Put(hash, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ok, err = c.Has(hash)
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !ok {
		t.Fatal("blob missing after Put")
	}

	got, err := c.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: %q vs %q", got, data)
	}

	// Wrong hash is rejected before anything is stored.
	if err := c.Put(SumB3([]byte("other")), data); err == nil {
		t.Error("expected hash mismatch error")
	}

	if _, err := c.Get(SumB3([]byte("missing"))); err == nil {
		t.Error("expected error for unknown hash")
	}
}

func TestMemoryCAS(t *testing.T) {
	testRoundTrip(t, NewMemoryCAS())
}

func TestBoltCAS(t *testing.T) {
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "blobs.db"), 0600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open failed: %v", err)
	}
	defer db.Close()

	c, err := NewBoltCAS(db)
	if err != nil {
		t.Fatalf("NewBoltCAS failed: %v", err)
	}
	testRoundTrip(t, c)
}

func TestMemoryCASCopiesData(t *testing.T) {
	c := NewMemoryCAS()
	data := []byte("mutable")
	hash := SumB3(data)
	if err := c.Put(hash, data); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data[0] = 'X'
	got, err := c.Get(hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got[0] != 'm' {
		t.Error("stored blob aliased the caller's buffer")
	}
}

func TestHashString(t *testing.T) {
	var zero Hash
	if !zero.IsZero() {
		t.Error("zero hash not reported as zero")
	}
	h := SumB3([]byte("x"))
	if h.IsZero() {
		t.Error("real hash reported as zero")
	}
	if len(h.String()) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h.String()))
	}
}
