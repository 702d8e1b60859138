// Package persist implements the shared persistent base tree: durable node
// records in a bbolt database, a repository revision counter, and the commit
// entry point that makes one session's saved changes visible to others.
package persist

import (
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/leachuk/jackrabbit/internal/cas"
	"github.com/leachuk/jackrabbit/internal/nodeid"
	"github.com/leachuk/jackrabbit/internal/state"
)

// Buckets
var (
	BucketNodes  = []byte("nodes")  // node id -> canonical record
	BucketConfig = []byte("config") // repository configuration
)

// Config keys
var (
	keyRoot     = []byte("root")
	keyRevision = []byte("revision")
	keyFormat   = []byte("format")
)

const formatVersion = "1"

// Store is the persistent base tree. One Store may back many sessions; bbolt
// serializes writers.
type Store struct {
	db   *bbolt.DB
	root nodeid.ID
}

// Open opens (or initializes) a repository database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0666, nil)
	if err != nil {
		return nil, fmt.Errorf("open repository db: %w", err)
	}

	s := &Store{db: db}
	if err := db.Update(func(tx *bbolt.Tx) error {
		nodes, err := tx.CreateBucketIfNotExists(BucketNodes)
		if err != nil {
			return err
		}
		config, err := tx.CreateBucketIfNotExists(BucketConfig)
		if err != nil {
			return err
		}

		if v := config.Get(keyRoot); v != nil {
			copy(s.root[:], v)
			return nil
		}

		// Fresh repository: create the root node.
		s.root = nodeid.New()
		root := &state.NodeState{
			ID:     s.root,
			IsNode: true,
			Status: state.StatusExisting,
		}
		if err := nodes.Put(s.root[:], EncodeState(root)); err != nil {
			return err
		}
		if err := config.Put(keyRoot, s.root[:]); err != nil {
			return err
		}
		if err := config.Put(keyRevision, encodeRevision(0)); err != nil {
			return err
		}
		return config.Put(keyFormat, []byte(formatVersion))
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize repository: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying database so sibling stores (values, versions)
// can share the file.
func (s *Store) DB() *bbolt.DB { return s.db }

// RootID returns the id of the tree root.
func (s *Store) RootID() nodeid.ID { return s.root }

// Revision returns the current repository revision. It increases by one for
// every applied changeset.
func (s *Store) Revision() (uint64, error) {
	var rev uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketConfig).Get(keyRevision)
		if v == nil {
			return fmt.Errorf("revision missing from config")
		}
		rev = binary.BigEndian.Uint64(v)
		return nil
	})
	return rev, err
}

// Node reads the base state of a node. It returns nil, nil when the node
// does not exist.
func (s *Store) Node(id nodeid.ID) (*state.NodeState, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketNodes).Get(id[:])
		if v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	st, err := DecodeState(raw)
	if err != nil {
		return nil, fmt.Errorf("decode node %s: %w", id, err)
	}
	return st, nil
}

// Base implements state.BaseReader.
func (s *Store) Base(id nodeid.ID) (*state.NodeState, error) {
	return s.Node(id)
}

// Checksum returns the BLAKE3 checksum of a node's stored record. The second
// result reports whether the node exists.
func (s *Store) Checksum(id nodeid.ID) (cas.Hash, bool, error) {
	var (
		sum    cas.Hash
		exists bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketNodes).Get(id[:])
		if v == nil {
			return nil
		}
		exists = true
		sum = cas.SumB3(v)
		return nil
	})
	return sum, exists, err
}

// Changeset is one session's saved edits, applied atomically.
type Changeset struct {
	Upserts []*state.NodeState // added and modified nodes, final shape
	Removes []nodeid.ID        // removed nodes
}

// Apply writes the changeset in a single transaction and bumps the
// repository revision. It returns the new revision.
func (s *Store) Apply(cs Changeset) (uint64, error) {
	var rev uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		nodes := tx.Bucket(BucketNodes)
		for _, st := range cs.Upserts {
			if err := nodes.Put(st.ID[:], EncodeState(st)); err != nil {
				return fmt.Errorf("write node %s: %w", st.ID, err)
			}
		}
		for _, id := range cs.Removes {
			if err := nodes.Delete(id[:]); err != nil {
				return fmt.Errorf("remove node %s: %w", id, err)
			}
		}

		config := tx.Bucket(BucketConfig)
		v := config.Get(keyRevision)
		if v == nil {
			return fmt.Errorf("revision missing from config")
		}
		rev = binary.BigEndian.Uint64(v) + 1
		return config.Put(keyRevision, encodeRevision(rev))
	})
	if err != nil {
		return 0, err
	}
	return rev, nil
}

func encodeRevision(rev uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, rev)
	return buf
}
