// Package version implements per-node version histories and label
// management over the repository database.
//
// Each versionable node has a lineage starting at a synthetic root version;
// every checkpoint appends a successor. Labels are unique names within one
// node's history that can be attached to, moved between, and removed from
// versions. The facade delegates to the store and translates missing-entry
// conditions into the package's errors.
package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/leachuk/jackrabbit/internal/nodeid"
)

// Buckets
var (
	BucketVersions = []byte("versions") // nodeID/versionName -> version record
	BucketLabels   = []byte("labels")   // nodeID/label -> version name
	BucketHeads    = []byte("heads")    // nodeID -> latest version name
)

// RootVersionName is the name of the synthetic first version of a lineage.
const RootVersionName = "root"

// Version errors.
var (
	ErrNoVersion  = errors.New("no such version")
	ErrNoLabel    = errors.New("no such version label")
	ErrLabelInUse = errors.New("version label already in use")
	ErrNoHistory  = errors.New("node has no version history")
)

// Version is one entry in a node's lineage.
type Version struct {
	Name        string    `json:"name"`
	NodeID      string    `json:"node_id"`
	Revision    uint64    `json:"revision"`
	CreatedAt   time.Time `json:"created_at"`
	Predecessor string    `json:"predecessor,omitempty"`
}

// Store manages version lineages in a bbolt database shared with the base
// store.
type Store struct {
	db *bbolt.DB
}

// NewStore creates the version buckets if needed.
func NewStore(db *bbolt.DB) (*Store, error) {
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{BucketVersions, BucketLabels, BucketHeads} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("create version buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func versionKey(id nodeid.ID, name string) []byte {
	return []byte(id.String() + "/" + name)
}

// Checkpoint appends a version to the node's lineage, creating the lineage
// (with its root version) on first use. It returns the new version.
func (s *Store) Checkpoint(id nodeid.ID, revision uint64) (*Version, error) {
	var created Version
	err := s.db.Update(func(tx *bbolt.Tx) error {
		versions := tx.Bucket(BucketVersions)
		heads := tx.Bucket(BucketHeads)

		head := heads.Get([]byte(id.String()))
		if head == nil {
			root := Version{
				Name:      RootVersionName,
				NodeID:    id.String(),
				Revision:  0,
				CreatedAt: time.Now(),
			}
			if err := putVersion(versions, id, &root); err != nil {
				return err
			}
			head = []byte(RootVersionName)
		}

		// Sequential names: 1.0, 1.1, ...
		seq := 0
		c := versions.Cursor()
		prefix := []byte(id.String() + "/")
		for k, _ := c.Seek(prefix); k != nil && len(k) > len(prefix) && string(k[:len(prefix)]) == string(prefix); k, _ = c.Next() {
			seq++
		}

		created = Version{
			Name:        fmt.Sprintf("1.%d", seq-1),
			NodeID:      id.String(),
			Revision:    revision,
			CreatedAt:   time.Now(),
			Predecessor: string(head),
		}
		if err := putVersion(versions, id, &created); err != nil {
			return err
		}
		return heads.Put([]byte(id.String()), []byte(created.Name))
	})
	if err != nil {
		return nil, fmt.Errorf("checkpoint %s: %w", id, err)
	}
	return &created, nil
}

func putVersion(b *bbolt.Bucket, id nodeid.ID, v *Version) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal version %s: %w", v.Name, err)
	}
	return b.Put(versionKey(id, v.Name), data)
}

// History returns the version-history facade for a node. The node must have
// been checkpointed at least once.
func (s *Store) History(id nodeid.ID) (*History, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(BucketHeads).Get([]byte(id.String())) != nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, id)
	}
	return &History{s: s, id: id}, nil
}

// History is the facade over one node's version lineage.
type History struct {
	s  *Store
	id nodeid.ID
}

// RootVersion returns the lineage's synthetic first version.
func (h *History) RootVersion() (*Version, error) {
	return h.Version(RootVersionName)
}

// Version returns the version with the given name.
func (h *History) Version(name string) (*Version, error) {
	var v *Version
	err := h.s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(BucketVersions).Get(versionKey(h.id, name))
		if data == nil {
			return nil
		}
		v = &Version{}
		return json.Unmarshal(data, v)
	})
	if err != nil {
		return nil, fmt.Errorf("read version %s: %w", name, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: no version with name %q exists in this history", ErrNoVersion, name)
	}
	return v, nil
}

// AllVersions returns the lineage from the root version onward, following
// successor links.
func (h *History) AllVersions() ([]*Version, error) {
	byPredecessor := make(map[string]*Version)
	var root *Version
	err := h.s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(BucketVersions).Cursor()
		prefix := []byte(h.id.String() + "/")
		for k, data := c.Seek(prefix); k != nil && len(k) > len(prefix) && string(k[:len(prefix)]) == string(prefix); k, data = c.Next() {
			v := &Version{}
			if err := json.Unmarshal(data, v); err != nil {
				return fmt.Errorf("unmarshal version %s: %w", k, err)
			}
			if v.Name == RootVersionName {
				root = v
			} else {
				byPredecessor[v.Predecessor] = v
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoHistory, h.id)
	}

	out := []*Version{root}
	for cur := root; ; {
		next, ok := byPredecessor[cur.Name]
		if !ok {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

// VersionByLabel returns the version the label is attached to.
func (h *History) VersionByLabel(label string) (*Version, error) {
	var name []byte
	err := h.s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketLabels).Get(versionKey(h.id, label))
		if v != nil {
			name = make([]byte, len(v))
			copy(name, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if name == nil {
		return nil, fmt.Errorf("%w: no version with label %q exists in this history", ErrNoLabel, label)
	}
	return h.Version(string(name))
}

// AddLabel attaches a label to the named version. If the label is already
// attached to another version, move must be set or the call fails.
func (h *History) AddLabel(versionName, label string, move bool) error {
	if _, err := h.Version(versionName); err != nil {
		return err
	}
	return h.s.db.Update(func(tx *bbolt.Tx) error {
		labels := tx.Bucket(BucketLabels)
		key := versionKey(h.id, label)
		if existing := labels.Get(key); existing != nil && string(existing) != versionName && !move {
			return fmt.Errorf("%w: %q is attached to version %s", ErrLabelInUse, label, existing)
		}
		return labels.Put(key, []byte(versionName))
	})
}

// RemoveLabel detaches a label from the lineage.
func (h *History) RemoveLabel(label string) error {
	return h.s.db.Update(func(tx *bbolt.Tx) error {
		labels := tx.Bucket(BucketLabels)
		key := versionKey(h.id, label)
		if labels.Get(key) == nil {
			return fmt.Errorf("%w: %q", ErrNoLabel, label)
		}
		return labels.Delete(key)
	})
}

// Labels returns all labels attached to versions of this lineage.
func (h *History) Labels() (map[string]string, error) {
	out := make(map[string]string)
	err := h.s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(BucketLabels).Cursor()
		prefix := []byte(h.id.String() + "/")
		for k, v := c.Seek(prefix); k != nil && len(k) > len(prefix) && string(k[:len(prefix)]) == string(prefix); k, v = c.Next() {
			out[string(k[len(prefix):])] = string(v)
		}
		return nil
	})
	return out, err
}
