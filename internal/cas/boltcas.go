package cas

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"
)

// BucketBlobs holds zstd-compressed value blobs keyed by BLAKE3 hash.
var BucketBlobs = []byte("blobs")

// BoltCAS implements CAS on top of a bbolt database. Blobs are compressed
// with zstd before storage; the hash always refers to the uncompressed bytes.
type BoltCAS struct {
	db  *bbolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewBoltCAS creates a bolt-backed CAS in the given database, creating the
// blob bucket if needed. The database handle remains owned by the caller.
func NewBoltCAS(db *bbolt.DB) (*BoltCAS, error) {
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(BucketBlobs)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create blob bucket: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &BoltCAS{db: db, enc: enc, dec: dec}, nil
}

// Put implements CAS.Put.
func (b *BoltCAS) Put(hash Hash, data []byte) error {
	computed := SumB3(data)
	if computed != hash {
		return fmt.Errorf("hash mismatch: expected %s, got %s", hash, computed)
	}

	compressed := b.enc.EncodeAll(data, nil)
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(BucketBlobs).Put(hash[:], compressed)
	})
}

// Get implements CAS.Get.
func (b *BoltCAS) Get(hash Hash) ([]byte, error) {
	var compressed []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(BucketBlobs).Get(hash[:])
		if v == nil {
			return fmt.Errorf("hash not found: %s", hash)
		}
		compressed = make([]byte, len(v))
		copy(compressed, v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	data, err := b.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress blob %s: %w", hash, err)
	}
	return data, nil
}

// Has implements CAS.Has.
func (b *BoltCAS) Has(hash Hash) (bool, error) {
	var exists bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(BucketBlobs).Get(hash[:]) != nil
		return nil
	})
	return exists, err
}
