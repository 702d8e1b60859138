package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/leachuk/jackrabbit/internal/cas"
	"github.com/leachuk/jackrabbit/internal/nodeid"
	"github.com/leachuk/jackrabbit/internal/state"
)

// Record format (version 0x01):
//
//	0x01 | id[16] | parent[16] | uvarint(nameLen) | name | isNode | value[32]
//	     | uvarint(childCount) | (uvarint(nameLen) | name | id[16])*
//
// Only durable fields are encoded; status and overlay linkage are
// session-local and never persisted. The BLAKE3 hash of the canonical bytes
// is the record checksum compared by the stale sweep.
const recordVersion = 0x01

// EncodeState produces the canonical encoding of a node's durable fields.
func EncodeState(st *state.NodeState) []byte {
	var buf bytes.Buffer
	lenBuf := make([]byte, binary.MaxVarintLen64)

	buf.WriteByte(recordVersion)
	buf.Write(st.ID[:])
	buf.Write(st.ParentID[:])

	n := binary.PutUvarint(lenBuf, uint64(len(st.Name)))
	buf.Write(lenBuf[:n])
	buf.WriteString(st.Name)

	if st.IsNode {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	buf.Write(st.Value[:])

	n = binary.PutUvarint(lenBuf, uint64(len(st.Children)))
	buf.Write(lenBuf[:n])
	for _, c := range st.Children {
		n = binary.PutUvarint(lenBuf, uint64(len(c.Name)))
		buf.Write(lenBuf[:n])
		buf.WriteString(c.Name)
		buf.Write(c.ID[:])
	}

	return buf.Bytes()
}

// StateChecksum returns the BLAKE3 checksum of a state's canonical encoding.
func StateChecksum(st *state.NodeState) cas.Hash {
	return cas.SumB3(EncodeState(st))
}

// DecodeState decodes a canonical record into a base state with
// StatusExisting and no overlay linkage.
func DecodeState(data []byte) (*state.NodeState, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty node record")
	}
	if data[0] != recordVersion {
		return nil, fmt.Errorf("unknown node record version %02x", data[0])
	}
	buf := bytes.NewReader(data[1:])

	st := &state.NodeState{Status: state.StatusExisting}
	if err := readID(buf, &st.ID); err != nil {
		return nil, fmt.Errorf("read node id: %w", err)
	}
	if err := readID(buf, &st.ParentID); err != nil {
		return nil, fmt.Errorf("read parent id: %w", err)
	}

	name, err := readString(buf)
	if err != nil {
		return nil, fmt.Errorf("read name: %w", err)
	}
	st.Name = name

	isNode, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read node flag: %w", err)
	}
	st.IsNode = isNode != 0

	if _, err := io.ReadFull(buf, st.Value[:]); err != nil {
		return nil, fmt.Errorf("read value hash: %w", err)
	}

	childCount, err := binary.ReadUvarint(buf)
	if err != nil {
		return nil, fmt.Errorf("read child count: %w", err)
	}
	if childCount > 0 {
		st.Children = make([]state.ChildEntry, 0, childCount)
		for i := uint64(0); i < childCount; i++ {
			cname, err := readString(buf)
			if err != nil {
				return nil, fmt.Errorf("read child name %d: %w", i, err)
			}
			var cid nodeid.ID
			if err := readID(buf, &cid); err != nil {
				return nil, fmt.Errorf("read child id %d: %w", i, err)
			}
			st.Children = append(st.Children, state.ChildEntry{Name: cname, ID: cid})
		}
	}

	return st, nil
}

func readID(buf *bytes.Reader, id *nodeid.ID) error {
	_, err := io.ReadFull(buf, id[:])
	return err
}

func readString(buf *bytes.Reader) (string, error) {
	strLen, err := binary.ReadUvarint(buf)
	if err != nil {
		return "", err
	}
	if strLen > uint64(buf.Len()) {
		return "", fmt.Errorf("string length %d exceeds record", strLen)
	}
	b := make([]byte, strLen)
	if _, err := io.ReadFull(buf, b); err != nil {
		return "", err
	}
	return string(b), nil
}
