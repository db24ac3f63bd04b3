// Package trie implements a radix-16 Merkle-Patricia trie parameterized by
// hash algorithm: an in-memory builder for provers and tests, and a verified
// proof reader for state and extrinsic proofs. Children are always referenced
// by hash, never inlined.
package trie

import (
	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

const (
	leafTag   = 0x01
	branchTag = 0x02
)

// keyNibbles expands a byte key into its nibble path, high half first.
func keyNibbles(key []byte) []byte {
	nibs := make([]byte, 0, len(key)*2)
	for _, b := range key {
		nibs = append(nibs, b>>4, b&0x0f)
	}
	return nibs
}

// packNibbles packs two nibbles per byte; an odd tail leaves the low half of
// the final byte zero.
func packNibbles(nibs []byte) []byte {
	out := make([]byte, (len(nibs)+1)/2)
	for i, n := range nibs {
		if i%2 == 0 {
			out[i/2] = n << 4
		} else {
			out[i/2] |= n
		}
	}
	return out
}

func unpackNibbles(packed []byte, count int) ([]byte, error) {
	if len(packed) != (count+1)/2 {
		return nil, ismperrors.ErrSInvalidNode
	}
	nibs := make([]byte, count)
	for i := 0; i < count; i++ {
		if i%2 == 0 {
			nibs[i] = packed[i/2] >> 4
		} else {
			nibs[i] = packed[i/2] & 0x0f
		}
	}
	if count%2 == 1 && packed[len(packed)-1]&0x0f != 0 {
		return nil, ismperrors.ErrSInvalidNode
	}
	return nibs, nil
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// decodedNode is the wire view of a proof node.
type decodedNode struct {
	isLeaf   bool
	partial  []byte
	value    []byte
	hasValue bool
	children [16]*common.Hash
}

func decodeNode(blob []byte) (*decodedNode, error) {
	r := codec.NewReader(blob)
	tag, err := r.Byte()
	if err != nil {
		return nil, ismperrors.ErrSInvalidNode
	}
	n := new(decodedNode)
	count, err := r.Compact()
	if err != nil {
		return nil, ismperrors.ErrSInvalidNode
	}
	packed, err := r.Raw(int((count + 1) / 2))
	if err != nil {
		return nil, ismperrors.ErrSInvalidNode
	}
	if n.partial, err = unpackNibbles(packed, int(count)); err != nil {
		return nil, err
	}
	switch tag {
	case leafTag:
		n.isLeaf = true
		if n.value, err = r.VarBytes(); err != nil {
			return nil, ismperrors.ErrSInvalidNode
		}
		n.hasValue = true
	case branchTag:
		bitmap, err := r.Uint16()
		if err != nil {
			return nil, ismperrors.ErrSInvalidNode
		}
		for i := 0; i < 16; i++ {
			if bitmap&(1<<i) == 0 {
				continue
			}
			child, err := r.Raw(common.HashLength)
			if err != nil {
				return nil, ismperrors.ErrSInvalidNode
			}
			h := common.BytesToHash(child)
			n.children[i] = &h
		}
		present, err := r.Option()
		if err != nil {
			return nil, ismperrors.ErrSInvalidNode
		}
		if present {
			if n.value, err = r.VarBytes(); err != nil {
				return nil, ismperrors.ErrSInvalidNode
			}
			n.hasValue = true
		}
	default:
		return nil, ismperrors.ErrSInvalidNode
	}
	if err := r.Finish(); err != nil {
		return nil, ismperrors.ErrSInvalidNode
	}
	return n, nil
}
