package trie

import (
	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

type node interface{}

type leafNode struct {
	partial []byte // nibbles
	value   []byte
}

type branchNode struct {
	partial  []byte // nibbles
	children [16]node
	value    []byte
	hasValue bool
}

// Trie is the in-memory builder used by provers and tests. Verifiers never
// hold a Trie; they work from proof node blobs via ReadProofCheck.
type Trie struct {
	kind common.HashKind
	root node
}

func NewTrie(kind common.HashKind) *Trie {
	return &Trie{kind: kind}
}

// Insert puts value at key, replacing any previous value.
func (t *Trie) Insert(key, value []byte) {
	t.root = insert(t.root, keyNibbles(key), value)
}

func insert(n node, key []byte, value []byte) node {
	switch n := n.(type) {
	case nil:
		return &leafNode{partial: key, value: value}
	case *leafNode:
		cp := commonPrefixLen(n.partial, key)
		if cp == len(n.partial) && cp == len(key) {
			n.value = value
			return n
		}
		branch := &branchNode{partial: key[:cp]}
		branch.attach(n.partial[cp:], n.value)
		branch.attach(key[cp:], value)
		return branch
	case *branchNode:
		cp := commonPrefixLen(n.partial, key)
		if cp == len(n.partial) {
			rest := key[cp:]
			if len(rest) == 0 {
				n.value = value
				n.hasValue = true
				return n
			}
			n.children[rest[0]] = insert(n.children[rest[0]], rest[1:], value)
			return n
		}
		branch := &branchNode{partial: key[:cp]}
		sub := n.partial[cp]
		n.partial = n.partial[cp+1:]
		branch.children[sub] = n
		branch.attach(key[cp:], value)
		return branch
	}
	return nil
}

func (b *branchNode) attach(rest []byte, value []byte) {
	if len(rest) == 0 {
		b.value = value
		b.hasValue = true
		return
	}
	b.children[rest[0]] = insert(b.children[rest[0]], rest[1:], value)
}

// commit encodes every node and returns the root hash plus the node
// database keyed by hash.
func (t *Trie) commit() (common.Hash, map[common.Hash][]byte) {
	db := make(map[common.Hash][]byte)
	if t.root == nil {
		return common.Hash{}, db
	}
	root := encodeInto(t.kind, t.root, db)
	return root, db
}

func encodeInto(kind common.HashKind, n node, db map[common.Hash][]byte) common.Hash {
	w := codec.NewWriter()
	switch n := n.(type) {
	case *leafNode:
		w.Byte(leafTag)
		w.Compact(uint64(len(n.partial)))
		w.Raw(packNibbles(n.partial))
		w.VarBytes(n.value)
	case *branchNode:
		w.Byte(branchTag)
		w.Compact(uint64(len(n.partial)))
		w.Raw(packNibbles(n.partial))
		var bitmap uint16
		var hashes []common.Hash
		for i := 0; i < 16; i++ {
			if n.children[i] == nil {
				continue
			}
			bitmap |= 1 << i
			hashes = append(hashes, encodeInto(kind, n.children[i], db))
		}
		w.Uint16(bitmap)
		for _, h := range hashes {
			w.Raw(h.Bytes())
		}
		w.Option(n.hasValue)
		if n.hasValue {
			w.VarBytes(n.value)
		}
	}
	blob := w.Bytes()
	h := kind.Sum(blob)
	db[h] = blob
	return h
}

// RootHash commits the trie and returns its root.
func (t *Trie) RootHash() common.Hash {
	root, _ := t.commit()
	return root
}

// Prove returns the proof node blobs covering the given keys: every node on
// each key's lookup path, deduplicated. Absent keys yield the nodes proving
// their absence.
func (t *Trie) Prove(keys ...[]byte) (common.Hash, [][]byte, error) {
	root, db := t.commit()
	seen := make(map[common.Hash]bool)
	var proof [][]byte
	for _, key := range keys {
		cursor := root
		rest := keyNibbles(key)
		for {
			blob, ok := db[cursor]
			if !ok {
				return common.Hash{}, nil, ismperrors.ErrSInvalidProof
			}
			if !seen[cursor] {
				seen[cursor] = true
				proof = append(proof, blob)
			}
			n, err := decodeNode(blob)
			if err != nil {
				return common.Hash{}, nil, err
			}
			cp := commonPrefixLen(n.partial, rest)
			if cp != len(n.partial) || n.isLeaf {
				break
			}
			rest = rest[cp:]
			if len(rest) == 0 {
				break
			}
			child := n.children[rest[0]]
			if child == nil {
				break
			}
			cursor = *child
			rest = rest[1:]
		}
	}
	return root, proof, nil
}
