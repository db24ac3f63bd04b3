package trie

import (
	"bytes"

	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

// ProofDB indexes proof node blobs by their hash under one algorithm.
type ProofDB struct {
	kind  common.HashKind
	nodes map[common.Hash][]byte
}

func NewProofDB(kind common.HashKind, proofNodes [][]byte) *ProofDB {
	db := &ProofDB{kind: kind, nodes: make(map[common.Hash][]byte, len(proofNodes))}
	for _, blob := range proofNodes {
		db.nodes[kind.Sum(blob)] = blob
	}
	return db
}

// ReadProofCheck performs verified lookups of keys against root. The proof
// must hash-chain from root down to every key's resolution point; a missing
// link is ErrSInvalidProof. A key proven absent maps to nil with no error.
func ReadProofCheck(kind common.HashKind, root common.Hash, proofNodes [][]byte, keys ...[]byte) (map[string][]byte, error) {
	db := NewProofDB(kind, proofNodes)
	if _, ok := db.nodes[root]; !ok {
		return nil, ismperrors.ErrSInvalidProof
	}
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := db.lookup(root, keyNibbles(key))
		if err != nil {
			return nil, err
		}
		out[string(key)] = value
	}
	return out, nil
}

func (db *ProofDB) lookup(at common.Hash, rest []byte) ([]byte, error) {
	blob, ok := db.nodes[at]
	if !ok {
		return nil, ismperrors.ErrSInvalidProof
	}
	n, err := decodeNode(blob)
	if err != nil {
		return nil, err
	}
	cp := commonPrefixLen(n.partial, rest)
	if cp != len(n.partial) {
		// path diverges inside this node's partial: proved absent
		return nil, nil
	}
	rest = rest[cp:]
	if len(rest) == 0 {
		if n.hasValue {
			return n.value, nil
		}
		return nil, nil
	}
	if n.isLeaf {
		// key extends past a leaf: proved absent
		return nil, nil
	}
	child := n.children[rest[0]]
	if child == nil {
		// branch has no child on this nibble: proved absent
		return nil, nil
	}
	return db.lookup(*child, rest[1:])
}

// VerifyProof checks that key maps to exactly value under root.
func VerifyProof(kind common.HashKind, root common.Hash, proofNodes [][]byte, key, value []byte) error {
	values, err := ReadProofCheck(kind, root, proofNodes, key)
	if err != nil {
		return err
	}
	got := values[string(key)]
	if got == nil || !bytes.Equal(got, value) {
		return ismperrors.ErrSInvalidProof
	}
	return nil
}
