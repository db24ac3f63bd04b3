package mmr

import (
	"github.com/polytope-labs/go-ismp/common"
)

// NodeStore holds MMR node hashes by position. The online push path only
// ever reads back nodes it wrote in the same mountain; offline proof
// generation requires the full archive.
type NodeStore interface {
	GetNode(pos uint64) (common.Hash, bool, error)
	SetNode(pos uint64, h common.Hash) error
}

// MemNodeStore is the in-memory NodeStore used by tests and offline provers.
type MemNodeStore struct {
	nodes map[uint64]common.Hash
}

func NewMemNodeStore() *MemNodeStore {
	return &MemNodeStore{nodes: make(map[uint64]common.Hash)}
}

func (s *MemNodeStore) GetNode(pos uint64) (common.Hash, bool, error) {
	h, ok := s.nodes[pos]
	return h, ok, nil
}

func (s *MemNodeStore) SetNode(pos uint64, h common.Hash) error {
	s.nodes[pos] = h
	return nil
}
