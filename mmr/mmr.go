package mmr

import (
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

const (
	leafPrefix = 0x00
	nodePrefix = 0x01
)

// Mmr is the online accumulator. The hasher is fixed per deployment at
// construction; leafCount is the persisted leaf counter.
type Mmr struct {
	kind      common.HashKind
	store     NodeStore
	leafCount uint64
}

func NewMmr(kind common.HashKind, store NodeStore, leafCount uint64) *Mmr {
	return &Mmr{kind: kind, store: store, leafCount: leafCount}
}

func (m *Mmr) LeafCount() uint64 {
	return m.leafCount
}

func (m *Mmr) Size() uint64 {
	return LeafCountToSize(m.leafCount)
}

func (m *Mmr) leafHash(leaf []byte) common.Hash {
	return m.kind.Sum(append([]byte{leafPrefix}, leaf...))
}

func merge(kind common.HashKind, left, right common.Hash) common.Hash {
	buf := make([]byte, 0, 1+2*common.HashLength)
	buf = append(buf, nodePrefix)
	buf = append(buf, left.Bytes()...)
	buf = append(buf, right.Bytes()...)
	return kind.Sum(buf)
}

func (m *Mmr) node(pos uint64) (common.Hash, error) {
	h, ok, err := m.store.GetNode(pos)
	if err != nil {
		return common.Hash{}, err
	}
	if !ok {
		return common.Hash{}, ismperrors.ErrMCorruptMmr
	}
	return h, nil
}

// Push appends the encoded leaf and returns its leaf index. Positions are
// assigned in strict insertion order; the counter moves by exactly one per
// successful push.
func (m *Mmr) Push(leaf []byte) (uint64, error) {
	leafIndex := m.leafCount
	pos := LeafCountToSize(m.leafCount)
	if err := m.store.SetNode(pos, m.leafHash(leaf)); err != nil {
		return 0, err
	}
	// merge completed mountains bottom-up
	height := 0
	for posHeight(pos+1) > height {
		pos++
		leftPos := pos - parentOffset(height)
		rightPos := leftPos + siblingOffset(height)
		left, err := m.node(leftPos)
		if err != nil {
			return 0, err
		}
		right, err := m.node(rightPos)
		if err != nil {
			return 0, err
		}
		if err := m.store.SetNode(pos, merge(m.kind, left, right)); err != nil {
			return 0, err
		}
		height++
	}
	m.leafCount++
	return leafIndex, nil
}

// Finalize bags the current peaks into the committed root. Idempotent: with
// no intervening push, a second call returns the same (leafCount, root).
func (m *Mmr) Finalize() (uint64, common.Hash, error) {
	root, err := m.rootAtSize(m.Size())
	if err != nil {
		return 0, common.Hash{}, err
	}
	return m.leafCount, root, nil
}

func (m *Mmr) rootAtSize(size uint64) (common.Hash, error) {
	peaks, err := peakPositions(size)
	if err != nil {
		return common.Hash{}, err
	}
	if len(peaks) == 0 {
		return common.Hash{}, nil
	}
	hashes := make([]common.Hash, len(peaks))
	for i, pos := range peaks {
		if hashes[i], err = m.node(pos); err != nil {
			return common.Hash{}, err
		}
	}
	return bagPeaks(m.kind, hashes), nil
}

// bagPeaks folds peaks right to left with the node merge rule.
func bagPeaks(kind common.HashKind, peaks []common.Hash) common.Hash {
	acc := peaks[len(peaks)-1]
	for i := len(peaks) - 2; i >= 0; i-- {
		acc = merge(kind, peaks[i], acc)
	}
	return acc
}
