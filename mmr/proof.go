package mmr

import (
	"sort"

	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

type queueItem struct {
	pos    uint64
	height int
	hash   common.Hash
}

func pushSorted(q []queueItem, it queueItem) []queueItem {
	i := sort.Search(len(q), func(i int) bool {
		if q[i].height != it.height {
			return q[i].height > it.height
		}
		return q[i].pos > it.pos
	})
	q = append(q, queueItem{})
	copy(q[i+1:], q[i:])
	q[i] = it
	return q
}

// peakRoot folds the queued entries up to the mountain peak at peakPos.
// Hashes the entries cannot supply come from sibling; generation records
// them, verification consumes them, so both sides walk the same sequence.
func peakRoot(kind common.HashKind, entries []queueItem, peakPos uint64, sibling func(pos uint64, height int) (common.Hash, error)) (common.Hash, error) {
	q := append([]queueItem(nil), entries...)
	sort.Slice(q, func(i, j int) bool {
		if q[i].height != q[j].height {
			return q[i].height < q[j].height
		}
		return q[i].pos < q[j].pos
	})
	for len(q) > 0 {
		it := q[0]
		q = q[1:]
		if it.pos == peakPos {
			if len(q) != 0 {
				return common.Hash{}, ismperrors.ErrMInvalidProof
			}
			return it.hash, nil
		}
		if it.pos > peakPos {
			return common.Hash{}, ismperrors.ErrMInvalidProof
		}
		rightChild := posHeight(it.pos+1) > it.height
		var sibPos, parentPos uint64
		if rightChild {
			sibPos = it.pos - siblingOffset(it.height)
			parentPos = it.pos + 1
		} else {
			sibPos = it.pos + siblingOffset(it.height)
			parentPos = it.pos + parentOffset(it.height)
		}
		var sibHash common.Hash
		found := false
		for j := range q {
			if q[j].pos == sibPos {
				sibHash = q[j].hash
				q = append(q[:j], q[j+1:]...)
				found = true
				break
			}
		}
		if !found {
			var err error
			if sibHash, err = sibling(sibPos, it.height); err != nil {
				return common.Hash{}, err
			}
		}
		var parent common.Hash
		if rightChild {
			parent = merge(kind, sibHash, it.hash)
		} else {
			parent = merge(kind, it.hash, sibHash)
		}
		q = pushSorted(q, queueItem{pos: parentPos, height: it.height + 1, hash: parent})
	}
	return common.Hash{}, ismperrors.ErrMInvalidProof
}

// GenerateProof builds a membership proof for the given leaf indices at the
// MMR's current size. Requires the full node archive in the store.
func (m *Mmr) GenerateProof(leafIndices []uint64) (*types.MembershipProof, error) {
	if len(leafIndices) == 0 {
		return nil, ismperrors.ErrMLeafNotFound
	}
	indices := append([]uint64(nil), leafIndices...)
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	for i, idx := range indices {
		if idx >= m.leafCount {
			return nil, ismperrors.ErrMLeafNotFound
		}
		if i > 0 && indices[i-1] == idx {
			return nil, ismperrors.ErrMLeafNotFound
		}
	}
	size := m.Size()
	peaks, err := peakPositions(size)
	if err != nil {
		return nil, err
	}

	var proof []common.Hash
	record := func(pos uint64, height int) (common.Hash, error) {
		h, err := m.node(pos)
		if err != nil {
			return common.Hash{}, ismperrors.ErrMLeafNotFound
		}
		proof = append(proof, h)
		return h, nil
	}

	cursor := 0
	for _, peakPos := range peaks {
		var entries []queueItem
		for cursor < len(indices) && LeafIndexToPos(indices[cursor]) <= peakPos {
			pos := LeafIndexToPos(indices[cursor])
			h, err := m.node(pos)
			if err != nil {
				return nil, ismperrors.ErrMLeafNotFound
			}
			entries = append(entries, queueItem{pos: pos, hash: h})
			cursor++
		}
		if len(entries) == 0 {
			// uninvolved peak travels as a bare hash
			if _, err := record(peakPos, 0); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := peakRoot(m.kind, entries, peakPos, record); err != nil {
			return nil, err
		}
	}
	return &types.MembershipProof{MmrSize: size, LeafIndices: indices, Proof: proof}, nil
}

// VerifyProof checks leaves (1:1 with proof.LeafIndices, encoded leaf
// bytes) against root. The caller must pass the size the root was
// committed at; a proof is bound to that size.
func VerifyProof(kind common.HashKind, root common.Hash, proof *types.MembershipProof, leaves [][]byte) bool {
	if proof == nil || len(leaves) != len(proof.LeafIndices) || len(leaves) == 0 {
		return false
	}
	peaks, err := peakPositions(proof.MmrSize)
	if err != nil {
		return false
	}

	entriesByPos := make([]queueItem, len(leaves))
	for i, idx := range proof.LeafIndices {
		pos := LeafIndexToPos(idx)
		if pos >= proof.MmrSize {
			return false
		}
		entriesByPos[i] = queueItem{pos: pos, hash: kind.Sum(append([]byte{leafPrefix}, leaves[i]...))}
	}
	sort.Slice(entriesByPos, func(i, j int) bool { return entriesByPos[i].pos < entriesByPos[j].pos })

	itemCursor := 0
	next := func(pos uint64, height int) (common.Hash, error) {
		if itemCursor >= len(proof.Proof) {
			return common.Hash{}, ismperrors.ErrMInvalidProof
		}
		h := proof.Proof[itemCursor]
		itemCursor++
		return h, nil
	}

	cursor := 0
	peakHashes := make([]common.Hash, 0, len(peaks))
	for _, peakPos := range peaks {
		var entries []queueItem
		for cursor < len(entriesByPos) && entriesByPos[cursor].pos <= peakPos {
			entries = append(entries, entriesByPos[cursor])
			cursor++
		}
		if len(entries) == 0 {
			h, err := next(peakPos, 0)
			if err != nil {
				return false
			}
			peakHashes = append(peakHashes, h)
			continue
		}
		h, err := peakRoot(kind, entries, peakPos, next)
		if err != nil {
			return false
		}
		peakHashes = append(peakHashes, h)
	}
	if cursor != len(entriesByPos) || itemCursor != len(proof.Proof) {
		return false
	}
	return bagPeaks(kind, peakHashes) == root
}
