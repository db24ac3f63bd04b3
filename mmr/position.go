// Package mmr implements the append-only Merkle Mountain Range accumulating
// request/response leaves. Pushes happen online one at a time; membership
// proofs are generated offline from the full node archive and verified
// statelessly against a root and the size the root was committed at.
//
// Hash domain separation: leaves are hashed as H(0x00 || leaf bytes),
// internal nodes as H(0x01 || left || right).
package mmr

import (
	"math/bits"

	"github.com/polytope-labs/go-ismp/ismperrors"
)

// LeafIndexToPos maps the i-th pushed leaf to its node position.
func LeafIndexToPos(leafIndex uint64) uint64 {
	return 2*leafIndex - uint64(bits.OnesCount64(leafIndex))
}

// LeafCountToSize is the total node count of an MMR holding n leaves.
func LeafCountToSize(leafCount uint64) uint64 {
	return 2*leafCount - uint64(bits.OnesCount64(leafCount))
}

func allOnes(x uint64) bool {
	return x != 0 && x&(x+1) == 0
}

// posHeight is the height of the node at pos, leaves at height 0.
func posHeight(pos uint64) int {
	pos++
	for !allOnes(pos) {
		// jump to the same-height position in the left sibling subtree
		pos -= uint64(1)<<(bits.Len64(pos)-1) - 1
	}
	return bits.Len64(pos) - 1
}

func siblingOffset(height int) uint64 {
	return uint64(2)<<height - 1
}

func parentOffset(height int) uint64 {
	return uint64(2) << height
}

// peakPositions decomposes size into perfect mountains, left to right.
// Fails if size is not a valid MMR size.
func peakPositions(size uint64) ([]uint64, error) {
	if size == 0 {
		return nil, nil
	}
	var peaks []uint64
	var offset uint64
	remaining := size
	prevHeight := 65
	for remaining > 0 {
		// largest perfect subtree 2^h - 1 <= remaining
		h := bits.Len64(remaining+1) - 1
		subtree := uint64(1)<<h - 1
		if h >= prevHeight {
			return nil, ismperrors.ErrMInvalidMmrSize
		}
		prevHeight = h
		peaks = append(peaks, offset+subtree-1)
		offset += subtree
		remaining -= subtree
	}
	return peaks, nil
}
