package mmr

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

func testLeaf(i int) []byte {
	return []byte(fmt.Sprintf("leaf-%03d", i))
}

func buildMmr(t *testing.T, kind common.HashKind, n int) *Mmr {
	t.Helper()
	m := NewMmr(kind, NewMemNodeStore(), 0)
	for i := 0; i < n; i++ {
		idx, err := m.Push(testLeaf(i))
		require.NoError(t, err)
		require.Equal(t, uint64(i), idx)
	}
	return m
}

func TestLeafIndexToPos(t *testing.T) {
	cases := []struct{ index, pos uint64 }{
		{0, 0}, {1, 1}, {2, 3}, {3, 4}, {4, 7}, {5, 8}, {6, 10}, {7, 11}, {8, 15}, {9, 16}, {10, 18},
	}
	for _, c := range cases {
		assert.Equal(t, c.pos, LeafIndexToPos(c.index), "leaf %d", c.index)
		assert.Equal(t, 0, posHeight(c.pos))
	}
}

func TestLeafCountToSize(t *testing.T) {
	cases := []struct{ count, size uint64 }{
		{0, 0}, {1, 1}, {2, 3}, {3, 4}, {4, 7}, {5, 8}, {6, 10}, {7, 11}, {8, 15}, {10, 18}, {11, 19},
	}
	for _, c := range cases {
		assert.Equal(t, c.size, LeafCountToSize(c.count), "count %d", c.count)
	}
}

func TestPeakPositions(t *testing.T) {
	peaks, err := peakPositions(18) // 10 leaves
	require.NoError(t, err)
	assert.Equal(t, []uint64{14, 17}, peaks)

	peaks, err = peakPositions(19) // 11 leaves
	require.NoError(t, err)
	assert.Equal(t, []uint64{14, 17, 18}, peaks)

	peaks, err = peakPositions(11) // 7 leaves
	require.NoError(t, err)
	assert.Equal(t, []uint64{6, 9, 10}, peaks)

	// 2 and 5 are not sizes any leaf count produces
	_, err = peakPositions(2)
	assert.ErrorIs(t, err, ismperrors.ErrMInvalidMmrSize)
	_, err = peakPositions(5)
	assert.ErrorIs(t, err, ismperrors.ErrMInvalidMmrSize)
}

func TestFinalizeIdempotent(t *testing.T) {
	m := buildMmr(t, common.HashKeccak, 7)
	count1, root1, err := m.Finalize()
	require.NoError(t, err)
	count2, root2, err := m.Finalize()
	require.NoError(t, err)
	assert.Equal(t, count1, count2)
	assert.Equal(t, root1, root2)

	_, err = m.Push(testLeaf(7))
	require.NoError(t, err)
	_, root3, err := m.Finalize()
	require.NoError(t, err)
	assert.NotEqual(t, root1, root3)
}

func TestProofRoundTrip(t *testing.T) {
	for _, kind := range []common.HashKind{common.HashKeccak, common.HashBlake2} {
		for _, n := range []int{1, 2, 3, 7, 11, 32, 45} {
			m := buildMmr(t, kind, n)
			_, root, err := m.Finalize()
			require.NoError(t, err)

			indices := []uint64{0, uint64(n) / 2, uint64(n - 1)}
			seen := map[uint64]bool{}
			var unique []uint64
			var leaves [][]byte
			for _, idx := range indices {
				if !seen[idx] {
					seen[idx] = true
					unique = append(unique, idx)
					leaves = append(leaves, testLeaf(int(idx)))
				}
			}
			proof, err := m.GenerateProof(unique)
			require.NoError(t, err, "n=%d kind=%s", n, kind)
			assert.True(t, VerifyProof(kind, root, proof, leaves), "n=%d kind=%s", n, kind)
		}
	}
}

func TestProofRejectsMutation(t *testing.T) {
	m := buildMmr(t, common.HashKeccak, 12)
	_, root, err := m.Finalize()
	require.NoError(t, err)
	proof, err := m.GenerateProof([]uint64{3, 8})
	require.NoError(t, err)
	leaves := [][]byte{testLeaf(3), testLeaf(8)}
	require.True(t, VerifyProof(common.HashKeccak, root, proof, leaves))

	// flip one bit of a leaf
	bad := [][]byte{append([]byte(nil), testLeaf(3)...), testLeaf(8)}
	bad[0][0] ^= 0x01
	assert.False(t, VerifyProof(common.HashKeccak, root, proof, bad))

	// flip one bit of a proof item
	for i := range proof.Proof {
		tampered := *proof
		tampered.Proof = append([]common.Hash(nil), proof.Proof...)
		raw := tampered.Proof[i].Bytes()
		raw[0] ^= 0x01
		tampered.Proof[i] = common.BytesToHash(raw)
		assert.False(t, VerifyProof(common.HashKeccak, root, &tampered, leaves), "item %d", i)
	}

	// wrong hasher
	assert.False(t, VerifyProof(common.HashBlake2, root, proof, leaves))
}

func TestStaleProofBoundToSize(t *testing.T) {
	m := buildMmr(t, common.HashKeccak, 10)
	_, oldRoot, err := m.Finalize()
	require.NoError(t, err)

	proof, err := m.GenerateProof([]uint64{0, 9})
	require.NoError(t, err)
	leaves := [][]byte{testLeaf(0), testLeaf(9)}
	require.Equal(t, uint64(18), proof.MmrSize)
	require.True(t, VerifyProof(common.HashKeccak, oldRoot, proof, leaves))

	// an 11th push changes the root but not the stale proof's validity
	// against the root captured at size 18
	_, err = m.Push(testLeaf(10))
	require.NoError(t, err)
	_, newRoot, err := m.Finalize()
	require.NoError(t, err)
	require.NotEqual(t, oldRoot, newRoot)

	assert.True(t, VerifyProof(common.HashKeccak, oldRoot, proof, leaves))
	assert.False(t, VerifyProof(common.HashKeccak, newRoot, proof, leaves))
}

func TestGenerateProofLeafNotFound(t *testing.T) {
	m := buildMmr(t, common.HashKeccak, 5)
	_, err := m.GenerateProof([]uint64{5})
	assert.ErrorIs(t, err, ismperrors.ErrMLeafNotFound)
	_, err = m.GenerateProof(nil)
	assert.ErrorIs(t, err, ismperrors.ErrMLeafNotFound)
	_, err = m.GenerateProof([]uint64{2, 2})
	assert.ErrorIs(t, err, ismperrors.ErrMLeafNotFound)
}

func TestVerifyProofShapeChecks(t *testing.T) {
	m := buildMmr(t, common.HashKeccak, 6)
	_, root, err := m.Finalize()
	require.NoError(t, err)
	proof, err := m.GenerateProof([]uint64{1})
	require.NoError(t, err)

	assert.False(t, VerifyProof(common.HashKeccak, root, nil, [][]byte{testLeaf(1)}))
	assert.False(t, VerifyProof(common.HashKeccak, root, proof, nil))

	// leaf position outside the claimed size
	bad := *proof
	bad.LeafIndices = []uint64{40}
	assert.False(t, VerifyProof(common.HashKeccak, root, &bad, [][]byte{testLeaf(1)}))

	// trailing unconsumed proof items
	bad = *proof
	bad.Proof = append(append([]common.Hash(nil), proof.Proof...), common.Hash{})
	assert.False(t, VerifyProof(common.HashKeccak, root, &bad, [][]byte{testLeaf(1)}))
}

func TestAdjacentLeavesShareSibling(t *testing.T) {
	// leaves 4 and 5 are siblings: the proof needs no hash between them
	m := buildMmr(t, common.HashBlake2, 8)
	_, root, err := m.Finalize()
	require.NoError(t, err)
	proof, err := m.GenerateProof([]uint64{4, 5})
	require.NoError(t, err)
	assert.True(t, VerifyProof(common.HashBlake2, root, proof, [][]byte{testLeaf(4), testLeaf(5)}))
}

func TestDump(t *testing.T) {
	m := buildMmr(t, common.HashKeccak, 5)
	out := m.Dump()
	assert.True(t, strings.Contains(out, "leaves=5"))
	assert.True(t, strings.Contains(out, "peak[1]"))
}
