package grandpa

import (
	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/trie"
	"github.com/polytope-labs/go-ismp/types"
)

// SlotDuration is the aura slot length in milliseconds.
const SlotDuration = 12_000

// TimestampExtractor pulls the unix timestamp in seconds out of a
// timestamp-setting extrinsic. The layout of that extrinsic is a per-chain
// encoding detail, so it is pluggable rather than hard-coded.
type TimestampExtractor func(extrinsic []byte) (uint64, error)

// DefaultTimestampExtractor handles the common layout: a 2-byte call
// prefix (pallet index, call index) followed by the compact-encoded
// timestamp in milliseconds.
func DefaultTimestampExtractor(extrinsic []byte) (uint64, error) {
	r := codec.NewReader(extrinsic)
	if _, err := r.Raw(2); err != nil {
		return 0, ismperrors.ErrPMissingTimestamp
	}
	ms, err := r.Compact()
	if err != nil {
		return 0, ismperrors.ErrPMissingTimestamp
	}
	return ms / 1000, nil
}

// ParachainHeadsKey derives the relay-chain storage key of a parachain's
// head data: twox128("Paras") ++ twox128("Heads") ++ twox64(id) ++ id,
// with the para id encoded as a fixed-width little-endian u32.
func ParachainHeadsKey(paraID uint32) []byte {
	idEnc := common.Uint32ToBytes(paraID)
	key := make([]byte, 0, 16+16+8+4)
	key = append(key, common.Twox128([]byte("Paras"))...)
	key = append(key, common.Twox128([]byte("Heads"))...)
	key = append(key, common.Twox64(idEnc)...)
	return append(key, idEnc...)
}

// timestampExtrinsicKey is the extrinsics-trie key of extrinsic #0, the
// timestamp inherent: the compact encoding of index 0.
var timestampExtrinsicKey = []byte{0x00}

// ParachainHeader is one extracted parachain header with the timestamp its
// chain recorded in the same block.
type ParachainHeader struct {
	Header    *types.Header
	Timestamp uint64
}

// VerifyParachainHeaders verifies the relay chain finality proof, then for
// every tracked parachain proven under a finalized relay header extracts
// its header and timestamp. Relay hashes outside the newly finalized range
// and untracked para ids are skipped, not errors. Relay-chain state tries
// hash with Blake2b.
func VerifyParachainHeaders(state *types.ConsensusState, msg *types.RelayChainMessage, extract TimestampExtractor) (*FinalityVerification, map[uint32][]ParachainHeader, error) {
	if extract == nil {
		extract = DefaultTimestampExtractor
	}
	fin, err := VerifyFinalityProof(state, &msg.FinalityProof)
	if err != nil {
		return nil, nil, err
	}

	headers := make(map[uint32][]ParachainHeader)
	for i := range msg.ParachainHeaders {
		entry := &msg.ParachainHeaders[i]
		if !fin.Finalized[entry.RelayHash] {
			continue
		}
		relayHeader, ok := fin.Chain.Header(entry.RelayHash)
		if !ok {
			continue
		}
		for j := range entry.Proofs {
			proofs := &entry.Proofs[j]
			if !state.ParaIDs[proofs.ParaID] {
				continue
			}
			header, timestamp, err := extractParachainHeader(relayHeader, proofs, extract)
			if err != nil {
				return nil, nil, err
			}
			headers[proofs.ParaID] = append(headers[proofs.ParaID], ParachainHeader{Header: header, Timestamp: timestamp})
		}
	}
	return fin, headers, nil
}

func extractParachainHeader(relayHeader *types.Header, proofs *types.ParachainHeaderProofs, extract TimestampExtractor) (*types.Header, uint64, error) {
	key := ParachainHeadsKey(proofs.ParaID)
	values, err := trie.ReadProofCheck(common.HashBlake2, relayHeader.StateRoot, proofs.StateProof, key)
	if err != nil {
		return nil, 0, err
	}
	headData := values[string(key)]
	if headData == nil {
		return nil, 0, ismperrors.ErrPParachainHeaderNotFound
	}

	// head data is the length-prefixed encoded header
	r := codec.NewReader(headData)
	encoded, err := r.VarBytes()
	if err != nil {
		return nil, 0, err
	}
	if err := r.Finish(); err != nil {
		return nil, 0, err
	}
	header, err := types.DecodeHeader(encoded)
	if err != nil {
		return nil, 0, err
	}

	if err := trie.VerifyProof(common.HashBlake2, header.ExtrinsicsRoot, proofs.ExtrinsicProof, timestampExtrinsicKey, proofs.Extrinsic); err != nil {
		return nil, 0, ismperrors.ErrPInvalidExtrinsicProof
	}
	timestamp, err := extract(proofs.Extrinsic)
	if err != nil {
		return nil, 0, err
	}
	if timestamp == 0 {
		return nil, 0, ismperrors.ErrPMissingTimestamp
	}
	return header, timestamp, nil
}

// OverlayRoot returns the overlay (ISMP) root committed in the header's
// consensus digest, or nil.
func OverlayRoot(h *types.Header) *common.Hash {
	data := h.DigestData(types.DigestConsensus, types.IsmpEngineID)
	if len(data) != common.HashLength {
		return nil
	}
	root := common.BytesToHash(data)
	return &root
}

// AuraTimestamp derives the unix timestamp in seconds from the header's
// aura slot digest, or 0 if the header carries none.
func AuraTimestamp(h *types.Header) uint64 {
	data := h.DigestData(types.DigestPreRuntime, types.AuraEngineID)
	slot, ok := common.BytesToUint64(data)
	if !ok {
		return 0
	}
	return slot * SlotDuration / 1000
}
