package grandpa

import (
	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// scheduledChangeLog is the ConsensusLog variant announcing an authority
// set change in the FRNK consensus digest.
const scheduledChangeLog = 0x01

// FinalityVerification is the result of a successful finality proof check.
type FinalityVerification struct {
	// State is the updated consensus state; the caller's copy is untouched.
	State *types.ConsensusState
	// Target is the newly finalized header.
	Target *types.Header
	// Chain indexes the proof's unknown headers by hash.
	Chain *AncestryChain
	// Finalized holds the hashes proven finalized by this proof: the route
	// from the previous trust anchor (exclusive) up to Target (inclusive).
	Finalized map[common.Hash]bool
}

// VerifyFinalityProof checks that proof finalizes a new target connected to
// state's trust anchor, verifies the embedded justification under the
// active authority set, and applies any scheduled authority change found in
// the target's digest. The input state is never mutated.
func VerifyFinalityProof(state *types.ConsensusState, proof *types.FinalityProof) (*FinalityVerification, error) {
	if len(proof.UnknownHeaders) == 0 {
		return nil, ismperrors.ErrGEmptyUnknownHeaders
	}
	chain := NewAncestryChain(proof.UnknownHeaders)

	target := &proof.UnknownHeaders[0]
	base := &proof.UnknownHeaders[0]
	for i := range proof.UnknownHeaders {
		h := &proof.UnknownHeaders[i]
		if h.Number > target.Number {
			target = h
		}
		if h.Number < base.Number {
			base = h
		}
	}
	if target.Hash() != proof.Block {
		return nil, ismperrors.ErrGTargetMismatch
	}

	justification, err := types.DecodeGrandpaJustification(proof.Justification)
	if err != nil {
		return nil, err
	}
	if justification.TargetHash != proof.Block {
		return nil, ismperrors.ErrGJustificationTargetMismatch
	}

	// an overlapping range must still connect back to the trust anchor
	if base.Number < state.LatestHeight {
		if _, err := chain.Ancestry(base.Hash(), state.LatestHash); err != nil {
			return nil, err
		}
	}
	finalized, err := chain.Ancestry(state.LatestHash, target.Hash())
	if err != nil {
		return nil, err
	}

	// the justification may carry extra vote-ancestry headers beyond the
	// unknown set
	voteChain := NewAncestryChain(proof.UnknownHeaders)
	voteChain.Extend(justification.VotesAncestries)
	if err := VerifyJustification(justification, state.CurrentSetID, state.CurrentAuthorities, voteChain); err != nil {
		return nil, err
	}

	next := state.Clone()
	next.LatestHash = target.Hash()
	next.LatestHeight = target.Number

	// rotation announced by the finalized target takes effect from the
	// next verification only; this proof was checked under the old set
	if change, ok := scheduledChange(target); ok {
		next.CurrentSetID++
		next.CurrentAuthorities = change
	}

	return &FinalityVerification{
		State:     next,
		Target:    target,
		Chain:     chain,
		Finalized: finalized,
	}, nil
}

// scheduledChange extracts the next authority set from the header's FRNK
// consensus digest, if it carries one.
func scheduledChange(h *types.Header) (types.AuthorityList, bool) {
	data := h.DigestData(types.DigestConsensus, types.GrandpaEngineID)
	if data == nil {
		return nil, false
	}
	r := codec.NewReader(data)
	tag, err := r.Byte()
	if err != nil || tag != scheduledChangeLog {
		return nil, false
	}
	list, err := types.DecodeAuthorityList(r)
	if err != nil {
		return nil, false
	}
	if _, err := r.Uint32(); err != nil { // delay
		return nil, false
	}
	if r.Finish() != nil {
		return nil, false
	}
	return list, true
}
