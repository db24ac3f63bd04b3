package grandpa

import (
	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/types"
)

// precommit message tag inside the signed payload
const precommitMsgTag = 0x01

// PrecommitSignable is the byte string an authority signs for one
// precommit: (msg tag, target hash, target number, round, set id).
func PrecommitSignable(p types.Precommit, round, setID uint64) []byte {
	w := codec.NewWriter()
	w.Byte(precommitMsgTag)
	w.Raw(p.TargetHash.Bytes())
	w.Uint32(p.TargetNumber)
	w.Uint64(round)
	w.Uint64(setID)
	return w.Bytes()
}

// VerifyJustification checks a justification against the active authority
// set. Signature failures, unknown authorities and duplicate votes are
// fatal; a precommit whose target does not ancestry-check against the
// commit target is discarded without error and simply contributes no
// weight. Acceptance needs strictly more than two thirds of total weight.
func VerifyJustification(j *types.GrandpaJustification, setID uint64, authorities types.AuthorityList, chain *AncestryChain) error {
	totalWeight := authorities.TotalWeight()
	seen := make(map[types.Ed25519Key]bool, len(j.Precommits))
	var votedWeight uint64

	for i := range j.Precommits {
		p := &j.Precommits[i]
		weight, known := authorities.WeightOf(p.ID)
		if !known {
			return ismperrors.ErrGUnknownAuthority
		}
		msg := PrecommitSignable(p.Precommit, j.Round, setID)
		if !types.Ed25519Verify(p.ID, msg, p.Signature) {
			return ismperrors.ErrGBadSignature
		}
		if seen[p.ID] {
			return ismperrors.ErrGDuplicateVote
		}
		seen[p.ID] = true

		// a precommit disconnected from the commit target is not an
		// attack the verifier can distinguish from junk padding; it is
		// dropped, it neither counts nor aborts
		if p.Precommit.TargetHash != j.TargetHash && !chain.IsAncestor(p.Precommit.TargetHash, j.TargetHash) {
			continue
		}
		votedWeight += weight
	}

	if votedWeight*3 <= totalWeight*2 {
		return ismperrors.ErrGInsufficientVotingWeight
	}
	return nil
}
