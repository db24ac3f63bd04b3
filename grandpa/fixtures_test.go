package grandpa

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/types"
)

type testAuthority struct {
	key    types.Ed25519Key
	priv   ed25519.PrivateKey
	weight uint64
}

func newAuthorities(weights ...uint64) []testAuthority {
	auths := make([]testAuthority, len(weights))
	for i, w := range weights {
		priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{byte(i + 1)}, ed25519.SeedSize))
		auths[i] = testAuthority{
			key:    types.BytesToEd25519Key(priv.Public().(ed25519.PublicKey)),
			priv:   priv,
			weight: w,
		}
	}
	return auths
}

func authorityList(auths []testAuthority) types.AuthorityList {
	list := make(types.AuthorityList, len(auths))
	for i, a := range auths {
		list[i] = types.Authority{Key: a.key, Weight: a.weight}
	}
	return list
}

// makeChain builds n headers where headers[0] has the given parent.
func makeChain(parent common.Hash, startNumber uint32, n int) []types.Header {
	headers := make([]types.Header, n)
	for i := 0; i < n; i++ {
		headers[i] = types.Header{
			ParentHash:     parent,
			Number:         startNumber + uint32(i),
			StateRoot:      common.Blake2Hash([]byte{byte(i), 's'}),
			ExtrinsicsRoot: common.Blake2Hash([]byte{byte(i), 'e'}),
		}
		parent = headers[i].Hash()
	}
	return headers
}

func signPrecommit(a testAuthority, target *types.Header, round, setID uint64) types.SignedPrecommit {
	precommit := types.Precommit{TargetHash: target.Hash(), TargetNumber: target.Number}
	return types.SignedPrecommit{
		Precommit: precommit,
		Signature: types.Ed25519Sign(a.priv, PrecommitSignable(precommit, round, setID)),
		ID:        a.key,
	}
}

// makeJustification signs precommits for target by the listed authorities.
func makeJustification(auths []testAuthority, signers []int, target *types.Header, round, setID uint64) *types.GrandpaJustification {
	j := &types.GrandpaJustification{
		Round:        round,
		TargetHash:   target.Hash(),
		TargetNumber: target.Number,
	}
	for _, idx := range signers {
		j.Precommits = append(j.Precommits, signPrecommit(auths[idx], target, round, setID))
	}
	return j
}

func makeFinalityProof(t *testing.T, auths []testAuthority, signers []int, headers []types.Header, round, setID uint64) *types.FinalityProof {
	t.Helper()
	target := &headers[len(headers)-1]
	j := makeJustification(auths, signers, target, round, setID)
	return &types.FinalityProof{
		Block:          target.Hash(),
		Justification:  j.Bytes(),
		UnknownHeaders: headers,
	}
}

func makeConsensusState(auths []testAuthority, setID uint64, latest *types.Header, paraIDs map[uint32]bool) *types.ConsensusState {
	var height uint32
	var hash common.Hash
	if latest != nil {
		height = latest.Number
		hash = latest.Hash()
	}
	if paraIDs == nil {
		paraIDs = map[uint32]bool{}
	}
	return &types.ConsensusState{
		CurrentAuthorities: authorityList(auths),
		CurrentSetID:       setID,
		LatestHeight:       height,
		LatestHash:         hash,
		StateMachine:       types.StateMachine{Kind: types.StateMachinePolkadot},
		ParaIDs:            paraIDs,
	}
}

// encodeScheduledChange builds the FRNK digest payload rotating to next.
func encodeScheduledChange(next types.AuthorityList, delay uint32) []byte {
	w := codec.NewWriter()
	w.Byte(scheduledChangeLog)
	next.Encode(w)
	w.Uint32(delay)
	return w.Bytes()
}
