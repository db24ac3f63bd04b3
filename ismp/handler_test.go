package ismp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/grandpa"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/trie"
	"github.com/polytope-labs/go-ismp/types"
)

func TestHandleConsensusMessage(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})
	headers := makeChain(env.genesis.Hash(), 1, 3)
	msg := env.standaloneMessage(headers, 1, 0)

	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 1000, msg))

	cs, err := env.store.ConsensusState(testClientID)
	require.NoError(t, err)
	assert.Equal(t, headers[2].Number, cs.LatestHeight)
	assert.Equal(t, headers[2].Hash(), cs.LatestHash)

	at := types.StateMachineHeight{
		ID:     types.StateMachineID{StateID: cs.StateMachine, ConsensusClient: testClientID},
		Height: headers[2].Number,
	}
	sc, err := env.store.StateCommitment(at)
	require.NoError(t, err)
	assert.Equal(t, headers[2].StateRoot, sc.StateRoot)
	assert.Equal(t, grandpa.AuraTimestamp(&headers[2]), sc.Timestamp)

	latest, err := env.store.LatestStateMachineHeight(at.ID)
	require.NoError(t, err)
	assert.Equal(t, headers[2].Number, latest)
}

func TestHandleConsensusMessageUnknownClient(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})
	headers := makeChain(env.genesis.Hash(), 1, 1)
	msg := env.standaloneMessage(headers, 1, 0)

	other := types.ConsensusClientID{'N', 'O', 'P', 'E'}
	err := env.handler.HandleConsensusMessage(other, 1000, msg)
	assert.ErrorIs(t, err, ismperrors.ErrCUnknownConsensusClient)
}

func TestHandleConsensusMessageFrozenClient(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})
	require.NoError(t, env.handler.FreezeClient(testClientID))

	headers := makeChain(env.genesis.Hash(), 1, 1)
	err := env.handler.HandleConsensusMessage(testClientID, 1000, env.standaloneMessage(headers, 1, 0))
	assert.ErrorIs(t, err, ismperrors.ErrCFrozenClient)
}

func TestHandleConsensusMessageChallengePeriod(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa, ChallengePeriod: 600})

	headers := makeChain(env.genesis.Hash(), 1, 1)
	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 1000, env.standaloneMessage(headers, 1, 0)))

	// a second update inside the window is rejected
	next := makeChain(headers[0].Hash(), 2, 1)
	err := env.handler.HandleConsensusMessage(testClientID, 1300, env.standaloneMessage(next, 2, 0))
	assert.ErrorIs(t, err, ismperrors.ErrCChallengePeriodNotElapsed)

	// and accepted once the period has elapsed
	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 1600, env.standaloneMessage(next, 2, 0)))
}

func TestHandleConsensusMessageZeroChallengePeriodIsTrusted(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})

	headers := makeChain(env.genesis.Hash(), 1, 1)
	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 1000, env.standaloneMessage(headers, 1, 0)))
	next := makeChain(headers[0].Hash(), 2, 1)
	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 1001, env.standaloneMessage(next, 2, 0)))
}

func TestHandleConsensusMessageStaleUpdate(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})

	headers := makeChain(env.genesis.Hash(), 1, 2)
	msg := env.standaloneMessage(headers, 1, 0)
	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 1000, msg))

	// replaying the same target does not advance the client
	err := env.handler.HandleConsensusMessage(testClientID, 2000, msg)
	assert.ErrorIs(t, err, ismperrors.ErrCStaleHeight)
}

func TestHandleConsensusMessageNoPartialWrites(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})
	before, err := env.store.ConsensusState(testClientID)
	require.NoError(t, err)

	// justification signed under the wrong set id fails verification
	headers := makeChain(env.genesis.Hash(), 1, 2)
	err = env.handler.HandleConsensusMessage(testClientID, 1000, env.standaloneMessage(headers, 1, 9))
	require.ErrorIs(t, err, ismperrors.ErrGBadSignature)

	after, err := env.store.ConsensusState(testClientID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	at, err := env.store.ConsensusUpdateTime(testClientID)
	require.NoError(t, err)
	assert.Zero(t, at)
}

func TestHandleConsensusMessageCommitmentsAppendOnly(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})

	headers := makeChain(env.genesis.Hash(), 1, 2)
	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 1000, env.standaloneMessage(headers, 1, 0)))

	cs, err := env.store.ConsensusState(testClientID)
	require.NoError(t, err)
	at := types.StateMachineHeight{
		ID:     types.StateMachineID{StateID: cs.StateMachine, ConsensusClient: testClientID},
		Height: headers[1].Number,
	}
	original, err := env.store.StateCommitment(at)
	require.NoError(t, err)

	// a later update at a higher height never rewrites older commitments
	next := makeChain(headers[1].Hash(), 3, 1)
	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 2000, env.standaloneMessage(next, 2, 0)))
	unchanged, err := env.store.StateCommitment(at)
	require.NoError(t, err)
	assert.Equal(t, original, unchanged)
}

func TestCreateClientRejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})
	err := env.handler.CreateClient(types.ConsensusClientID{'B', 'A', 'D', '!'}, ClientConfig{Kind: ConsensusClientKind(9)}, &types.ConsensusState{})
	assert.ErrorIs(t, err, ismperrors.ErrCUnknownConsensusClient)
}

func TestVerifyStateProof(t *testing.T) {
	st := trie.NewTrie(common.HashBlake2)
	st.Insert([]byte("balance:alice"), []byte{100})
	st.Insert([]byte("balance:bob"), []byte{7})
	root, nodes, err := st.Prove([]byte("balance:alice"), []byte("balance:carol"))
	require.NoError(t, err)

	commitment := &types.StateCommitment{StateRoot: root}
	proof := &types.SubstrateStateProof{Hasher: common.HashBlake2, StorageProof: nodes}

	values, err := VerifyStateProof(commitment, proof, []byte("balance:alice"), []byte("balance:carol"))
	require.NoError(t, err)
	assert.Equal(t, []byte{100}, values["balance:alice"])
	assert.Nil(t, values["balance:carol"])

	// the hasher tag is authoritative; the wrong algorithm cannot verify
	proof.Hasher = common.HashKeccak
	_, err = VerifyStateProof(commitment, proof, []byte("balance:alice"))
	assert.ErrorIs(t, err, ismperrors.ErrSInvalidProof)
}

func TestStateCommitmentOverlayRootFromDigest(t *testing.T) {
	env := newTestEnv(t, ClientConfig{Kind: ConsensusGrandpa})
	overlay := common.Keccak256([]byte("mmr root"))

	headers := makeChain(env.genesis.Hash(), 1, 1)
	headers[0].Digest = append(headers[0].Digest, types.DigestItem{
		Kind:   types.DigestConsensus,
		Engine: types.IsmpEngineID,
		Data:   overlay.Bytes(),
	})
	require.NoError(t, env.handler.HandleConsensusMessage(testClientID, 1000, env.standaloneMessage(headers, 1, 0)))

	cs, err := env.store.ConsensusState(testClientID)
	require.NoError(t, err)
	sc, err := env.store.StateCommitment(types.StateMachineHeight{
		ID:     types.StateMachineID{StateID: cs.StateMachine, ConsensusClient: testClientID},
		Height: headers[0].Number,
	})
	require.NoError(t, err)
	require.NotNil(t, sc.OverlayRoot)
	assert.Equal(t, overlay, *sc.OverlayRoot)
}
