package ismp

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/grandpa"
	"github.com/polytope-labs/go-ismp/storage"
	"github.com/polytope-labs/go-ismp/types"
)

var testClientID = types.ConsensusClientID{'G', 'R', 'P', 'A'}

type testAuthority struct {
	key  types.Ed25519Key
	priv ed25519.PrivateKey
}

func newAuthorities(n int) []testAuthority {
	auths := make([]testAuthority, n)
	for i := range auths {
		priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{byte(i + 1)}, ed25519.SeedSize))
		auths[i] = testAuthority{
			key:  types.BytesToEd25519Key(priv.Public().(ed25519.PublicKey)),
			priv: priv,
		}
	}
	return auths
}

func authorityList(auths []testAuthority) types.AuthorityList {
	list := make(types.AuthorityList, len(auths))
	for i, a := range auths {
		list[i] = types.Authority{Key: a.key, Weight: 1}
	}
	return list
}

func makeChain(parent common.Hash, startNumber uint32, n int) []types.Header {
	headers := make([]types.Header, n)
	for i := 0; i < n; i++ {
		headers[i] = types.Header{
			ParentHash:     parent,
			Number:         startNumber + uint32(i),
			StateRoot:      common.Blake2Hash([]byte{byte(startNumber), byte(i), 's'}),
			ExtrinsicsRoot: common.Blake2Hash([]byte{byte(startNumber), byte(i), 'e'}),
			Digest: []types.DigestItem{
				{Kind: types.DigestPreRuntime, Engine: types.AuraEngineID, Data: common.Uint64ToBytes(uint64(startNumber+uint32(i)) + 1000)},
			},
		}
		parent = headers[i].Hash()
	}
	return headers
}

func makeFinalityProof(auths []testAuthority, headers []types.Header, round, setID uint64) *types.FinalityProof {
	target := &headers[len(headers)-1]
	j := &types.GrandpaJustification{
		Round:        round,
		TargetHash:   target.Hash(),
		TargetNumber: target.Number,
	}
	for _, a := range auths {
		precommit := types.Precommit{TargetHash: target.Hash(), TargetNumber: target.Number}
		j.Precommits = append(j.Precommits, types.SignedPrecommit{
			Precommit: precommit,
			Signature: types.Ed25519Sign(a.priv, grandpa.PrecommitSignable(precommit, round, setID)),
			ID:        a.key,
		})
	}
	return &types.FinalityProof{
		Block:          target.Hash(),
		Justification:  j.Bytes(),
		UnknownHeaders: headers,
	}
}

// testEnv wires a handler and dispatcher over a fresh in-memory store with
// one registered standalone GRANDPA client.
type testEnv struct {
	store      *storage.Store
	handler    *Handler
	dispatcher *Dispatcher
	auths      []testAuthority
	genesis    types.Header
}

func newTestEnv(t *testing.T, cfg ClientConfig) *testEnv {
	t.Helper()
	store, err := storage.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	auths := newAuthorities(3)
	genesis := makeChain(common.Blake2Hash([]byte("genesis")), 0, 1)[0]
	initial := &types.ConsensusState{
		CurrentAuthorities: authorityList(auths),
		CurrentSetID:       0,
		LatestHeight:       genesis.Number,
		LatestHash:         genesis.Hash(),
		StateMachine:       types.StateMachine{Kind: types.StateMachineSubstrate, ChainID: [4]byte{'s', 'o', 'l', 'o'}},
		ParaIDs:            map[uint32]bool{},
	}

	handler := NewHandler(store)
	require.NoError(t, handler.CreateClient(testClientID, cfg, initial))

	return &testEnv{
		store:      store,
		handler:    handler,
		dispatcher: NewDispatcher(store, common.HashKeccak),
		auths:      auths,
		genesis:    genesis,
	}
}

func (e *testEnv) standaloneMessage(headers []types.Header, round, setID uint64) *types.ConsensusMessage {
	return &types.ConsensusMessage{
		Kind: types.MessageStandaloneChain,
		Standalone: &types.StandaloneChainMessage{
			FinalityProof: *makeFinalityProof(e.auths, headers, round, setID),
		},
	}
}

func testPostRequest(nonce uint64) *types.Request {
	return &types.Request{
		Kind: types.RequestPost,
		Post: &types.PostRequest{
			Source:           types.StateMachine{Kind: types.StateMachineSubstrate, ChainID: [4]byte{'s', 'o', 'l', 'o'}},
			Dest:             types.StateMachine{Kind: types.StateMachinePolkadot, ParaID: 2000},
			Nonce:            nonce,
			From:             []byte("source module"),
			To:               []byte("dest module"),
			TimeoutTimestamp: 1_800_000_000,
			Body:             []byte("payload"),
		},
	}
}
