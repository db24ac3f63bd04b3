// Package ismp orchestrates the verification core at the storage boundary:
// consensus message handling with atomic commit-at-the-end semantics,
// request/response dispatch into the MMR, and per-block finalization.
package ismp

import (
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/mmr"
	"github.com/polytope-labs/go-ismp/types"
)

// ConsensusStore persists per-client trust state.
type ConsensusStore interface {
	// ConsensusState returns ErrCConsensusStateNotFound for unknown ids.
	ConsensusState(id types.ConsensusClientID) (*types.ConsensusState, error)
	PutConsensusState(id types.ConsensusClientID, cs *types.ConsensusState) error
	// ConsensusUpdateTime is the unix time of the last accepted update,
	// 0 if the client was never updated.
	ConsensusUpdateTime(id types.ConsensusClientID) (uint64, error)
	PutConsensusUpdateTime(id types.ConsensusClientID, at uint64) error
	FrozenClient(id types.ConsensusClientID) (bool, error)
	FreezeClient(id types.ConsensusClientID) error
}

// CommitmentStore persists verified state commitments, append-only per
// (state machine, height).
type CommitmentStore interface {
	StateCommitment(at types.StateMachineHeight) (*types.StateCommitment, error)
	PutStateCommitment(at types.StateMachineHeight, sc *types.StateCommitment) error
	// LatestStateMachineHeight is 0 when no commitment exists yet.
	LatestStateMachineHeight(id types.StateMachineID) (uint32, error)
	PutLatestStateMachineHeight(at types.StateMachineHeight) error
}

// MmrStore persists the accumulator: node hashes, the leaf counter, the
// archived leaf bytes needed for offline proofs, and the index from leaf
// commitment to position.
type MmrStore interface {
	mmr.NodeStore
	LeafCount() (uint64, error)
	PutLeafCount(count uint64) error
	Leaf(index uint64) ([]byte, bool, error)
	PutLeaf(index uint64, leaf []byte) error
	LeafIndex(commitment common.Hash) (uint64, bool, error)
	PutLeafIndex(commitment common.Hash, index uint64) error
}

// ReceiptStore is the logical-delete layer over the append-only leaf log:
// leaves are never removed, only their acknowledgement/receipt entries are.
type ReceiptStore interface {
	RequestAcked(commitment common.Hash) (bool, error)
	PutRequestAck(commitment common.Hash) error
	DeleteRequestAck(commitment common.Hash) error
	ResponseReceived(commitment common.Hash) (bool, error)
	PutResponseReceipt(commitment common.Hash) error
}

// Host is the full persistence collaborator. The core only touches it at
// call boundaries; verification itself is pure.
type Host interface {
	ConsensusStore
	CommitmentStore
	MmrStore
	ReceiptStore
}
