package ismp

import (
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
	"github.com/polytope-labs/go-ismp/log"
	"github.com/polytope-labs/go-ismp/mmr"
	"github.com/polytope-labs/go-ismp/types"
)

// Dispatcher appends outgoing requests/responses to the MMR and keeps the
// acknowledgement/receipt bookkeeping. The MMR hasher is fixed per
// deployment here.
type Dispatcher struct {
	store Host
	kind  common.HashKind
}

func NewDispatcher(store Host, kind common.HashKind) *Dispatcher {
	return &Dispatcher{store: store, kind: kind}
}

func (d *Dispatcher) accumulator() (*mmr.Mmr, error) {
	count, err := d.store.LeafCount()
	if err != nil {
		return nil, err
	}
	return mmr.NewMmr(d.kind, d.store, count), nil
}

func (d *Dispatcher) push(leaf types.Leaf) (common.Hash, uint64, error) {
	m, err := d.accumulator()
	if err != nil {
		return common.Hash{}, 0, err
	}
	encoded := leaf.Bytes()
	index, err := m.Push(encoded)
	if err != nil {
		return common.Hash{}, 0, err
	}
	if err := d.store.PutLeaf(index, encoded); err != nil {
		return common.Hash{}, 0, err
	}
	commitment := leaf.Commitment(d.kind)
	if err := d.store.PutLeafIndex(commitment, index); err != nil {
		return common.Hash{}, 0, err
	}
	if err := d.store.PutLeafCount(m.LeafCount()); err != nil {
		return common.Hash{}, 0, err
	}
	return commitment, index, nil
}

// DispatchRequest appends an outgoing request and returns its commitment
// and leaf index.
func (d *Dispatcher) DispatchRequest(q *types.Request) (common.Hash, uint64, error) {
	commitment, index, err := d.push(types.RequestLeaf(q))
	if err != nil {
		return common.Hash{}, 0, err
	}
	log.Debug("ismp", "request dispatched", "commitment", commitment.String_short(), "leaf", index)
	return commitment, index, nil
}

// DispatchResponse appends an outgoing response and records the receipt for
// the request it answers, so a second response to the same request is
// rejected.
func (d *Dispatcher) DispatchResponse(p *types.PostResponse) (common.Hash, uint64, error) {
	requestLeaf := types.RequestLeaf(&types.Request{Kind: types.RequestPost, Post: &p.Post})
	requestCommitment := requestLeaf.Commitment(d.kind)
	received, err := d.store.ResponseReceived(requestCommitment)
	if err != nil {
		return common.Hash{}, 0, err
	}
	if received {
		return common.Hash{}, 0, ismperrors.ErrDDuplicateResponse
	}
	commitment, index, err := d.push(types.ResponseLeaf(p))
	if err != nil {
		return common.Hash{}, 0, err
	}
	if err := d.store.PutResponseReceipt(requestCommitment); err != nil {
		return common.Hash{}, 0, err
	}
	log.Debug("ismp", "response dispatched", "commitment", commitment.String_short(), "leaf", index)
	return commitment, index, nil
}

// AcknowledgeRequest records delivery of an outgoing request.
func (d *Dispatcher) AcknowledgeRequest(commitment common.Hash) error {
	if _, ok, err := d.store.LeafIndex(commitment); err != nil {
		return err
	} else if !ok {
		return ismperrors.ErrMLeafNotFound
	}
	return d.store.PutRequestAck(commitment)
}

// TimeoutRequest drops the acknowledgement for a timed-out request. The
// leaf itself stays in the log; only the bookkeeping entry goes, the
// deliberate logical-delete layer over the append-only accumulator.
func (d *Dispatcher) TimeoutRequest(commitment common.Hash) error {
	return d.store.DeleteRequestAck(commitment)
}

// RequestAcked reports whether an outgoing request is currently
// acknowledged.
func (d *Dispatcher) RequestAcked(commitment common.Hash) (bool, error) {
	return d.store.RequestAcked(commitment)
}

// Finalize bags the accumulator and returns the digest item carrying the
// new root, for the host to embed in its block header. Called once per
// block; idempotent when nothing was pushed.
func (d *Dispatcher) Finalize() (uint64, common.Hash, *types.DigestItem, error) {
	m, err := d.accumulator()
	if err != nil {
		return 0, common.Hash{}, nil, err
	}
	count, root, err := m.Finalize()
	if err != nil {
		return 0, common.Hash{}, nil, err
	}
	digest := &types.DigestItem{
		Kind:   types.DigestConsensus,
		Engine: types.IsmpEngineID,
		Data:   root.Bytes(),
	}
	return count, root, digest, nil
}

// GenerateProof builds a membership proof for the given leaf commitments
// at the accumulator's current size, returning the archived leaves 1:1
// with the proof's indices.
func (d *Dispatcher) GenerateProof(commitments []common.Hash) ([][]byte, *types.MembershipProof, error) {
	m, err := d.accumulator()
	if err != nil {
		return nil, nil, err
	}
	indices := make([]uint64, len(commitments))
	for i, c := range commitments {
		index, ok, err := d.store.LeafIndex(c)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, ismperrors.ErrMLeafNotFound
		}
		indices[i] = index
	}
	proof, err := m.GenerateProof(indices)
	if err != nil {
		return nil, nil, err
	}
	leaves := make([][]byte, len(proof.LeafIndices))
	for i, index := range proof.LeafIndices {
		leaf, ok, err := d.store.Leaf(index)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, ismperrors.ErrMLeafNotFound
		}
		leaves[i] = leaf
	}
	return leaves, proof, nil
}

// VerifyMembership checks a remote chain's membership proof against the
// overlay root committed for it.
func VerifyMembership(kind common.HashKind, overlayRoot common.Hash, proof *types.MembershipProof, leaves [][]byte) error {
	if !mmr.VerifyProof(kind, overlayRoot, proof, leaves) {
		return ismperrors.ErrMInvalidProof
	}
	return nil
}
