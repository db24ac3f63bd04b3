package types

import (
	"sort"

	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

// ConsensusState is the rolling trust anchor of one GRANDPA consensus
// client. LatestHeight/LatestHash always refer to a header proven finalized
// under CurrentAuthorities at CurrentSetID. Mutated only by finality
// verification; the store treats it as an opaque value.
type ConsensusState struct {
	CurrentAuthorities AuthorityList
	CurrentSetID       uint64
	LatestHeight       uint32
	LatestHash         common.Hash
	StateMachine       StateMachine
	ParaIDs            map[uint32]bool
}

// Clone returns a deep copy, so verification can compute a candidate state
// without touching the stored one.
func (cs *ConsensusState) Clone() *ConsensusState {
	out := &ConsensusState{
		CurrentAuthorities: append(AuthorityList(nil), cs.CurrentAuthorities...),
		CurrentSetID:       cs.CurrentSetID,
		LatestHeight:       cs.LatestHeight,
		LatestHash:         cs.LatestHash,
		StateMachine:       cs.StateMachine,
		ParaIDs:            make(map[uint32]bool, len(cs.ParaIDs)),
	}
	for id, tracked := range cs.ParaIDs {
		out.ParaIDs[id] = tracked
	}
	return out
}

func (cs *ConsensusState) Encode(w *codec.Writer) {
	cs.CurrentAuthorities.Encode(w)
	w.Uint64(cs.CurrentSetID)
	w.Uint32(cs.LatestHeight)
	w.Raw(cs.LatestHash.Bytes())
	cs.StateMachine.Encode(w)

	ids := make([]uint32, 0, len(cs.ParaIDs))
	for id := range cs.ParaIDs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	w.Compact(uint64(len(ids)))
	for _, id := range ids {
		w.Uint32(id)
		w.Bool(cs.ParaIDs[id])
	}
}

func (cs *ConsensusState) Bytes() []byte {
	w := codec.NewWriter()
	cs.Encode(w)
	return w.Bytes()
}

func (cs *ConsensusState) Decode(r *codec.Reader) error {
	var err error
	cs.CurrentAuthorities, err = DecodeAuthorityList(r)
	if err != nil {
		return err
	}
	cs.CurrentSetID, err = r.Uint64()
	if err != nil {
		return err
	}
	cs.LatestHeight, err = r.Uint32()
	if err != nil {
		return err
	}
	hash, err := r.Raw(common.HashLength)
	if err != nil {
		return err
	}
	cs.LatestHash = common.BytesToHash(hash)
	if err := cs.StateMachine.Decode(r); err != nil {
		return err
	}
	n, err := r.Length()
	if err != nil {
		return err
	}
	cs.ParaIDs = make(map[uint32]bool, n)
	prev := int64(-1)
	for i := 0; i < n; i++ {
		id, err := r.Uint32()
		if err != nil {
			return err
		}
		if int64(id) <= prev {
			return ismperrors.ErrENonCanonicalMap
		}
		prev = int64(id)
		tracked, err := r.Bool()
		if err != nil {
			return err
		}
		cs.ParaIDs[id] = tracked
	}
	return nil
}

func DecodeConsensusState(data []byte) (*ConsensusState, error) {
	r := codec.NewReader(data)
	cs := new(ConsensusState)
	if err := cs.Decode(r); err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return cs, nil
}

// StateCommitment is what the light client asserts about a remote chain at
// one height. Written once per (state machine, height), never mutated.
type StateCommitment struct {
	Timestamp   uint64
	OverlayRoot *common.Hash
	StateRoot   common.Hash
}

func (sc *StateCommitment) Encode(w *codec.Writer) {
	w.Uint64(sc.Timestamp)
	w.Option(sc.OverlayRoot != nil)
	if sc.OverlayRoot != nil {
		w.Raw(sc.OverlayRoot.Bytes())
	}
	w.Raw(sc.StateRoot.Bytes())
}

func (sc *StateCommitment) Bytes() []byte {
	w := codec.NewWriter()
	sc.Encode(w)
	return w.Bytes()
}

func (sc *StateCommitment) Decode(r *codec.Reader) error {
	var err error
	sc.Timestamp, err = r.Uint64()
	if err != nil {
		return err
	}
	present, err := r.Option()
	if err != nil {
		return err
	}
	if present {
		root, err := r.Raw(common.HashLength)
		if err != nil {
			return err
		}
		h := common.BytesToHash(root)
		sc.OverlayRoot = &h
	}
	root, err := r.Raw(common.HashLength)
	if err != nil {
		return err
	}
	sc.StateRoot = common.BytesToHash(root)
	return nil
}

func DecodeStateCommitment(data []byte) (*StateCommitment, error) {
	r := codec.NewReader(data)
	sc := new(StateCommitment)
	if err := sc.Decode(r); err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return sc, nil
}
