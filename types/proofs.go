package types

import (
	"bytes"

	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

// FinalityProof claims Block is finalized. UnknownHeaders carries every
// header the verifier has not seen, covering (last known, Block].
type FinalityProof struct {
	Block          common.Hash
	Justification  []byte
	UnknownHeaders []Header
}

func (f *FinalityProof) Encode(w *codec.Writer) {
	w.Raw(f.Block.Bytes())
	w.VarBytes(f.Justification)
	w.Compact(uint64(len(f.UnknownHeaders)))
	for i := range f.UnknownHeaders {
		f.UnknownHeaders[i].Encode(w)
	}
}

func (f *FinalityProof) Decode(r *codec.Reader) error {
	block, err := r.Raw(common.HashLength)
	if err != nil {
		return err
	}
	f.Block = common.BytesToHash(block)
	if f.Justification, err = r.VarBytes(); err != nil {
		return err
	}
	n, err := r.Length()
	if err != nil {
		return err
	}
	f.UnknownHeaders = make([]Header, n)
	for i := 0; i < n; i++ {
		if err := f.UnknownHeaders[i].Decode(r); err != nil {
			return err
		}
	}
	return nil
}

// Precommit is a vote for TargetHash at TargetNumber.
type Precommit struct {
	TargetHash   common.Hash
	TargetNumber uint32
}

// SignedPrecommit carries the vote, the authority's signature over
// (vote, round, set id) and the authority's key.
type SignedPrecommit struct {
	Precommit Precommit
	Signature Ed25519Signature
	ID        Ed25519Key
}

// GrandpaJustification proves a commit target is finalized: a quorum of
// signed precommits plus the headers connecting their targets to it.
type GrandpaJustification struct {
	Round           uint64
	TargetHash      common.Hash
	TargetNumber    uint32
	Precommits      []SignedPrecommit
	VotesAncestries []Header
}

func (j *GrandpaJustification) Encode(w *codec.Writer) {
	w.Uint64(j.Round)
	w.Raw(j.TargetHash.Bytes())
	w.Uint32(j.TargetNumber)
	w.Compact(uint64(len(j.Precommits)))
	for i := range j.Precommits {
		p := &j.Precommits[i]
		w.Raw(p.Precommit.TargetHash.Bytes())
		w.Uint32(p.Precommit.TargetNumber)
		w.Raw(p.Signature[:])
		w.Raw(p.ID.Bytes())
	}
	w.Compact(uint64(len(j.VotesAncestries)))
	for i := range j.VotesAncestries {
		j.VotesAncestries[i].Encode(w)
	}
}

func (j *GrandpaJustification) Bytes() []byte {
	w := codec.NewWriter()
	j.Encode(w)
	return w.Bytes()
}

func (j *GrandpaJustification) Decode(r *codec.Reader) error {
	var err error
	if j.Round, err = r.Uint64(); err != nil {
		return err
	}
	target, err := r.Raw(common.HashLength)
	if err != nil {
		return err
	}
	j.TargetHash = common.BytesToHash(target)
	if j.TargetNumber, err = r.Uint32(); err != nil {
		return err
	}
	n, err := r.Length()
	if err != nil {
		return err
	}
	j.Precommits = make([]SignedPrecommit, n)
	for i := 0; i < n; i++ {
		p := &j.Precommits[i]
		hash, err := r.Raw(common.HashLength)
		if err != nil {
			return err
		}
		p.Precommit.TargetHash = common.BytesToHash(hash)
		if p.Precommit.TargetNumber, err = r.Uint32(); err != nil {
			return err
		}
		sig, err := r.Raw(64)
		if err != nil {
			return err
		}
		p.Signature = BytesToEd25519Signature(sig)
		id, err := r.Raw(32)
		if err != nil {
			return err
		}
		p.ID = BytesToEd25519Key(id)
	}
	m, err := r.Length()
	if err != nil {
		return err
	}
	j.VotesAncestries = make([]Header, m)
	for i := 0; i < m; i++ {
		if err := j.VotesAncestries[i].Decode(r); err != nil {
			return err
		}
	}
	return nil
}

func DecodeGrandpaJustification(data []byte) (*GrandpaJustification, error) {
	r := codec.NewReader(data)
	j := new(GrandpaJustification)
	if err := j.Decode(r); err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return j, nil
}

// ParachainHeaderProofs proves one parachain's header (and its timestamp
// extrinsic) against one relay header.
type ParachainHeaderProofs struct {
	StateProof     [][]byte
	Extrinsic      []byte
	ExtrinsicProof [][]byte
	ParaID         uint32
}

func (p *ParachainHeaderProofs) Encode(w *codec.Writer) {
	w.Compact(uint64(len(p.StateProof)))
	for _, node := range p.StateProof {
		w.VarBytes(node)
	}
	w.VarBytes(p.Extrinsic)
	w.Compact(uint64(len(p.ExtrinsicProof)))
	for _, node := range p.ExtrinsicProof {
		w.VarBytes(node)
	}
	w.Uint32(p.ParaID)
}

func (p *ParachainHeaderProofs) Decode(r *codec.Reader) error {
	n, err := r.Length()
	if err != nil {
		return err
	}
	p.StateProof = make([][]byte, n)
	for i := 0; i < n; i++ {
		if p.StateProof[i], err = r.VarBytes(); err != nil {
			return err
		}
	}
	if p.Extrinsic, err = r.VarBytes(); err != nil {
		return err
	}
	m, err := r.Length()
	if err != nil {
		return err
	}
	p.ExtrinsicProof = make([][]byte, m)
	for i := 0; i < m; i++ {
		if p.ExtrinsicProof[i], err = r.VarBytes(); err != nil {
			return err
		}
	}
	p.ParaID, err = r.Uint32()
	return err
}

// ParachainHeadersEntry groups the parachain proofs anchored at one relay
// header. Entries in a RelayChainMessage are ordered by RelayHash.
type ParachainHeadersEntry struct {
	RelayHash common.Hash
	Proofs    []ParachainHeaderProofs
}

type ConsensusMessageKind byte

const (
	MessageStandaloneChain ConsensusMessageKind = iota
	MessageRelayChain
)

// StandaloneChainMessage finalizes a standalone GRANDPA chain.
type StandaloneChainMessage struct {
	FinalityProof FinalityProof
}

// RelayChainMessage finalizes a relay chain plus parachain headers proven
// under it.
type RelayChainMessage struct {
	FinalityProof    FinalityProof
	ParachainHeaders []ParachainHeadersEntry
}

// ConsensusMessage is the wire envelope consumed by consensus verification.
type ConsensusMessage struct {
	Kind       ConsensusMessageKind
	Standalone *StandaloneChainMessage
	Relay      *RelayChainMessage
}

func (m *ConsensusMessage) Encode(w *codec.Writer) {
	w.Byte(byte(m.Kind))
	switch m.Kind {
	case MessageStandaloneChain:
		m.Standalone.FinalityProof.Encode(w)
	default:
		m.Relay.FinalityProof.Encode(w)
		w.Compact(uint64(len(m.Relay.ParachainHeaders)))
		for i := range m.Relay.ParachainHeaders {
			entry := &m.Relay.ParachainHeaders[i]
			w.Raw(entry.RelayHash.Bytes())
			w.Compact(uint64(len(entry.Proofs)))
			for j := range entry.Proofs {
				entry.Proofs[j].Encode(w)
			}
		}
	}
}

func (m *ConsensusMessage) Bytes() []byte {
	w := codec.NewWriter()
	m.Encode(w)
	return w.Bytes()
}

func (m *ConsensusMessage) Decode(r *codec.Reader) error {
	tag, err := r.Byte()
	if err != nil {
		return err
	}
	switch ConsensusMessageKind(tag) {
	case MessageStandaloneChain:
		m.Kind = MessageStandaloneChain
		m.Standalone = new(StandaloneChainMessage)
		return m.Standalone.FinalityProof.Decode(r)
	case MessageRelayChain:
		m.Kind = MessageRelayChain
		m.Relay = new(RelayChainMessage)
		if err := m.Relay.FinalityProof.Decode(r); err != nil {
			return err
		}
		n, err := r.Length()
		if err != nil {
			return err
		}
		m.Relay.ParachainHeaders = make([]ParachainHeadersEntry, n)
		var prev []byte
		for i := 0; i < n; i++ {
			entry := &m.Relay.ParachainHeaders[i]
			hash, err := r.Raw(common.HashLength)
			if err != nil {
				return err
			}
			// ordered map keyed by relay hash, strictly increasing
			if prev != nil && bytes.Compare(hash, prev) <= 0 {
				return ismperrors.ErrENonCanonicalMap
			}
			prev = hash
			entry.RelayHash = common.BytesToHash(hash)
			k, err := r.Length()
			if err != nil {
				return err
			}
			entry.Proofs = make([]ParachainHeaderProofs, k)
			for j := 0; j < k; j++ {
				if err := entry.Proofs[j].Decode(r); err != nil {
					return err
				}
			}
		}
		return nil
	default:
		return ismperrors.ErrEInvalidEnumVariant
	}
}

func DecodeConsensusMessage(data []byte) (*ConsensusMessage, error) {
	r := codec.NewReader(data)
	m := new(ConsensusMessage)
	if err := m.Decode(r); err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return m, nil
}

// SubstrateStateProof is a state proof plus the hasher tag the proof's trie
// was built with. The hasher is always carried explicitly, never inferred.
type SubstrateStateProof struct {
	Hasher       common.HashKind
	StorageProof [][]byte
}

func (s *SubstrateStateProof) Encode(w *codec.Writer) {
	w.Byte(byte(s.Hasher))
	w.Compact(uint64(len(s.StorageProof)))
	for _, node := range s.StorageProof {
		w.VarBytes(node)
	}
}

func (s *SubstrateStateProof) Bytes() []byte {
	w := codec.NewWriter()
	s.Encode(w)
	return w.Bytes()
}

func (s *SubstrateStateProof) Decode(r *codec.Reader) error {
	tag, err := r.Byte()
	if err != nil {
		return err
	}
	switch common.HashKind(tag) {
	case common.HashKeccak, common.HashBlake2:
		s.Hasher = common.HashKind(tag)
	default:
		return ismperrors.ErrEInvalidEnumVariant
	}
	n, err := r.Length()
	if err != nil {
		return err
	}
	s.StorageProof = make([][]byte, n)
	for i := 0; i < n; i++ {
		if s.StorageProof[i], err = r.VarBytes(); err != nil {
			return err
		}
	}
	return nil
}

func DecodeSubstrateStateProof(data []byte) (*SubstrateStateProof, error) {
	r := codec.NewReader(data)
	s := new(SubstrateStateProof)
	if err := s.Decode(r); err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return s, nil
}

// MembershipProof proves leaves are in the MMR at the recorded size.
type MembershipProof struct {
	MmrSize     uint64
	LeafIndices []uint64
	Proof       []common.Hash
}

func (p *MembershipProof) Encode(w *codec.Writer) {
	w.Uint64(p.MmrSize)
	w.Compact(uint64(len(p.LeafIndices)))
	for _, idx := range p.LeafIndices {
		w.Uint64(idx)
	}
	w.Compact(uint64(len(p.Proof)))
	for _, h := range p.Proof {
		w.Raw(h.Bytes())
	}
}

func (p *MembershipProof) Decode(r *codec.Reader) error {
	var err error
	if p.MmrSize, err = r.Uint64(); err != nil {
		return err
	}
	n, err := r.Length()
	if err != nil {
		return err
	}
	p.LeafIndices = make([]uint64, n)
	for i := 0; i < n; i++ {
		if p.LeafIndices[i], err = r.Uint64(); err != nil {
			return err
		}
	}
	m, err := r.Length()
	if err != nil {
		return err
	}
	p.Proof = make([]common.Hash, m)
	for i := 0; i < m; i++ {
		h, err := r.Raw(common.HashLength)
		if err != nil {
			return err
		}
		p.Proof[i] = common.BytesToHash(h)
	}
	return nil
}
