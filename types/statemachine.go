package types

import (
	"fmt"

	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

// StateMachineKind tags the closed set of chain flavors this module can
// identify a counterparty by.
type StateMachineKind byte

const (
	// Parachain on the Polkadot relay chain, identified by para id.
	StateMachinePolkadot StateMachineKind = iota
	// Parachain on the Kusama relay chain, identified by para id.
	StateMachineKusama
	// Standalone GRANDPA chain, identified by a 4-byte chain id.
	StateMachineSubstrate
)

// StateMachine identifies a chain. Exactly one of ParaID/ChainID is
// meaningful depending on Kind.
type StateMachine struct {
	Kind    StateMachineKind
	ParaID  uint32
	ChainID [4]byte
}

func (s StateMachine) String() string {
	switch s.Kind {
	case StateMachinePolkadot:
		return fmt.Sprintf("POLKADOT-%d", s.ParaID)
	case StateMachineKusama:
		return fmt.Sprintf("KUSAMA-%d", s.ParaID)
	default:
		return fmt.Sprintf("SUBSTRATE-%s", s.ChainID)
	}
}

func (s *StateMachine) Encode(w *codec.Writer) {
	w.Byte(byte(s.Kind))
	switch s.Kind {
	case StateMachinePolkadot, StateMachineKusama:
		w.Uint32(s.ParaID)
	default:
		w.Raw(s.ChainID[:])
	}
}

func (s *StateMachine) Decode(r *codec.Reader) error {
	tag, err := r.Byte()
	if err != nil {
		return err
	}
	switch StateMachineKind(tag) {
	case StateMachinePolkadot, StateMachineKusama:
		s.Kind = StateMachineKind(tag)
		s.ParaID, err = r.Uint32()
		return err
	case StateMachineSubstrate:
		s.Kind = StateMachineSubstrate
		chainID, err := r.Raw(4)
		if err != nil {
			return err
		}
		copy(s.ChainID[:], chainID)
		return nil
	default:
		return ismperrors.ErrEInvalidEnumVariant
	}
}

// ConsensusClientID names a registered consensus client instance.
type ConsensusClientID [4]byte

func (id ConsensusClientID) String() string {
	return string(id[:])
}

// StateMachineID pairs a chain with the consensus client vouching for it.
type StateMachineID struct {
	StateID         StateMachine
	ConsensusClient ConsensusClientID
}

func (id *StateMachineID) Encode(w *codec.Writer) {
	id.StateID.Encode(w)
	w.Raw(id.ConsensusClient[:])
}

func (id *StateMachineID) Decode(r *codec.Reader) error {
	if err := id.StateID.Decode(r); err != nil {
		return err
	}
	client, err := r.Raw(4)
	if err != nil {
		return err
	}
	copy(id.ConsensusClient[:], client)
	return nil
}

func (id StateMachineID) Bytes() []byte {
	w := codec.NewWriter()
	id.Encode(w)
	return w.Bytes()
}

// StateMachineHeight is a (chain, height) coordinate.
type StateMachineHeight struct {
	ID     StateMachineID
	Height uint32
}

func (h *StateMachineHeight) Encode(w *codec.Writer) {
	h.ID.Encode(w)
	w.Uint32(h.Height)
}

func (h *StateMachineHeight) Decode(r *codec.Reader) error {
	if err := h.ID.Decode(r); err != nil {
		return err
	}
	var err error
	h.Height, err = r.Uint32()
	return err
}
