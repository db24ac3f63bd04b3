package types

import (
	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

// Digest item variant tags, matching the Substrate header layout.
type DigestKind byte

const (
	DigestOther      DigestKind = 0
	DigestConsensus  DigestKind = 4
	DigestSeal       DigestKind = 5
	DigestPreRuntime DigestKind = 6
)

// Consensus engine ids carried in digest items.
var (
	GrandpaEngineID = [4]byte{'F', 'R', 'N', 'K'}
	AuraEngineID    = [4]byte{'a', 'u', 'r', 'a'}
	IsmpEngineID    = [4]byte{'I', 'S', 'M', 'P'}
)

// DigestItem is one entry of a header's digest log. Engine is only
// meaningful for the Consensus, Seal and PreRuntime kinds.
type DigestItem struct {
	Kind   DigestKind
	Engine [4]byte
	Data   []byte
}

func (d *DigestItem) Encode(w *codec.Writer) {
	w.Byte(byte(d.Kind))
	switch d.Kind {
	case DigestOther:
		w.VarBytes(d.Data)
	default:
		w.Raw(d.Engine[:])
		w.VarBytes(d.Data)
	}
}

func (d *DigestItem) Decode(r *codec.Reader) error {
	tag, err := r.Byte()
	if err != nil {
		return err
	}
	switch DigestKind(tag) {
	case DigestOther:
		d.Kind = DigestOther
		d.Data, err = r.VarBytes()
		return err
	case DigestConsensus, DigestSeal, DigestPreRuntime:
		d.Kind = DigestKind(tag)
		engine, err := r.Raw(4)
		if err != nil {
			return err
		}
		copy(d.Engine[:], engine)
		d.Data, err = r.VarBytes()
		return err
	default:
		return ismperrors.ErrEInvalidEnumVariant
	}
}
