package types

import (
	"github.com/polytope-labs/go-ismp/codec"
	"github.com/polytope-labs/go-ismp/common"
	"github.com/polytope-labs/go-ismp/ismperrors"
)

// Header is the concrete block header this module verifies: fixed 32-byte
// hashes, u32 block number, a digest of consensus log items.
type Header struct {
	ParentHash     common.Hash
	Number         uint32
	StateRoot      common.Hash
	ExtrinsicsRoot common.Hash
	Digest         []DigestItem
}

func (h *Header) Encode(w *codec.Writer) {
	w.Raw(h.ParentHash.Bytes())
	w.Compact(uint64(h.Number))
	w.Raw(h.StateRoot.Bytes())
	w.Raw(h.ExtrinsicsRoot.Bytes())
	w.Compact(uint64(len(h.Digest)))
	for i := range h.Digest {
		h.Digest[i].Encode(w)
	}
}

func (h *Header) Bytes() []byte {
	w := codec.NewWriter()
	h.Encode(w)
	return w.Bytes()
}

// Hash is the Blake2b-256 hash of the encoded header.
func (h *Header) Hash() common.Hash {
	return common.Blake2Hash(h.Bytes())
}

func (h *Header) Decode(r *codec.Reader) error {
	parent, err := r.Raw(common.HashLength)
	if err != nil {
		return err
	}
	h.ParentHash = common.BytesToHash(parent)
	number, err := r.Compact()
	if err != nil {
		return err
	}
	if number > 1<<32-1 {
		return ismperrors.ErrELengthOverflow
	}
	h.Number = uint32(number)
	stateRoot, err := r.Raw(common.HashLength)
	if err != nil {
		return err
	}
	h.StateRoot = common.BytesToHash(stateRoot)
	extrinsicsRoot, err := r.Raw(common.HashLength)
	if err != nil {
		return err
	}
	h.ExtrinsicsRoot = common.BytesToHash(extrinsicsRoot)
	n, err := r.Length()
	if err != nil {
		return err
	}
	h.Digest = make([]DigestItem, n)
	for i := 0; i < n; i++ {
		if err := h.Digest[i].Decode(r); err != nil {
			return err
		}
	}
	return nil
}

func DecodeHeader(data []byte) (*Header, error) {
	r := codec.NewReader(data)
	h := new(Header)
	if err := h.Decode(r); err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return h, nil
}

// DigestData returns the payload of the first digest item of the given kind
// and engine id, or nil.
func (h *Header) DigestData(kind DigestKind, engine [4]byte) []byte {
	for i := range h.Digest {
		if h.Digest[i].Kind == kind && h.Digest[i].Engine == engine {
			return h.Digest[i].Data
		}
	}
	return nil
}
