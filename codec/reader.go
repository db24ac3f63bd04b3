package codec

import (
	"encoding/binary"

	"github.com/polytope-labs/go-ismp/ismperrors"
)

// Reader decodes from a byte slice without ever panicking on malformed
// input. All length and variant checks return coded errors.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining reports the bytes not yet consumed.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Finish fails if the reader has unconsumed bytes.
func (r *Reader) Finish() error {
	if r.off != len(r.data) {
		return ismperrors.ErrETrailingBytes
	}
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, ismperrors.ErrEUnexpectedEOF
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Raw reads n bytes verbatim. The returned slice aliases the input.
func (r *Reader) Raw(n int) ([]byte, error) {
	return r.take(n)
}

func (r *Reader) Uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Compact reads a compact integer and enforces the minimal encoding for its
// value: a value that fits a shorter mode must use it.
func (r *Reader) Compact() (uint64, error) {
	first, err := r.Byte()
	if err != nil {
		return 0, err
	}
	switch first & 0b11 {
	case 0:
		return uint64(first >> 2), nil
	case 1:
		second, err := r.Byte()
		if err != nil {
			return 0, err
		}
		v := (uint64(first) | uint64(second)<<8) >> 2
		if v < 1<<6 {
			return 0, ismperrors.ErrENonCanonicalInt
		}
		return v, nil
	case 2:
		rest, err := r.take(3)
		if err != nil {
			return 0, err
		}
		v := (uint64(first) | uint64(rest[0])<<8 | uint64(rest[1])<<16 | uint64(rest[2])<<24) >> 2
		if v < 1<<14 {
			return 0, ismperrors.ErrENonCanonicalInt
		}
		return v, nil
	default:
		n := int(first>>2) + 4
		if n > 8 {
			return 0, ismperrors.ErrELengthOverflow
		}
		b, err := r.take(n)
		if err != nil {
			return 0, err
		}
		var v uint64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
		if v < 1<<30 || b[n-1] == 0 {
			return 0, ismperrors.ErrENonCanonicalInt
		}
		return v, nil
	}
}

// VarBytes reads a compact length prefix and that many bytes.
func (r *Reader) VarBytes() ([]byte, error) {
	n, err := r.Compact()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		return nil, ismperrors.ErrELengthOverflow
	}
	return r.take(int(n))
}

func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ismperrors.ErrEInvalidEnumVariant
	}
}

// Option reads the presence byte of an optional value.
func (r *Reader) Option() (bool, error) {
	return r.Bool()
}

// Length reads a compact collection length, bounded by the remaining input
// so a hostile prefix cannot trigger a huge allocation.
func (r *Reader) Length() (int, error) {
	n, err := r.Compact()
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Remaining()) {
		return 0, ismperrors.ErrELengthOverflow
	}
	return int(n), nil
}
