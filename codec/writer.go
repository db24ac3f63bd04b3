// Package codec implements the deterministic binary encoding shared by all
// wire types in this module: fixed-width little-endian integers, parity-style
// compact integers, length-prefixed byte strings and options. Every value has
// exactly one encoding; the Reader rejects anything else.
package codec

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates an encoding. The zero value is ready to use.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

// Raw appends bytes with no length prefix.
func (w *Writer) Raw(b []byte) {
	w.buf.Write(b)
}

func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *Writer) Uint16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *Writer) Uint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *Writer) Uint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf.Write(tmp[:])
}

// Compact writes v in the four-mode compact form: the low two bits of the
// first byte select single-byte, two-byte, four-byte, or big-integer mode.
func (w *Writer) Compact(v uint64) {
	switch {
	case v < 1<<6:
		w.Byte(byte(v << 2))
	case v < 1<<14:
		w.Uint16(uint16(v<<2 | 1))
	case v < 1<<30:
		w.Uint32(uint32(v<<2 | 2))
	default:
		n := 0
		for tmp := v; tmp > 0; tmp >>= 8 {
			n++
		}
		w.Byte(byte((n-4)<<2 | 3))
		for i := 0; i < n; i++ {
			w.Byte(byte(v >> (8 * i)))
		}
	}
}

// VarBytes writes a compact length prefix followed by the bytes.
func (w *Writer) VarBytes(b []byte) {
	w.Compact(uint64(len(b)))
	w.Raw(b)
}

// Bool writes 0x00 or 0x01.
func (w *Writer) Bool(v bool) {
	if v {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

// Option writes the presence byte; when present the caller writes the value.
func (w *Writer) Option(present bool) {
	w.Bool(present)
}
