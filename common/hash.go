package common

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// HashKind selects the hashing algorithm for proofs that carry an
// explicit hasher tag. It is never inferred from the data.
type HashKind byte

const (
	HashKeccak HashKind = iota
	HashBlake2
)

// Sum hashes data with the selected algorithm.
func (k HashKind) Sum(data []byte) Hash {
	switch k {
	case HashKeccak:
		return Keccak256(data)
	default:
		return Blake2Hash(data)
	}
}

func (k HashKind) String() string {
	switch k {
	case HashKeccak:
		return "keccak"
	default:
		return "blake2b"
	}
}

// ComputeHash computes the BLAKE2b-256 hash of the given data
func ComputeHash(data []byte) []byte {
	hash := blake2b.Sum256(data)
	return hash[:]
}

func Blake2Hash(data []byte) Hash {
	return BytesToHash(ComputeHash(data))
}

func Keccak256(data []byte) Hash {
	hash := sha3.NewLegacyKeccak256()
	hash.Write(data)
	h := hash.Sum(nil)
	return BytesToHash(h)
}

// Twox64 is the 8-byte xxHash64 (seed 0) used in Substrate storage keys,
// little-endian digest bytes.
func Twox64(data []byte) []byte {
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, xxhash.Sum64(data))
	return out
}

// Twox128 concatenates xxHash64 digests at seeds 0 and 1.
func Twox128(data []byte) []byte {
	h0 := xxhash.NewWithSeed(0)
	h0.Write(data)
	h1 := xxhash.NewWithSeed(1)
	h1.Write(data)
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[:8], h0.Sum64())
	binary.LittleEndian.PutUint64(out[8:], h1.Sum64())
	return out
}

func Uint64ToBytes(val uint64) []byte {
	bytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(bytes, val)
	return bytes
}

func Uint32ToBytes(val uint32) []byte {
	bytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(bytes, val)
	return bytes
}

func BytesToUint64(data []byte) (uint64, bool) {
	if len(data) < 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data), true
}

func BytesToUint32(data []byte) (uint32, bool) {
	if len(data) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data), true
}

func IsNilHash(h Hash) bool {
	return h == Hash{}
}
