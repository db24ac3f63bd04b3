package types

import (
	"crypto/ed25519"

	"github.com/polytope-labs/go-ismp/common"
)

// Ed25519Key is a 32-byte ed25519 public key identifying a GRANDPA authority.
type Ed25519Key common.Hash

type Ed25519Signature [64]byte

func (k Ed25519Key) Bytes() []byte {
	return common.Hash(k).Bytes()
}

func (k Ed25519Key) Hex() string {
	return common.Hash(k).Hex()
}

func BytesToEd25519Key(b []byte) Ed25519Key {
	return Ed25519Key(common.BytesToHash(b))
}

func BytesToEd25519Signature(b []byte) (sig Ed25519Signature) {
	copy(sig[:], b)
	return sig
}

// Ed25519Sign signs msg with a 64-byte expanded private key.
func Ed25519Sign(priv ed25519.PrivateKey, msg []byte) Ed25519Signature {
	return BytesToEd25519Signature(ed25519.Sign(priv, msg))
}

// Ed25519Verify reports whether sig is a valid signature of msg under key.
func Ed25519Verify(key Ed25519Key, msg []byte, sig Ed25519Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(key.Bytes()), msg, sig[:])
}
