package types

import (
	"bytes"
	"crypto/ed25519"
	"testing"
)

// newTestKey derives a deterministic ed25519 keypair from a single seed byte.
func newTestKey(t *testing.T, seed byte) (Ed25519Key, ed25519.PrivateKey) {
	t.Helper()
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	pub := priv.Public().(ed25519.PublicKey)
	return BytesToEd25519Key(pub), priv
}
