// Copyright 2025 Certen Protocol
//
// Ed25519Signer implements Signer with one ordinary Ed25519 keypair per
// voter. Per the spec's Open Question decision, individual consensus votes
// are independently signed — the FROST threshold signature in pkg/threshold
// is reserved for outcome records, not consensus messages — so this uses
// plain crypto/ed25519 rather than the threshold package.

package consensus

import "crypto/ed25519"

// Ed25519Signer signs with one local private key and verifies against a
// fixed set of known validator public keys.
type Ed25519Signer struct {
	privateKey ed25519.PrivateKey
	publicKeys map[string]ed25519.PublicKey
}

// NewEd25519Signer builds a signer for a validator holding priv, able to
// verify votes from every validator in publicKeys (including itself).
func NewEd25519Signer(priv ed25519.PrivateKey, publicKeys map[string]ed25519.PublicKey) *Ed25519Signer {
	return &Ed25519Signer{privateKey: priv, publicKeys: publicKeys}
}

func (s *Ed25519Signer) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(s.privateKey, payload), nil
}

func (s *Ed25519Signer) Verify(voter string, payload, sig []byte) bool {
	pub, ok := s.publicKeys[voter]
	if !ok {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}
