// Copyright 2025 Certen Protocol
//
// Domain-separated hash-to-scalar, built on BLAKE3 to match the hashing
// primitive used everywhere else in this module (pkg/merkleacc,
// pkg/verification) rather than pulling in a second hash function.

package threshold

import (
	"encoding/binary"

	"filippo.io/edwards25519"
	"lukechampine.com/blake3"
)

// hashToScalar derives a uniformly-distributed scalar from a domain tag and
// an ordered list of byte strings, each length-prefixed to avoid ambiguity
// at concatenation boundaries.
func hashToScalar(domain string, parts ...[]byte) *edwards25519.Scalar {
	h := blake3.New(64, nil)
	h.Write([]byte(domain))
	var lenBuf [4]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(p)))
		h.Write(lenBuf[:])
		h.Write(p)
	}
	sum := h.Sum(nil)
	s, err := edwards25519.NewScalar().SetUniformBytes(sum)
	if err != nil {
		panic("threshold: SetUniformBytes on a 64-byte BLAKE3 digest cannot fail")
	}
	return s
}
