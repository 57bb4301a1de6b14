// Copyright 2025 Certen Protocol
//
// FROST-Ed25519 threshold signer (C2). Key material and polynomial helpers,
// grounded on the Participant/Signer shape of threshold-network-roast-go's
// frost package (signerIndex, secretKeyShare, publicKey) but rebased from
// that repo's secp256k1/big.Int arithmetic onto filippo.io/edwards25519
// Scalar/Point operations, per the module's chosen curve.

package threshold

import (
	"crypto/rand"
	"fmt"
	"sort"

	"filippo.io/edwards25519"
)

// ParticipantID identifies a signer within a threshold group. Valid IDs are
// in [1, N]; 0 is reserved and never assigned.
type ParticipantID uint16

// KeyShare is one participant's long-lived secret share of the group key.
type KeyShare struct {
	ID                ParticipantID
	Secret            *edwards25519.Scalar
	GroupPublic       *edwards25519.Point
	VerificationShare *edwards25519.Point // Secret * G, used to check signature shares
}

// PublicKeyPackage is the public material every participant and verifier
// needs: the group key and each participant's verification share.
type PublicKeyPackage struct {
	GroupPublicKey     [32]byte
	VerificationShares map[ParticipantID][32]byte
}

func scalarFromUint16(v uint16) *edwards25519.Scalar {
	var buf [64]byte
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	s, err := edwards25519.NewScalar().SetUniformBytes(buf[:])
	if err != nil {
		panic("threshold: SetUniformBytes on a 64-byte buffer cannot fail")
	}
	return s
}

func randomScalar() (*edwards25519.Scalar, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("read random scalar: %w", err)
	}
	return edwards25519.NewScalar().SetUniformBytes(buf[:])
}

// polynomial is a degree-(threshold-1) polynomial over the scalar field,
// coefficients low-degree first; coefficients[0] is the constant term.
type polynomial struct {
	coefficients []*edwards25519.Scalar
}

func newRandomPolynomial(threshold int, constantTerm *edwards25519.Scalar) (*polynomial, error) {
	coeffs := make([]*edwards25519.Scalar, threshold)
	coeffs[0] = constantTerm
	for i := 1; i < threshold; i++ {
		c, err := randomScalar()
		if err != nil {
			return nil, fmt.Errorf("sample polynomial coefficient %d: %w", i, err)
		}
		coeffs[i] = c
	}
	return &polynomial{coefficients: coeffs}, nil
}

// evaluate computes f(x) via Horner's method.
func (p *polynomial) evaluate(x *edwards25519.Scalar) *edwards25519.Scalar {
	result := edwards25519.NewScalar()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result.Multiply(result, x)
		result.Add(result, p.coefficients[i])
	}
	return result
}

func (p *polynomial) commitments() []*edwards25519.Point {
	out := make([]*edwards25519.Point, len(p.coefficients))
	for i, c := range p.coefficients {
		out[i] = edwards25519.NewIdentityPoint().ScalarBaseMult(c)
	}
	return out
}

// sortedIDs returns ids in canonical ascending order, as required before any
// Lagrange interpolation or aggregation so all observers agree on the result.
func sortedIDs(ids []ParticipantID) []ParticipantID {
	out := make([]ParticipantID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// lagrangeCoefficient computes λ_id for interpolating the polynomial's value
// at x=0 from its values at the points in set (the signing/dealer participant
// set), evaluated for participant id.
func lagrangeCoefficient(id ParticipantID, set []ParticipantID) *edwards25519.Scalar {
	num := scalarOne()
	den := scalarOne()

	xi := scalarFromUint16(uint16(id))
	for _, j := range set {
		if j == id {
			continue
		}
		xj := scalarFromUint16(uint16(j))

		// num *= xj; den *= (xj - xi)
		num.Multiply(num, xj)
		diff := edwards25519.NewScalar().Subtract(xj, xi)
		den.Multiply(den, diff)
	}

	inv := edwards25519.NewScalar().Invert(den)
	return edwards25519.NewScalar().Multiply(num, inv)
}

func scalarOne() *edwards25519.Scalar {
	var buf [64]byte
	buf[0] = 1
	s, _ := edwards25519.NewScalar().SetUniformBytes(buf[:])
	return s
}
