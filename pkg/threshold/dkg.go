// Copyright 2025 Certen Protocol
//
// Key setup for the threshold group: a trusted-dealer path for tests/dev,
// and a three-round Pedersen-style DKG for production, per spec.md 4.2.

package threshold

import (
	"fmt"

	"filippo.io/edwards25519"
)

// TrustedDealerKeygen produces N secret shares and one group public key in a
// single step. Intended for tests and development, not for production
// deployments where no single process should ever hold the group secret.
func TrustedDealerKeygen(threshold int, ids []ParticipantID) (map[ParticipantID]*KeyShare, *PublicKeyPackage, error) {
	if threshold < MinThreshold {
		return nil, nil, fmt.Errorf("threshold %d below MIN_THRESHOLD=%d", threshold, MinThreshold)
	}
	if len(ids) < threshold || len(ids) > MaxParticipants {
		return nil, nil, fmt.Errorf("participant count %d out of bounds [%d, %d]", len(ids), threshold, MaxParticipants)
	}

	secret, err := randomScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("sample group secret: %w", err)
	}
	poly, err := newRandomPolynomial(threshold, secret)
	if err != nil {
		return nil, nil, err
	}

	groupPublic := edwards25519.NewIdentityPoint().ScalarBaseMult(secret)

	shares := make(map[ParticipantID]*KeyShare, len(ids))
	pub := &PublicKeyPackage{VerificationShares: make(map[ParticipantID][32]byte, len(ids))}
	copy(pub.GroupPublicKey[:], groupPublic.Bytes())

	for _, id := range ids {
		x := scalarFromUint16(uint16(id))
		s := poly.evaluate(x)
		v := edwards25519.NewIdentityPoint().ScalarBaseMult(s)

		shares[id] = &KeyShare{ID: id, Secret: s, GroupPublic: groupPublic, VerificationShare: v}

		var vb [32]byte
		copy(vb[:], v.Bytes())
		pub.VerificationShares[id] = vb
	}

	return shares, pub, nil
}

// DKGRound1Package is broadcast by a participant in round 1 of the DKG: a
// Feldman commitment to its secret polynomial plus a Schnorr proof of
// knowledge of the constant term, binding the commitment to the participant
// identity so it cannot be replayed by another party.
type DKGRound1Package struct {
	ID           ParticipantID
	Commitments  []*edwards25519.Point // C_i0..C_i,t-1, C_i0 is this participant's contribution to the group key
	ProofR       *edwards25519.Point
	ProofMu      *edwards25519.Scalar
	secretPoly   *polynomial // retained locally, never sent
}

// DKGRound1 begins the DKG for participant id: samples a random degree
// (threshold-1) polynomial and produces the round-1 broadcast package.
func DKGRound1(id ParticipantID, threshold int, contextString string) (*DKGRound1Package, error) {
	a0, err := randomScalar()
	if err != nil {
		return nil, fmt.Errorf("sample constant term: %w", err)
	}
	poly, err := newRandomPolynomial(threshold, a0)
	if err != nil {
		return nil, err
	}

	k, err := randomScalar()
	if err != nil {
		return nil, fmt.Errorf("sample proof-of-knowledge nonce: %w", err)
	}
	r := edwards25519.NewIdentityPoint().ScalarBaseMult(k)
	c0 := edwards25519.NewIdentityPoint().ScalarBaseMult(a0)

	c := hashToScalar("frost-dkg-pok/v1", []byte(contextString), idBytes(id), r.Bytes(), c0.Bytes())
	mu := edwards25519.NewScalar().Multiply(a0, c)
	mu.Add(mu, k)

	return &DKGRound1Package{
		ID:          id,
		Commitments: poly.commitments(),
		ProofR:      r,
		ProofMu:     mu,
		secretPoly:  poly,
	}, nil
}

// VerifyDKGRound1 checks another participant's proof of knowledge of their
// polynomial's constant term. Returns false rather than panicking on
// malformed input.
func VerifyDKGRound1(pkg *DKGRound1Package, contextString string) bool {
	if pkg == nil || len(pkg.Commitments) == 0 || pkg.ProofR == nil || pkg.ProofMu == nil {
		return false
	}
	c0 := pkg.Commitments[0]
	c := hashToScalar("frost-dkg-pok/v1", []byte(contextString), idBytes(pkg.ID), pkg.ProofR.Bytes(), c0.Bytes())

	// check mu*G == R + c*C0
	lhs := edwards25519.NewIdentityPoint().ScalarBaseMult(pkg.ProofMu)
	rhs := edwards25519.NewIdentityPoint().ScalarMult(c, c0)
	rhs.Add(rhs, pkg.ProofR)
	return lhs.Equal(rhs) == 1
}

// DKGRound2Shares is the set of per-recipient secret share evaluations a
// participant sends privately after round 1 completes (one share per other
// participant, computed from its own secret polynomial).
func DKGRound2Shares(pkg *DKGRound1Package, recipients []ParticipantID) map[ParticipantID]*edwards25519.Scalar {
	out := make(map[ParticipantID]*edwards25519.Scalar, len(recipients))
	for _, r := range recipients {
		x := scalarFromUint16(uint16(r))
		out[r] = pkg.secretPoly.evaluate(x)
	}
	return out
}

// DKGRound3Finalize combines the shares a participant received from every
// dealer (including itself) into its long-lived key share, and combines every
// dealer's constant-term commitment into the group public key package.
func DKGRound3Finalize(self ParticipantID, receivedShares map[ParticipantID]*edwards25519.Scalar, round1 map[ParticipantID]*DKGRound1Package) (*KeyShare, *PublicKeyPackage, error) {
	if len(receivedShares) == 0 {
		return nil, nil, fmt.Errorf("no shares received")
	}

	secret := edwards25519.NewScalar()
	for _, s := range receivedShares {
		secret.Add(secret, s)
	}

	groupPublic := edwards25519.NewIdentityPoint()
	ids := make([]ParticipantID, 0, len(round1))
	for id, pkg := range round1 {
		if len(pkg.Commitments) == 0 {
			return nil, nil, fmt.Errorf("participant %d published no commitments", id)
		}
		groupPublic.Add(groupPublic, pkg.Commitments[0])
		ids = append(ids, id)
	}

	verificationShare := edwards25519.NewIdentityPoint().ScalarBaseMult(secret)

	pub := &PublicKeyPackage{VerificationShares: make(map[ParticipantID][32]byte)}
	copy(pub.GroupPublicKey[:], groupPublic.Bytes())
	var vb [32]byte
	copy(vb[:], verificationShare.Bytes())
	pub.VerificationShares[self] = vb

	return &KeyShare{
		ID:                self,
		Secret:            secret,
		GroupPublic:       groupPublic,
		VerificationShare: verificationShare,
	}, pub, nil
}

func idBytes(id ParticipantID) []byte {
	return []byte{byte(id), byte(id >> 8)}
}
