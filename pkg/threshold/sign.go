// Copyright 2025 Certen Protocol
//
// Two-round FROST signing session: commit (round 1), sign (round 2), and
// coordinator-side aggregation/verification. Shape follows the Signer/Nonce/
// NonceCommitment split of threshold-network-roast-go's frost.Signer, ported
// from its secp256k1 big.Int arithmetic to edwards25519 Scalar/Point ops.

package threshold

import (
	"fmt"

	"filippo.io/edwards25519"
)

// SigningNonce is the secret pair a signer samples in round 1. It MUST be
// discarded after round 2 and never reused across sessions.
type SigningNonce struct {
	Hiding  *edwards25519.Scalar
	Binding *edwards25519.Scalar
}

// SigningCommitment is the public half of a signer's round-1 output,
// broadcast to the coordinator and other signers.
type SigningCommitment struct {
	ID      ParticipantID
	Hiding  *edwards25519.Point
	Binding *edwards25519.Point
}

// Round1Commit samples fresh hiding/binding nonces for a signing session and
// returns the secret nonce pair alongside the public commitment to publish.
func Round1Commit(id ParticipantID) (*SigningNonce, *SigningCommitment, error) {
	hiding, err := randomScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("sample hiding nonce: %w", err)
	}
	binding, err := randomScalar()
	if err != nil {
		return nil, nil, fmt.Errorf("sample binding nonce: %w", err)
	}

	nonce := &SigningNonce{Hiding: hiding, Binding: binding}
	commitment := &SigningCommitment{
		ID:      id,
		Hiding:  edwards25519.NewIdentityPoint().ScalarBaseMult(hiding),
		Binding: edwards25519.NewIdentityPoint().ScalarBaseMult(binding),
	}
	return nonce, commitment, nil
}

// bindingFactor computes rho_i, binding participant i's nonces to the exact
// commitment set and message for this session, preventing nonce reuse
// attacks across concurrently signed messages.
func bindingFactor(id ParticipantID, msg []byte, commitments []*SigningCommitment) *edwards25519.Scalar {
	parts := [][]byte{msg}
	for _, c := range commitments {
		parts = append(parts, idBytes(c.ID), c.Hiding.Bytes(), c.Binding.Bytes())
	}
	parts = append(parts, idBytes(id))
	return hashToScalar("frost-sign-binding/v1", parts...)
}

// groupCommitment computes R = sum_i (D_i + rho_i * E_i) over the signing
// set, and returns it alongside the per-participant binding factors.
func groupCommitment(msg []byte, commitments []*SigningCommitment) (*edwards25519.Point, map[ParticipantID]*edwards25519.Scalar) {
	r := edwards25519.NewIdentityPoint()
	rhos := make(map[ParticipantID]*edwards25519.Scalar, len(commitments))
	for _, c := range commitments {
		rho := bindingFactor(c.ID, msg, commitments)
		rhos[c.ID] = rho

		term := edwards25519.NewIdentityPoint().ScalarMult(rho, c.Binding)
		term.Add(term, c.Hiding)
		r.Add(r, term)
	}
	return r, rhos
}

func challenge(r *edwards25519.Point, groupPublic *edwards25519.Point, msg []byte) *edwards25519.Scalar {
	return hashToScalar("frost-sign-challenge/v1", r.Bytes(), groupPublic.Bytes(), msg)
}

// Round2Sign produces this signer's 32-byte signature share. The caller must
// hold commitments (including its own) from at least the group's threshold
// number of participants; Round2Sign itself does not enforce the threshold
// since a signer may begin round 2 as soon as it has enough commitments,
// independent of what the coordinator ultimately collects.
func Round2Sign(share *KeyShare, nonce *SigningNonce, msg []byte, commitments []*SigningCommitment) (*edwards25519.Scalar, error) {
	set := make([]ParticipantID, 0, len(commitments))
	for _, c := range commitments {
		set = append(set, c.ID)
	}
	set = sortedIDs(set)

	r, rhos := groupCommitment(msg, commitments)
	c := challenge(r, share.GroupPublic, msg)
	lambda := lagrangeCoefficient(share.ID, set)
	rho := rhos[share.ID]

	// z_i = d_i + (e_i * rho_i) + lambda_i * s_i * c
	z := edwards25519.NewScalar().Multiply(nonce.Binding, rho)
	z.Add(z, nonce.Hiding)

	term := edwards25519.NewScalar().Multiply(lambda, share.Secret)
	term.Multiply(term, c)
	z.Add(z, term)

	return z, nil
}

// SignatureShare is one participant's contribution to an aggregated
// signature, along with the public commitment it was computed over so the
// coordinator can verify it before aggregating.
type SignatureShare struct {
	ID    ParticipantID
	Share *edwards25519.Scalar
}

// Aggregate combines signature shares from the exact commitment set into a
// final 64-byte FROST-Ed25519 signature. The signer set is canonicalized by
// ascending participant ID before aggregation so all observers derive
// identical signature bytes regardless of message arrival order.
func Aggregate(pub *PublicKeyPackage, msg []byte, commitments []*SigningCommitment, shares []*SignatureShare, threshold int) ([]byte, error) {
	if len(shares) < threshold {
		return nil, &ErrThresholdNotMet{Signers: len(shares), Threshold: threshold}
	}

	sortCommitmentsByID(commitments)
	sortSharesByID(shares)

	r, rhos := groupCommitment(msg, commitments)

	groupPublic, err := new(edwards25519.Point).SetBytes(pub.GroupPublicKey[:])
	if err != nil {
		return nil, fmt.Errorf("decode group public key: %w", err)
	}
	c := challenge(r, groupPublic, msg)

	set := make([]ParticipantID, 0, len(commitments))
	commitmentByID := make(map[ParticipantID]*SigningCommitment, len(commitments))
	for _, cm := range commitments {
		set = append(set, cm.ID)
		commitmentByID[cm.ID] = cm
	}
	set = sortedIDs(set)

	z := edwards25519.NewScalar()
	for _, sh := range shares {
		cm, ok := commitmentByID[sh.ID]
		if !ok {
			return nil, &ErrInvalidShare{Participant: sh.ID}
		}
		vb, ok := pub.VerificationShares[sh.ID]
		if !ok {
			return nil, &ErrInvalidShare{Participant: sh.ID}
		}
		verificationShare, err := new(edwards25519.Point).SetBytes(vb[:])
		if err != nil {
			return nil, &ErrInvalidShare{Participant: sh.ID}
		}

		if !verifyShare(sh, cm, rhos[sh.ID], c, verificationShare, set) {
			return nil, &ErrInvalidShare{Participant: sh.ID}
		}

		z.Add(z, sh.Share)
	}

	sig := make([]byte, 64)
	copy(sig[:32], r.Bytes())
	copy(sig[32:], z.Bytes())
	return sig, nil
}

// verifyShare checks z_i*G == (D_i + rho_i*E_i) + c*lambda_i*VerificationShare_i.
func verifyShare(sh *SignatureShare, cm *SigningCommitment, rho, c *edwards25519.Scalar, verificationShare *edwards25519.Point, set []ParticipantID) bool {
	lhs := edwards25519.NewIdentityPoint().ScalarBaseMult(sh.Share)

	rhs := edwards25519.NewIdentityPoint().ScalarMult(rho, cm.Binding)
	rhs.Add(rhs, cm.Hiding)

	lambda := lagrangeCoefficient(sh.ID, set)
	coeff := edwards25519.NewScalar().Multiply(lambda, c)
	term := edwards25519.NewIdentityPoint().ScalarMult(coeff, verificationShare)
	rhs.Add(rhs, term)

	return lhs.Equal(rhs) == 1
}

// Verify checks a 64-byte FROST-Ed25519 signature against a message and
// group public key. Deterministic, side-effect free, and never panics: a
// malformed signature or key simply fails verification.
func Verify(msg, sig []byte, groupPublicKey [32]byte) bool {
	if len(sig) != 64 {
		return false
	}

	r, err := new(edwards25519.Point).SetBytes(sig[:32])
	if err != nil {
		return false
	}
	z, err := new(edwards25519.Scalar).SetCanonicalBytes(sig[32:])
	if err != nil {
		return false
	}
	groupPublic, err := new(edwards25519.Point).SetBytes(groupPublicKey[:])
	if err != nil {
		return false
	}

	c := challenge(r, groupPublic, msg)

	// s*G =? R + c*A
	lhs := edwards25519.NewIdentityPoint().ScalarBaseMult(z)
	rhs := edwards25519.NewIdentityPoint().ScalarMult(c, groupPublic)
	rhs.Add(rhs, r)

	return lhs.Equal(rhs) == 1
}

func sortCommitmentsByID(c []*SigningCommitment) {
	for i := 1; i < len(c); i++ {
		for j := i; j > 0 && c[j-1].ID > c[j].ID; j-- {
			c[j-1], c[j] = c[j], c[j-1]
		}
	}
}

func sortSharesByID(s []*SignatureShare) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1].ID > s[j].ID; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
