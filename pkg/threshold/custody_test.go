package threshold

import "testing"

func TestSoftwareCustodySignMatchesRound2Sign(t *testing.T) {
	shares, pub := setupGroup(t, 2, 3)
	signerIDs := []ParticipantID{1, 2}

	custody := NewSoftwareCustody(shares[1])
	if custody.Provider() != CustodySoftware {
		t.Fatalf("want CustodySoftware, got %s", custody.Provider())
	}

	msg := []byte("custody message")
	nonces := make(map[ParticipantID]*SigningNonce)
	var commitments []*SigningCommitment
	for _, id := range signerIDs {
		n, c, err := Round1Commit(id)
		if err != nil {
			t.Fatalf("round1 commit for %d: %v", id, err)
		}
		nonces[id] = n
		commitments = append(commitments, c)
	}

	viaCustody, err := custody.Sign(nonces[1], msg, commitments)
	if err != nil {
		t.Fatalf("custody sign: %v", err)
	}
	viaDirect, err := Round2Sign(shares[1], nonces[1], msg, commitments)
	if err != nil {
		t.Fatalf("direct sign: %v", err)
	}
	if viaCustody.Equal(viaDirect) != 1 {
		t.Fatalf("custody-backed signature share diverged from Round2Sign")
	}

	_ = pub
}

func TestNewCustodyRejectsUnimplementedProviders(t *testing.T) {
	shares, _ := setupGroup(t, 2, 3)

	if _, err := NewCustody(CustodyAWSCloudHSM, shares[1]); err == nil {
		t.Fatal("want an error selecting an unimplemented custody provider")
	}

	c, err := NewCustody(CustodySoftware, shares[1])
	if err != nil {
		t.Fatalf("NewCustody(CustodySoftware): %v", err)
	}
	if c.Provider() != CustodySoftware {
		t.Fatalf("want CustodySoftware, got %s", c.Provider())
	}
}
