package merkleacc

import "testing"

func leafFromString(s string) Hash {
	return Sum([]byte(s))
}

func TestSingleLeafRootIsLeaf(t *testing.T) {
	a := New()
	leaf := leafFromString("only")
	a.Append(leaf)

	root, ok := a.Root()
	if !ok {
		t.Fatal("expected root after one append")
	}
	if root != leaf {
		t.Fatalf("single-leaf root should equal the leaf itself")
	}
}

func TestEmptyAccumulatorHasNoRoot(t *testing.T) {
	a := New()
	if _, ok := a.Root(); ok {
		t.Fatal("empty accumulator should have no root")
	}
}

func TestAppendProveVerifyRoundTrip(t *testing.T) {
	a := New()
	var leaves []Hash
	for i := 0; i < 37; i++ {
		leaves = append(leaves, leafFromString(string(rune('a'+i%26))+string(rune(i))))
		a.Append(leaves[i])
	}

	root, ok := a.Root()
	if !ok {
		t.Fatal("expected root")
	}

	for i, leaf := range leaves {
		proof, ok := a.Prove(uint64(i))
		if !ok {
			t.Fatalf("expected proof for index %d", i)
		}
		if !Verify(leaf, proof, uint64(i), root) {
			t.Fatalf("proof for index %d failed to verify", i)
		}
	}
}

func TestProveOutOfRangeFailsSilently(t *testing.T) {
	a := New()
	a.Append(leafFromString("a"))

	if proof, ok := a.Prove(5); ok || proof != nil {
		t.Fatal("expected Prove to fail silently for out-of-range index")
	}
}

func TestTamperedLeafFailsVerification(t *testing.T) {
	a := New()
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		a.Append(leafFromString(s))
	}
	root, _ := a.Root()

	proof, ok := a.Prove(2)
	if !ok {
		t.Fatal("expected proof")
	}

	wrongLeaf := leafFromString("not-c")
	if Verify(wrongLeaf, proof, 2, root) {
		t.Fatal("verification should fail for a tampered leaf")
	}
}

func TestTamperedProofFailsVerification(t *testing.T) {
	a := New()
	for _, s := range []string{"a", "b", "c", "d"} {
		a.Append(leafFromString(s))
	}
	root, _ := a.Root()

	proof, ok := a.Prove(3)
	if !ok || len(proof.Path) == 0 {
		t.Fatal("expected a non-trivial proof")
	}
	proof.Path[0].Sibling[0] ^= 0xFF

	if Verify(leafFromString("d"), proof, 3, root) {
		t.Fatal("verification should fail for a tampered proof path")
	}
}

func TestRootChangesDeterministicallyWithSequence(t *testing.T) {
	a1, a2 := New(), New()
	seq := []string{"x", "y", "z", "w", "v"}
	for _, s := range seq {
		a1.Append(leafFromString(s))
		a2.Append(leafFromString(s))
	}
	r1, _ := a1.Root()
	r2, _ := a2.Root()
	if r1 != r2 {
		t.Fatal("same append sequence must produce the same root")
	}
}

func TestOddLeafIsPromotedNotDuplicated(t *testing.T) {
	// With 3 leaves, the root must be H(H(l0,l1), l2) — not H(H(l0,l1), H(l2,l2)).
	a := New()
	l0, l1, l2 := leafFromString("a"), leafFromString("b"), leafFromString("c")
	a.Append(l0)
	a.Append(l1)
	a.Append(l2)

	root, _ := a.Root()
	expected := hashPair(hashPair(l0, l1), l2)
	if root != expected {
		t.Fatal("unpaired leaf must be promoted unchanged, not duplicated")
	}
}
