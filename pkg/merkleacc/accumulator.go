// Copyright 2025 Certen Protocol
//
// Merkle Accumulator (C1) — append-only binary hash tree with logarithmic
// inclusion proofs. Grounded on the teacher's pkg/merkle/tree.go shape
// (thread-safe tree, hex-friendly proof struct, constant-time root
// comparison) but reworked to the spec's online, non-padded construction:
// appends are incremental (no full rebuild), internal nodes are
// BLAKE3(left||right), and an unpaired right sibling is never duplicated —
// the left node is promoted to the next level unmodified instead.

package merkleacc

import (
	"crypto/subtle"
	"sync"

	"lukechampine.com/blake3"
)

// LeafSize is the fixed width of a leaf or internal node hash.
const LeafSize = 32

type Hash [LeafSize]byte

// Accumulator is an append-only Merkle tree keyed by insertion index.
type Accumulator struct {
	mu     sync.RWMutex
	levels [][]Hash // levels[0] holds leaves in insertion order
}

// New creates an empty accumulator.
func New() *Accumulator {
	return &Accumulator{levels: [][]Hash{{}}}
}

func hashPair(left, right Hash) Hash {
	h := blake3.New(LeafSize, nil)
	h.Write(left[:])
	h.Write(right[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// depthFor returns the number of levels above the leaves needed to reach a
// single root for n leaves (0 for n<=1).
func depthFor(n int) int {
	depth := 0
	for (1 << depth) < n {
		depth++
	}
	return depth
}

// Append adds a leaf and returns its insertion index. O(log n) amortized:
// at most depthFor(n) levels are touched.
func (a *Accumulator) Append(leaf Hash) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := len(a.levels[0])
	a.levels[0] = append(a.levels[0], leaf)

	cur := leaf
	curIdx := idx
	n := idx + 1
	depth := depthFor(n)

	for lvl := 0; lvl < depth; lvl++ {
		var parent Hash
		if curIdx%2 == 1 {
			left := a.levels[lvl][curIdx-1]
			parent = hashPair(left, cur)
		} else {
			parent = cur // no right sibling yet: promote left unchanged
		}

		nextLvl := lvl + 1
		if len(a.levels) <= nextLvl {
			a.levels = append(a.levels, make([]Hash, 0))
		}
		parentIdx := curIdx / 2
		if parentIdx < len(a.levels[nextLvl]) {
			a.levels[nextLvl][parentIdx] = parent
		} else {
			a.levels[nextLvl] = append(a.levels[nextLvl], parent)
		}

		cur = parent
		curIdx = parentIdx
	}

	return uint64(idx)
}

// Root returns the current root, or (zero, false) for an empty tree.
func (a *Accumulator) Root() (Hash, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rootLocked()
}

func (a *Accumulator) rootLocked() (Hash, bool) {
	n := len(a.levels[0])
	if n == 0 {
		return Hash{}, false
	}
	depth := depthFor(n)
	return a.levels[depth][0], true
}

// Size returns the number of leaves appended so far.
func (a *Accumulator) Size() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return uint64(len(a.levels[0]))
}

// Side records which side of the hash a proof step's sibling sits on.
type Side bool

const (
	SideLeft  Side = false
	SideRight Side = true
)

// ProofStep is one sibling hash plus its side, read bottom-up.
type ProofStep struct {
	Sibling Hash
	Side    Side
}

// Proof is an inclusion proof for a single leaf against a specific root.
type Proof struct {
	Index uint64
	Root  Hash
	Path  []ProofStep
}

// Prove generates an inclusion proof for the leaf at index against the
// current root. Returns (nil, false) for an out-of-range index — it never
// panics.
func (a *Accumulator) Prove(index uint64) (*Proof, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := len(a.levels[0])
	if n == 0 || index >= uint64(n) {
		return nil, false
	}

	root, ok := a.rootLocked()
	if !ok {
		return nil, false
	}

	depth := depthFor(n)
	curIdx := int(index)
	path := make([]ProofStep, 0, depth)

	for lvl := 0; lvl < depth; lvl++ {
		if curIdx%2 == 1 {
			sibling := a.levels[lvl][curIdx-1]
			path = append(path, ProofStep{Sibling: sibling, Side: SideLeft})
		} else if curIdx+1 < len(a.levels[lvl]) {
			// A right sibling has since been appended: this node, promoted
			// unchanged when it was the sole entry at this level, is now a
			// real left child and must hash against it, matching Append's
			// overwrite of the parent slot once the pair completes.
			sibling := a.levels[lvl][curIdx+1]
			path = append(path, ProofStep{Sibling: sibling, Side: SideRight})
		}
		// else: still the lone, unpaired entry at this level — promoted with
		// no proof step, matching Append's promotion behavior.
		curIdx /= 2
	}

	return &Proof{Index: index, Root: root, Path: path}, true
}

// Verify checks a leaf against a proof and expected root. Stateless and
// side-effect free; never panics on malformed input.
func Verify(leaf Hash, proof *Proof, index uint64, root Hash) bool {
	if proof == nil || proof.Index != index {
		return false
	}

	current := leaf
	for _, step := range proof.Path {
		switch step.Side {
		case SideLeft:
			current = hashPair(step.Sibling, current)
		case SideRight:
			current = hashPair(current, step.Sibling)
		}
	}

	return subtle.ConstantTimeCompare(current[:], root[:]) == 1
}

// Sum returns the BLAKE3-32 digest of data, for building leaf hashes from
// arbitrary content.
func Sum(data []byte) Hash {
	return Hash(blake3.Sum256(data))
}
