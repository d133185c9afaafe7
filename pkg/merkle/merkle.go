// Package merkle binds an ordered batch of payloads to a single root hash
// and produces/verifies inclusion proofs. The hash family is injected; the
// default uses golang.org/x/crypto/sha3 (Keccak-256).
package merkle

import (
	"github.com/driftline-labs/dexcore/pkg/xerr"
	"golang.org/x/crypto/sha3"
)

// HashFunc is any 32-byte collision-resistant hash. The core never hard-codes
// a specific family; callers may inject their own.
type HashFunc func([]byte) [32]byte

// DefaultHash is Keccak-256.
func DefaultHash(b []byte) [32]byte {
	var out [32]byte
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	h.Sum(out[:0])
	return out
}

const (
	leafTag  byte = 0x00
	innerTag byte = 0x01
)

// emptyRoot is the sentinel root for a zero-leaf batch, distinct from any
// single-leaf root because it never passes through the hash function at all.
var emptyRoot = [32]byte{}

// Side identifies which side of a parent node a sibling hash sits on.
type Side int8

const (
	Left Side = iota
	Right
)

// ProofStep is one (sibling, side) pair climbing from leaf to root.
type ProofStep struct {
	Sibling [32]byte
	Side    Side
}

// Tree is a built Merkle tree over an ordered batch of leaf payloads.
type Tree struct {
	hash   HashFunc
	levels [][][32]byte // levels[0] = leaf hashes, levels[len-1] = {root}
	n      int          // original batch length, before padding
}

// Build hashes each payload into a domain-separated leaf hash, then folds
// levels pairwise up to a single root. An odd trailing node at any level is
// duplicated (the standard Bitcoin rule) so the tree stays perfect.
func Build(batch [][]byte, hash HashFunc) *Tree {
	if hash == nil {
		hash = DefaultHash
	}
	t := &Tree{hash: hash, n: len(batch)}
	if len(batch) == 0 {
		t.levels = [][][32]byte{{emptyRoot}}
		return t
	}

	leaves := make([][32]byte, len(batch))
	for i, payload := range batch {
		leaves[i] = hash(append([]byte{leafTag}, payload...))
	}
	t.levels = append(t.levels, leaves)

	cur := leaves
	for len(cur) > 1 {
		if len(cur)%2 == 1 {
			cur = append(cur, cur[len(cur)-1])
		}
		next := make([][32]byte, len(cur)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(hash, cur[2*i], cur[2*i+1])
		}
		t.levels = append(t.levels, next)
		cur = next
	}
	return t
}

func hashPair(hash HashFunc, left, right [32]byte) [32]byte {
	buf := make([]byte, 0, 1+64)
	buf = append(buf, innerTag)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return hash(buf)
}

// Root returns the batch's root hash.
func (t *Tree) Root() [32]byte {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the inclusion proof for the leaf at index, climbing from
// leaf to root.
func (t *Tree) Proof(index int) ([]ProofStep, error) {
	if index < 0 || index >= t.n {
		return nil, xerr.E(xerr.OutOfRange, "merkle.Proof", nil, "index", index, "batch_len", t.n)
	}

	var steps []ProofStep
	idx := index
	for level := 0; level < len(t.levels)-1; level++ {
		nodes := t.levels[level]
		// The padded duplicate-last-node rule means a level may have one
		// fewer real node than its length implies; recompute the paired
		// index directly against the (possibly odd) level length used when
		// this level was folded.
		siblingIdx := idx ^ 1
		if siblingIdx >= len(nodes) {
			siblingIdx = idx // duplicated trailing leaf is its own sibling
		}
		side := Right
		if idx%2 == 1 {
			side = Left
		}
		steps = append(steps, ProofStep{Sibling: nodes[siblingIdx], Side: side})
		idx /= 2
	}
	return steps, nil
}

// Verify recomputes the root from leaf and proof and compares against root.
// It does not require a built Tree; any HashFunc-compatible proof producer
// may be verified here.
func Verify(leaf []byte, proof []ProofStep, root [32]byte, hash HashFunc) bool {
	if hash == nil {
		hash = DefaultHash
	}
	cur := hash(append([]byte{leafTag}, leaf...))
	for _, step := range proof {
		if step.Side == Left {
			cur = hashPair(hash, step.Sibling, cur)
		} else {
			cur = hashPair(hash, cur, step.Sibling)
		}
	}
	return cur == root
}
