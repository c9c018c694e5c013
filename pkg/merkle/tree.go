package merkle

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MerkleTree owns a leaf sequence, the hasher it was built with, and the
// root computed at construction. It is never mutated afterwards, so proofs
// may be generated from many goroutines without coordination.
type MerkleTree struct {
	leaves []Leaf
	root   Root
	hasher Hasher
}

// NewTree builds a tree over leaves with the default keccak256 hasher.
func NewTree(leaves []Leaf) (*MerkleTree, error) {
	return NewTreeWithHasher(leaves, DefaultHasher())
}

// NewTreeWithHasher builds a tree over leaves with h. The leaf slice is
// copied; later changes to it by the caller do not affect the tree.
func NewTreeWithHasher(leaves []Leaf, h Hasher) (*MerkleTree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}
	if h == nil {
		return nil, fmt.Errorf("hasher cannot be nil")
	}

	owned := make([]Leaf, len(leaves))
	copy(owned, leaves)

	return &MerkleTree{
		leaves: owned,
		root:   buildRoot(owned, h),
		hasher: h,
	}, nil
}

// Root returns the tree root.
func (mt *MerkleTree) Root() Root {
	return mt.root
}

// Leaves returns a copy of the leaf sequence.
func (mt *MerkleTree) Leaves() []Leaf {
	out := make([]Leaf, len(mt.leaves))
	copy(out, mt.leaves)
	return out
}

// Len returns the number of leaves.
func (mt *MerkleTree) Len() int {
	return len(mt.leaves)
}

// Hasher returns the hasher the tree was built with.
func (mt *MerkleTree) Hasher() Hasher {
	return mt.hasher
}

// Contains reports whether leaf occurs anywhere in the tree.
func (mt *MerkleTree) Contains(leaf Leaf) bool {
	return IndexOf(mt.leaves, leaf) >= 0
}

// MakeProof generates a proof for the first occurrence of leaf.
func (mt *MerkleTree) MakeProof(leaf Leaf) (Proof, error) {
	return BuildProof(mt.leaves, leaf, mt.hasher)
}

// MakeProofAt generates a proof for the leaf at index.
func (mt *MerkleTree) MakeProofAt(index int) (Proof, error) {
	return BuildProofAt(mt.leaves, index, mt.hasher)
}

// CheckProof replays proof from leaf with the tree hasher and returns the
// recomputed root.
func (mt *MerkleTree) CheckProof(proof Proof, leaf Leaf) Digest {
	return CheckProof(proof, leaf, mt.hasher)
}

// Verify reports whether proof connects leaf to this tree's root.
func (mt *MerkleTree) Verify(proof Proof, leaf Leaf) bool {
	return VerifyProofWithHasher(proof, leaf, mt.root, mt.hasher)
}

// MakeProofs generates one proof per target, concurrently, using at most
// workers goroutines (workers <= 0 means unbounded). Results are returned in
// the order of targets. The first failure cancels the remaining work.
func (mt *MerkleTree) MakeProofs(ctx context.Context, targets []Leaf, workers int) ([]Proof, error) {
	proofs := make([]Proof, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			proof, err := mt.MakeProof(target)
			if err != nil {
				return fmt.Errorf("proof %d: %w", i, err)
			}
			proofs[i] = proof
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return proofs, nil
}
