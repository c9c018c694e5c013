package merkle

import (
	"fmt"
)

// BuildProof generates an inclusion proof for target.
//
// When target occurs more than once the first occurrence is proven; use
// BuildProofAt to prove a later position. The strategy is picked by leaf
// count: power-of-two counts use the balanced halving walk, every other count
// uses the layer-by-layer mixed walk.
func BuildProof(leaves []Leaf, target Leaf, h Hasher) (Proof, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}

	index := IndexOf(leaves, target)
	if index < 0 {
		return nil, fmt.Errorf("%w: %s", ErrLeafNotFound, target.Hex())
	}

	return buildProof(leaves, index, h), nil
}

// BuildProofAt generates an inclusion proof for the leaf at index.
func BuildProofAt(leaves []Leaf, index int, h Hasher) (Proof, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeaves
	}
	if index < 0 || index >= len(leaves) {
		return nil, fmt.Errorf("%w: index %d (tree has %d leaves)", ErrIndexOutOfRange, index, len(leaves))
	}

	return buildProof(leaves, index, h), nil
}

func buildProof(leaves []Leaf, index int, h Hasher) Proof {
	if IsPowerOfTwo(len(leaves)) {
		return BuildBalancedProof(leaves, index, h)
	}
	return BuildMixedProof(leaves, index, h)
}

// BuildBalancedProof walks a power-of-two leaf set by repeated halving.
//
// At every level the half that does not hold the target is collapsed to its
// root and emitted as the sibling; the walk then descends into the other half.
// Nodes are collected top-down and reversed before returning. The caller must
// pass an in-range index; the leaf count should be a power of two.
func BuildBalancedProof(leaves []Leaf, index int, h Hasher) Proof {
	proof := make(Proof, 0, bitLength(len(leaves)))

	current := leaves
	for len(current) > 1 {
		if len(current) == 2 {
			// Sibling is the other leaf itself
			sibling := 1 - index
			proof = append(proof, ProofNode{
				Digest: current[sibling],
				Side:   sideOfIndex(sibling),
			})
			break
		}

		half := len(current) / 2
		left, right := current[:half], current[half:]

		if index < half {
			proof = append(proof, ProofNode{Digest: buildRoot(right, h), Side: SideRight})
			current = left
		} else {
			proof = append(proof, ProofNode{Digest: buildRoot(left, h), Side: SideLeft})
			current = right
			index -= half
		}
	}

	// Collected root-side first; proofs read leaf-side first
	for i, j := 0, len(proof)-1; i < j; i, j = i+1, j-1 {
		proof[i], proof[j] = proof[j], proof[i]
	}
	return proof
}

// BuildMixedProof walks an arbitrary leaf set one layer at a time using the
// same pairing and promotion rule as BuildRoot. Nodes are emitted leaf-side
// first. The caller must pass an in-range index.
func BuildMixedProof(leaves []Leaf, index int, h Hasher) Proof {
	proof := make(Proof, 0, bitLength(len(leaves)))

	currentLevel := leaves
	for len(currentLevel) > 1 {
		if index%2 == 0 {
			// A trailing promoted node has no sibling on this layer
			if index+1 < len(currentLevel) {
				proof = append(proof, ProofNode{Digest: currentLevel[index+1], Side: SideRight})
			}
		} else {
			proof = append(proof, ProofNode{Digest: currentLevel[index-1], Side: SideLeft})
		}

		currentLevel = upLayer(currentLevel, h)
		index /= 2
	}

	return proof
}

func sideOfIndex(index int) Side {
	if index%2 == 0 {
		return SideLeft
	}
	return SideRight
}

// bitLength is the number of bits needed to represent n, an upper bound on
// proof length for n leaves.
func bitLength(n int) int {
	length := 0
	for n > 0 {
		length++
		n >>= 1
	}
	return length
}
