package merkle

// CheckProof replays proof starting from leaf and returns the recomputed root.
// A node whose side is neither SideLeft nor SideRight cannot be folded; the
// zero Digest is returned in that case.
func CheckProof(proof Proof, leaf Leaf, h Hasher) Digest {
	root, _ := replayProof(proof, leaf, h)
	return root
}

func replayProof(proof Proof, leaf Leaf, h Hasher) (Digest, bool) {
	current := leaf
	for _, node := range proof {
		switch node.Side {
		case SideRight:
			current = h.HashPair(current, node.Digest)
		case SideLeft:
			current = h.HashPair(node.Digest, current)
		default:
			return Digest{}, false
		}
	}
	return current, true
}

// VerifyProof reports whether proof connects leaf to root under the default
// keccak256 hasher. A mismatch is a normal negative outcome, not an error.
func VerifyProof(proof Proof, leaf Leaf, root Root) bool {
	return VerifyProofWithHasher(proof, leaf, root, DefaultHasher())
}

// VerifyProofWithHasher is VerifyProof with an explicit hasher. A proof
// holding an unknown side never verifies, even against the zero root.
func VerifyProofWithHasher(proof Proof, leaf Leaf, root Root, h Hasher) bool {
	computed, ok := replayProof(proof, leaf, h)
	return ok && computed == root
}
