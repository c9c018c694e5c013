package merkle

// BuildRoot reduces leaves to a single root digest.
//
// Each layer is scanned in non-overlapping pairs from the left. A full pair is
// replaced by h.HashPair(left, right); a trailing unpaired node is promoted to
// the next layer unchanged rather than duplicated. A single leaf is its own
// root and costs no hashing.
func BuildRoot(leaves []Leaf, h Hasher) (Root, error) {
	if len(leaves) == 0 {
		return Root{}, ErrEmptyLeaves
	}
	return buildRoot(leaves, h), nil
}

// buildRoot assumes a non-empty leaf slice and never mutates it.
func buildRoot(leaves []Leaf, h Hasher) Root {
	currentLevel := leaves
	for len(currentLevel) > 1 {
		currentLevel = upLayer(currentLevel, h)
	}
	return currentLevel[0]
}

// upLayer computes the next layer up. It is shared by the root builder and
// the mixed proof walk so the odd-node policy cannot drift between them.
func upLayer(level []Digest, h Hasher) []Digest {
	nextLevel := make([]Digest, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		if i+1 < len(level) {
			nextLevel = append(nextLevel, h.HashPair(level[i], level[i+1]))
		} else {
			// Odd node out: promote as-is
			nextLevel = append(nextLevel, level[i])
		}
	}
	return nextLevel
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// IndexOf returns the position of the first occurrence of leaf, or -1.
func IndexOf(leaves []Leaf, leaf Leaf) int {
	for i, l := range leaves {
		if l == leaf {
			return i
		}
	}
	return -1
}
