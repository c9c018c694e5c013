package merkle

import (
	"github.com/ethereum/go-ethereum/crypto"
)

// Hasher is the hash primitive the tree is built with. HashPair must equal
// Hash(left || right) with no separator or length prefix, otherwise proofs
// built by one party will not replay for another.
type Hasher interface {
	Hash(data []byte) Digest
	HashPair(left, right Digest) Digest
}

// HashFunc adapts a plain hash function into a Hasher. HashPair is derived
// from the function by concatenation.
type HashFunc func(data []byte) Digest

// Hash calls f(data).
func (f HashFunc) Hash(data []byte) Digest {
	return f(data)
}

// HashPair computes f(left || right).
func (f HashFunc) HashPair(left, right Digest) Digest {
	return f(concatPair(left, right))
}

// Keccak256Hasher hashes with keccak256, matching Solidity's keccak256(abi.encodePacked(...)).
type Keccak256Hasher struct{}

var _ Hasher = Keccak256Hasher{}

// Hash computes keccak256(data).
func (Keccak256Hasher) Hash(data []byte) Digest {
	return Digest(crypto.Keccak256Hash(data))
}

// HashPair computes keccak256(left || right) for two 32-byte digests.
func (Keccak256Hasher) HashPair(left, right Digest) Digest {
	return Digest(crypto.Keccak256Hash(left[:], right[:]))
}

// DefaultHasher returns the hasher used when none is supplied.
func DefaultHasher() Hasher {
	return Keccak256Hasher{}
}

// HashLeaves hashes each payload into a leaf with h. Leaf hashing is the
// caller's choice; this is a convenience for callers using the tree hasher.
func HashLeaves(h Hasher, payloads [][]byte) []Leaf {
	leaves := make([]Leaf, len(payloads))
	for i, p := range payloads {
		leaves[i] = h.Hash(p)
	}
	return leaves
}

func concatPair(left, right Digest) []byte {
	data := make([]byte, 2*DigestLength)
	copy(data[:DigestLength], left[:])
	copy(data[DigestLength:], right[:])
	return data
}
