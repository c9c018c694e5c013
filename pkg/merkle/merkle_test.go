package merkle

import (
	"crypto/rand"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// keccak256 leaves and intermediate nodes for "a".."e"
const (
	hexA    = "0x3ac225168df54212a25c1c01fd35bebfea408fdac2e31ddd6f80a4bbf9a5f1cb"
	hexB    = "0xb5553de315e0edf504d9150af82dafa5c4667fa618ed0a6f19c69b41166c5510"
	hexC    = "0x0b42b6393c1f53060fe3ddbfcd7aadcca894465a5a438f69c87d790b2299b9b2"
	hexD    = "0xf1918e8562236eb17adc8502332f4c9c82bc14e19bfc0aa10ab674ff75b3d2f3"
	hexCD   = "0xd253a52d4cb00de2895e85f2529e2976e6aaaa5c18106b68ab66813e14415669"
	hexAB   = "0x805b21d846b189efaeb0377d6bb0d201b3872a363e607c25088f025b0c6ae1f8"
	hexRoot = "0x68203f90e9d07dc5859259d7536e87a6ba9d345f2552b5b9de2999ddce9ce1bf"

	hexRoot3 = "0xaff1208e69c9e8be9b584b07ebac4e48a1ee9d15ce3afe20b77a4d29e4175aa3"
	hexRoot5 = "0x1dd0d2a6ae466d665cb26e1a31f07c57ae5df7d2bc559cd5826d417be9141a5d"
)

func mustDigest(t testing.TB, s string) Digest {
	t.Helper()
	d, err := DigestFromHex(s)
	require.NoError(t, err)
	return d
}

// letterLeaves returns keccak256 of each letter in s, in order
func letterLeaves(s string) []Leaf {
	h := DefaultHasher()
	leaves := make([]Leaf, 0, len(s))
	for _, c := range s {
		leaves = append(leaves, h.Hash([]byte(string(c))))
	}
	return leaves
}

// createTestLeaves creates n random leaves
func createTestLeaves(n int) []Leaf {
	leaves := make([]Leaf, n)
	for i := range leaves {
		leaves[i] = randomHash()
	}
	return leaves
}

// randomHash generates a random 32-byte hash for testing
func randomHash() Digest {
	var hash Digest
	_, _ = rand.Read(hash[:]) // Ignore error in test helper
	return hash
}

// TestKnownVector checks the four-leaf keccak256 tree against fixed digests
func TestKnownVector(t *testing.T) {
	leaves := letterLeaves("abcd")
	require.Equal(t, mustDigest(t, hexA), leaves[0])
	require.Equal(t, mustDigest(t, hexB), leaves[1])
	require.Equal(t, mustDigest(t, hexC), leaves[2])
	require.Equal(t, mustDigest(t, hexD), leaves[3])

	tree, err := NewTree(leaves)
	require.NoError(t, err)
	root := mustDigest(t, hexRoot)
	require.Equal(t, root, tree.Root())

	proof, err := tree.MakeProof(leaves[0])
	require.NoError(t, err)
	require.Equal(t, Proof{
		{Digest: mustDigest(t, hexB), Side: SideRight},
		{Digest: mustDigest(t, hexCD), Side: SideRight},
	}, proof)

	require.True(t, VerifyProof(proof, leaves[0], root))

	t.Run("Corrupt first node", func(t *testing.T) {
		bad := append(Proof(nil), proof...)
		bad[0].Digest[0] ^= 0x01
		require.False(t, VerifyProof(bad, leaves[0], root))
	})

	t.Run("Corrupt second node", func(t *testing.T) {
		bad := append(Proof(nil), proof...)
		bad[1].Digest[31] ^= 0x80
		require.False(t, VerifyProof(bad, leaves[0], root))
	})

	t.Run("Proof for d", func(t *testing.T) {
		proof, err := tree.MakeProof(leaves[3])
		require.NoError(t, err)
		require.Equal(t, Proof{
			{Digest: mustDigest(t, hexC), Side: SideLeft},
			{Digest: mustDigest(t, hexAB), Side: SideLeft},
		}, proof)
		require.True(t, tree.Verify(proof, leaves[3]))
	})
}

// TestBuildRoot tests root reduction including the odd-node promotion rule
func TestBuildRoot(t *testing.T) {
	h := DefaultHasher()

	t.Run("Single leaf is the root", func(t *testing.T) {
		leaves := letterLeaves("a")
		root, err := BuildRoot(leaves, h)
		require.NoError(t, err)
		require.Equal(t, leaves[0], root)
	})

	t.Run("Two leaves", func(t *testing.T) {
		root, err := BuildRoot(letterLeaves("ab"), h)
		require.NoError(t, err)
		require.Equal(t, mustDigest(t, hexAB), root)
	})

	t.Run("Three leaves promote the last", func(t *testing.T) {
		leaves := letterLeaves("abc")
		root, err := BuildRoot(leaves, h)
		require.NoError(t, err)
		require.Equal(t, h.HashPair(mustDigest(t, hexAB), leaves[2]), root)
		require.Equal(t, mustDigest(t, hexRoot3), root)
	})

	t.Run("Five leaves", func(t *testing.T) {
		root, err := BuildRoot(letterLeaves("abcde"), h)
		require.NoError(t, err)
		require.Equal(t, mustDigest(t, hexRoot5), root)
	})

	t.Run("Empty input", func(t *testing.T) {
		_, err := BuildRoot(nil, h)
		require.ErrorIs(t, err, ErrEmptyLeaves)
	})

	t.Run("Input is not mutated", func(t *testing.T) {
		leaves := createTestLeaves(7)
		before := append([]Leaf(nil), leaves...)
		_, err := BuildRoot(leaves, h)
		require.NoError(t, err)
		require.Equal(t, before, leaves)
	})
}

// TestNewTree tests tree construction and round-trip proofs for many sizes
func TestNewTree(t *testing.T) {
	testCases := []struct {
		name      string
		numLeaves int
	}{
		{"Single leaf", 1},
		{"Two leaves", 2},
		{"Three leaves", 3},
		{"Four leaves (power of 2)", 4},
		{"Five leaves", 5},
		{"Six leaves", 6},
		{"Seven leaves", 7},
		{"Eight leaves (power of 2)", 8},
		{"Twelve leaves", 12},
		{"Fifteen leaves", 15},
		{"Sixteen leaves (power of 2)", 16},
		{"Thirty three leaves", 33},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			leaves := createTestLeaves(tc.numLeaves)
			tree, err := NewTree(leaves)
			require.NoError(t, err)
			require.NotNil(t, tree)

			require.Equal(t, tc.numLeaves, tree.Len())
			require.Equal(t, leaves, tree.Leaves())

			root, err := BuildRoot(leaves, DefaultHasher())
			require.NoError(t, err)
			require.Equal(t, root, tree.Root())

			for i, leaf := range leaves {
				proof, err := tree.MakeProof(leaf)
				require.NoError(t, err)
				require.True(t, tree.Verify(proof, leaf), "proof for leaf %d should be valid", i)
				require.True(t, VerifyProof(proof, leaf, tree.Root()))
				require.Equal(t, tree.Root(), tree.CheckProof(proof, leaf))
			}
		})
	}
}

// TestNewTreeEmpty tests that building a tree from no leaves fails
func TestNewTreeEmpty(t *testing.T) {
	tree, err := NewTree([]Leaf{})
	require.ErrorIs(t, err, ErrEmptyLeaves)
	require.Nil(t, tree)
	require.Contains(t, err.Error(), "empty")

	tree, err = NewTreeWithHasher(createTestLeaves(2), nil)
	require.Error(t, err)
	require.Nil(t, tree)
}

// TestNewTreeOwnsLeaves tests that caller mutation after construction is not observed
func TestNewTreeOwnsLeaves(t *testing.T) {
	leaves := createTestLeaves(5)
	original := leaves[2]

	tree, err := NewTree(leaves)
	require.NoError(t, err)
	root := tree.Root()

	leaves[2] = randomHash()
	require.Equal(t, original, tree.Leaves()[2])
	require.Equal(t, root, tree.Root())

	got := tree.Leaves()
	got[0] = randomHash()
	require.NotEqual(t, got[0], tree.Leaves()[0])
}

// TestMakeProofLeafNotFound tests that absent leaves are an error, not an empty proof
func TestMakeProofLeafNotFound(t *testing.T) {
	h := DefaultHasher()
	leaves := letterLeaves("ab")

	proof, err := BuildProof(leaves, h.Hash([]byte("z")), h)
	require.ErrorIs(t, err, ErrLeafNotFound)
	require.Nil(t, proof)

	t.Run("Single leaf tree", func(t *testing.T) {
		tree, err := NewTree(letterLeaves("a"))
		require.NoError(t, err)
		proof, err := tree.MakeProof(h.Hash([]byte("z")))
		require.ErrorIs(t, err, ErrLeafNotFound)
		require.Nil(t, proof)
	})

	t.Run("Mixed tree", func(t *testing.T) {
		tree, err := NewTree(letterLeaves("abc"))
		require.NoError(t, err)
		_, err = tree.MakeProof(h.Hash([]byte("z")))
		require.True(t, errors.Is(err, ErrLeafNotFound))
	})

	t.Run("Empty leaves", func(t *testing.T) {
		_, err := BuildProof(nil, leaves[0], h)
		require.ErrorIs(t, err, ErrEmptyLeaves)
	})
}

// TestMakeProofAt tests proving by position
func TestMakeProofAt(t *testing.T) {
	tree, err := NewTree(createTestLeaves(6))
	require.NoError(t, err)

	for i, leaf := range tree.Leaves() {
		proof, err := tree.MakeProofAt(i)
		require.NoError(t, err)
		require.True(t, tree.Verify(proof, leaf))
	}

	t.Run("Negative index", func(t *testing.T) {
		proof, err := tree.MakeProofAt(-1)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
		require.Nil(t, proof)
	})

	t.Run("Index out of bounds", func(t *testing.T) {
		proof, err := tree.MakeProofAt(10)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
		require.Nil(t, proof)
	})
}

// TestDuplicateLeafFirstMatch tests that the first occurrence of a repeated value is proven
func TestDuplicateLeafFirstMatch(t *testing.T) {
	for _, n := range []int{4, 5, 8} {
		t.Run(fmt.Sprintf("%d_leaves", n), func(t *testing.T) {
			leaves := createTestLeaves(n)
			dup := leaves[1]
			leaves[n-1] = dup

			tree, err := NewTree(leaves)
			require.NoError(t, err)

			proof, err := tree.MakeProof(dup)
			require.NoError(t, err)

			first, err := tree.MakeProofAt(1)
			require.NoError(t, err)
			require.Equal(t, first, proof)
			require.True(t, tree.Verify(proof, dup))

			last, err := tree.MakeProofAt(n - 1)
			require.NoError(t, err)
			require.NotEqual(t, first, last)
			require.True(t, tree.Verify(last, dup))
		})
	}
}

// TestModeEquivalence tests that both strategies agree at power-of-two sizes
func TestModeEquivalence(t *testing.T) {
	h := DefaultHasher()
	for _, n := range []int{1, 2, 4, 8, 16, 32} {
		t.Run(fmt.Sprintf("%d_leaves", n), func(t *testing.T) {
			leaves := createTestLeaves(n)
			root, err := BuildRoot(leaves, h)
			require.NoError(t, err)

			for i, leaf := range leaves {
				balanced := BuildBalancedProof(leaves, i, h)
				mixed := BuildMixedProof(leaves, i, h)
				require.True(t, VerifyProof(balanced, leaf, root))
				require.True(t, VerifyProof(mixed, leaf, root))
				require.Equal(t, balanced, mixed)
			}
		})
	}
}

// TestOddLayerConsistency tests mixed proofs against the promotion root
func TestOddLayerConsistency(t *testing.T) {
	h := DefaultHasher()
	for _, n := range []int{3, 5, 6, 7, 9, 11, 12, 13, 100} {
		t.Run(fmt.Sprintf("%d_leaves", n), func(t *testing.T) {
			leaves := createTestLeaves(n)
			root, err := BuildRoot(leaves, h)
			require.NoError(t, err)

			for i, leaf := range leaves {
				proof := BuildMixedProof(leaves, i, h)
				require.True(t, VerifyProof(proof, leaf, root), "leaf %d", i)
			}
		})
	}

	t.Run("Promoted leaf skips a layer", func(t *testing.T) {
		leaves := letterLeaves("abc")
		proof, err := BuildProof(leaves, leaves[2], h)
		require.NoError(t, err)
		require.Equal(t, Proof{{Digest: mustDigest(t, hexAB), Side: SideLeft}}, proof)
	})
}

// TestTamperSensitivity tests that flipping any digest byte or side breaks verification
func TestTamperSensitivity(t *testing.T) {
	for _, n := range []int{2, 5, 8} {
		t.Run(fmt.Sprintf("%d_leaves", n), func(t *testing.T) {
			tree, err := NewTree(createTestLeaves(n))
			require.NoError(t, err)
			leaf := tree.Leaves()[n/2]

			proof, err := tree.MakeProof(leaf)
			require.NoError(t, err)
			require.NotEmpty(t, proof)

			for i := range proof {
				for b := 0; b < DigestLength; b++ {
					bad := append(Proof(nil), proof...)
					bad[i].Digest[b] ^= 0x01
					require.False(t, tree.Verify(bad, leaf), "node %d byte %d", i, b)
				}

				bad := append(Proof(nil), proof...)
				bad[i].Side = bad[i].Side.Opposite()
				require.False(t, tree.Verify(bad, leaf), "node %d side", i)
			}
		})
	}
}

// TestUnknownSideNeverVerifies tests that an out-of-range side is not folded as left
func TestUnknownSideNeverVerifies(t *testing.T) {
	h := DefaultHasher()
	leaves := letterLeaves("abcde")
	tree, err := NewTree(leaves)
	require.NoError(t, err)

	proof, err := tree.MakeProofAt(1)
	require.NoError(t, err)
	require.Equal(t, SideLeft, proof[0].Side)
	require.True(t, tree.Verify(proof, leaves[1]))

	bad := append(Proof{}, proof...)
	bad[0].Side = Side(7)
	require.False(t, tree.Verify(bad, leaves[1]))
	require.Equal(t, Digest{}, CheckProof(bad, leaves[1], h))
	require.False(t, VerifyProofWithHasher(bad, leaves[1], Digest{}, h))
}

// TestMerkleTreeDeterminism tests that identical inputs give identical roots and order matters
func TestMerkleTreeDeterminism(t *testing.T) {
	leaves := createTestLeaves(10)

	tree1, err := NewTree(leaves)
	require.NoError(t, err)
	tree2, err := NewTree(leaves)
	require.NoError(t, err)
	require.Equal(t, tree1.Root(), tree2.Root())

	reversed := make([]Leaf, len(leaves))
	for i := range leaves {
		reversed[len(leaves)-1-i] = leaves[i]
	}
	tree3, err := NewTree(reversed)
	require.NoError(t, err)
	require.NotEqual(t, tree1.Root(), tree3.Root())

	tree4, err := NewTree(leaves[:9])
	require.NoError(t, err)
	require.NotEqual(t, tree1.Root(), tree4.Root())
}

// TestMerkleProofLength tests that proof length is logarithmic
func TestMerkleProofLength(t *testing.T) {
	testCases := []struct {
		numLeaves int
		maxDepth  int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{8, 3},
		{16, 4},
		{100, 7},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d_leaves", tc.numLeaves), func(t *testing.T) {
			tree, err := NewTree(createTestLeaves(tc.numLeaves))
			require.NoError(t, err)

			for i := 0; i < tc.numLeaves; i++ {
				proof, err := tree.MakeProofAt(i)
				require.NoError(t, err)
				require.LessOrEqual(t, len(proof), tc.maxDepth)
			}
		})
	}
}

// TestIsPowerOfTwo tests the strategy switch
func TestIsPowerOfTwo(t *testing.T) {
	require.True(t, IsPowerOfTwo(1))
	require.True(t, IsPowerOfTwo(2))
	require.True(t, IsPowerOfTwo(16))
	require.False(t, IsPowerOfTwo(0))
	require.False(t, IsPowerOfTwo(-4))
	require.False(t, IsPowerOfTwo(3))
	require.False(t, IsPowerOfTwo(900))
}

// TestCustomHasher tests that the tree works with a non-cryptographic hasher
func TestCustomHasher(t *testing.T) {
	// xor-fold toy hash, order sensitive through the position byte
	toy := HashFunc(func(data []byte) Digest {
		var d Digest
		for i, b := range data {
			d[i%DigestLength] ^= b + byte(i)
		}
		return d
	})

	leaves := HashLeaves(toy, [][]byte{[]byte("x"), []byte("y"), []byte("z")})
	tree, err := NewTreeWithHasher(leaves, toy)
	require.NoError(t, err)

	require.Equal(t, toy.Hash(concatPair(leaves[0], leaves[1])), toy.HashPair(leaves[0], leaves[1]))

	for _, leaf := range leaves {
		proof, err := tree.MakeProof(leaf)
		require.NoError(t, err)
		require.True(t, tree.Verify(proof, leaf))
		require.True(t, VerifyProofWithHasher(proof, leaf, tree.Root(), toy))
	}

	keccakTree, err := NewTree(leaves)
	require.NoError(t, err)
	require.NotEqual(t, keccakTree.Root(), tree.Root())
}

// TestKeccakHashPairMatchesConcat tests the hash-pair contract for the default hasher
func TestKeccakHashPairMatchesConcat(t *testing.T) {
	h := DefaultHasher()
	l, r := randomHash(), randomHash()
	require.Equal(t, h.Hash(concatPair(l, r)), h.HashPair(l, r))
	require.NotEqual(t, h.HashPair(l, r), h.HashPair(r, l))
}
