// Package persistencetest holds the behaviour every ITreeStore backend must
// share, so backends are tested against one set of expectations.
package persistencetest

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence"
)

// StoreFactory returns a fresh, empty store. The suite closes it.
type StoreFactory func(t *testing.T) persistence.ITreeStore

// NewTreeRecord builds a committed keccak256 tree over n distinct payloads
// derived from seed.
func NewTreeRecord(t *testing.T, seed string, n int, createdAt int64) (*persistence.TreeRecord, *merkle.MerkleTree) {
	t.Helper()

	payloads := make([][]byte, n)
	for i := range payloads {
		payloads[i] = []byte(fmt.Sprintf("%s-%d", seed, i))
	}
	leaves := merkle.HashLeaves(merkle.DefaultHasher(), payloads)

	tree, err := merkle.NewTree(leaves)
	require.NoError(t, err)

	return &persistence.TreeRecord{
		Root:         tree.Root(),
		HashFunction: "keccak256",
		Leaves:       leaves,
		CreatedAt:    createdAt,
	}, tree
}

// NewProofRecord issues a proof for the leaf at index.
func NewProofRecord(t *testing.T, tree *merkle.MerkleTree, index int, createdAt int64) *persistence.ProofRecord {
	t.Helper()

	proof, err := tree.MakeProofAt(index)
	require.NoError(t, err)

	return &persistence.ProofRecord{
		ID:        uuid.NewString(),
		Root:      tree.Root(),
		Leaf:      tree.Leaves()[index],
		Index:     index,
		Proof:     proof,
		CreatedAt: createdAt,
	}
}

// RunStoreTests exercises the full ITreeStore contract.
func RunStoreTests(t *testing.T, newStore StoreFactory) {
	t.Run("SaveAndLoadTree", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record, _ := NewTreeRecord(t, "save-load", 5, 100)
		require.NoError(t, store.SaveTree(record))

		loaded, err := store.LoadTree(record.Root)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, record, loaded)

		// Mutating the loaded copy must not leak back into the store
		loaded.Leaves[0] = merkle.Digest{}
		again, err := store.LoadTree(record.Root)
		require.NoError(t, err)
		assert.Equal(t, record.Leaves[0], again.Leaves[0])
	})

	t.Run("LoadTree_NotFound", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		loaded, err := store.LoadTree(merkle.Digest{0xde, 0xad})
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveTree_Invalid", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		err := store.SaveTree(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil TreeRecord")

		require.Error(t, store.SaveTree(&persistence.TreeRecord{}))
	})

	t.Run("SaveTree_Idempotent", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record, _ := NewTreeRecord(t, "idempotent", 3, 100)
		require.NoError(t, store.SaveTree(record))
		require.NoError(t, store.SaveTree(record))

		trees, err := store.ListTrees()
		require.NoError(t, err)
		assert.Len(t, trees, 1)
	})

	t.Run("ListTrees", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		empty, err := store.ListTrees()
		require.NoError(t, err)
		assert.Empty(t, empty)

		late, _ := NewTreeRecord(t, "late", 4, 300)
		early, _ := NewTreeRecord(t, "early", 2, 100)
		middle, _ := NewTreeRecord(t, "middle", 7, 200)
		for _, r := range []*persistence.TreeRecord{late, early, middle} {
			require.NoError(t, store.SaveTree(r))
		}

		trees, err := store.ListTrees()
		require.NoError(t, err)
		require.Len(t, trees, 3)
		assert.Equal(t, early.Root, trees[0].Root)
		assert.Equal(t, middle.Root, trees[1].Root)
		assert.Equal(t, late.Root, trees[2].Root)
	})

	t.Run("SaveLoadListProofs", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record, tree := NewTreeRecord(t, "proofs", 6, 100)
		require.NoError(t, store.SaveTree(record))

		p2 := NewProofRecord(t, tree, 2, 20)
		p0 := NewProofRecord(t, tree, 0, 10)
		require.NoError(t, store.SaveProof(p2))
		require.NoError(t, store.SaveProof(p0))

		loaded, err := store.LoadProof(p2.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, p2, loaded)
		assert.True(t, tree.Verify(loaded.Proof, loaded.Leaf))

		proofs, err := store.ListProofs(record.Root)
		require.NoError(t, err)
		require.Len(t, proofs, 2)
		assert.Equal(t, p0.ID, proofs[0].ID)
		assert.Equal(t, p2.ID, proofs[1].ID)

		other, err := store.ListProofs(merkle.Digest{1})
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("LoadProof_NotFound", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		loaded, err := store.LoadProof(uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, loaded)
	})

	t.Run("SaveProof_Invalid", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		err := store.SaveProof(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil ProofRecord")

		require.Error(t, store.SaveProof(&persistence.ProofRecord{}))
	})

	t.Run("DeleteProof", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record, tree := NewTreeRecord(t, "delete-proof", 3, 100)
		require.NoError(t, store.SaveTree(record))
		p := NewProofRecord(t, tree, 1, 10)
		require.NoError(t, store.SaveProof(p))

		require.NoError(t, store.DeleteProof(p.ID))
		loaded, err := store.LoadProof(p.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		proofs, err := store.ListProofs(record.Root)
		require.NoError(t, err)
		assert.Empty(t, proofs)

		// Idempotent
		require.NoError(t, store.DeleteProof(p.ID))
	})

	t.Run("DeleteTree_RemovesProofs", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record, tree := NewTreeRecord(t, "delete-tree", 4, 100)
		keep, keepTree := NewTreeRecord(t, "keep-tree", 4, 100)
		require.NoError(t, store.SaveTree(record))
		require.NoError(t, store.SaveTree(keep))

		p := NewProofRecord(t, tree, 3, 10)
		kp := NewProofRecord(t, keepTree, 0, 10)
		require.NoError(t, store.SaveProof(p))
		require.NoError(t, store.SaveProof(kp))

		require.NoError(t, store.DeleteTree(record.Root))

		loaded, err := store.LoadTree(record.Root)
		require.NoError(t, err)
		assert.Nil(t, loaded)

		loadedProof, err := store.LoadProof(p.ID)
		require.NoError(t, err)
		assert.Nil(t, loadedProof)

		kept, err := store.LoadProof(kp.ID)
		require.NoError(t, err)
		assert.NotNil(t, kept)

		// Idempotent
		require.NoError(t, store.DeleteTree(record.Root))
	})

	t.Run("Close_Idempotent", func(t *testing.T) {
		store := newStore(t)

		require.NoError(t, store.HealthCheck())
		require.NoError(t, store.Close())
		require.NoError(t, store.Close())

		require.ErrorIs(t, store.HealthCheck(), persistence.ErrStoreClosed)

		record, _ := NewTreeRecord(t, "closed", 2, 1)
		require.ErrorIs(t, store.SaveTree(record), persistence.ErrStoreClosed)
		_, err := store.LoadTree(record.Root)
		require.ErrorIs(t, err, persistence.ErrStoreClosed)
		_, err = store.ListTrees()
		require.ErrorIs(t, err, persistence.ErrStoreClosed)
		_, err = store.LoadProof("x")
		require.ErrorIs(t, err, persistence.ErrStoreClosed)
	})

	t.Run("ConcurrentAccess", func(t *testing.T) {
		store := newStore(t)
		defer func() { _ = store.Close() }()

		record, tree := NewTreeRecord(t, "concurrent", 16, 100)
		require.NoError(t, store.SaveTree(record))

		var wg sync.WaitGroup
		errs := make(chan error, tree.Len())
		for i := 0; i < tree.Len(); i++ {
			p := NewProofRecord(t, tree, i, int64(i))
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := store.SaveProof(p); err != nil {
					errs <- err
					return
				}
				if _, err := store.LoadTree(record.Root); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		proofs, err := store.ListProofs(record.Root)
		require.NoError(t, err)
		require.Len(t, proofs, tree.Len())
		for i, p := range proofs {
			assert.Equal(t, i, p.Index)
			assert.True(t, tree.Verify(p.Proof, p.Leaf))
		}
	})
}
