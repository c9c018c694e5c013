package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence/persistencetest"
)

func TestMemoryPersistence(t *testing.T) {
	persistencetest.RunStoreTests(t, func(t *testing.T) persistence.ITreeStore {
		return NewMemoryPersistence(nil)
	})
}

func TestMemoryPersistence_MoveProofBetweenRoots(t *testing.T) {
	mp := NewMemoryPersistence(nil)
	defer func() { _ = mp.Close() }()

	first, firstTree := persistencetest.NewTreeRecord(t, "first", 3, 1)
	second, _ := persistencetest.NewTreeRecord(t, "second", 3, 2)

	p := persistencetest.NewProofRecord(t, firstTree, 0, 1)
	require.NoError(t, mp.SaveProof(p))

	p.Root = second.Root
	require.NoError(t, mp.SaveProof(p))

	proofs, err := mp.ListProofs(first.Root)
	require.NoError(t, err)
	require.Empty(t, proofs)

	proofs, err = mp.ListProofs(second.Root)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
}
