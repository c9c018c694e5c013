// Package service commits leaf sets to a store and issues and checks
// inclusion proofs against them.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	merkleLogger "github.com/Layr-Labs/eigenx-merkletree-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle/hashers"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence"
)

var (
	ErrTreeNotFound  = errors.New("tree not found")
	ErrProofNotFound = errors.New("proof not found")
	// ErrCorruptTree means a stored leaf set no longer reduces to its key.
	ErrCorruptTree = errors.New("stored tree does not match its root")
)

// MerkleService ties a hasher and a tree store together.
type MerkleService struct {
	store    persistence.ITreeStore
	hashName hashers.Name
	hasher   merkle.Hasher
	logger   *zap.Logger
	now      func() time.Time
}

// NewMerkleService builds a service that commits new trees with the named
// hash function. Stored trees are always rebuilt with the function recorded
// alongside them.
func NewMerkleService(store persistence.ITreeStore, hashFunction string, logger *zap.Logger) (*MerkleService, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	name, h, err := hashers.Resolve(hashFunction)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = merkleLogger.NewNopLogger()
	}

	return &MerkleService{
		store:    store,
		hashName: name,
		hasher:   h,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// HashFunction returns the canonical name of the hasher used for commits.
func (s *MerkleService) HashFunction() hashers.Name {
	return s.hashName
}

// Hasher returns the hasher used for commits.
func (s *MerkleService) Hasher() merkle.Hasher {
	return s.hasher
}

// Commit builds a tree over leaves and stores it. Committing a leaf set whose
// root is already stored returns the existing record unchanged.
func (s *MerkleService) Commit(ctx context.Context, leaves []merkle.Leaf) (*persistence.TreeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree, err := merkle.NewTreeWithHasher(leaves, s.hasher)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build tree")
	}

	existing, err := s.store.LoadTree(tree.Root())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up tree %s", tree.Root().Hex())
	}
	if existing != nil && existing.HashFunction == s.hashName.String() {
		s.logger.Sugar().Debugw("Tree already committed", "root", tree.Root().Hex())
		return existing, nil
	}

	record := &persistence.TreeRecord{
		Root:         tree.Root(),
		HashFunction: s.hashName.String(),
		Leaves:       tree.Leaves(),
		CreatedAt:    s.now().Unix(),
	}
	if err := s.store.SaveTree(record); err != nil {
		return nil, errors.Wrapf(err, "failed to save tree %s", record.Root.Hex())
	}

	s.logger.Sugar().Infow("Committed tree",
		"root", record.Root.Hex(),
		"leaves", len(record.Leaves),
		"hash_function", record.HashFunction,
	)
	return record, nil
}

// Tree rebuilds the stored tree for root with the hash function it was
// committed with.
func (s *MerkleService) Tree(ctx context.Context, root merkle.Root) (*merkle.MerkleTree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record, err := s.store.LoadTree(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load tree %s", root.Hex())
	}
	if record == nil {
		return nil, errors.Wrapf(ErrTreeNotFound, "root %s", root.Hex())
	}
	return s.rebuild(record)
}

func (s *MerkleService) rebuild(record *persistence.TreeRecord) (*merkle.MerkleTree, error) {
	h, err := hashers.ByName(record.HashFunction)
	if err != nil {
		return nil, errors.Wrapf(err, "tree %s", record.Root.Hex())
	}

	tree, err := merkle.NewTreeWithHasher(record.Leaves, h)
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptTree, "root %s: %v", record.Root.Hex(), err)
	}
	if tree.Root() != record.Root {
		s.logger.Sugar().Warnw("Stored tree does not reduce to its root",
			"root", record.Root.Hex(),
			"recomputed", tree.Root().Hex(),
		)
		return nil, errors.Wrapf(ErrCorruptTree, "root %s recomputes to %s", record.Root.Hex(), tree.Root().Hex())
	}
	return tree, nil
}

// Prove issues and stores a proof for the first occurrence of leaf in the
// tree committed under root.
func (s *MerkleService) Prove(ctx context.Context, root merkle.Root, leaf merkle.Leaf) (*persistence.ProofRecord, error) {
	tree, err := s.Tree(ctx, root)
	if err != nil {
		return nil, err
	}

	index := merkle.IndexOf(tree.Leaves(), leaf)
	if index < 0 {
		return nil, errors.Wrapf(merkle.ErrLeafNotFound, "leaf %s in tree %s", leaf.Hex(), root.Hex())
	}
	return s.issue(tree, index)
}

// ProveAt issues and stores a proof for the leaf at index.
func (s *MerkleService) ProveAt(ctx context.Context, root merkle.Root, index int) (*persistence.ProofRecord, error) {
	tree, err := s.Tree(ctx, root)
	if err != nil {
		return nil, err
	}
	return s.issue(tree, index)
}

func (s *MerkleService) issue(tree *merkle.MerkleTree, index int) (*persistence.ProofRecord, error) {
	proof, err := tree.MakeProofAt(index)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build proof in tree %s", tree.Root().Hex())
	}

	record := &persistence.ProofRecord{
		ID:        uuid.NewString(),
		Root:      tree.Root(),
		Leaf:      tree.Leaves()[index],
		Index:     index,
		Proof:     proof,
		CreatedAt: s.now().Unix(),
	}
	if err := s.store.SaveProof(record); err != nil {
		return nil, errors.Wrapf(err, "failed to save proof for tree %s", tree.Root().Hex())
	}

	s.logger.Sugar().Infow("Issued proof",
		"id", record.ID,
		"root", record.Root.Hex(),
		"index", index,
		"nodes", len(proof),
	)
	return record, nil
}

// Verify replays a stored proof against its stored root. A proof that does
// not reach the root returns false with a nil error.
func (s *MerkleService) Verify(ctx context.Context, proofID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	record, err := s.store.LoadProof(proofID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to load proof %s", proofID)
	}
	if record == nil {
		return false, errors.Wrapf(ErrProofNotFound, "id %s", proofID)
	}

	tree, err := s.Tree(ctx, record.Root)
	if err != nil {
		return false, err
	}

	ok := tree.Verify(record.Proof, record.Leaf)
	s.logger.Sugar().Debugw("Verified proof", "id", proofID, "root", record.Root.Hex(), "valid", ok)
	return ok, nil
}

// ListTrees returns every committed tree.
func (s *MerkleService) ListTrees(ctx context.Context) ([]*persistence.TreeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trees, err := s.store.ListTrees()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list trees")
	}
	return trees, nil
}

// ListProofs returns every proof issued against root.
func (s *MerkleService) ListProofs(ctx context.Context, root merkle.Root) ([]*persistence.ProofRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proofs, err := s.store.ListProofs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list proofs for %s", root.Hex())
	}
	return proofs, nil
}

// Forget deletes a committed tree and every proof issued against it.
func (s *MerkleService) Forget(ctx context.Context, root merkle.Root) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.DeleteTree(root); err != nil {
		return errors.Wrapf(err, "failed to delete tree %s", root.Hex())
	}
	s.logger.Sugar().Infow("Deleted tree", "root", root.Hex())
	return nil
}
