package persistence

import "github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"

// ITreeStore persists committed leaf sets and the proofs issued against them.
// All implementations must be thread-safe.
//
// The interface supports:
// - Tree records keyed by root (save, load, list, delete)
// - Proof records keyed by ID and indexed by root
// - Lifecycle management (close, health check)
type ITreeStore interface {
	// Tree Management

	// SaveTree persists a tree record keyed by its root.
	// Saving the same root twice overwrites the record (idempotent).
	SaveTree(record *TreeRecord) error

	// LoadTree retrieves a tree record by root.
	// Returns nil if the tree doesn't exist, error only on storage failure.
	LoadTree(root merkle.Root) (*TreeRecord, error)

	// ListTrees returns all tree records sorted by CreatedAt, then root.
	// Returns empty slice if none exist, error only on storage failure.
	ListTrees() ([]*TreeRecord, error)

	// DeleteTree removes a tree record and every proof issued against it.
	// Idempotent - returns nil if the tree doesn't exist.
	DeleteTree(root merkle.Root) error

	// Proof Management

	// SaveProof persists a proof record keyed by its ID.
	// The record must carry a non-empty ID.
	SaveProof(record *ProofRecord) error

	// LoadProof retrieves a proof record by ID.
	// Returns nil if the proof doesn't exist, error only on storage failure.
	LoadProof(id string) (*ProofRecord, error)

	// ListProofs returns all proof records for a root sorted by CreatedAt, then ID.
	// Returns empty slice if none exist, error only on storage failure.
	ListProofs(root merkle.Root) ([]*ProofRecord, error)

	// DeleteProof removes a proof record.
	// Idempotent - returns nil if the proof doesn't exist.
	DeleteProof(id string) error

	// Lifecycle Management

	// Close cleanly shuts down the store.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations return ErrStoreClosed.
	Close() error

	// HealthCheck verifies the store is operational.
	HealthCheck() error
}
