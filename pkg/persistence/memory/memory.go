package memory

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of ITreeStore.
// This implementation is intended for TESTING and one-shot CLI runs.
//
// All data is lost when the process exits.
// Thread-safe using sync.RWMutex; records are deep copied in and out.
type MemoryPersistence struct {
	mu sync.RWMutex

	// root -> tree record
	trees map[merkle.Root]*persistence.TreeRecord

	// proof ID -> proof record
	proofs map[string]*persistence.ProofRecord

	// root -> set of proof IDs
	proofsByRoot map[merkle.Root]map[string]struct{}

	closed bool
}

var _ persistence.ITreeStore = (*MemoryPersistence)(nil)

// NewMemoryPersistence creates a new in-memory store.
// Logs a warning since nothing survives a restart.
func NewMemoryPersistence(logger *zap.Logger) *MemoryPersistence {
	if logger != nil {
		logger.Sugar().Warnw("Using in-memory persistence - ALL DATA WILL BE LOST ON RESTART",
			"hint", "set MERKLE_PERSISTENCE_TYPE=badger for durable storage")
	}

	return &MemoryPersistence{
		trees:        make(map[merkle.Root]*persistence.TreeRecord),
		proofs:       make(map[string]*persistence.ProofRecord),
		proofsByRoot: make(map[merkle.Root]map[string]struct{}),
	}
}

// SaveTree persists a tree record.
func (m *MemoryPersistence) SaveTree(record *persistence.TreeRecord) error {
	if err := persistence.ValidateTreeRecord(record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}

	m.trees[record.Root] = persistence.CopyTreeRecord(record)
	return nil
}

// LoadTree retrieves a tree record by root.
func (m *MemoryPersistence) LoadTree(root merkle.Root) (*persistence.TreeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrStoreClosed
	}

	record, exists := m.trees[root]
	if !exists {
		return nil, nil // Not found is not an error
	}
	return persistence.CopyTreeRecord(record), nil
}

// ListTrees returns all tree records.
func (m *MemoryPersistence) ListTrees() ([]*persistence.TreeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrStoreClosed
	}

	result := make([]*persistence.TreeRecord, 0, len(m.trees))
	for _, record := range m.trees {
		result = append(result, persistence.CopyTreeRecord(record))
	}
	persistence.SortTreeRecords(result)
	return result, nil
}

// DeleteTree removes a tree record and its proofs.
func (m *MemoryPersistence) DeleteTree(root merkle.Root) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}

	for id := range m.proofsByRoot[root] {
		delete(m.proofs, id)
	}
	delete(m.proofsByRoot, root)
	delete(m.trees, root)
	return nil
}

// SaveProof persists a proof record.
func (m *MemoryPersistence) SaveProof(record *persistence.ProofRecord) error {
	if err := persistence.ValidateProofRecord(record); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}

	// Re-saving an ID under a different root moves it
	if prev, ok := m.proofs[record.ID]; ok && prev.Root != record.Root {
		delete(m.proofsByRoot[prev.Root], record.ID)
	}

	m.proofs[record.ID] = persistence.CopyProofRecord(record)
	ids, ok := m.proofsByRoot[record.Root]
	if !ok {
		ids = make(map[string]struct{})
		m.proofsByRoot[record.Root] = ids
	}
	ids[record.ID] = struct{}{}
	return nil
}

// LoadProof retrieves a proof record by ID.
func (m *MemoryPersistence) LoadProof(id string) (*persistence.ProofRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrStoreClosed
	}

	record, exists := m.proofs[id]
	if !exists {
		return nil, nil
	}
	return persistence.CopyProofRecord(record), nil
}

// ListProofs returns all proof records issued against root.
func (m *MemoryPersistence) ListProofs(root merkle.Root) ([]*persistence.ProofRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, persistence.ErrStoreClosed
	}

	ids := m.proofsByRoot[root]
	result := make([]*persistence.ProofRecord, 0, len(ids))
	for id := range ids {
		result = append(result, persistence.CopyProofRecord(m.proofs[id]))
	}
	persistence.SortProofRecords(result)
	return result, nil
}

// DeleteProof removes a proof record.
func (m *MemoryPersistence) DeleteProof(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}

	if record, ok := m.proofs[id]; ok {
		delete(m.proofsByRoot[record.Root], id)
		delete(m.proofs, id)
	}
	return nil
}

// Close marks the store closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck reports whether the store is open.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return persistence.ErrStoreClosed
	}
	return nil
}
