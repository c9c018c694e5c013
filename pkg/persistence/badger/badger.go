package badger

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence"
)

// Key layout:
//
//	tree:<root>             -> TreeRecord JSON
//	proof:<id>              -> ProofRecord JSON
//	rootproof:<root>:<id>   -> empty (index of proofs by root)
const (
	keyPrefixTree        = "tree:"
	keyPrefixProof       = "proof:"
	keyPrefixRootProof   = "rootproof:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// BadgerPersistence is a durable ITreeStore backed by Badger.
type BadgerPersistence struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.ITreeStore = (*BadgerPersistence)(nil)

// NewBadgerPersistence opens (or creates) a Badger database at dataPath with
// SyncWrites enabled and starts background value-log GC.
func NewBadgerPersistence(dataPath string, logger *zap.Logger) (*BadgerPersistence, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = newBadgerLogger(logger)
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	bp := &BadgerPersistence{
		db:     db,
		logger: logger,
	}

	if err := bp.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	bp.gcCancel = cancel
	bp.gcWg.Add(1)
	go bp.runGC(ctx)

	logger.Sugar().Infow("Badger persistence initialized", "path", absPath)

	return bp, nil
}

func treeKey(root merkle.Root) []byte {
	return []byte(keyPrefixTree + root.Hex())
}

func proofKey(id string) []byte {
	return []byte(keyPrefixProof + id)
}

func rootProofPrefix(root merkle.Root) []byte {
	return []byte(keyPrefixRootProof + root.Hex() + ":")
}

func rootProofKey(root merkle.Root, id string) []byte {
	return append(rootProofPrefix(root), id...)
}

func (b *BadgerPersistence) initSchema() error {
	return b.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existingVersion string
		err = item.Value(func(val []byte) error {
			existingVersion = string(val)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}

		if existingVersion != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
		}
		return nil
	})
}

func (b *BadgerPersistence) runGC(ctx context.Context) {
	defer b.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			err := b.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badgerdb.ErrNoRewrite) {
				b.logger.Sugar().Warnw("Badger GC error", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// getValue copies the value at key, returning nil if the key is absent.
func getValue(txn *badgerdb.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// SaveTree persists a tree record
func (b *BadgerPersistence) SaveTree(record *persistence.TreeRecord) error {
	if err := persistence.ValidateTreeRecord(record); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrStoreClosed
	}

	data, err := persistence.MarshalTreeRecord(record)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(treeKey(record.Root), data)
	})
}

// LoadTree retrieves a tree record by root
func (b *BadgerPersistence) LoadTree(root merkle.Root) (*persistence.TreeRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrStoreClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, err = getValue(txn, treeKey(root))
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load tree %s", root.Hex())
	}
	if data == nil {
		return nil, nil // Not found
	}

	return persistence.UnmarshalTreeRecord(data)
}

// ListTrees returns all tree records
func (b *BadgerPersistence) ListTrees() ([]*persistence.TreeRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrStoreClosed
	}

	trees := make([]*persistence.TreeRecord, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixTree)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			data, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("failed to read value: %w", err)
			}

			record, err := persistence.UnmarshalTreeRecord(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal TreeRecord, skipping",
					"key", string(item.Key()), "error", err)
				continue
			}
			trees = append(trees, record)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list trees")
	}

	persistence.SortTreeRecords(trees)
	return trees, nil
}

// DeleteTree removes a tree record and every proof indexed under its root
func (b *BadgerPersistence) DeleteTree(root merkle.Root) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrStoreClosed
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		prefix := rootProofPrefix(root)

		var indexKeys [][]byte
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			indexKeys = append(indexKeys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range indexKeys {
			id := strings.TrimPrefix(string(key), string(prefix))
			if err := txn.Delete(proofKey(id)); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		return txn.Delete(treeKey(root))
	})
}

// SaveProof persists a proof record and indexes it under its root
func (b *BadgerPersistence) SaveProof(record *persistence.ProofRecord) error {
	if err := persistence.ValidateProofRecord(record); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrStoreClosed
	}

	data, err := persistence.MarshalProofRecord(record)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		// Drop a stale index entry if the ID moves to another root
		prev, err := getValue(txn, proofKey(record.ID))
		if err != nil {
			return err
		}
		if prev != nil {
			if old, err := persistence.UnmarshalProofRecord(prev); err == nil && old.Root != record.Root {
				if err := txn.Delete(rootProofKey(old.Root, record.ID)); err != nil {
					return err
				}
			}
		}

		if err := txn.Set(proofKey(record.ID), data); err != nil {
			return err
		}
		return txn.Set(rootProofKey(record.Root, record.ID), []byte{})
	})
}

// LoadProof retrieves a proof record by ID
func (b *BadgerPersistence) LoadProof(id string) (*persistence.ProofRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrStoreClosed
	}

	var data []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		var err error
		data, err = getValue(txn, proofKey(id))
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load proof %s", id)
	}
	if data == nil {
		return nil, nil
	}

	return persistence.UnmarshalProofRecord(data)
}

// ListProofs returns all proof records issued against root
func (b *BadgerPersistence) ListProofs(root merkle.Root) ([]*persistence.ProofRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, persistence.ErrStoreClosed
	}

	proofs := make([]*persistence.ProofRecord, 0)
	err := b.db.View(func(txn *badgerdb.Txn) error {
		prefix := rootProofPrefix(root)

		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := strings.TrimPrefix(string(it.Item().Key()), string(prefix))

			data, err := getValue(txn, proofKey(id))
			if err != nil {
				return err
			}
			if data == nil {
				b.logger.Sugar().Warnw("Proof index entry without record, skipping", "root", root.Hex(), "id", id)
				continue
			}

			record, err := persistence.UnmarshalProofRecord(data)
			if err != nil {
				b.logger.Sugar().Warnw("Failed to unmarshal ProofRecord, skipping", "id", id, "error", err)
				continue
			}
			proofs = append(proofs, record)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list proofs for %s", root.Hex())
	}

	persistence.SortProofRecords(proofs)
	return proofs, nil
}

// DeleteProof removes a proof record and its index entry
func (b *BadgerPersistence) DeleteProof(id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrStoreClosed
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		data, err := getValue(txn, proofKey(id))
		if err != nil || data == nil {
			return err
		}

		record, err := persistence.UnmarshalProofRecord(data)
		if err == nil {
			if err := txn.Delete(rootProofKey(record.Root, id)); err != nil {
				return err
			}
		}
		return txn.Delete(proofKey(id))
	})
}

// Close stops GC and closes the database
func (b *BadgerPersistence) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil // Already closed, idempotent
	}
	b.closed = true
	b.mu.Unlock()

	if b.gcCancel != nil {
		b.gcCancel()
	}
	b.gcWg.Wait()

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}

	b.logger.Sugar().Info("Badger persistence closed")
	return nil
}

// HealthCheck verifies the database is readable
func (b *BadgerPersistence) HealthCheck() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return persistence.ErrStoreClosed
	}

	return b.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("schema version not found - database may be corrupted")
		}
		return err
	})
}
