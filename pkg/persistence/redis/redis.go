package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixTree        = "merkle:tree:"
	keyPrefixProof       = "merkle:proof:"
	keyPrefixRootProofs  = "merkle:rootproofs:"
	keySchemaVersion     = "merkle:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Redis doesn't support prefix iteration natively, so roots are indexed in a set
	keySetTrees = "merkle:trees:index"
)

// RedisPersistence is an ITreeStore backed by Redis, suitable for sharing
// committed trees between processes.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.ITreeStore = (*RedisPersistence)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional prefix prepended to every key, e.g. "tenant-a:"
	// gives keys like "tenant-a:merkle:tree:0x...".
	KeyPrefix string
}

// NewRedisPersistence connects to Redis and initialises the schema key.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)

	return rp, nil
}

func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

func (r *RedisPersistence) treeKey(root merkle.Root) string {
	return r.prefixKey(keyPrefixTree + root.Hex())
}

func (r *RedisPersistence) proofKey(id string) string {
	return r.prefixKey(keyPrefixProof + id)
}

func (r *RedisPersistence) rootProofsKey(root merkle.Root) string {
	return r.prefixKey(keyPrefixRootProofs + root.Hex())
}

func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if errors.Is(err, redis.Nil) {
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}
	return nil
}

// SaveTree persists a tree record and adds its root to the index set
func (r *RedisPersistence) SaveTree(record *persistence.TreeRecord) error {
	if err := persistence.ValidateTreeRecord(record); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrStoreClosed
	}

	data, err := persistence.MarshalTreeRecord(record)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.treeKey(record.Root), data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetTrees), record.Root.Hex())

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to save tree %s", record.Root.Hex())
	}
	return nil
}

// LoadTree retrieves a tree record by root
func (r *RedisPersistence) LoadTree(root merkle.Root) (*persistence.TreeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrStoreClosed
	}

	data, err := r.client.Get(context.Background(), r.treeKey(root)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load tree %s", root.Hex())
	}

	return persistence.UnmarshalTreeRecord(data)
}

// ListTrees returns all tree records
func (r *RedisPersistence) ListTrees() ([]*persistence.TreeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrStoreClosed
	}

	ctx := context.Background()
	indexKey := r.prefixKey(keySetTrees)

	roots, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tree roots")
	}
	if len(roots) == 0 {
		return []*persistence.TreeRecord{}, nil
	}

	keys := make([]string, len(roots))
	for i, root := range roots {
		keys[i] = r.prefixKey(keyPrefixTree + root)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch trees")
	}

	trees := make([]*persistence.TreeRecord, 0, len(values))
	for i, val := range values {
		if val == nil {
			// Key was in index but doesn't exist - clean up index
			r.client.SRem(ctx, indexKey, roots[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for TreeRecord", "key", keys[i])
			continue
		}

		record, err := persistence.UnmarshalTreeRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal TreeRecord, skipping", "key", keys[i], "error", err)
			continue
		}
		trees = append(trees, record)
	}

	persistence.SortTreeRecords(trees)
	return trees, nil
}

// DeleteTree removes a tree record, its proofs and its index entries
func (r *RedisPersistence) DeleteTree(root merkle.Root) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrStoreClosed
	}

	ctx := context.Background()
	rootProofsKey := r.rootProofsKey(root)

	ids, err := r.client.SMembers(ctx, rootProofsKey).Result()
	if err != nil {
		return errors.Wrapf(err, "failed to list proofs for %s", root.Hex())
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, r.proofKey(id))
	}
	pipe.Del(ctx, rootProofsKey)
	pipe.Del(ctx, r.treeKey(root))
	pipe.SRem(ctx, r.prefixKey(keySetTrees), root.Hex())

	_, err = pipe.Exec(ctx)
	return err
}

// SaveProof persists a proof record and indexes it under its root
func (r *RedisPersistence) SaveProof(record *persistence.ProofRecord) error {
	if err := persistence.ValidateProofRecord(record); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrStoreClosed
	}

	data, err := persistence.MarshalProofRecord(record)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Drop a stale index entry if the ID moves to another root
	prev, err := r.client.Get(ctx, r.proofKey(record.ID)).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrapf(err, "failed to read proof %s", record.ID)
	}

	pipe := r.client.TxPipeline()
	if len(prev) > 0 {
		if old, err := persistence.UnmarshalProofRecord(prev); err == nil && old.Root != record.Root {
			pipe.SRem(ctx, r.rootProofsKey(old.Root), record.ID)
		}
	}
	pipe.Set(ctx, r.proofKey(record.ID), data, 0)
	pipe.SAdd(ctx, r.rootProofsKey(record.Root), record.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "failed to save proof %s", record.ID)
	}
	return nil
}

// LoadProof retrieves a proof record by ID
func (r *RedisPersistence) LoadProof(id string) (*persistence.ProofRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrStoreClosed
	}

	data, err := r.client.Get(context.Background(), r.proofKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load proof %s", id)
	}

	return persistence.UnmarshalProofRecord(data)
}

// ListProofs returns all proof records issued against root
func (r *RedisPersistence) ListProofs(root merkle.Root) ([]*persistence.ProofRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, persistence.ErrStoreClosed
	}

	ctx := context.Background()
	indexKey := r.rootProofsKey(root)

	ids, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list proofs for %s", root.Hex())
	}
	if len(ids) == 0 {
		return []*persistence.ProofRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.proofKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch proofs")
	}

	proofs := make([]*persistence.ProofRecord, 0, len(values))
	for i, val := range values {
		if val == nil {
			r.client.SRem(ctx, indexKey, ids[i])
			continue
		}

		data, ok := val.(string)
		if !ok {
			r.logger.Sugar().Warnw("Unexpected value type for ProofRecord", "key", keys[i])
			continue
		}

		record, err := persistence.UnmarshalProofRecord([]byte(data))
		if err != nil {
			r.logger.Sugar().Warnw("Failed to unmarshal ProofRecord, skipping", "key", keys[i], "error", err)
			continue
		}
		proofs = append(proofs, record)
	}

	persistence.SortProofRecords(proofs)
	return proofs, nil
}

// DeleteProof removes a proof record and its index entry
func (r *RedisPersistence) DeleteProof(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrStoreClosed
	}

	ctx := context.Background()
	data, err := r.client.Get(ctx, r.proofKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read proof %s", id)
	}

	pipe := r.client.TxPipeline()
	if record, err := persistence.UnmarshalProofRecord(data); err == nil {
		pipe.SRem(ctx, r.rootProofsKey(record.Root), id)
	}
	pipe.Del(ctx, r.proofKey(id))

	_, err = pipe.Exec(ctx)
	return err
}

// Close closes the Redis client
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil // Already closed, idempotent
	}
	r.closed = true
	r.mu.Unlock()

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	r.logger.Sugar().Info("Redis persistence closed")
	return nil
}

// HealthCheck pings Redis and checks the schema key
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return persistence.ErrStoreClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}

	_, err := r.client.Get(ctx, r.prefixKey(keySchemaVersion)).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("schema version not found - database may not be properly initialized")
	}
	return err
}
