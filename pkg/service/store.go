package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/config"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence"
	persistenceBadger "github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence/badger"
	persistenceMemory "github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence/memory"
	persistenceRedis "github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence/redis"
)

// NewStore opens the backend selected by cfg.
func NewStore(cfg *config.PersistenceConfig, logger *zap.Logger) (persistence.ITreeStore, error) {
	switch cfg.PersistenceType() {
	case persistence.TypeMemory:
		return persistenceMemory.NewMemoryPersistence(logger), nil
	case persistence.TypeBadger:
		store, err := persistenceBadger.NewBadgerPersistence(cfg.DataPath, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case persistence.TypeRedis:
		if cfg.Redis == nil {
			return nil, fmt.Errorf("redis config is required for redis persistence")
		}
		store, err := persistenceRedis.NewRedisPersistence(&persistenceRedis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s", cfg.Type)
	}
}
