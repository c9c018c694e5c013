package config

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle/hashers"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/persistence"
)

// Environment variable names for merkletree configuration
const (
	EnvMerkleHashFunction    = "MERKLE_HASH_FUNCTION"
	EnvMerklePersistenceType = "MERKLE_PERSISTENCE_TYPE"
	EnvMerkleDataPath        = "MERKLE_DATA_PATH"
	EnvMerkleRedisAddress    = "MERKLE_REDIS_ADDRESS"
	EnvMerkleRedisPassword   = "MERKLE_REDIS_PASSWORD"
	EnvMerkleRedisDB         = "MERKLE_REDIS_DB"
	EnvMerkleRedisKeyPrefix  = "MERKLE_REDIS_KEY_PREFIX"
	EnvMerkleDebug           = "MERKLE_DEBUG"
)

// Defaults applied by the CLI when a flag is unset. Badger is the default so
// commit, prove and list see each other's trees across separate runs.
const (
	DefaultHashFunction    = string(hashers.NameKeccak256)
	DefaultPersistenceType = string(persistence.TypeBadger)
	DefaultDataPath        = "./merkletree-data"
	DefaultRedisAddress    = "localhost:6379"
)

// RedisConfig holds connection settings for the redis store
type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

// PersistenceConfig selects and configures a store backend
type PersistenceConfig struct {
	Type     string       `json:"type" yaml:"type"`
	DataPath string       `json:"dataPath" yaml:"dataPath"` // badger only
	Redis    *RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// MerkleConfig is the complete configuration for the merkletree service
type MerkleConfig struct {
	HashFunction string            `json:"hashFunction" yaml:"hashFunction"`
	Persistence  PersistenceConfig `json:"persistence" yaml:"persistence"`
	Debug        bool              `json:"debug" yaml:"debug"`
}

// NewDefaultMerkleConfig returns a keccak256 configuration backed by badger
// at DefaultDataPath
func NewDefaultMerkleConfig() *MerkleConfig {
	return &MerkleConfig{
		HashFunction: DefaultHashFunction,
		Persistence: PersistenceConfig{
			Type:     DefaultPersistenceType,
			DataPath: DefaultDataPath,
		},
	}
}

// PersistenceType returns the normalised backend type
func (c *PersistenceConfig) PersistenceType() persistence.Type {
	return persistence.Type(strings.ToLower(strings.TrimSpace(c.Type)))
}

// Validate validates the merkletree configuration
func (c *MerkleConfig) Validate() error {
	var allErrors field.ErrorList

	if c.HashFunction == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("hashFunction"), "hashFunction is required"))
	} else if _, err := hashers.ByName(c.HashFunction); err != nil {
		allErrors = append(allErrors, field.NotSupported(field.NewPath("hashFunction"), c.HashFunction, supportedHashNames()))
	}

	allErrors = append(allErrors, c.Persistence.validate(field.NewPath("persistence"))...)

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (c *PersistenceConfig) validate(path *field.Path) field.ErrorList {
	var allErrors field.ErrorList

	switch c.PersistenceType() {
	case persistence.TypeMemory:
	case persistence.TypeBadger:
		if c.DataPath == "" {
			allErrors = append(allErrors, field.Required(path.Child("dataPath"), "dataPath is required for badger persistence"))
		}
	case persistence.TypeRedis:
		if c.Redis == nil {
			allErrors = append(allErrors, field.Required(path.Child("redis"), "redis config is required for redis persistence"))
			break
		}
		if c.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(path.Child("redis", "address"), "address is required"))
		}
		if c.Redis.DB < 0 || c.Redis.DB > 15 {
			allErrors = append(allErrors, field.Invalid(path.Child("redis", "db"), c.Redis.DB, "db must be between 0-15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(path.Child("type"), c.Type, []string{
			string(persistence.TypeMemory),
			string(persistence.TypeBadger),
			string(persistence.TypeRedis),
		}))
	}
	return allErrors
}

func supportedHashNames() []string {
	names := hashers.Supported()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

// GetSupportedPersistenceTypesString returns supported backends for CLI help
func GetSupportedPersistenceTypesString() string {
	return fmt.Sprintf("%s, %s, %s", persistence.TypeMemory, persistence.TypeBadger, persistence.TypeRedis)
}
