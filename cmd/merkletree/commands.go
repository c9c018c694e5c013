package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/config"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/logger"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle/hashers"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/service"
)

func parseMerkleConfig(c *cli.Context) *config.MerkleConfig {
	return &config.MerkleConfig{
		HashFunction: c.String("hash-function"),
		Persistence: config.PersistenceConfig{
			Type:     c.String("persistence-type"),
			DataPath: c.String("data-path"),
			Redis: &config.RedisConfig{
				Address:   c.String("redis-address"),
				Password:  c.String("redis-password"),
				DB:        c.Int("redis-db"),
				KeyPrefix: c.String("redis-key-prefix"),
			},
		},
		Debug: c.Bool("debug"),
	}
}

func selectedHasher(c *cli.Context) (merkle.Hasher, error) {
	return hashers.ByName(c.String("hash-function"))
}

// withService opens the configured store, runs fn and closes the store.
func withService(c *cli.Context, fn func(svc *service.MerkleService) error) error {
	cfg := parseMerkleConfig(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	store, err := service.NewStore(&cfg.Persistence, l)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Sugar().Warnw("Failed to close store", "error", err)
		}
	}()

	svc, err := service.NewMerkleService(store, cfg.HashFunction, l)
	if err != nil {
		return err
	}
	return fn(svc)
}

func printJSON(c *cli.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

// rootCommand handles the root subcommand
func rootCommand(c *cli.Context) error {
	h, err := selectedHasher(c)
	if err != nil {
		return err
	}
	leaves, err := readLeaves(c, h)
	if err != nil {
		return err
	}

	root, err := merkle.BuildRoot(leaves, h)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, root.Hex())
	return err
}

// proofCommand handles the proof subcommand
func proofCommand(c *cli.Context) error {
	h, err := selectedHasher(c)
	if err != nil {
		return err
	}
	leaves, err := readLeaves(c, h)
	if err != nil {
		return err
	}

	var proof merkle.Proof
	if index := c.Int("index"); index >= 0 {
		proof, err = merkle.BuildProofAt(leaves, index, h)
	} else {
		if !c.IsSet("leaf") {
			return fmt.Errorf("one of --leaf or --index is required")
		}
		var target merkle.Leaf
		target, err = parseLeaf(c.String("leaf"), c.Bool("raw"), h)
		if err != nil {
			return err
		}
		proof, err = merkle.BuildProof(leaves, target, h)
	}
	if err != nil {
		return err
	}

	encoded, err := encodeProof(proof, c.String("format"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, encoded)
	return err
}

var errInvalidProof = errors.New("proof does not reach the expected root")

// verifyCommand handles the verify subcommand. An invalid proof exits 1.
func verifyCommand(c *cli.Context) error {
	var valid bool

	if id := c.String("id"); id != "" {
		err := withService(c, func(svc *service.MerkleService) error {
			ok, err := svc.Verify(c.Context, id)
			valid = ok
			return err
		})
		if err != nil {
			return err
		}
	} else {
		for _, name := range []string{"root", "leaf", "proof"} {
			if !c.IsSet(name) {
				return fmt.Errorf("--%s is required unless --id is given", name)
			}
		}

		h, err := selectedHasher(c)
		if err != nil {
			return err
		}
		root, err := parseDigest(c.String("root"))
		if err != nil {
			return fmt.Errorf("invalid root: %w", err)
		}
		leaf, err := parseLeaf(c.String("leaf"), c.Bool("raw"), h)
		if err != nil {
			return err
		}
		proof, err := decodeProof(c.String("proof"), c.String("format"))
		if err != nil {
			return err
		}
		valid = merkle.VerifyProofWithHasher(proof, leaf, root, h)
	}

	if !valid {
		_, _ = fmt.Fprintln(c.App.Writer, "invalid")
		return errInvalidProof
	}
	_, err := fmt.Fprintln(c.App.Writer, "valid")
	return err
}

// commitCommand handles the commit subcommand
func commitCommand(c *cli.Context) error {
	h, err := selectedHasher(c)
	if err != nil {
		return err
	}
	leaves, err := readLeaves(c, h)
	if err != nil {
		return err
	}

	return withService(c, func(svc *service.MerkleService) error {
		record, err := svc.Commit(c.Context, leaves)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.App.Writer, record.Root.Hex())
		return err
	})
}

// proveCommand handles the prove subcommand
func proveCommand(c *cli.Context) error {
	root, err := parseDigest(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}

	return withService(c, func(svc *service.MerkleService) error {
		if index := c.Int("index"); index >= 0 {
			record, err := svc.ProveAt(c.Context, root, index)
			if err != nil {
				return err
			}
			return printJSON(c, record)
		}

		if !c.IsSet("leaf") {
			return fmt.Errorf("one of --leaf or --index is required")
		}
		// Raw payloads are hashed the way the stored tree was built, which
		// may differ from --hash-function
		tree, err := svc.Tree(c.Context, root)
		if err != nil {
			return err
		}
		leaf, err := parseLeaf(c.String("leaf"), c.Bool("raw"), tree.Hasher())
		if err != nil {
			return err
		}
		record, err := svc.Prove(c.Context, root, leaf)
		if err != nil {
			return err
		}
		return printJSON(c, record)
	})
}

// listCommand handles the list subcommand
func listCommand(c *cli.Context) error {
	return withService(c, func(svc *service.MerkleService) error {
		if c.IsSet("root") {
			root, err := parseDigest(c.String("root"))
			if err != nil {
				return fmt.Errorf("invalid root: %w", err)
			}
			proofs, err := svc.ListProofs(c.Context, root)
			if err != nil {
				return err
			}
			return printJSON(c, proofs)
		}

		trees, err := svc.ListTrees(c.Context)
		if err != nil {
			return err
		}
		return printJSON(c, trees)
	})
}
