package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/config"
	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle/hashers"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func leafFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "leaves",
			Usage: "File with one leaf per line, or - for stdin. Positional arguments are used when unset",
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "Treat each leaf as a raw payload and hash it with the selected hash function",
		},
	}
}

func targetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "leaf",
			Usage: "Leaf to prove (hex digest, or raw payload with --raw)",
		},
		&cli.IntFlag{
			Name:  "index",
			Usage: "Position of the leaf to prove; overrides --leaf",
			Value: -1,
		},
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Proof encoding: json, hex or cbor",
		Value: formatJSON,
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "merkletree",
		Usage: "Build Merkle roots and inclusion proofs",
		Description: `Builds keccak256 Merkle roots over ordered leaf sets and generates and verifies inclusion proofs.

Odd nodes are promoted to the next layer unchanged. Proofs are ordered from the leaf upward.
The commit, prove and list commands keep trees and issued proofs in the configured store.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "hash-function",
				Usage:   "Hash function: " + hashers.SupportedString(),
				Value:   config.DefaultHashFunction,
				EnvVars: []string{config.EnvMerkleHashFunction},
			},
			&cli.StringFlag{
				Name:    "persistence-type",
				Usage:   "Store backend: " + config.GetSupportedPersistenceTypesString(),
				Value:   config.DefaultPersistenceType,
				EnvVars: []string{config.EnvMerklePersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory (badger is the default store)",
				Value:   config.DefaultDataPath,
				EnvVars: []string{config.EnvMerkleDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address",
				Value:   config.DefaultRedisAddress,
				EnvVars: []string{config.EnvMerkleRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvMerkleRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvMerkleRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for every Redis key",
				EnvVars: []string{config.EnvMerkleRedisKeyPrefix},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvMerkleDebug},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "root",
				Usage:     "Compute the Merkle root of a leaf set",
				ArgsUsage: "[leaf...]",
				Flags:     leafFlags(),
				Action:    rootCommand,
			},
			{
				Name:      "proof",
				Usage:     "Generate an inclusion proof for a leaf",
				ArgsUsage: "[leaf...]",
				Flags:     append(append([]cli.Flag{formatFlag()}, leafFlags()...), targetFlags()...),
				Action:    proofCommand,
			},
			{
				Name:  "verify",
				Usage: "Verify an inclusion proof, or a stored proof with --id",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{Name: "root", Usage: "Expected root (hex)"},
					&cli.StringFlag{Name: "leaf", Usage: "Leaf being proven (hex digest, or raw payload with --raw)"},
					&cli.BoolFlag{Name: "raw", Usage: "Hash --leaf with the selected hash function"},
					&cli.StringFlag{Name: "proof", Usage: "Encoded proof, or a path to a file containing it"},
					&cli.StringFlag{Name: "id", Usage: "ID of a stored proof"},
				},
				Action: verifyCommand,
			},
			{
				Name:      "commit",
				Usage:     "Store a leaf set and print its root",
				ArgsUsage: "[leaf...]",
				Flags:     leafFlags(),
				Action:    commitCommand,
			},
			{
				Name:  "prove",
				Usage: "Issue and store a proof against a committed tree",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "root", Usage: "Root of a committed tree (hex)", Required: true},
					&cli.BoolFlag{Name: "raw", Usage: "Hash --leaf with the hash function the tree was committed with"},
				}, targetFlags()...),
				Action: proveCommand,
			},
			{
				Name:  "list",
				Usage: "List committed trees, or the proofs issued against --root",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "root", Usage: "List proofs for this root instead of trees"},
				},
				Action: listCommand,
			},
		},
	}
}
