package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
)

// Proof encodings accepted by --format
const (
	formatJSON = "json"
	formatHex  = "hex"
	formatCBOR = "cbor"
)

// parseLeaf decodes a hex digest, or hashes s as a raw payload when raw is set.
func parseLeaf(s string, raw bool, h merkle.Hasher) (merkle.Leaf, error) {
	if raw {
		return h.Hash([]byte(s)), nil
	}
	leaf, err := parseDigest(s)
	if err != nil {
		return merkle.Leaf{}, fmt.Errorf("invalid leaf: %w", err)
	}
	return leaf, nil
}

// parseDigest accepts a 32-byte hex string with or without the 0x prefix.
func parseDigest(s string) (merkle.Digest, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return merkle.DigestFromHex(s)
}

// readLeaves collects leaves from --leaves (a file, or - for stdin) or from
// the positional arguments. Blank lines are skipped.
func readLeaves(c *cli.Context, h merkle.Hasher) ([]merkle.Leaf, error) {
	raw := c.Bool("raw")

	var lines []string
	switch path := c.String("leaves"); path {
	case "":
		lines = c.Args().Slice()
	case "-":
		read, err := scanLines(c.App.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read leaves from stdin: %w", err)
		}
		lines = read
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open leaves file: %w", err)
		}
		defer func() { _ = f.Close() }()

		read, err := scanLines(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read leaves file: %w", err)
		}
		lines = read
	}

	leaves := make([]merkle.Leaf, 0, len(lines))
	for i, line := range lines {
		leaf, err := parseLeaf(line, raw, h)
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		leaves = append(leaves, leaf)
	}
	if len(leaves) == 0 {
		return nil, merkle.ErrEmptyLeaves
	}
	return leaves, nil
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

func encodeProof(proof merkle.Proof, format string) (string, error) {
	switch strings.ToLower(format) {
	case formatJSON:
		if proof == nil {
			proof = merkle.Proof{}
		}
		data, err := json.Marshal(proof)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case formatHex:
		data, err := proof.MarshalBinary()
		if err != nil {
			return "", err
		}
		return hexutil.Encode(data), nil
	case formatCBOR:
		data, err := merkle.EncodeProofCBOR(proof)
		if err != nil {
			return "", err
		}
		return hexutil.Encode(data), nil
	default:
		return "", fmt.Errorf("unsupported proof format %q (supported: %s, %s, %s)", format, formatJSON, formatHex, formatCBOR)
	}
}

// decodeProof accepts the proof text itself or a path to a file holding it.
func decodeProof(input, format string) (merkle.Proof, error) {
	if _, statErr := os.Stat(input); statErr == nil {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read proof file: %w", err)
		}
		input = string(data)
	}
	input = strings.TrimSpace(input)

	switch strings.ToLower(format) {
	case formatJSON:
		var proof merkle.Proof
		if err := json.Unmarshal([]byte(input), &proof); err != nil {
			return nil, fmt.Errorf("%w: %w", merkle.ErrMalformedProof, err)
		}
		return proof, nil
	case formatHex:
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", merkle.ErrMalformedProof, err)
		}
		return merkle.DecodeProof(data)
	case formatCBOR:
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", merkle.ErrMalformedProof, err)
		}
		return merkle.DecodeProofCBOR(data)
	default:
		return nil, fmt.Errorf("unsupported proof format %q (supported: %s, %s, %s)", format, formatJSON, formatHex, formatCBOR)
	}
}
