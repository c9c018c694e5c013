// Package hashers provides named hash primitives for merkle trees.
//
// keccak256 is the default and matches Solidity. The others exist for
// callers committing to data outside the EVM.
package hashers

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
)

// Name identifies a supported hash primitive.
type Name string

func (n Name) String() string {
	return string(n)
}

const (
	NameKeccak256 Name = "keccak256"
	NameSHA3256   Name = "sha3-256"
	NameBlake3    Name = "blake3"
)

// ErrUnknownHasher is returned by ByName for names not in the registry.
var ErrUnknownHasher = errors.New("unknown hash function")

var registry = map[Name]merkle.Hasher{
	NameKeccak256: merkle.Keccak256Hasher{},
	NameSHA3256:   merkle.HashFunc(sha3256),
	NameBlake3:    merkle.HashFunc(blake3256),
}

// ByName looks up a hasher. Names are case-insensitive.
func ByName(name string) (merkle.Hasher, error) {
	_, h, err := Resolve(name)
	return h, err
}

// Resolve looks up a hasher and returns its canonical name alongside it, for
// callers that record which function a root was built with.
func Resolve(name string) (Name, merkle.Hasher, error) {
	n := Name(strings.ToLower(strings.TrimSpace(name)))
	h, ok := registry[n]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownHasher, name, SupportedString())
	}
	return n, h, nil
}

// Supported returns the registered names in sorted order.
func Supported() []Name {
	names := make([]Name, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return names[i] < names[j]
	})
	return names
}

// SupportedString returns the registered names for CLI help.
func SupportedString() string {
	names := Supported()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

// sha3256 is FIPS-202 SHA3-256, not the legacy keccak padding.
func sha3256(data []byte) merkle.Digest {
	return merkle.Digest(sha3.Sum256(data))
}

func blake3256(data []byte) merkle.Digest {
	return merkle.Digest(blake3.Sum256(data))
}
