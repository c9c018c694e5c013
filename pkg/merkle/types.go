package merkle

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DigestLength is the size in bytes of every digest produced by a Hasher.
const DigestLength = 32

// Digest is the fixed-size output of a Hasher.
type Digest [DigestLength]byte

// Leaf is a caller supplied digest occupying one position in the tree.
// The tree never hashes raw payloads itself.
type Leaf = Digest

// Root is the single digest summarising a whole leaf sequence.
type Root = Digest

var digestT = reflect.TypeOf(Digest{})

// Hex returns the 0x-prefixed hex encoding of the digest.
func (d Digest) Hex() string {
	return hexutil.Encode(d[:])
}

func (d Digest) String() string {
	return d.Hex()
}

// Bytes returns a copy of the digest as a byte slice.
func (d Digest) Bytes() []byte {
	out := make([]byte, DigestLength)
	copy(out, d[:])
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (d Digest) MarshalText() ([]byte, error) {
	return hexutil.Bytes(d[:]).MarshalText()
}

// UnmarshalText parses a 0x-prefixed hex digest.
func (d *Digest) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("Digest", input, d[:])
}

// UnmarshalJSON parses a digest in quoted hex syntax.
func (d *Digest) UnmarshalJSON(input []byte) error {
	return hexutil.UnmarshalFixedJSON(digestT, input, d[:])
}

// DigestFromHex decodes a 0x-prefixed hex string into a Digest.
func DigestFromHex(s string) (Digest, error) {
	var d Digest
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return Digest{}, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	return d, nil
}

// BytesToDigest copies b into a Digest. b must be exactly DigestLength bytes.
func BytesToDigest(b []byte) (Digest, error) {
	var d Digest
	if len(b) != DigestLength {
		return d, fmt.Errorf("digest must be %d bytes, got %d", DigestLength, len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Side tells which side of the running hash a sibling sits on when a proof
// is replayed.
type Side uint8

const (
	// SideLeft siblings are hashed as HashPair(sibling, current).
	SideLeft Side = 0
	// SideRight siblings are hashed as HashPair(current, sibling).
	SideRight Side = 1
)

// ParseSide converts a decoded wire byte into a Side.
func ParseSide(b byte) (Side, error) {
	switch Side(b) {
	case SideLeft, SideRight:
		return Side(b), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrMalformedSide, b)
	}
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) {
	switch s {
	case SideLeft, SideRight:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrMalformedSide, uint8(s))
	}
}

// UnmarshalText accepts "left" or "right".
func (s *Side) UnmarshalText(input []byte) error {
	switch string(input) {
	case "left":
		*s = SideLeft
	case "right":
		*s = SideRight
	default:
		return fmt.Errorf("%w: %q", ErrMalformedSide, string(input))
	}
	return nil
}

// ProofNode is one sibling digest on the path from a leaf to the root.
type ProofNode struct {
	Digest Digest `json:"digest"`
	Side   Side   `json:"side"`
}

// UnmarshalJSON requires both fields. A missing side would otherwise decode
// as SideLeft and a missing digest as all zeros.
func (n *ProofNode) UnmarshalJSON(input []byte) error {
	var wire struct {
		Digest *Digest `json:"digest"`
		Side   *Side   `json:"side"`
	}
	if err := json.Unmarshal(input, &wire); err != nil {
		return err
	}
	if wire.Side == nil {
		return fmt.Errorf("%w: missing side", ErrMalformedSide)
	}
	if wire.Digest == nil {
		return fmt.Errorf("%w: missing digest", ErrMalformedProof)
	}

	n.Digest = *wire.Digest
	n.Side = *wire.Side
	return nil
}

// Proof is an inclusion proof ordered bottom-up: Proof[0] is the sibling of
// the leaf, the last node is combined last to produce the root.
type Proof []ProofNode
