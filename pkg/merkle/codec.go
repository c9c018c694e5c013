package merkle

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ProofNodeSize is the encoded size of one proof node: a side byte followed
// by the digest.
const ProofNodeSize = 1 + DigestLength

// MarshalBinary encodes the proof as consecutive (side, digest) records in
// proof order.
func (p Proof) MarshalBinary() ([]byte, error) {
	data := make([]byte, 0, len(p)*ProofNodeSize)
	for i, node := range p {
		if node.Side != SideLeft && node.Side != SideRight {
			return nil, fmt.Errorf("node %d: %w: %d", i, ErrMalformedSide, uint8(node.Side))
		}
		data = append(data, byte(node.Side))
		data = append(data, node.Digest[:]...)
	}
	return data, nil
}

// UnmarshalBinary decodes records produced by MarshalBinary. Side bytes are
// validated here rather than at verification time.
func (p *Proof) UnmarshalBinary(data []byte) error {
	if len(data)%ProofNodeSize != 0 {
		return fmt.Errorf("%w: length %d is not a multiple of %d", ErrMalformedProof, len(data), ProofNodeSize)
	}

	decoded := make(Proof, 0, len(data)/ProofNodeSize)
	for off := 0; off < len(data); off += ProofNodeSize {
		side, err := ParseSide(data[off])
		if err != nil {
			return fmt.Errorf("node %d: %w", off/ProofNodeSize, err)
		}
		var node ProofNode
		node.Side = side
		copy(node.Digest[:], data[off+1:off+ProofNodeSize])
		decoded = append(decoded, node)
	}

	*p = decoded
	return nil
}

// DecodeProof is a convenience wrapper around Proof.UnmarshalBinary.
func DecodeProof(data []byte) (Proof, error) {
	var p Proof
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}

// cborProofNode is the CBOR wire shape of a proof node. Integer keys keep
// the encoding compact.
type cborProofNode struct {
	Side   *uint8 `cbor:"1,keyasint"`
	Digest []byte `cbor:"2,keyasint"`
}

// EncodeProofCBOR encodes the proof as a CBOR array of nodes.
func EncodeProofCBOR(p Proof) ([]byte, error) {
	wire := make([]cborProofNode, len(p))
	for i, node := range p {
		if node.Side != SideLeft && node.Side != SideRight {
			return nil, fmt.Errorf("node %d: %w: %d", i, ErrMalformedSide, uint8(node.Side))
		}
		side := uint8(node.Side)
		wire[i] = cborProofNode{Side: &side, Digest: node.Digest.Bytes()}
	}

	data, err := cbor.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal proof to CBOR: %w", err)
	}
	return data, nil
}

// DecodeProofCBOR decodes a proof produced by EncodeProofCBOR.
func DecodeProofCBOR(data []byte) (Proof, error) {
	var wire []cborProofNode
	if err := cbor.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProof, err)
	}

	proof := make(Proof, len(wire))
	for i, w := range wire {
		if w.Side == nil {
			return nil, fmt.Errorf("node %d: %w: missing side", i, ErrMalformedSide)
		}
		side, err := ParseSide(*w.Side)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		digest, err := BytesToDigest(w.Digest)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w: %v", i, ErrMalformedProof, err)
		}
		proof[i] = ProofNode{Digest: digest, Side: side}
	}
	return proof, nil
}
