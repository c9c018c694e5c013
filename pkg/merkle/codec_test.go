package merkle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProof(t *testing.T, n int) Proof {
	t.Helper()
	tree, err := NewTree(createTestLeaves(n))
	require.NoError(t, err)
	proof, err := tree.MakeProofAt(n - 1)
	require.NoError(t, err)
	return proof
}

func TestProofBinary(t *testing.T) {
	proof := testProof(t, 6)

	data, err := proof.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, len(proof)*ProofNodeSize)

	for i, node := range proof {
		assert.Equal(t, byte(node.Side), data[i*ProofNodeSize])
		assert.Equal(t, node.Digest[:], data[i*ProofNodeSize+1:(i+1)*ProofNodeSize])
	}

	decoded, err := DecodeProof(data)
	require.NoError(t, err)
	require.Equal(t, proof, decoded)
}

func TestProofBinaryEmpty(t *testing.T) {
	data, err := Proof{}.MarshalBinary()
	require.NoError(t, err)
	require.Empty(t, data)

	decoded, err := DecodeProof(data)
	require.NoError(t, err)
	require.Empty(t, decoded)
}

func TestProofBinaryMalformed(t *testing.T) {
	proof := testProof(t, 8)
	data, err := proof.MarshalBinary()
	require.NoError(t, err)

	t.Run("Truncated", func(t *testing.T) {
		_, err := DecodeProof(data[:len(data)-1])
		require.ErrorIs(t, err, ErrMalformedProof)
	})

	t.Run("Bad side byte", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[ProofNodeSize] = 2
		_, err := DecodeProof(bad)
		require.ErrorIs(t, err, ErrMalformedSide)
	})

	t.Run("Encode invalid side", func(t *testing.T) {
		_, err := Proof{{Side: Side(7)}}.MarshalBinary()
		require.ErrorIs(t, err, ErrMalformedSide)
	})
}

func TestProofJSON(t *testing.T) {
	proof := Proof{
		{Digest: mustDigest(t, hexB), Side: SideRight},
		{Digest: mustDigest(t, hexCD), Side: SideRight},
	}

	data, err := json.Marshal(proof)
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"digest":"`+hexB+`","side":"right"},
		{"digest":"`+hexCD+`","side":"right"}
	]`, string(data))

	var decoded Proof
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, proof, decoded)

	t.Run("Unknown side", func(t *testing.T) {
		var p Proof
		err := json.Unmarshal([]byte(`[{"digest":"`+hexB+`","side":"up"}]`), &p)
		require.ErrorIs(t, err, ErrMalformedSide)
	})

	t.Run("Missing side", func(t *testing.T) {
		var p Proof
		err := json.Unmarshal([]byte(`[{"digest":"`+hexB+`"}]`), &p)
		require.ErrorIs(t, err, ErrMalformedSide)
	})

	t.Run("Null side", func(t *testing.T) {
		var p Proof
		err := json.Unmarshal([]byte(`[{"digest":"`+hexB+`","side":null}]`), &p)
		require.ErrorIs(t, err, ErrMalformedSide)
	})

	t.Run("Missing digest", func(t *testing.T) {
		var p Proof
		err := json.Unmarshal([]byte(`[{"side":"left"}]`), &p)
		require.ErrorIs(t, err, ErrMalformedProof)
	})

	t.Run("Short digest", func(t *testing.T) {
		var p Proof
		err := json.Unmarshal([]byte(`[{"digest":"0x1234","side":"left"}]`), &p)
		require.Error(t, err)
	})
}

func TestProofCBOR(t *testing.T) {
	proof := testProof(t, 11)

	data, err := EncodeProofCBOR(proof)
	require.NoError(t, err)

	decoded, err := DecodeProofCBOR(data)
	require.NoError(t, err)
	require.Equal(t, proof, decoded)

	t.Run("Garbage", func(t *testing.T) {
		_, err := DecodeProofCBOR([]byte{0xff, 0x00})
		require.ErrorIs(t, err, ErrMalformedProof)
	})

	t.Run("Bad side", func(t *testing.T) {
		// [{1: 9, 2: h''}]
		_, err := DecodeProofCBOR([]byte{0x81, 0xa2, 0x01, 0x09, 0x02, 0x40})
		require.ErrorIs(t, err, ErrMalformedSide)
	})

	t.Run("Missing side", func(t *testing.T) {
		// [{2: h'00'}]
		_, err := DecodeProofCBOR([]byte{0x81, 0xa1, 0x02, 0x41, 0x00})
		require.ErrorIs(t, err, ErrMalformedSide)
	})

	t.Run("Short digest", func(t *testing.T) {
		// [{1: 0, 2: h'01'}]
		_, err := DecodeProofCBOR([]byte{0x81, 0xa2, 0x01, 0x00, 0x02, 0x41, 0x01})
		require.ErrorIs(t, err, ErrMalformedProof)
	})
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide(0)
	require.NoError(t, err)
	require.Equal(t, SideLeft, s)

	s, err = ParseSide(1)
	require.NoError(t, err)
	require.Equal(t, SideRight, s)

	_, err = ParseSide(2)
	require.ErrorIs(t, err, ErrMalformedSide)

	require.Equal(t, "left", SideLeft.String())
	require.Equal(t, "right", SideRight.String())
	require.Equal(t, SideRight, SideLeft.Opposite())
}

func TestDigestText(t *testing.T) {
	d := mustDigest(t, hexRoot)
	require.Equal(t, hexRoot, d.Hex())

	_, err := DigestFromHex("68203f90")
	require.Error(t, err)

	_, err = BytesToDigest(make([]byte, 31))
	require.Error(t, err)

	b, err := BytesToDigest(d.Bytes())
	require.NoError(t, err)
	require.Equal(t, d, b)
}
