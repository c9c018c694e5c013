package merkle

import "errors"

var (
	// ErrLeafNotFound is returned when a proof is requested for a leaf that
	// is not part of the leaf sequence.
	ErrLeafNotFound = errors.New("leaf does not exist in the tree")

	// ErrEmptyLeaves is returned when a tree or root is built from zero leaves.
	ErrEmptyLeaves = errors.New("cannot build merkle tree from empty leaf list")

	// ErrMalformedSide is returned when a decoded proof node carries a side
	// value other than left or right.
	ErrMalformedSide = errors.New("malformed proof node side")

	// ErrMalformedProof is returned when encoded proof bytes cannot be split
	// into whole proof nodes.
	ErrMalformedProof = errors.New("malformed proof encoding")

	// ErrIndexOutOfRange is returned when a proof is requested for a position
	// outside the leaf sequence.
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)
