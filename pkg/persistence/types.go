package persistence

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Layr-Labs/eigenx-merkletree-go/pkg/merkle"
)

// Type selects a store backend.
type Type string

const (
	TypeMemory Type = "memory"
	TypeBadger Type = "badger"
	TypeRedis  Type = "redis"
)

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("persistence layer is closed")

// TreeRecord is a committed leaf set. The root is derived from the leaves and
// the named hash function; it is stored so records can be looked up by it.
type TreeRecord struct {
	// Root is the merkle root and the record key
	Root merkle.Root `json:"root"`

	// HashFunction names the hasher the root was built with (see hashers.ByName)
	HashFunction string `json:"hashFunction"`

	// Leaves in tree order
	Leaves []merkle.Leaf `json:"leaves"`

	// CreatedAt is the Unix timestamp of the commit
	CreatedAt int64 `json:"createdAt"`
}

// ProofRecord is an inclusion proof issued against a committed tree.
type ProofRecord struct {
	// ID is a unique identifier (uuid) and the record key
	ID string `json:"id"`

	// Root of the tree the proof was generated from
	Root merkle.Root `json:"root"`

	// Leaf being proven
	Leaf merkle.Leaf `json:"leaf"`

	// Index is the position of Leaf in the tree
	Index int `json:"index"`

	// Proof nodes, leaf side first
	Proof merkle.Proof `json:"proof"`

	// CreatedAt is the Unix timestamp when the proof was issued
	CreatedAt int64 `json:"createdAt"`
}

// ValidateTreeRecord checks the fields every backend relies on.
func ValidateTreeRecord(record *TreeRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil TreeRecord")
	}
	if len(record.Leaves) == 0 {
		return fmt.Errorf("tree record %s has no leaves", record.Root.Hex())
	}
	return nil
}

// ValidateProofRecord checks the fields every backend relies on.
func ValidateProofRecord(record *ProofRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil ProofRecord")
	}
	if record.ID == "" {
		return fmt.Errorf("proof record ID cannot be empty")
	}
	return nil
}

// SortTreeRecords orders records by CreatedAt, then root.
func SortTreeRecords(records []*TreeRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].Root.Hex() < records[j].Root.Hex()
	})
}

// SortProofRecords orders records by CreatedAt, then ID.
func SortProofRecords(records []*ProofRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt != records[j].CreatedAt {
			return records[i].CreatedAt < records[j].CreatedAt
		}
		return records[i].ID < records[j].ID
	})
}

// CopyTreeRecord returns a deep copy.
func CopyTreeRecord(record *TreeRecord) *TreeRecord {
	if record == nil {
		return nil
	}
	out := *record
	out.Leaves = append([]merkle.Leaf(nil), record.Leaves...)
	return &out
}

// CopyProofRecord returns a deep copy.
func CopyProofRecord(record *ProofRecord) *ProofRecord {
	if record == nil {
		return nil
	}
	out := *record
	out.Proof = append(merkle.Proof(nil), record.Proof...)
	return &out
}
