// Package archive keeps a history of completed summaries. It is a record of
// what was produced and is never consulted in place of a generate call.
package archive

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("summary record not found")

// Record is one archived summary.
type Record struct {
	ID           string    `json:"id"`
	Source       string    `json:"source,omitempty"`
	DocumentHash string    `json:"document_hash"`
	Summary      string    `json:"summary"`
	ChunkCount   int       `json:"chunk_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store defines the interface for archiving summaries.
type Store interface {
	// Initialize opens the store at dbPath.
	Initialize(dbPath string) error

	// Close closes the store and releases any resources.
	Close() error

	// Store appends a record and returns it with its id and timestamp set.
	Store(source, document, summary string, chunkCount int) (*Record, error)

	// Get returns the record with the given id.
	Get(id string) (*Record, error)

	// List returns up to limit records, newest first. A limit of zero or
	// less returns all of them.
	List(limit int) ([]*Record, error)

	// Delete removes one record.
	Delete(id string) error

	// Clear removes every record and returns how many were removed.
	Clear() (int, error)
}
