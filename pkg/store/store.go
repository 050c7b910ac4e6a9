// Package store persists inspection reports for the HTTP service.
//
// Reports are wrapped in a [StoredReport] envelope carrying the identifier
// and upload metadata. The report JSON itself stays untouched: identifiers
// live in the envelope, never inside the document, so the same archive
// always produces byte-identical reports no matter how often it is stored.
//
// Two backends implement [Store]:
//   - [FileStore]: JSON files in a directory, for single-instance servers
//   - [MongoStore]: MongoDB collection, for multi-instance deployments
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit bounds List when the caller passes no limit.
const DefaultListLimit = 50

// StoredReport is the persistence envelope around a report document.
type StoredReport struct {
	ID        string          `json:"id" bson:"_id"`
	Filename  string          `json:"filename" bson:"filename"`
	SHA256    string          `json:"sha256" bson:"sha256"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
	Report    json.RawMessage `json:"report" bson:"report"`
}

// Store is the interface for report persistence backends.
type Store interface {
	// Put stores a report. An existing report with the same ID is replaced.
	Put(ctx context.Context, rep *StoredReport) error

	// Get retrieves a report by ID.
	// Returns nil, nil if the report doesn't exist.
	Get(ctx context.Context, id string) (*StoredReport, error)

	// GetBySHA256 retrieves the report stored for an archive digest.
	// Returns nil, nil if no report for that digest exists. Callers use
	// this to reuse the existing ID instead of storing the same archive
	// twice.
	GetBySHA256(ctx context.Context, sum string) (*StoredReport, error)

	// Delete removes a report. Deleting a missing report is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the most recent reports, newest first.
	// A limit of 0 or less applies DefaultListLimit.
	List(ctx context.Context, limit int) ([]*StoredReport, error)
}

// NewID generates a unique report identifier.
func NewID() string {
	return uuid.NewString()
}
