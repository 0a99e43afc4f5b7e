// Package store provides the memory storage interface and SQLite
// implementation, including embedding-based relationship maintenance,
// semantic/keyword/hybrid search and clustering.
package store

import (
	"context"

	"github.com/rcliao/memory-graph/internal/model"
)

// Default tuning for relationship maintenance.
const (
	// DefaultSimilarityThreshold is the minimum cosine similarity for an
	// automatic relation.
	DefaultSimilarityThreshold = 0.7

	// DefaultMaxRelations bounds how many relations a single maintenance
	// pass may create for one memory. This caps graph growth per insertion;
	// it is not a global degree bound on the node.
	DefaultMaxRelations = 10
)

// StoreParams holds parameters for storing a memory.
type StoreParams struct {
	OwnerID    string
	Content    string
	Category   string // defaults to "episodic"
	Metadata   model.Metadata
	Confidence float64 // in [0,1]
}

// ListParams holds parameters for listing memories.
type ListParams struct {
	OwnerID      string
	Category     string
	Limit        int
	PendingOnly  bool // only memories awaiting embedding backfill
	EmbeddedOnly bool // only memories with a computed embedding
}

// Store defines the memory storage interface.
type Store interface {
	// Store persists a memory, computing its enriched embedding and
	// maintaining similarity relations before returning. If the embedding
	// model is unavailable the memory is persisted without an embedding
	// and becomes a backfill candidate; that is not a write failure.
	Store(ctx context.Context, p StoreParams) (*model.Memory, error)

	// Get retrieves a memory by id.
	Get(ctx context.Context, id string) (*model.Memory, error)

	// List lists memories matching the given filters, most recent first.
	List(ctx context.Context, p ListParams) ([]model.Memory, error)

	// Delete removes a memory and cascades deletion of its relations.
	Delete(ctx context.Context, id string) error

	// Backfill computes embeddings for up to batchSize memories stored
	// without one, then maintains relations for each. Returns the number
	// processed; an empty backfill set is 0, nil.
	Backfill(ctx context.Context, ownerID string, batchSize int) (int, error)

	// Close closes the store.
	Close() error
}
