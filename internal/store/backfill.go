package store

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/rcliao/memory-graph/internal/embedding"
)

// Backfill computes embeddings for up to batchSize of the owner's memories
// stored without one, persists them, and runs relationship maintenance for
// each newly-embedded memory. Designed for periodic invocation by an
// external scheduler. An empty backfill set returns 0, nil.
func (s *SQLiteStore) Backfill(ctx context.Context, ownerID string, batchSize int) (int, error) {
	if ownerID == "" {
		return 0, fmt.Errorf("owner id is required")
	}
	if s.encoder == nil {
		return 0, fmt.Errorf("no embedder configured")
	}
	if batchSize <= 0 {
		batchSize = 100
	}

	pending, err := s.List(ctx, ListParams{OwnerID: ownerID, PendingOnly: true, Limit: batchSize})
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	texts := make([]string, len(pending))
	for i, m := range pending {
		texts[i] = embedding.EnrichMemory(m.Content, m.Metadata)
	}

	vecs, err := s.encoder.EncodeBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("encode batch: %w", err)
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	processed := 0
	for i := range pending {
		m := &pending[i]
		m.Embedding = vecs[i]

		embJSON, err := encodeVector(m.Embedding)
		if err != nil {
			return processed, err
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE memories SET embedding = ? WHERE id = ?`, embJSON, m.ID); err != nil {
			return processed, fmt.Errorf("persist embedding: %w", err)
		}

		n, err := s.maintainRelations(ctx, m)
		if err != nil {
			return processed, fmt.Errorf("maintain relations: %w", err)
		}
		processed++
		log.Debug("backfilled embedding", "id", m.ID, "owner", ownerID, "relations", n)
	}

	return processed, nil
}
