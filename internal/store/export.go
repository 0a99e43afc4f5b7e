package store

import (
	"context"
	"strings"
	"time"

	"github.com/rcliao/memory-graph/internal/model"
)

// Export is a portable snapshot of memories and their relation edges.
type Export struct {
	Memories  []model.Memory   `json:"memories"`
	Relations []model.Relation `json:"relations"`
}

// ExportAll returns all memories and relations, optionally scoped to one
// owner. Embeddings are included so an import need not re-encode.
func (s *SQLiteStore) ExportAll(ctx context.Context, ownerID string) (*Export, error) {
	where := "1=1"
	args := []interface{}{}
	if ownerID != "" {
		where = "owner_id = ?"
		args = append(args, ownerID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, content, category, metadata, embedding, confidence, created_at
		 FROM memories WHERE `+where+` ORDER BY owner_id, created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exp := &Export{}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		exp.Memories = append(exp.Memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	relWhere := "1=1"
	if ownerID != "" {
		relWhere = "source_id IN (SELECT id FROM memories WHERE owner_id = ?)"
	}
	rrows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, target_id, relation_type, strength, created_at
		 FROM memory_relations WHERE `+relWhere+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()

	for rrows.Next() {
		var r model.Relation
		var createdAt string
		if err := rrows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type, &r.Strength, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		exp.Relations = append(exp.Relations, r)
	}
	return exp, rrows.Err()
}

// Import stores memories from an export under fresh IDs. Memories carrying
// an embedding keep it and go straight through relationship maintenance;
// the rest are re-encoded by Store (or left for backfill). Relations are
// not imported directly; maintenance rebuilds the graph from similarity.
func (s *SQLiteStore) Import(ctx context.Context, memories []model.Memory) (int, error) {
	imported := 0
	for _, m := range memories {
		if m.Embedded() {
			mem := &model.Memory{
				ID:         s.newID(),
				OwnerID:    m.OwnerID,
				Content:    m.Content,
				Category:   m.Category,
				Metadata:   m.Metadata,
				Embedding:  m.Embedding,
				Confidence: m.Confidence,
				CreatedAt:  time.Now().UTC(),
			}
			if mem.Category == "" {
				mem.Category = "episodic"
			}
			if err := s.insertMemory(ctx, mem); err != nil {
				return imported, err
			}
			unlock := s.locks.lock(mem.OwnerID)
			_, err := s.maintainRelations(ctx, mem)
			unlock()
			if err != nil {
				return imported, err
			}
		} else {
			_, err := s.Store(ctx, StoreParams{
				OwnerID:    m.OwnerID,
				Content:    strings.TrimSpace(m.Content),
				Category:   m.Category,
				Metadata:   m.Metadata,
				Confidence: m.Confidence,
			})
			if err != nil {
				return imported, err
			}
		}
		imported++
	}
	return imported, nil
}
