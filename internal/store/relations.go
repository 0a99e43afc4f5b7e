package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/memory-graph/internal/embedding"
	"github.com/rcliao/memory-graph/internal/model"
)

// maintainRelations scans the owner's embedded memories for candidates
// similar to m and creates relations for the strongest matches. At most
// MaxRelations edges are created per pass, each only if no edge already
// exists between the pair in either direction. Existing edge strengths are
// not refreshed on re-encounter. Callers must hold the owner's lock.
func (s *SQLiteStore) maintainRelations(ctx context.Context, m *model.Memory) (int, error) {
	if !m.Embedded() {
		return 0, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, embedding FROM memories
		 WHERE owner_id = ? AND id != ? AND embedding IS NOT NULL
		 ORDER BY id`, m.OwnerID, m.ID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var candidates []embedding.Candidate
	for rows.Next() {
		var id, embJSON string
		if err := rows.Scan(&id, &embJSON); err != nil {
			return 0, err
		}
		vec, err := decodeVector(embJSON)
		if err != nil {
			continue // malformed row, excluded from similarity math
		}
		candidates = append(candidates, embedding.Candidate{ID: id, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	matches := embedding.TopMatches(m.Embedding, candidates, s.SimilarityThreshold, s.MaxRelations)

	created := 0
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, match := range matches {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO memory_relations (id, source_id, target_id, relation_type, strength, created_at)
			 SELECT ?, ?, ?, ?, ?, ?
			 WHERE NOT EXISTS (
				SELECT 1 FROM memory_relations
				WHERE (source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)
			 )`,
			uuid.NewString(), m.ID, match.ID, model.RelationSimilarContent, match.Score, now,
			m.ID, match.ID, match.ID, m.ID)
		if err != nil {
			return created, fmt.Errorf("insert relation: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			created++
		}
	}
	return created, nil
}

// RelatedMemory is a memory resolved through a relation edge.
type RelatedMemory struct {
	model.Memory
	RelationType string  `json:"relation_type"`
	Strength     float64 `json:"strength"`
}

// Related returns the memories linked to the given one, both directions,
// strongest first, capped at limit.
func (s *SQLiteStore) Related(ctx context.Context, memoryID string, limit int) ([]RelatedMemory, error) {
	if limit <= 0 {
		limit = 10
	}

	if _, err := s.Get(ctx, memoryID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.owner_id, m.content, m.category, m.metadata, m.embedding, m.confidence, m.created_at,
		        r.relation_type, r.strength
		 FROM memory_relations r
		 JOIN memories m ON m.id = CASE WHEN r.source_id = ? THEN r.target_id ELSE r.source_id END
		 WHERE r.source_id = ? OR r.target_id = ?
		 ORDER BY r.strength DESC
		 LIMIT ?`, memoryID, memoryID, memoryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var related []RelatedMemory
	for rows.Next() {
		var rm RelatedMemory
		var metaJSON, embJSON *string
		var createdAt string
		err := rows.Scan(&rm.ID, &rm.OwnerID, &rm.Content, &rm.Category,
			&metaJSON, &embJSON, &rm.Confidence, &createdAt,
			&rm.RelationType, &rm.Strength)
		if err != nil {
			return nil, err
		}
		rm.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if metaJSON != nil {
			unmarshalJSON(*metaJSON, &rm.Metadata)
		}
		if embJSON != nil {
			unmarshalJSON(*embJSON, &rm.Embedding)
		}
		related = append(related, rm)
	}
	return related, rows.Err()
}

// RelateParams holds parameters for a manual relation.
type RelateParams struct {
	SourceID string
	TargetID string
	Type     string  // defaults to "similar_content"
	Strength float64 // defaults to 1.0
	Remove   bool
}

// Relate creates or removes a relation between two memories of the same
// owner. Cross-owner relations are a contract violation (ErrOwnerScope);
// self-loops are rejected. Creating an edge that already exists in either
// direction is a no-op.
func (s *SQLiteStore) Relate(ctx context.Context, p RelateParams) (*model.Relation, error) {
	if p.SourceID == p.TargetID {
		return nil, fmt.Errorf("cannot relate a memory to itself")
	}

	src, err := s.Get(ctx, p.SourceID)
	if err != nil {
		return nil, fmt.Errorf("resolve source: %w", err)
	}
	tgt, err := s.Get(ctx, p.TargetID)
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w", err)
	}
	if src.OwnerID != tgt.OwnerID {
		return nil, fmt.Errorf("%w: %s vs %s", ErrOwnerScope, src.OwnerID, tgt.OwnerID)
	}

	if p.Remove {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM memory_relations
			 WHERE (source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)`,
			p.SourceID, p.TargetID, p.TargetID, p.SourceID)
		if err != nil {
			return nil, err
		}
		return &model.Relation{SourceID: p.SourceID, TargetID: p.TargetID, Type: p.Type}, nil
	}

	relType := p.Type
	if relType == "" {
		relType = model.RelationSimilarContent
	}
	strength := p.Strength
	if strength == 0 {
		strength = 1.0
	}
	if strength < 0 || strength > 1 {
		return nil, fmt.Errorf("strength %v out of range [0,1]", strength)
	}

	rel := &model.Relation{
		ID:        uuid.NewString(),
		SourceID:  p.SourceID,
		TargetID:  p.TargetID,
		Type:      relType,
		Strength:  strength,
		CreatedAt: time.Now().UTC(),
	}

	unlock := s.locks.lock(src.OwnerID)
	defer unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_relations (id, source_id, target_id, relation_type, strength, created_at)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (
			SELECT 1 FROM memory_relations
			WHERE (source_id = ? AND target_id = ?) OR (source_id = ? AND target_id = ?)
		 )`,
		rel.ID, rel.SourceID, rel.TargetID, rel.Type, rel.Strength,
		rel.CreatedAt.Format(time.RFC3339Nano),
		rel.SourceID, rel.TargetID, rel.TargetID, rel.SourceID)
	if err != nil {
		return nil, err
	}

	return rel, nil
}

// Relations returns the raw relation edges incident to a memory.
func (s *SQLiteStore) Relations(ctx context.Context, memoryID string) ([]model.Relation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, target_id, relation_type, strength, created_at
		 FROM memory_relations
		 WHERE source_id = ? OR target_id = ?
		 ORDER BY strength DESC`, memoryID, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []model.Relation
	for rows.Next() {
		var r model.Relation
		var createdAt string
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type, &r.Strength, &createdAt); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		relations = append(relations, r)
	}
	return relations, rows.Err()
}
