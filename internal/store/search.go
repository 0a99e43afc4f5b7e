package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/memory-graph/internal/embedding"
	"github.com/rcliao/memory-graph/internal/model"
)

// Match type tags for search results.
const (
	MatchSemantic = "semantic"
	MatchKeyword  = "keyword"
	MatchBoth     = "both"
)

// SemanticParams holds parameters for semantic search.
type SemanticParams struct {
	OwnerID    string
	Query      string
	Categories []string
	After      time.Time // zero means unbounded
	Before     time.Time
	Limit      int     // defaults to 20
	Threshold  float64 // minimum similarity; <= 0 defaults to 0.5
}

// KeywordParams holds parameters for keyword search.
type KeywordParams struct {
	OwnerID    string
	Query      string
	Categories []string
	Limit      int
}

// HybridParams holds parameters for hybrid rank-fusion search.
type HybridParams struct {
	OwnerID        string
	Query          string
	KeywordWeight  float64 // both zero defaults to 0.3 / 0.7
	SemanticWeight float64
	Limit          int
}

// SearchResult wraps a memory with its search score.
type SearchResult struct {
	model.Memory
	Score     float64 `json:"score"`
	MatchType string  `json:"match_type,omitempty"`
}

// SemanticSearch ranks the owner's embedded memories by similarity to the
// enriched query vector. An empty query falls back to most-recent-first
// ordering; an owner with no embedded memories gets an empty result, not an
// error. Memories whose stored vector dimension no longer matches the
// encoder are excluded.
func (s *SQLiteStore) SemanticSearch(ctx context.Context, p SemanticParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}

	// No similarity signal to rank by: recency is the documented default.
	if strings.TrimSpace(p.Query) == "" {
		memories, err := s.listFiltered(ctx, p.OwnerID, p.Categories, p.After, p.Before, limit, false)
		if err != nil {
			return nil, err
		}
		results := make([]SearchResult, len(memories))
		for i, m := range memories {
			results[i] = SearchResult{Memory: m, MatchType: MatchSemantic}
		}
		return results, nil
	}

	if s.encoder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	qctx := embedding.QueryContext{Categories: p.Categories}
	if !p.After.IsZero() || !p.Before.IsZero() {
		qctx.TimeRange = fmt.Sprintf("%s to %s", p.After.Format(time.RFC3339), p.Before.Format(time.RFC3339))
	}
	queryVec, err := s.encoder.EncodeQuery(ctx, p.Query, qctx)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	candidates, err := s.listFiltered(ctx, p.OwnerID, p.Categories, p.After, p.Before, 0, true)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, m := range candidates {
		if len(m.Embedding) != len(queryVec) {
			continue // fail closed on dimension mismatch
		}
		score := embedding.Similarity(queryVec, m.Embedding)
		if score >= threshold {
			results = append(results, SearchResult{Memory: m, Score: score, MatchType: MatchSemantic})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// KeywordSearch matches memories by case-insensitive substring containment.
// The score reflects match intensity: min(1, occurrences/10).
func (s *SQLiteStore) KeywordSearch(ctx context.Context, p KeywordParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	query := strings.ToLower(strings.TrimSpace(p.Query))
	if query == "" {
		return nil, nil
	}

	where := []string{"owner_id = ?", "LOWER(content) LIKE ?"}
	args := []interface{}{p.OwnerID, "%" + query + "%"}
	if len(p.Categories) > 0 {
		where = append(where, "category IN ("+placeholders(len(p.Categories))+")")
		for _, c := range p.Categories {
			args = append(args, c)
		}
	}

	sqlq := fmt.Sprintf(`
		SELECT id, owner_id, content, category, metadata, embedding, confidence, created_at
		FROM memories WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		count := strings.Count(strings.ToLower(m.Content), query)
		score := float64(count) / 10.0
		if score > 1.0 {
			score = 1.0
		}
		results = append(results, SearchResult{Memory: m, Score: score, MatchType: MatchKeyword})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}

// HybridSearch fuses keyword and semantic rankings. Each side runs
// independently; scores combine as semantic*semanticWeight +
// keyword*keywordWeight with a missing side contributing 0. Weights need not
// sum to 1. Results are tagged with which search(es) found them and ordered
// deterministically.
func (s *SQLiteStore) HybridSearch(ctx context.Context, p HybridParams) ([]SearchResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}
	kw, sw := p.KeywordWeight, p.SemanticWeight
	if kw == 0 && sw == 0 {
		kw, sw = 0.3, 0.7
	}

	// An empty query gives both sides nothing to score, and re-sorting
	// all-zero scores by id would scramble the recency fallback. Return
	// it untouched.
	if strings.TrimSpace(p.Query) == "" {
		return s.SemanticSearch(ctx, SemanticParams{OwnerID: p.OwnerID, Limit: limit})
	}

	semantic, err := s.SemanticSearch(ctx, SemanticParams{OwnerID: p.OwnerID, Query: p.Query, Limit: limit})
	if err != nil {
		return nil, err
	}
	keyword, err := s.KeywordSearch(ctx, KeywordParams{OwnerID: p.OwnerID, Query: p.Query, Limit: limit})
	if err != nil {
		return nil, err
	}

	combined := make(map[string]*SearchResult, len(semantic)+len(keyword))
	for i := range semantic {
		r := semantic[i]
		r.Score = r.Score * sw
		combined[r.ID] = &r
	}
	for i := range keyword {
		k := keyword[i]
		if r, ok := combined[k.ID]; ok {
			r.Score += k.Score * kw
			r.MatchType = MatchBoth
		} else {
			k.Score = k.Score * kw
			combined[k.ID] = &k
		}
	}

	results := make([]SearchResult, 0, len(combined))
	for _, r := range combined {
		results = append(results, *r)
	}
	// Deterministic order: score descending, id ascending on ties.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// listFiltered loads an owner's memories under category/time filters.
// limit 0 means unbounded; embeddedOnly restricts to similarity candidates.
func (s *SQLiteStore) listFiltered(ctx context.Context, ownerID string, categories []string, after, before time.Time, limit int, embeddedOnly bool) ([]model.Memory, error) {
	where := []string{"owner_id = ?"}
	args := []interface{}{ownerID}

	if len(categories) > 0 {
		where = append(where, "category IN ("+placeholders(len(categories))+")")
		for _, c := range categories {
			args = append(args, c)
		}
	}
	if !after.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, after.UTC().Format(time.RFC3339Nano))
	}
	if !before.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, before.UTC().Format(time.RFC3339Nano))
	}
	if embeddedOnly {
		where = append(where, "embedding IS NOT NULL")
	}

	sqlq := fmt.Sprintf(`
		SELECT id, owner_id, content, category, metadata, embedding, confidence, created_at
		FROM memories WHERE %s
		ORDER BY created_at DESC, id DESC`, strings.Join(where, " AND "))
	if limit > 0 {
		sqlq += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlq, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
