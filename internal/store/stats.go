package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath            string          `json:"db_path"`
	DBSizeBytes       int64           `json:"db_size_bytes"`
	TotalMemories     int             `json:"total_memories"`
	EmbeddedMemories  int             `json:"embedded_memories"`
	PendingEmbeddings int             `json:"pending_embeddings"`
	MalformedVectors  int             `json:"malformed_vectors"`
	TotalRelations    int             `json:"total_relations"`
	Owners            []OwnerStats    `json:"owners"`
	Categories        []CategoryStats `json:"categories"`
}

// OwnerStats holds per-owner counts.
type OwnerStats struct {
	OwnerID   string `json:"owner_id"`
	Count     int    `json:"count"`
	Relations int    `json:"relations"`
}

// CategoryStats holds per-category counts.
type CategoryStats struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// malformedVectors counts stored embeddings that fail to parse or whose
// dimension disagrees with the encoder (most common stored dimension when
// no encoder is configured). Similarity math skips these rows; the count
// tells the operator what needs re-encoding.
func (s *SQLiteStore) malformedVectors(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT embedding FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var lengths []int
	broken := 0
	for rows.Next() {
		var embJSON string
		if err := rows.Scan(&embJSON); err != nil {
			return 0, err
		}
		vec, err := decodeVector(embJSON)
		if err != nil {
			broken++
			continue
		}
		lengths = append(lengths, len(vec))
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	expected := 0
	if s.encoder != nil {
		expected = s.encoder.Dims()
	} else {
		counts := map[int]int{}
		for _, l := range lengths {
			counts[l]++
		}
		best := 0
		for l, c := range counts {
			if c > best || (c == best && l > expected) {
				expected, best = l, c
			}
		}
	}

	mismatched := 0
	for _, l := range lengths {
		if l != expected {
			mismatched++
		}
	}
	return broken + mismatched, nil
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalMemories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE embedding IS NOT NULL`).Scan(&st.EmbeddedMemories)
	st.PendingEmbeddings = st.TotalMemories - st.EmbeddedMemories
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_relations`).Scan(&st.TotalRelations)

	malformed, err := s.malformedVectors(ctx)
	if err != nil {
		return st, err
	}
	st.MalformedVectors = malformed

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.owner_id, COUNT(DISTINCT m.id) AS cnt,
		       COUNT(DISTINCT r.id) AS rels
		FROM memories m
		LEFT JOIN memory_relations r ON r.source_id = m.id OR r.target_id = m.id
		GROUP BY m.owner_id ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var o OwnerStats
		rows.Scan(&o.OwnerID, &o.Count, &o.Relations)
		st.Owners = append(st.Owners, o)
	}

	crows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS cnt
		FROM memories GROUP BY category ORDER BY cnt DESC`)
	if err != nil {
		return st, err
	}
	defer crows.Close()

	for crows.Next() {
		var c CategoryStats
		crows.Scan(&c.Category, &c.Count)
		st.Categories = append(st.Categories, c)
	}

	return st, nil
}
