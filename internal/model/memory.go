// Package model defines the core memory data types.
package model

import "time"

// Memory represents a stored memory entry owned by a single principal.
type Memory struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Content    string    `json:"content"`
	Category   string    `json:"category"`
	Metadata   Metadata  `json:"metadata,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Embedded reports whether the memory has a computed embedding.
// A memory without one participates in no similarity math and is a
// backfill candidate.
func (m *Memory) Embedded() bool {
	return len(m.Embedding) > 0
}

// Entity is a typed value extracted from memory content (person, place, ...).
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// TimeInfo carries a temporal hint extracted from memory content.
type TimeInfo struct {
	HasTime  bool   `json:"has_time"`
	Original string `json:"original,omitempty"`
}

// Metadata is the open metadata bag attached to a memory. The well-known
// fields feed embedding enrichment; Extra holds anything else.
type Metadata struct {
	Entities []Entity       `json:"entities,omitempty"`
	Emotions []string       `json:"emotions,omitempty"`
	TimeInfo *TimeInfo      `json:"time_info,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Relation is an undirected, scored edge between two memories of the
// same owner. Strength is the cosine similarity at creation time.
type Relation struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	TargetID  string    `json:"target_id"`
	Type      string    `json:"relation_type"`
	Strength  float64   `json:"strength"`
	CreatedAt time.Time `json:"created_at"`
}

// RelationSimilarContent is the relation type created by automatic
// relationship maintenance.
const RelationSimilarContent = "similar_content"

// ValidCategories are the allowed memory categories.
var ValidCategories = map[string]bool{
	"episodic":       true,
	"semantic":       true,
	"procedural":     true,
	"social":         true,
	"conversational": true,
}
