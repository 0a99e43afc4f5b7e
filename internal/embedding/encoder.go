package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/memory-graph/internal/model"
)

// enrichSep joins content with derived metadata fragments before embedding.
const enrichSep = " | "

// enrichedEntityTypes are the entity types worth folding into the embedding.
var enrichedEntityTypes = map[string]bool{
	"person":   true,
	"place":    true,
	"activity": true,
}

// Encoder wraps an Embedder with the enrichment rules used for memories and
// queries. Blank input maps to a zero vector of the model's dimension, a
// defined "no content signal" sentinel, never an error or a model call.
type Encoder struct {
	embedder Embedder
}

// NewEncoder creates an encoder over the given embedder.
func NewEncoder(e Embedder) *Encoder {
	return &Encoder{embedder: e}
}

// Dims returns the embedding dimension of the underlying model.
func (e *Encoder) Dims() int { return e.embedder.Dims() }

// ZeroVector returns the all-zero sentinel vector.
func (e *Encoder) ZeroVector() Vector {
	return make(Vector, e.embedder.Dims())
}

// Encode embeds a single text. Whitespace-only text yields a zero vector.
func (e *Encoder) Encode(ctx context.Context, text string) (Vector, error) {
	if strings.TrimSpace(text) == "" {
		return e.ZeroVector(), nil
	}
	return e.embedder.Embed(ctx, text)
}

// EncodeBatch embeds texts in one model call. Blank entries are filtered out
// before the call and zero vectors re-inserted at their positions, so the
// output length always equals the input length.
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	valid := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			valid = append(valid, t)
		}
	}

	var embedded []Vector
	if len(valid) > 0 {
		var err error
		embedded, err = e.embedder.EmbedBatch(ctx, valid)
		if err != nil {
			return nil, err
		}
		if len(embedded) != len(valid) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), len(valid))
		}
	}

	result := make([]Vector, len(texts))
	vi := 0
	for i, t := range texts {
		if strings.TrimSpace(t) != "" {
			result[i] = embedded[vi]
			vi++
		} else {
			result[i] = e.ZeroVector()
		}
	}
	return result, nil
}

// EnrichMemory builds the composite text embedded for a memory: the raw
// content plus fragments derived from extracted entities, emotions and
// temporal hints. The enrichment biases the vector toward structured signal
// the model would not reliably infer from free text.
func EnrichMemory(content string, meta model.Metadata) string {
	parts := []string{content}

	for _, ent := range meta.Entities {
		if enrichedEntityTypes[ent.Type] {
			parts = append(parts, fmt.Sprintf("%s: %s", ent.Type, ent.Value))
		}
	}
	if len(meta.Emotions) > 0 {
		parts = append(parts, "emotions: "+strings.Join(meta.Emotions, ", "))
	}
	if meta.TimeInfo != nil && meta.TimeInfo.HasTime && meta.TimeInfo.Original != "" {
		parts = append(parts, "time: "+meta.TimeInfo.Original)
	}

	return strings.Join(parts, enrichSep)
}

// EncodeMemory embeds a memory's content enriched with its metadata.
func (e *Encoder) EncodeMemory(ctx context.Context, content string, meta model.Metadata) (Vector, error) {
	return e.Encode(ctx, EnrichMemory(content, meta))
}

// QueryContext carries optional hints appended to a search query before
// embedding, so query and memory vectors live in a comparably enriched space.
type QueryContext struct {
	Categories []string
	TimeRange  string
	Entities   []model.Entity
}

// EnrichQuery appends context hints to a search query.
func EnrichQuery(query string, qctx QueryContext) string {
	enriched := query
	if qctx.TimeRange != "" {
		enriched += " time: " + qctx.TimeRange
	}
	if len(qctx.Categories) > 0 {
		enriched += " type: " + strings.Join(qctx.Categories, ", ")
	}
	for _, ent := range qctx.Entities {
		enriched += fmt.Sprintf(" %s: %s", ent.Type, ent.Value)
	}
	return enriched
}

// EncodeQuery embeds a search query enriched with its context.
func (e *Encoder) EncodeQuery(ctx context.Context, query string, qctx QueryContext) (Vector, error) {
	return e.Encode(ctx, EnrichQuery(query, qctx))
}
