package embedding

import (
	"math"
	"sort"
)

// CosineSimilarity computes raw cosine similarity between two vectors.
// Mismatched dimensions, empty and zero vectors all score 0.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Similarity is cosine similarity clamped to [0, 1]. Negative cosine clamps
// to 0: for ranking purposes this engine treats "opposite" and "unrelated"
// as equivalent, a deliberate simplification.
func Similarity(a, b Vector) float64 {
	return math.Max(0.0, math.Min(1.0, CosineSimilarity(a, b)))
}

// Candidate is an (id, vector) pair offered to TopMatches.
type Candidate struct {
	ID     string
	Vector Vector
}

// Match is a scored candidate returned by TopMatches.
type Match struct {
	ID    string
	Score float64
}

// TopMatches scores candidates against a query vector, keeps those with
// score >= threshold, sorts descending and truncates to topK (0 = all).
// Ties keep candidate order (stable sort). Candidates whose dimension does
// not match the query are excluded rather than raising: a stored vector from
// an older model fails closed.
func TopMatches(query Vector, candidates []Candidate, threshold float64, topK int) []Match {
	if len(query) == 0 || len(candidates) == 0 {
		return nil
	}

	var matches []Match
	for _, c := range candidates {
		if len(c.Vector) != len(query) {
			continue
		}
		score := Similarity(query, c.Vector)
		if score >= threshold {
			matches = append(matches, Match{ID: c.ID, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
