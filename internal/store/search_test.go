package store

import (
	"context"
	"math"
	"testing"
	"time"
)

func newSearchStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := newTestStore(t, &wordEmbedder{vocab: []string{"red", "fox", "blue", "fish"}})
	mustStore(t, s, StoreParams{OwnerID: "u", Content: "red fox", Category: "episodic"})
	time.Sleep(2 * time.Millisecond)
	mustStore(t, s, StoreParams{OwnerID: "u", Content: "blue fish", Category: "semantic"})
	time.Sleep(2 * time.Millisecond)
	mustStore(t, s, StoreParams{OwnerID: "u", Content: "red fox blue", Category: "episodic"})
	return s
}

func TestSemanticSearch(t *testing.T) {
	s := newSearchStore(t)
	ctx := context.Background()

	got, err := s.SemanticSearch(ctx, SemanticParams{OwnerID: "u", Query: "red fox"})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(got), got)
	}
	if got[0].Content != "red fox" || got[1].Content != "red fox blue" {
		t.Errorf("wrong ranking: %q, %q", got[0].Content, got[1].Content)
	}
	if math.Abs(got[0].Score-1.0) > 0.001 {
		t.Errorf("top score = %v, want 1", got[0].Score)
	}
	if got[0].MatchType != MatchSemantic {
		t.Errorf("match type = %q", got[0].MatchType)
	}

	// A tighter threshold drops the partial match.
	strict, err := s.SemanticSearch(ctx, SemanticParams{OwnerID: "u", Query: "red fox", Threshold: 0.9})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(strict) != 1 || strict[0].Content != "red fox" {
		t.Errorf("strict results: %+v", strict)
	}
}

func TestSemanticSearch_EmptyQueryFallsBackToRecency(t *testing.T) {
	s := newSearchStore(t)

	got, err := s.SemanticSearch(context.Background(), SemanticParams{OwnerID: "u"})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if got[0].Content != "red fox blue" || got[2].Content != "red fox" {
		t.Errorf("not recency ordered: %q ... %q", got[0].Content, got[2].Content)
	}
	for _, r := range got {
		if r.Score != 0 {
			t.Errorf("recency fallback scored %v", r.Score)
		}
	}
}

func TestSemanticSearch_CategoryFilter(t *testing.T) {
	s := newSearchStore(t)

	got, err := s.SemanticSearch(context.Background(), SemanticParams{
		OwnerID:    "u",
		Query:      "blue fish",
		Categories: []string{"semantic"},
		Threshold:  0.1,
	})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(got) != 1 || got[0].Content != "blue fish" {
		t.Errorf("category filter: %+v", got)
	}
}

func TestSemanticSearch_TimeRange(t *testing.T) {
	s := newSearchStore(t)
	ctx := context.Background()

	within, err := s.SemanticSearch(ctx, SemanticParams{
		OwnerID: "u",
		Query:   "red fox",
		After:   time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(within) != 2 {
		t.Errorf("open window: got %d results, want 2", len(within))
	}

	before, err := s.SemanticSearch(ctx, SemanticParams{
		OwnerID: "u",
		Query:   "red fox",
		Before:  time.Now().Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(before) != 0 {
		t.Errorf("window before all writes: got %d results, want 0", len(before))
	}
}

func TestSemanticSearch_EmptyCorpus(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{vocab: []string{"x"}})

	got, err := s.SemanticSearch(context.Background(), SemanticParams{OwnerID: "nobody", Query: "x"})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty corpus returned %d results", len(got))
	}
}

func TestSemanticSearch_DimensionMismatchExcluded(t *testing.T) {
	s := newSearchStore(t)

	// Simulate a vector persisted by an older model.
	if _, err := s.db.Exec(`UPDATE memories SET embedding = '[1.0, 0.0]' WHERE content = 'red fox'`); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := s.SemanticSearch(context.Background(), SemanticParams{OwnerID: "u", Query: "red fox"})
	if err != nil {
		t.Fatalf("SemanticSearch: %v", err)
	}
	for _, r := range got {
		if r.Content == "red fox" {
			t.Error("stale-dimension memory surfaced in results")
		}
	}
}

func TestKeywordSearch(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	mustStore(t, s, StoreParams{OwnerID: "u", Content: "go tooling beats manual go builds, go figure"})
	mustStore(t, s, StoreParams{OwnerID: "u", Content: "nothing relevant here"})

	got, err := s.KeywordSearch(ctx, KeywordParams{OwnerID: "u", Query: "GO"})
	if err != nil {
		t.Fatalf("KeywordSearch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1: %+v", len(got), got)
	}
	// Three occurrences score 3/10.
	if math.Abs(got[0].Score-0.3) > 0.001 {
		t.Errorf("score = %v, want 0.3", got[0].Score)
	}
	if got[0].MatchType != MatchKeyword {
		t.Errorf("match type = %q", got[0].MatchType)
	}

	// Blank query matches nothing.
	none, err := s.KeywordSearch(ctx, KeywordParams{OwnerID: "u", Query: "  "})
	if err != nil {
		t.Fatalf("KeywordSearch: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("blank query returned %d results", len(none))
	}
}

func TestKeywordSearch_ScoreCapped(t *testing.T) {
	s := newTestStore(t, nil)

	content := ""
	for i := 0; i < 12; i++ {
		content += "echo "
	}
	mustStore(t, s, StoreParams{OwnerID: "u", Content: content})

	got, err := s.KeywordSearch(context.Background(), KeywordParams{OwnerID: "u", Query: "echo"})
	if err != nil {
		t.Fatalf("KeywordSearch: %v", err)
	}
	if len(got) != 1 || got[0].Score != 1.0 {
		t.Errorf("got %+v, want single result with score 1", got)
	}
}

func TestHybridSearch(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{vocab: []string{"cat", "dog"}})
	ctx := context.Background()

	both := mustStore(t, s, StoreParams{OwnerID: "u", Content: "cat dog"})
	semOnly := mustStore(t, s, StoreParams{OwnerID: "u", Content: "dog"})
	kwOnly := mustStore(t, s, StoreParams{OwnerID: "u", Content: "concat dogma"})

	got, err := s.HybridSearch(ctx, HybridParams{OwnerID: "u", Query: "cat dog"})
	if err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3: %+v", len(got), got)
	}

	byID := map[string]SearchResult{}
	for _, r := range got {
		byID[r.ID] = r
	}

	if r := byID[both.ID]; r.MatchType != MatchBoth {
		t.Errorf("exact match tagged %q, want both", r.MatchType)
	}
	if r := byID[semOnly.ID]; r.MatchType != MatchSemantic {
		t.Errorf("semantic-only match tagged %q", r.MatchType)
	}
	if r := byID[kwOnly.ID]; r.MatchType != MatchKeyword {
		t.Errorf("keyword-only match tagged %q", r.MatchType)
	}

	// Default 0.7 semantic / 0.3 keyword weighting: the exact match leads.
	wantTop := 1.0*0.7 + 0.1*0.3
	if got[0].ID != both.ID || math.Abs(got[0].Score-wantTop) > 0.001 {
		t.Errorf("top = %s score %v, want %s score %v", got[0].ID, got[0].Score, both.ID, wantTop)
	}
	if got[1].ID != semOnly.ID || got[2].ID != kwOnly.ID {
		t.Errorf("order: %s, %s", got[1].ID, got[2].ID)
	}
}

func TestHybridSearch_Deterministic(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{vocab: []string{"cat", "dog"}})
	ctx := context.Background()

	// Identical contents tie on every score component.
	for i := 0; i < 5; i++ {
		mustStore(t, s, StoreParams{OwnerID: "u", Content: "cat dog"})
	}

	first, err := s.HybridSearch(ctx, HybridParams{OwnerID: "u", Query: "cat"})
	if err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := s.HybridSearch(ctx, HybridParams{OwnerID: "u", Query: "cat"})
		if err != nil {
			t.Fatalf("HybridSearch: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("result count changed: %d vs %d", len(again), len(first))
		}
		for i := range again {
			if again[i].ID != first[i].ID {
				t.Fatalf("order changed at %d: %s vs %s", i, again[i].ID, first[i].ID)
			}
		}
	}
}

func TestHybridSearch_EmptyQueryKeepsRecencyOrder(t *testing.T) {
	s := newSearchStore(t)

	got, err := s.HybridSearch(context.Background(), HybridParams{OwnerID: "u"})
	if err != nil {
		t.Fatalf("HybridSearch: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	want := []string{"red fox blue", "blue fish", "red fox"}
	for i, w := range want {
		if got[i].Content != w {
			t.Errorf("position %d: got %q, want %q", i, got[i].Content, w)
		}
	}
}
