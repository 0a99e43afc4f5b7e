package embedding

import "testing"

func TestTopMatches(t *testing.T) {
	query := Vector{1, 0, 0}
	candidates := []Candidate{
		{ID: "exact", Vector: Vector{1, 0, 0}},
		{ID: "close", Vector: Vector{1, 1, 0}},
		{ID: "far", Vector: Vector{0, 1, 0}},
		{ID: "wrong-dims", Vector: Vector{1, 0}},
	}

	t.Run("threshold filters", func(t *testing.T) {
		got := TopMatches(query, candidates, 0.5, 0)
		if len(got) != 2 {
			t.Fatalf("got %d matches, want 2: %v", len(got), got)
		}
		if got[0].ID != "exact" || got[1].ID != "close" {
			t.Errorf("wrong order: %v", got)
		}
	})

	t.Run("topK truncates", func(t *testing.T) {
		got := TopMatches(query, candidates, 0, 1)
		if len(got) != 1 || got[0].ID != "exact" {
			t.Errorf("got %v, want [exact]", got)
		}
	})

	t.Run("dimension mismatch excluded", func(t *testing.T) {
		got := TopMatches(query, candidates, 0, 0)
		for _, m := range got {
			if m.ID == "wrong-dims" {
				t.Error("mismatched-dimension candidate survived")
			}
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		if got := TopMatches(nil, candidates, 0, 0); got != nil {
			t.Errorf("nil query: got %v", got)
		}
		if got := TopMatches(query, nil, 0, 0); got != nil {
			t.Errorf("nil candidates: got %v", got)
		}
	})
}

func TestTopMatches_StableTies(t *testing.T) {
	query := Vector{1, 0}
	candidates := []Candidate{
		{ID: "a", Vector: Vector{1, 0}},
		{ID: "b", Vector: Vector{2, 0}},
		{ID: "c", Vector: Vector{3, 0}},
	}

	got := TopMatches(query, candidates, 0.9, 0)
	if len(got) != 3 {
		t.Fatalf("got %d matches, want 3", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].ID != want {
			t.Errorf("tie order broken at %d: got %s, want %s", i, got[i].ID, want)
		}
	}
}
