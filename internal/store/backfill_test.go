package store

import (
	"context"
	"testing"
)

func TestBackfill(t *testing.T) {
	emb := &wordEmbedder{vocab: []string{"blue", "ocean", "wave", "calm", "storm"}, fail: true}
	s := newTestStore(t, emb)
	ctx := context.Background()

	// Writes succeed while the model is down; everything lands pending.
	a := mustStore(t, s, StoreParams{OwnerID: "u", Content: "blue ocean wave calm"})
	b := mustStore(t, s, StoreParams{OwnerID: "u", Content: "blue ocean wave storm"})
	if a.Embedded() || b.Embedded() {
		t.Fatal("memories embedded while the model was down")
	}

	emb.fail = false
	n, err := s.Backfill(ctx, "u", 100)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 2 {
		t.Fatalf("processed %d, want 2", n)
	}

	pending, err := s.List(ctx, ListParams{OwnerID: "u", PendingOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d memories still pending", len(pending))
	}

	// Backfill runs relationship maintenance for the new embeddings.
	if got := relationCount(t, s); got != 1 {
		t.Errorf("got %d relations after backfill, want 1", got)
	}

	// Nothing left to do.
	n, err = s.Backfill(ctx, "u", 100)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 0 {
		t.Errorf("second backfill processed %d, want 0", n)
	}
}

func TestBackfill_BatchSizeBounds(t *testing.T) {
	emb := &wordEmbedder{vocab: []string{"x"}, fail: true}
	s := newTestStore(t, emb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustStore(t, s, StoreParams{OwnerID: "u", Content: "x"})
	}

	emb.fail = false
	n, err := s.Backfill(ctx, "u", 2)
	if err != nil {
		t.Fatalf("Backfill: %v", err)
	}
	if n != 2 {
		t.Fatalf("processed %d, want 2", n)
	}

	pending, err := s.List(ctx, ListParams{OwnerID: "u", PendingOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("%d pending after bounded batch, want 1", len(pending))
	}
}

func TestBackfill_Validation(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{vocab: []string{"x"}})
	ctx := context.Background()

	if _, err := s.Backfill(ctx, "", 10); err == nil {
		t.Error("missing owner accepted")
	}

	noEnc := newTestStore(t, nil)
	if _, err := noEnc.Backfill(ctx, "u", 10); err == nil {
		t.Error("backfill without an encoder accepted")
	}
}
