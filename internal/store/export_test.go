package store

import (
	"context"
	"testing"

	"github.com/rcliao/memory-graph/internal/model"
)

func TestExportAll(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{vocab: []string{"blue", "ocean", "wave", "calm", "storm"}})
	ctx := context.Background()

	mustStore(t, s, StoreParams{OwnerID: "alice", Content: "blue ocean wave calm"})
	mustStore(t, s, StoreParams{OwnerID: "alice", Content: "blue ocean wave storm"})
	mustStore(t, s, StoreParams{OwnerID: "bob", Content: "blue ocean"})

	exp, err := s.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(exp.Memories) != 3 {
		t.Errorf("exported %d memories, want 3", len(exp.Memories))
	}
	if len(exp.Relations) != 1 {
		t.Errorf("exported %d relations, want 1", len(exp.Relations))
	}

	scoped, err := s.ExportAll(ctx, "bob")
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if len(scoped.Memories) != 1 || scoped.Memories[0].OwnerID != "bob" {
		t.Errorf("owner scope: %+v", scoped.Memories)
	}
	if len(scoped.Relations) != 0 {
		t.Errorf("bob has %d relations, want 0", len(scoped.Relations))
	}
}

func TestImport_RebuildsRelations(t *testing.T) {
	vocab := []string{"blue", "ocean", "wave", "calm", "storm"}
	src := newTestStore(t, &wordEmbedder{vocab: vocab})
	ctx := context.Background()

	mustStore(t, src, StoreParams{OwnerID: "alice", Content: "blue ocean wave calm"})
	mustStore(t, src, StoreParams{OwnerID: "alice", Content: "blue ocean wave storm"})

	exp, err := src.ExportAll(ctx, "")
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}

	dst := newTestStore(t, &wordEmbedder{vocab: vocab})
	n, err := dst.Import(ctx, exp.Memories)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d, want 2", n)
	}

	got, err := dst.List(ctx, ListParams{OwnerID: "alice", EmbeddedOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d embedded memories, want 2", len(got))
	}
	for i, m := range got {
		if m.ID == exp.Memories[i].ID {
			t.Error("import reused a source id")
		}
	}

	// The similarity graph comes back through maintenance, not the dump.
	if n := relationCount(t, dst); n != 1 {
		t.Errorf("got %d relations after import, want 1", n)
	}
}

func TestImport_PendingMemoryReencoded(t *testing.T) {
	s := newTestStore(t, &wordEmbedder{vocab: []string{"quiet"}})
	ctx := context.Background()

	// A memory exported before its backfill ran carries no embedding;
	// importing it goes through Store and picks one up.
	n, err := s.Import(ctx, []model.Memory{
		{OwnerID: "alice", Content: "quiet evening", Category: "episodic", Confidence: 0.8},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}

	got, err := s.List(ctx, ListParams{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d memories, want 1", len(got))
	}
	if !got[0].Embedded() {
		t.Error("imported memory was not re-encoded")
	}
	if got[0].Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", got[0].Confidence)
	}
}
