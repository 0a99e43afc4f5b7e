package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/memory-graph/internal/embedding"
	"github.com/rcliao/memory-graph/internal/model"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	encoder *embedding.Encoder // nil means embeddings disabled
	entropy *rand.Rand

	// SimilarityThreshold and MaxRelations tune relationship maintenance.
	// Defaults apply; override before first use.
	SimilarityThreshold float64
	MaxRelations        int

	locks ownerLocks
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
// encoder may be nil, in which case every stored memory is a backfill
// candidate until an encoder is available.
func NewSQLiteStore(dbPath string, encoder *embedding.Encoder) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:                  db,
		encoder:             encoder,
		entropy:             rand.New(rand.NewSource(time.Now().UnixNano())),
		SimilarityThreshold: DefaultSimilarityThreshold,
		MaxRelations:        DefaultMaxRelations,
		locks:               ownerLocks{m: make(map[string]*sync.Mutex)},
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		owner_id    TEXT NOT NULL,
		content     TEXT NOT NULL,
		category    TEXT NOT NULL DEFAULT 'episodic',
		metadata    TEXT,
		embedding   TEXT,
		confidence  REAL NOT NULL DEFAULT 1.0,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_owner ON memories(owner_id);
	CREATE INDEX IF NOT EXISTS idx_memories_owner_category ON memories(owner_id, category);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_memories_pending ON memories(owner_id) WHERE embedding IS NULL;

	CREATE TABLE IF NOT EXISTS memory_relations (
		id            TEXT PRIMARY KEY,
		source_id     TEXT NOT NULL REFERENCES memories(id),
		target_id     TEXT NOT NULL REFERENCES memories(id),
		relation_type TEXT NOT NULL,
		strength      REAL NOT NULL,
		created_at    TEXT NOT NULL,
		UNIQUE (source_id, target_id)
	);
	CREATE INDEX IF NOT EXISTS idx_relations_source ON memory_relations(source_id);
	CREATE INDEX IF NOT EXISTS idx_relations_target ON memory_relations(target_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Store persists a memory with its enriched embedding, then maintains
// similarity relations for it under the owner's critical section. On
// embedder failure the memory is persisted without an embedding and left
// for backfill; the write still succeeds.
func (s *SQLiteStore) Store(ctx context.Context, p StoreParams) (*model.Memory, error) {
	if p.OwnerID == "" {
		return nil, fmt.Errorf("owner id is required")
	}
	category := p.Category
	if category == "" {
		category = "episodic"
	}
	if !model.ValidCategories[category] {
		return nil, fmt.Errorf("invalid category %q", category)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range [0,1]", p.Confidence)
	}

	mem := &model.Memory{
		ID:         s.newID(),
		OwnerID:    p.OwnerID,
		Content:    p.Content,
		Category:   category,
		Metadata:   p.Metadata,
		Confidence: p.Confidence,
		CreatedAt:  time.Now().UTC(),
	}

	if s.encoder != nil {
		vec, err := s.encoder.EncodeMemory(ctx, p.Content, p.Metadata)
		if err != nil {
			// Degrade to backfill rather than failing the write.
			log.Warn("embedding unavailable, deferring to backfill", "owner", p.OwnerID, "error", err)
			if ctx.Err() != nil {
				// The embed call consumed the caller's deadline. The
				// write must still land, so persist detached from the
				// dead context.
				ctx = context.WithoutCancel(ctx)
			}
		} else {
			mem.Embedding = vec
		}
	}

	if err := s.insertMemory(ctx, mem); err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}

	if mem.Embedded() {
		unlock := s.locks.lock(mem.OwnerID)
		n, err := s.maintainRelations(ctx, mem)
		unlock()
		if err != nil {
			return nil, fmt.Errorf("maintain relations: %w", err)
		}
		log.Debug("memory stored", "id", mem.ID, "owner", mem.OwnerID, "relations", n)
	}

	return mem, nil
}

func (s *SQLiteStore) insertMemory(ctx context.Context, m *model.Memory) error {
	metaJSON, err := encodeMetadata(m.Metadata)
	if err != nil {
		return err
	}
	embJSON, err := encodeVector(m.Embedding)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, owner_id, content, category, metadata, embedding, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.OwnerID, m.Content, m.Category, metaJSON, embJSON,
		m.Confidence, m.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// Get retrieves a memory by id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, content, category, metadata, embedding, confidence, created_at
		 FROM memories WHERE id = ?`, id)

	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List lists memories matching the given filters, most recent first.
func (s *SQLiteStore) List(ctx context.Context, p ListParams) ([]model.Memory, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}

	where := []string{"1=1"}
	args := []interface{}{}

	if p.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, p.OwnerID)
	}
	if p.Category != "" {
		where = append(where, "category = ?")
		args = append(args, p.Category)
	}
	if p.PendingOnly {
		where = append(where, "embedding IS NULL")
	}
	if p.EmbeddedOnly {
		where = append(where, "embedding IS NOT NULL")
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, content, category, metadata, embedding, confidence, created_at
		FROM memories WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

// Delete removes a memory and all relations incident to it, both directions.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memory_relations WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return fmt.Errorf("delete relations: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ownerLocks serializes relationship maintenance per owner so concurrent
// stores for the same owner cannot race into duplicate or asymmetric edges.
// Different owners never contend.
type ownerLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *ownerLocks) lock(owner string) (unlock func()) {
	l.mu.Lock()
	om, ok := l.m[owner]
	if !ok {
		om = &sync.Mutex{}
		l.m[owner] = om
	}
	l.mu.Unlock()

	om.Lock()
	return om.Unlock
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var metaJSON, embJSON sql.NullString
	var createdAt string

	err := row.Scan(&m.ID, &m.OwnerID, &m.Content, &m.Category,
		&metaJSON, &embJSON, &m.Confidence, &createdAt)
	if err != nil {
		return m, err
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &m.Metadata)
	}
	if embJSON.Valid {
		json.Unmarshal([]byte(embJSON.String), &m.Embedding)
	}

	return m, nil
}

// encodeMetadata serializes metadata to JSON, or nil for an empty bag.
func encodeMetadata(md model.Metadata) (*string, error) {
	if len(md.Entities) == 0 && len(md.Emotions) == 0 && md.TimeInfo == nil && len(md.Extra) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	str := string(b)
	return &str, nil
}

func unmarshalJSON(s string, v any) {
	json.Unmarshal([]byte(s), v)
}

// decodeVector parses a stored embedding column.
func decodeVector(s string) (embedding.Vector, error) {
	var v embedding.Vector
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}
	return v, nil
}

// encodeVector serializes an embedding to JSON, or nil when absent.
func encodeVector(v embedding.Vector) (*string, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	str := string(b)
	return &str, nil
}
