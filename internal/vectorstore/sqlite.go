package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "index.db"

// SQLite persists a collection of vectors in <dir>/index.db. Scoring happens in process;
// the database only provides durable storage across runs.
type SQLite struct {
	db         *sql.DB
	collection string
	path       string
}

// OpenSQLite opens (or creates) the database under dir and prepares the schema.
func OpenSQLite(ctx context.Context, dir, collection string) (*SQLite, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("vector store directory is required")
	}

	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = DefaultCollection
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("vectorstore: mkdir %s: %w", dir, err)
	}

	path := filepath.Join(dir, sqliteFileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("vectorstore: init schema: %w", err)
	}

	return &SQLite{db: db, collection: collection, path: path}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS embeddings (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		vector     BLOB NOT NULL,
		metadata   TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (collection, id)
	)`)
	return err
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Upsert(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("vectorstore: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO embeddings (collection, id, vector, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET vector = excluded.vector, metadata = excluded.metadata`)
	if err != nil {
		return fmt.Errorf("vectorstore: prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, item := range items {
		if item.ID == "" {
			return errors.New("item id is required")
		}

		metadata, err := json.Marshal(copyMetadata(item.Metadata))
		if err != nil {
			return fmt.Errorf("vectorstore: encode metadata for %s: %w", item.ID, err)
		}

		if _, err := stmt.ExecContext(ctx, s.collection, item.ID, encodeVector(item.Vector), string(metadata), now); err != nil {
			return fmt.Errorf("vectorstore: upsert %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("vectorstore: commit: %w", err)
	}
	return nil
}

func (s *SQLite) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, vector, metadata FROM embeddings WHERE collection = ? ORDER BY seq`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			seq      int64
			id       string
			blob     []byte
			metadata string
		)
		if err := rows.Scan(&seq, &id, &blob, &metadata); err != nil {
			return nil, fmt.Errorf("vectorstore: scan: %w", err)
		}

		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("vectorstore: decode vector %s: %w", id, err)
		}

		score, ok := CosineSimilarity(vector, stored)
		if !ok {
			return nil, mismatch(id, len(stored), len(vector))
		}

		meta := map[string]string{}
		if err := json.Unmarshal([]byte(metadata), &meta); err != nil {
			return nil, fmt.Errorf("vectorstore: decode metadata %s: %w", id, err)
		}

		hits = append(hits, Hit{ID: id, Score: score, Metadata: meta, Seq: seq})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorstore: rows: %w", err)
	}

	return rank(hits, k), nil
}

func (s *SQLite) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE collection = ?`, s.collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: count: %w", err)
	}
	return count, nil
}

func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM embeddings WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("vectorstore: reset: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(buf))
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector, nil
}
