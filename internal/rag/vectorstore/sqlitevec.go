package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

// sqliteVecStore is one vec0 virtual table inside a single-file SQLite
// database. One file per asset keeps deletion a plain file remove.
type sqliteVecStore struct {
	db *sql.DB
}

func openSQLiteVec(path string, dimensions int) (Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index %s: %w", path, err)
	}
	// vec0 tables are not safe for concurrent writers over one handle pool.
	db.SetMaxOpenConns(1)

	schema := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(embedding float[%d], +content TEXT)",
		dimensions,
	)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create vector table: %w", err)
	}

	return &sqliteVecStore{db: db}, nil
}

// openSQLiteVecExisting opens an index file without touching the schema.
// The vec0 table already fixed its vector width at creation time.
func openSQLiteVecExisting(path string) (Store, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &sqliteVecStore{db: db}, nil
}

// encodeVector renders a vector in the JSON text form vec0 accepts.
func encodeVector(v []float32) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *sqliteVecStore) Add(ctx context.Context, contents []string, embeddings [][]float32) error {
	if len(contents) != len(embeddings) {
		return fmt.Errorf("contents and embeddings length mismatch: %d vs %d", len(contents), len(embeddings))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vectors(embedding, content) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, content := range contents {
		vec, err := encodeVector(embeddings[i])
		if err != nil {
			return fmt.Errorf("failed to encode vector: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, vec, content); err != nil {
			return fmt.Errorf("failed to insert vector: %w", err)
		}
	}

	return tx.Commit()
}

func (s *sqliteVecStore) Search(ctx context.Context, embedding []float32, k int) ([]core.Document, error) {
	vec, err := encodeVector(embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query vector: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT content, distance FROM vectors WHERE embedding MATCH ? ORDER BY distance LIMIT ?",
		vec, k,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var docs []core.Document
	for rows.Next() {
		var content string
		var distance float64
		if err := rows.Scan(&content, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		docs = append(docs, core.Document{
			Content:  content,
			Metadata: map[string]string{"distance": fmt.Sprintf("%g", distance)},
		})
	}
	return docs, rows.Err()
}

func (s *sqliteVecStore) Close() error {
	return s.db.Close()
}
