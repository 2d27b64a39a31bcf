// Package sqlitestore is a SQLite durable tier for qid records, for
// single-node deployments without a Redis.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/livingatlas/occquery/internal/qid"
)

const createQidTable = `
CREATE TABLE IF NOT EXISTS qids (
	key TEXT NOT NULL PRIMARY KEY,
	record BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open qid db: %w", err)
	}

	if _, err := db.Exec(createQidTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate qid db: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Put(ctx context.Context, key string, q *qid.Qid) error {
	body, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode qid %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO qids (key, record, created_at) VALUES (?, ?, ?)`,
		key, body, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("qid put: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*qid.Qid, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM qids WHERE key = ?`, key,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, qid.ErrNotFound
		}
		return nil, fmt.Errorf("qid get: %w", err)
	}

	var q qid.Qid
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("decode qid %q: %w", key, err)
	}
	return &q, nil
}

// Del removes records. Administrative purges only.
func (s *Store) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM qids WHERE key = ?`, k); err != nil {
			return fmt.Errorf("qid del %q: %w", k, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
