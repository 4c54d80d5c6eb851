package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dhcgn/mailbody/model"
)

const createResultsSQL = `
CREATE TABLE IF NOT EXISTS results (
	message_id      TEXT PRIMARY KEY,
	hash            TEXT NOT NULL,
	sender          TEXT,
	subject         TEXT,
	received_at     DATETIME,
	sent_at         DATETIME,
	forwarded_name  TEXT,
	forwarded_email TEXT,
	signature_found INTEGER NOT NULL DEFAULT 0,
	segments        INTEGER NOT NULL DEFAULT 0,
	salutation      TEXT,
	body            TEXT NOT NULL,
	extracted_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_hash ON results(hash);
`

const upsertResultSQL = `
INSERT INTO results (message_id, hash, sender, subject, received_at, sent_at,
	forwarded_name, forwarded_email, signature_found, segments, salutation, body, extracted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(message_id) DO UPDATE SET
	hash = excluded.hash,
	sender = excluded.sender,
	subject = excluded.subject,
	received_at = excluded.received_at,
	sent_at = excluded.sent_at,
	forwarded_name = excluded.forwarded_name,
	forwarded_email = excluded.forwarded_email,
	signature_found = excluded.signature_found,
	segments = excluded.segments,
	salutation = excluded.salutation,
	body = excluded.body,
	extracted_at = excluded.extracted_at`

// SQLite upserts results into a results table keyed by message ID.
type SQLite struct {
	db   *sql.DB
	stmt *sql.Stmt
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" || path == "-" {
		return nil, fmt.Errorf("sqlite sink needs an output path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, createResultsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	stmt, err := db.PrepareContext(ctx, upsertResultSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare upsert: %w", err)
	}
	return &SQLite{db: db, stmt: stmt}, nil
}

func (s *SQLite) Write(ctx context.Context, res model.Result) error {
	_, err := s.stmt.ExecContext(ctx,
		res.MessageID, res.Hash, res.From, res.Subject,
		nullTime(res.ReceivedAt), nullTime(res.SentAt),
		res.ForwardedName, res.ForwardedEmail,
		res.SignatureFound, res.Segments, res.Salutation, res.Body,
		res.ExtractedAt.UTC(),
	)
	return err
}

// Count returns the number of stored results.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n)
	return n, err
}

// Body returns the stored body for messageID.
func (s *SQLite) Body(ctx context.Context, messageID string) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM results WHERE message_id = ?`, messageID).Scan(&body)
	return body, err
}

func (s *SQLite) Close() error {
	if s.stmt != nil {
		s.stmt.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
