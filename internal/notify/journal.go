package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jpalmerr/scoutboard/internal/store"
)

const journalSchema = `
CREATE TABLE IF NOT EXISTS arrivals (
	conversation_id INTEGER PRIMARY KEY,
	number          INTEGER NOT NULL DEFAULT 0,
	subject         TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT '',
	mailbox_id      INTEGER NOT NULL DEFAULT 0,
	assignee_id     INTEGER,
	created_at      TEXT NOT NULL DEFAULT '',
	preview         TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL DEFAULT '',
	detected_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_arrivals_detected ON arrivals(detected_at);
`

// Journal is an append-only SQLite log of arrival events.
//
// A conversation is recorded once; later events for the same id are
// ignored. The journal is an audit trail only and is never used to seed
// new-arrival detection.
type Journal struct {
	conn *sql.DB
	path string
}

// OpenJournal opens (or creates) the journal database at path.
func OpenJournal(path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one writer; SQLite serialises anyway
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(journalSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	return &Journal{conn: conn, path: path}, nil
}

// Name implements [Sink].
func (j *Journal) Name() string { return "journal" }

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// Close closes the database connection.
func (j *Journal) Close() error {
	if j == nil || j.conn == nil {
		return nil
	}
	return j.conn.Close()
}

// Send records arrivals in one transaction.
func (j *Journal) Send(ctx context.Context, arrivals []store.Arrival) error {
	tx, err := j.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO arrivals
			(conversation_id, number, subject, status, mailbox_id, assignee_id, created_at, preview, url, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, a := range arrivals {
		var assignee sql.NullInt64
		if a.AssigneeID != nil {
			assignee = sql.NullInt64{Int64: int64(*a.AssigneeID), Valid: true}
		}
		detected := a.DetectedAt
		if detected.IsZero() {
			detected = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			a.ConversationID, a.Number, a.Subject, a.Status, a.MailboxID,
			assignee, a.CreatedAt, a.Preview, a.URL, detected.UTC(),
		); err != nil {
			return fmt.Errorf("insert conversation %d: %w", a.ConversationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Recent returns up to limit journaled arrivals, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]store.Arrival, error) {
	if limit <= 0 {
		limit = store.DefaultArrivalCapacity
	}

	rows, err := j.conn.QueryContext(ctx, `
		SELECT conversation_id, number, subject, status, mailbox_id, assignee_id, created_at, preview, url, detected_at
		FROM arrivals
		ORDER BY detected_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query arrivals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []store.Arrival
	for rows.Next() {
		var (
			a        store.Arrival
			assignee sql.NullInt64
		)
		if err := rows.Scan(&a.ConversationID, &a.Number, &a.Subject, &a.Status, &a.MailboxID,
			&assignee, &a.CreatedAt, &a.Preview, &a.URL, &a.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan arrival: %w", err)
		}
		if assignee.Valid {
			id := int(assignee.Int64)
			a.AssigneeID = &id
		}
		a.Event = store.EventName
		out = append(out, a)
	}
	return out, rows.Err()
}

// Count returns the number of journaled arrivals.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM arrivals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count arrivals: %w", err)
	}
	return n, nil
}
