package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/lawdoc"
)

// Compile-time interface verification.
var _ lawdoc.Ledger = (*Ledger)(nil)

// Ledger implements lawdoc.Ledger using SQLite. Every call runs in its own
// statement or transaction, so an entry is durable as soon as the call
// returns.
type Ledger struct {
	db *DB

	// mu serializes read-modify-write sequences.
	mu sync.Mutex

	now func() time.Time
}

// NewLedger creates a new Ledger.
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// IsDone reports whether the document has been completed.
func (l *Ledger) IsDone(ctx context.Context, key lawdoc.Key) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM completions WHERE source_id = ? AND document_id = ?
	`, key.SourceID, key.DocumentID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkDone records a completion and removes any failure entry for the
// document.
func (l *Ledger) MarkDone(ctx context.Context, c *lawdoc.Completion) error {
	if c.SourceID == "" || c.DocumentID == "" {
		return lawdoc.Errorf(lawdoc.EINVALID, "completion key required")
	}
	if c.AttemptCount < 1 {
		c.AttemptCount = 1
	}
	c.CompletedAt = l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO completions (source_id, document_id, attempt_count, completed_at, failed_formats, content_hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id, document_id) DO UPDATE SET
			attempt_count = excluded.attempt_count,
			completed_at = excluded.completed_at,
			failed_formats = excluded.failed_formats,
			content_hash = excluded.content_hash
	`, c.SourceID, c.DocumentID, c.AttemptCount, c.CompletedAt.Format(timeLayout),
		strings.Join(c.FailedFormats, ","), c.ContentHash); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM failures WHERE source_id = ? AND document_id = ?
	`, c.SourceID, c.DocumentID); err != nil {
		return err
	}

	return tx.Commit()
}

// MarkFailed records a failed attempt. The stored attempt count is
// incremented and written back to f.
func (l *Ledger) MarkFailed(ctx context.Context, f *lawdoc.Failure) error {
	if err := f.Stub.Validate(); err != nil {
		return err
	}
	stub, err := json.Marshal(&f.Stub)
	if err != nil {
		return fmt.Errorf("failed to encode stub: %w", err)
	}
	f.LastAttempt = l.now().UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	err = l.db.QueryRowContext(ctx, `
		INSERT INTO failures (source_id, document_id, stub, attempt_count, last_error, last_attempt, terminal)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT (source_id, document_id) DO UPDATE SET
			stub = excluded.stub,
			attempt_count = failures.attempt_count + 1,
			last_error = excluded.last_error,
			last_attempt = excluded.last_attempt,
			terminal = excluded.terminal
		RETURNING attempt_count
	`, f.Stub.SourceID, f.Stub.DocumentID, string(stub), f.LastError,
		f.LastAttempt.Format(timeLayout), f.Terminal).Scan(&f.AttemptCount)
	return err
}

// FindCompletion returns the completion entry for a document.
func (l *Ledger) FindCompletion(ctx context.Context, key lawdoc.Key) (*lawdoc.Completion, error) {
	c := lawdoc.Completion{Key: key}
	var completedAt, failedFormats string

	err := l.db.QueryRowContext(ctx, `
		SELECT attempt_count, completed_at, failed_formats, content_hash
		FROM completions
		WHERE source_id = ? AND document_id = ?
	`, key.SourceID, key.DocumentID).Scan(&c.AttemptCount, &completedAt, &failedFormats, &c.ContentHash)

	if err == sql.ErrNoRows {
		return nil, lawdoc.Errorf(lawdoc.ENOTFOUND, "document %s not completed", key)
	}
	if err != nil {
		return nil, err
	}

	if c.CompletedAt, err = parseRFC3339(completedAt, "completed_at"); err != nil {
		return nil, err
	}
	if failedFormats != "" {
		c.FailedFormats = strings.Split(failedFormats, ",")
	}
	return &c, nil
}

// FailedItems returns failure entries ordered by last attempt, oldest
// first.
func (l *Ledger) FailedItems(ctx context.Context, sourceID string) ([]*lawdoc.Failure, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT stub, attempt_count, last_error, last_attempt, terminal FROM failures WHERE 1=1")
	if sourceID != "" {
		query.WriteString(" AND source_id = ?")
		args = append(args, sourceID)
	}
	query.WriteString(" ORDER BY last_attempt, source_id, document_id")

	rows, err := l.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []*lawdoc.Failure
	for rows.Next() {
		var f lawdoc.Failure
		var stub, lastAttempt string

		if err := rows.Scan(&stub, &f.AttemptCount, &f.LastError, &lastAttempt, &f.Terminal); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(stub), &f.Stub); err != nil {
			return nil, fmt.Errorf("failed to decode stub: %w", err)
		}
		if f.LastAttempt, err = parseRFC3339(lastAttempt, "last_attempt"); err != nil {
			return nil, err
		}
		failures = append(failures, &f)
	}

	return failures, rows.Err()
}

// CompletedIDs returns the document IDs completed for a source.
func (l *Ledger) CompletedIDs(ctx context.Context, sourceID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT document_id FROM completions WHERE source_id = ? ORDER BY document_id
	`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
