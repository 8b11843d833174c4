package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/lawdoc"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ lawdoc.RunService = (*RunService)(nil)

// RunService implements lawdoc.RunService using SQLite.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun creates a new run.
func (s *RunService) CreateRun(ctx context.Context, run *lawdoc.Run) error {
	if err := run.Mode.Validate(); err != nil {
		return lawdoc.Errorf(lawdoc.EINVALID, "%s", lawdoc.ErrorMessage(err))
	}

	run.ID = uuid.New().String()
	run.StartedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, mode, sources, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, string(run.Mode), strings.Join(run.Sources, ","), run.StartedAt.Format(timeLayout))

	return err
}

// FinishRun stores the outcome of a run.
func (s *RunService) FinishRun(ctx context.Context, run *lawdoc.Run) error {
	run.FinishedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, completed = ?, failed = ?, err = ?
		WHERE id = ?
	`, run.FinishedAt.Format(timeLayout), run.Completed, run.Failed, run.Err, run.ID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return lawdoc.Errorf(lawdoc.ENOTFOUND, "run not found")
	}
	return nil
}

// FindRuns returns runs, most recent first.
func (s *RunService) FindRuns(ctx context.Context, limit int) ([]*lawdoc.Run, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT id, mode, sources, started_at, finished_at, completed, failed, err FROM runs ORDER BY started_at DESC")
	appendLimit(&query, &args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*lawdoc.Run
	for rows.Next() {
		var run lawdoc.Run
		var mode, sources, startedAt, finishedAt string

		if err := rows.Scan(&run.ID, &mode, &sources, &startedAt, &finishedAt,
			&run.Completed, &run.Failed, &run.Err); err != nil {
			return nil, err
		}

		run.Mode = lawdoc.Mode(mode)
		if sources != "" {
			run.Sources = strings.Split(sources, ",")
		}
		if run.StartedAt, err = parseRFC3339(startedAt, "started_at"); err != nil {
			return nil, err
		}
		if finishedAt != "" {
			if run.FinishedAt, err = parseRFC3339(finishedAt, "finished_at"); err != nil {
				return nil, err
			}
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}
