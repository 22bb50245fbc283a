package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// timeLayout keeps fractional seconds fixed-width so stored timestamps sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunStatus is the outcome of one stage pass.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Run records one pass of a stage over a video.
type Run struct {
	ID           string     `json:"id" yaml:"id"`
	Stage        string     `json:"stage" yaml:"stage"`
	VideoPath    string     `json:"video_path" yaml:"video_path"`
	Status       RunStatus  `json:"status" yaml:"status"`
	Progress     int        `json:"progress" yaml:"progress"`
	ErrorKind    string     `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// Duration returns how long the run took, or has been running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return time.Since(r.StartedAt)
}

// BeginRun records the start of a stage pass and returns its id.
func (s *Store) BeginRun(ctx context.Context, stage, videoPath string) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		Stage:     stage,
		VideoPath: videoPath,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	err := s.exec(ctx,
		`INSERT INTO runs (id, stage, video_path, status, progress, started_at) VALUES (?, ?, ?, ?, 0, ?)`,
		run.ID, run.Stage, run.VideoPath, string(run.Status), run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the outcome of a stage pass.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, progress int, errKind, errMessage string) error {
	finished := time.Now().UTC().Format(timeLayout)
	err := s.exec(ctx,
		`UPDATE runs SET status = ?, progress = ?, error_kind = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), progress, nullString(errKind), nullString(errMessage), finished, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// LatestRuns returns the most recent run of each stage for videoPath.
func (s *Store) LatestRuns(ctx context.Context, videoPath string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, stage, video_path, status, progress, error_kind, error_message, started_at, finished_at
        FROM runs r
        WHERE video_path = ?
          AND started_at = (SELECT MAX(started_at) FROM runs WHERE video_path = r.video_path AND stage = r.stage)
        ORDER BY started_at`, videoPath)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// GetRun returns a run by id, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, stage, video_path, status, progress, error_kind, error_message, started_at, finished_at
        FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Videos lists every video path with stored runs, most recent first.
func (s *Store) Videos(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_path FROM runs GROUP BY video_path ORDER BY MAX(started_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scan videos: %w", err)
		}
		out = append(out, path)
	}
	return out, rows.Err()
}

// ResetRunning marks runs left in the running state by a previous process as
// cancelled.
func (s *Store) ResetRunning(ctx context.Context) error {
	return s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE status = ?`,
		string(RunCancelled), time.Now().UTC().Format(timeLayout), string(RunRunning),
	)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                 Run
		status              string
		errKind, errMessage sql.NullString
		startedAt           string
		finishedAt          sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Stage, &run.VideoPath, &status, &run.Progress,
		&errKind, &errMessage, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	run.ErrorKind = errKind.String
	run.ErrorMessage = errMessage.String
	started, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = started
	if finishedAt.Valid {
		finished, err := time.Parse(timeLayout, finishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &finished
	}
	return run, nil
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
