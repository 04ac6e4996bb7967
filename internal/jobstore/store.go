package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/verbatim-audio/verbatim/internal/config"
)

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Job is one transcription request as recorded by the daemon.
type Job struct {
	ID           int64
	RequestID    string
	AudioPath    string
	ModelSize    string
	Status       string
	Language     string
	WordCount    int
	AudioSeconds float64
	Error        string
	CreatedAt    time.Time
	FinishedAt   time.Time
}

// Store wraps a SQLite-backed job history. In ephemeral retention mode it
// keeps nothing and every method is a no-op.
type Store struct {
	db    *sql.DB
	cfg   config.JobStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the job store according to config.
func Open(ctx context.Context, cfg config.JobStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("job store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("job store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    audio_path TEXT NOT NULL,
    model_size TEXT,
    status TEXT NOT NULL,
    language TEXT,
    word_count INTEGER NOT NULL DEFAULT 0,
    audio_seconds REAL NOT NULL DEFAULT 0,
    error TEXT,
    created_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_jobs_request ON jobs(request_id);
CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin records a new running job and returns its row id.
func (s *Store) Begin(ctx context.Context, requestID, audioPath, modelSize string) (int64, error) {
	if s.db == nil {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs(request_id, audio_path, model_size, status, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		requestID, audioPath, modelSize, StatusRunning, s.clock().UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FinishDone marks a job as completed with its result summary.
func (s *Store) FinishDone(ctx context.Context, id int64, language string, wordCount int, audioSeconds float64) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status=?, language=?, word_count=?, audio_seconds=?, finished_at=? WHERE id=?`,
		StatusDone, language, wordCount, audioSeconds, s.clock().UTC(), id)
	return err
}

// FinishFailed marks a job as failed with the fault message.
func (s *Store) FinishFailed(ctx context.Context, id int64, message string) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status=?, error=?, finished_at=? WHERE id=?`,
		StatusFailed, message, s.clock().UTC(), id)
	return err
}

// ListRecent retrieves up to limit jobs ordered newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Job, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, audio_path, model_size, status, language, word_count, audio_seconds, error, created_at, finished_at
		 FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		var modelSize, language, jobErr sql.NullString
		var created string
		var finished sql.NullString
		if err := rows.Scan(&j.ID, &j.RequestID, &j.AudioPath, &modelSize, &j.Status, &language,
			&j.WordCount, &j.AudioSeconds, &jobErr, &created, &finished); err != nil {
			return nil, err
		}
		j.ModelSize = modelSize.String
		j.Language = language.String
		j.Error = jobErr.String
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			j.CreatedAt = ts
		}
		if finished.Valid {
			if ts, err := time.Parse(time.RFC3339Nano, finished.String); err == nil {
				j.FinishedAt = ts
			}
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Prune applies configured retention by age and by row count.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxJobs > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE id IN (
			SELECT id FROM jobs ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxJobs)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
