package jobstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/verbatim-audio/verbatim/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	cfg := config.JobStoreConfig{RetentionMode: "ephemeral"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	id, err := s.Begin(context.Background(), "req-1", "a.wav", "base")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if id != 0 {
		t.Fatalf("expected no-op id 0 in ephemeral mode, got %d", id)
	}
	jobs, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs in ephemeral mode, got %d", len(jobs))
	}
}

func TestJobLifecycle(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JobStoreConfig{Path: filepath.Join(tmp, "jobs.db"), RetentionMode: "persistent"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	id, err := s.Begin(context.Background(), "req-1", "sample.wav", "base")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.FinishDone(context.Background(), id, "en", 42, 12.5); err != nil {
		t.Fatalf("finish done: %v", err)
	}

	failedID, err := s.Begin(context.Background(), "req-2", "missing.wav", "base")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := s.FinishFailed(context.Background(), failedID, "no such file"); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	jobs, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].RequestID != "req-2" || jobs[0].Status != StatusFailed || jobs[0].Error != "no such file" {
		t.Fatalf("unexpected newest job: %+v", jobs[0])
	}
	if jobs[1].Status != StatusDone || jobs[1].Language != "en" || jobs[1].WordCount != 42 {
		t.Fatalf("unexpected done job: %+v", jobs[1])
	}
}

func TestPruneByDaysAndCount(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JobStoreConfig{Path: filepath.Join(tmp, "jobs.db"), RetentionMode: "persistent", RetentionDays: 1, MaxJobs: 1}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := s.Begin(context.Background(), "old", "old.wav", "base"); err != nil {
		t.Fatalf("begin old: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if _, err := s.Begin(context.Background(), "new", "new.wav", "base"); err != nil {
		t.Fatalf("begin new: %v", err)
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	jobs, err := s.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 || jobs[0].RequestID != "new" {
		t.Fatalf("expected only new job kept, got %+v", jobs)
	}
}
