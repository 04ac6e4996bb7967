package transcriber

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeStubInterpreter creates a shell script that passes the availability
// probe and replays a canned helper response for transcription runs.
func writeStubInterpreter(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "python-stub")
	script := "#!/bin/sh\nif [ \"$1\" = \"-c\" ]; then exit 0; fi\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestNewExecBackendUnavailable(t *testing.T) {
	_, err := NewExecBackend(context.Background(), filepath.Join(t.TempDir(), "no-such-python"))
	if err == nil {
		t.Fatal("expected error for missing interpreter")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "pip install faster-whisper") {
		t.Fatalf("expected install remedy in message, got %q", got)
	}
}

func TestExecBackendTranscribe(t *testing.T) {
	stub := writeStubInterpreter(t, `echo '{"language":"de","duration":2.5,"segments":[{"start":0,"end":1.2,"text":" hallo welt","words":[{"word":" hallo","start":0.05,"end":0.6},{"word":" welt","start":0.6,"end":1.2}]}]}'`+"\n")

	backend, err := NewExecBackend(context.Background(), stub)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	got, err := backend.Transcribe(context.Background(), NewRequest("sample.wav", ""))
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if got.Language != "de" {
		t.Fatalf("expected language de, got %q", got.Language)
	}
	if len(got.Segments) != 1 || len(got.Segments[0].Words) != 2 {
		t.Fatalf("unexpected segment shape: %+v", got.Segments)
	}
	if got.Segments[0].Words[0].Word != " hallo" {
		t.Fatalf("expected raw word text preserved by the backend, got %q", got.Segments[0].Words[0].Word)
	}
}

func TestExecBackendHelperFault(t *testing.T) {
	stub := writeStubInterpreter(t, `echo '{"error":"No such file or directory: missing.wav"}'; exit 1`+"\n")

	backend, err := NewExecBackend(context.Background(), stub)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	_, err = backend.Transcribe(context.Background(), NewRequest("missing.wav", ""))
	if err == nil {
		t.Fatal("expected fault from helper")
	}
	if err.Error() != "No such file or directory: missing.wav" {
		t.Fatalf("expected helper error text passed through, got %q", err)
	}
}

func TestExecBackendStderrFault(t *testing.T) {
	stub := writeStubInterpreter(t, `echo "Traceback: decoder blew up" >&2; exit 1`+"\n")

	backend, err := NewExecBackend(context.Background(), stub)
	if err != nil {
		t.Fatalf("new backend: %v", err)
	}
	_, err = backend.Transcribe(context.Background(), NewRequest("sample.wav", ""))
	if err == nil {
		t.Fatal("expected fault from helper")
	}
	if err.Error() != "Traceback: decoder blew up" {
		t.Fatalf("expected stderr text, got %q", err)
	}
}
