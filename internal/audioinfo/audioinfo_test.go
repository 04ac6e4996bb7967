package audioinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func writeTestWav(t *testing.T, sampleRate, channels, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]int, samples*channels),
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestProbe(t *testing.T) {
	path := writeTestWav(t, 16000, 1, 16000)

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if info.SampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Fatalf("expected 1 channel, got %d", info.Channels)
	}
	if info.BitDepth != 16 {
		t.Fatalf("expected bit depth 16, got %d", info.BitDepth)
	}
	if sec := info.Seconds(); sec < 0.99 || sec > 1.01 {
		t.Fatalf("expected ~1s duration, got %v", sec)
	}
}

func TestProbeNotWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Probe(path); err == nil {
		t.Fatal("expected error for non-wav input")
	}
}

func TestProbeMissingFile(t *testing.T) {
	if _, err := Probe(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
