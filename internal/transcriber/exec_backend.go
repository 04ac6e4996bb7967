package transcriber

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

//go:embed assets/faster_whisper.py
var helperFS embed.FS

const installHint = "faster-whisper not installed. Run: pip install faster-whisper"

// execBackend shells out to an embedded faster-whisper helper script.
type execBackend struct {
	python []string
	mu     sync.Mutex
}

type helperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type helperSegment struct {
	Start float64      `json:"start"`
	End   float64      `json:"end"`
	Text  string       `json:"text"`
	Words []helperWord `json:"words"`
}

type helperOutput struct {
	Language string          `json:"language"`
	Duration float64         `json:"duration"`
	Segments []helperSegment `json:"segments"`
	Error    string          `json:"error"`
}

// NewExecBackend probes the python interpreter and the faster_whisper
// package before returning a usable backend. A missing interpreter or
// package is reported as ErrUnavailable, distinct from transcription
// faults, and no audio is touched during the probe. The command string
// names the interpreter and may carry extra arguments; empty means
// "python3".
func NewExecBackend(ctx context.Context, command string) (Backend, error) {
	if command == "" {
		command = "python3"
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse python command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("python command is empty")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, installHint)
	}

	probe := exec.CommandContext(ctx, args[0], append(args[1:], "-c", "import faster_whisper")...)
	if err := probe.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, installHint)
	}
	return &execBackend{python: args}, nil
}

func (b *execBackend) Transcribe(ctx context.Context, req Request) (Transcript, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	script, err := b.writeHelper()
	if err != nil {
		return Transcript{}, err
	}
	defer os.Remove(script)

	args := append([]string{}, b.python[1:]...)
	args = append(args, script,
		"--audio", req.AudioPath,
		"--model", req.ModelSize,
		"--device", req.Device,
		"--compute-type", req.ComputeType,
	)

	cmd := exec.CommandContext(ctx, b.python[0], args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		return Transcript{}, errors.New(helperFault(stdout.Bytes(), stderr.String(), runErr))
	}

	var out helperOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return Transcript{}, fmt.Errorf("decode helper output: %w", err)
	}
	if out.Error != "" {
		return Transcript{}, errors.New(out.Error)
	}

	t := Transcript{Language: out.Language, Duration: out.Duration}
	for _, seg := range out.Segments {
		words := make([]Word, 0, len(seg.Words))
		for _, w := range seg.Words {
			words = append(words, Word{Word: w.Word, Start: w.Start, End: w.End})
		}
		t.Segments = append(t.Segments, Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
			Words: words,
		})
	}
	return t, nil
}

func (b *execBackend) writeHelper() (string, error) {
	data, err := helperFS.ReadFile("assets/faster_whisper.py")
	if err != nil {
		return "", fmt.Errorf("read helper script: %w", err)
	}
	file, err := os.CreateTemp("", "verbatim_fw_*.py")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close helper script: %w", err)
	}
	return file.Name(), nil
}

// helperFault extracts the most useful message from a failed helper run.
// The helper reports its own faults as {"error": ...} on stdout; raw
// interpreter crashes land on stderr.
func helperFault(stdout []byte, stderr string, runErr error) string {
	var out helperOutput
	if err := json.Unmarshal(stdout, &out); err == nil && out.Error != "" {
		return out.Error
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return msg
	}
	return runErr.Error()
}
