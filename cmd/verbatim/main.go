// Command verbatim transcribes one audio file and prints word-level
// timestamps as a single JSON line on stdout. It is meant to be spawned
// by an orchestrating process that parses stdout and branches on the
// presence of an "error" key, so stdout is the only output channel:
// success and failure alike are one JSON object, never a stack trace,
// never anything on stderr.
//
// Usage: verbatim <audio_path> [model_size]
//
// Exit code 0 on success, 1 on any failure.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/verbatim-audio/verbatim/internal/transcriber"
)

const usage = "Usage: verbatim <audio_path> [model_size]"

type backendFactory func(ctx context.Context) (transcriber.Backend, error)

type successPayload struct {
	Words    []transcriber.Word `json:"words"`
	Language string             `json:"language"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, func(ctx context.Context) (transcriber.Backend, error) {
		return transcriber.NewExecBackend(ctx, "")
	})
	os.Exit(code)
}

// run is the whole pipeline: parse args, check the capability, transcribe,
// emit. Every failure path converges on a single {"error": ...} line and a
// non-zero return; partial output is never produced.
func run(ctx context.Context, args []string, out io.Writer, newBackend backendFactory) int {
	if len(args) < 1 {
		return emit(out, errorPayload{Error: usage}, 1)
	}
	modelSize := ""
	if len(args) > 1 {
		modelSize = args[1]
	}
	req := transcriber.NewRequest(args[0], modelSize)

	// The capability probe runs before the audio path is touched so a
	// missing dependency is reported distinctly from a bad audio file.
	backend, err := newBackend(ctx)
	if err != nil {
		return emit(out, errorPayload{Error: err.Error()}, 1)
	}

	result, err := backend.Transcribe(ctx, req)
	if err != nil {
		return emit(out, errorPayload{Error: err.Error()}, 1)
	}

	return emit(out, successPayload{
		Words:    transcriber.Flatten(result),
		Language: result.Language,
	}, 0)
}

func emit(out io.Writer, payload any, code int) int {
	if err := json.NewEncoder(out).Encode(payload); err != nil {
		return 1
	}
	return code
}
