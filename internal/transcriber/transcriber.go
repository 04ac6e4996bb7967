package transcriber

import (
	"context"
	"errors"
)

// Fixed inference policy: CPU with 8-bit integer quantization.
const (
	DeviceCPU   = "cpu"
	ComputeInt8 = "int8"

	DefaultModelSize = "base"
)

// ErrUnavailable marks a backend whose external capability is missing.
var ErrUnavailable = errors.New("transcription backend unavailable")

// Word is a single spoken word with offsets in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one utterance unit as emitted by the model.
type Segment struct {
	Start float64
	End   float64
	Text  string
	Words []Word
}

// Transcript is the raw model output before flattening.
type Transcript struct {
	Language string
	Duration float64
	Segments []Segment
}

// Request describes one transcription run.
type Request struct {
	AudioPath   string
	ModelSize   string
	Device      string
	ComputeType string
}

// NewRequest applies the fixed policy and the default model size.
func NewRequest(audioPath, modelSize string) Request {
	if modelSize == "" {
		modelSize = DefaultModelSize
	}
	return Request{
		AudioPath:   audioPath,
		ModelSize:   modelSize,
		Device:      DeviceCPU,
		ComputeType: ComputeInt8,
	}
}

// Backend abstracts speech-to-text engines.
type Backend interface {
	Transcribe(ctx context.Context, req Request) (Transcript, error)
}
