package protocol

import (
	"time"

	"github.com/verbatim-audio/verbatim/internal/transcriber"
)

// TranscriptionRequest asks the service to transcribe one audio file.
type TranscriptionRequest struct {
	RequestID string `json:"request_id"`
	AudioPath string `json:"audio_path"`
	ModelSize string `json:"model_size,omitempty"`
}

// TranscriptionResult carries the outcome back to the requester. Exactly
// one of Words/Language or Error is populated, mirroring the CLI schema.
type TranscriptionResult struct {
	RequestID string             `json:"request_id"`
	Words     []transcriber.Word `json:"words,omitempty"`
	Language  string             `json:"language,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	ElapsedMS int64              `json:"elapsed_ms"`
}

const (
	SubjectTranscribeRequest      = "transcribe.request"
	SubjectTranscribeResultPrefix = "transcribe.result"
)

// ResultSubject returns the per-request result subject.
func ResultSubject(requestID string) string {
	return SubjectTranscribeResultPrefix + "." + requestID
}
