package transcriber

import (
	"context"
)

type mockBackend struct {
	transcript Transcript
	err        error
}

// NewMockBackend returns a backend that replays a fixed transcript.
func NewMockBackend(t Transcript) Backend {
	return &mockBackend{transcript: t}
}

// NewFailingBackend returns a backend whose every call fails with err.
func NewFailingBackend(err error) Backend {
	return &mockBackend{err: err}
}

func (m *mockBackend) Transcribe(_ context.Context, _ Request) (Transcript, error) {
	if m.err != nil {
		return Transcript{}, m.err
	}
	return m.transcript, nil
}
