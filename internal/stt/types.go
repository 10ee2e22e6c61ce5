package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/medscribe/dictation-engine/internal/audio"
)

// ErrUnrecognized means the backend could not make out any speech in the
// chunk. This is a valid empty-ish result, not a failure.
var ErrUnrecognized = errors.New("speech not recognized")

// TransportError is a network or auth failure talking to the transcription
// backend. Retryable by the caller; never retried automatically.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transcription transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transcriber is the abstract speech-to-text capability the pipeline
// depends on. Implementations must be safe for concurrent use.
type Transcriber interface {
	// Transcribe converts one audio chunk to text. It returns
	// ErrUnrecognized when no speech was understood and a *TransportError
	// on backend failures.
	Transcribe(ctx context.Context, chunk audio.Chunk) (string, error)
}

// Status is the terminal outcome of transcribing one chunk
type Status int

const (
	StatusOk Status = iota
	StatusUnrecognized
	StatusTransport
	StatusSkipped // Slot abandoned by the reorder window after its bounded wait
)

// String returns the status label used in logs and metrics
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusUnrecognized:
		return "unrecognized"
	case StatusTransport:
		return "transport_error"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is produced exactly once per submitted chunk
type Result struct {
	Seq    uint64
	Text   string
	Status Status
	Err    error // Set for StatusTransport
}
