package audio

import "errors"

var (
	// ErrDeviceUnavailable is returned by Listener.Start when the capture
	// device cannot be opened. Capture does not start.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrCaptureInterrupted is reported by Listener.Err after a mid-session
	// device failure. Chunks produced before the failure are still delivered.
	ErrCaptureInterrupted = errors.New("capture interrupted")
)

// Chunk is one bounded span of captured audio representing a single
// utterance. Immutable once created; ownership transfers on handoff.
type Chunk struct {
	// Seq is the utterance's position in spoken order, starting at 0
	// per session.
	Seq uint64

	// Samples is raw PCM audio (little-endian signed 16-bit).
	Samples []byte

	SampleRate  int // Hz
	SampleWidth int // bytes per sample
	Channels    int
}

// Source produces a lazy, possibly-infinite sequence of chunks.
type Source interface {
	// Chunks returns the channel of captured utterances. The channel is
	// closed once the source stops, after any trailing utterance has been
	// delivered.
	Chunks() <-chan Chunk

	// Err reports why the source stopped, or nil for a clean stop.
	Err() error

	// Stop stops producing new chunks. It returns without waiting for
	// consumers to drain the channel.
	Stop()
}

// Device abstracts raw audio capture. Implementations are expected to block
// in ReadFrame until a full frame is available.
type Device interface {
	Open() error
	ReadFrame(buf []byte) (int, error)
	Close() error
}
