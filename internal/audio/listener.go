package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/medscribe/dictation-engine/internal/observability"
	"github.com/rs/zerolog"
)

// ListenerConfig holds configuration for the continuous capture source
type ListenerConfig struct {
	SampleRate      int
	Channels        int
	VAD             *VADConfig
	PhraseTimeLimit time.Duration // Hard cap on a single utterance
	QueueSize       int           // Buffered chunks between capture and workers
}

// DefaultListenerConfig returns a default listener configuration
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		SampleRate:      16000,
		Channels:        1,
		VAD:             DefaultVADConfig(),
		PhraseTimeLimit: 10 * time.Second,
		QueueSize:       32,
	}
}

// Listener is the continuous chunk source. It reads frames from a capture
// device on a background goroutine, segments speech into utterances with the
// VAD detector, and pushes chunks onto a queue consumed by the worker pool.
// It never blocks the device callback path on downstream work.
type Listener struct {
	device Device
	cfg    ListenerConfig
	logger zerolog.Logger

	chunks chan Chunk
	stop   chan struct{}

	stopOnce  sync.Once
	startOnce sync.Once

	mu  sync.Mutex
	err error
	seq uint64
}

// NewListener creates a continuous capture source for the given device
func NewListener(device Device, cfg ListenerConfig) *Listener {
	if cfg.VAD == nil {
		cfg.VAD = DefaultVADConfig()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Listener{
		device: device,
		cfg:    cfg,
		logger: observability.GetLogger().With().Str("component", "listener").Logger(),
		chunks: make(chan Chunk, cfg.QueueSize),
		stop:   make(chan struct{}),
	}
}

// Start opens the capture device and begins segmenting utterances.
// It fails with ErrDeviceUnavailable if the device cannot be opened;
// in that case no chunks are ever produced.
func (l *Listener) Start() error {
	if err := l.device.Open(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	l.startOnce.Do(func() {
		go l.run()
	})

	l.logger.Info().
		Int("sample_rate", l.cfg.SampleRate).
		Dur("phrase_time_limit", l.cfg.PhraseTimeLimit).
		Msg("capture started")
	return nil
}

// Chunks returns the channel of captured utterances
func (l *Listener) Chunks() <-chan Chunk {
	return l.chunks
}

// Err reports why capture stopped, or nil for a clean stop
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Stop stops accepting audio from the device immediately. Chunks already
// segmented are still delivered; the chunk channel closes once the trailing
// utterance (if any) has been flushed. Stop does not wait for consumers.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		// Unblocks a pending ReadFrame
		_ = l.device.Close()
	})
}

func (l *Listener) run() {
	defer close(l.chunks)

	vad := NewVADDetector(l.cfg.VAD)
	frameBytes := l.cfg.VAD.FrameSize * 2 * l.cfg.Channels
	frame := make([]byte, frameBytes)

	maxUtteranceBytes := int(l.cfg.PhraseTimeLimit.Seconds() * float64(l.cfg.SampleRate) * 2 * float64(l.cfg.Channels))

	var utterance []byte

	for {
		select {
		case <-l.stop:
			l.flush(utterance)
			return
		default:
		}

		n, err := l.device.ReadFrame(frame)
		if err != nil {
			select {
			case <-l.stop:
				// Device closed by Stop; not a failure
			default:
				l.setErr(fmt.Errorf("%w: %v", ErrCaptureInterrupted, err))
				l.logger.Warn().Err(err).Msg("capture device read failed, stopping")
			}
			l.flush(utterance)
			return
		}
		if n == 0 {
			continue
		}

		samples := BytesToSamples(frame[:n])
		speaking, started, ended := vad.ProcessFrame(samples)

		if started {
			utterance = utterance[:0]
		}
		if speaking {
			utterance = append(utterance, frame[:n]...)
			if len(utterance) >= maxUtteranceBytes {
				// Phrase time limit reached mid-speech; cut the utterance
				// here and keep collecting into the next one.
				l.emit(utterance)
				utterance = utterance[:0]
			}
		}
		if ended && len(utterance) > 0 {
			l.emit(utterance)
			utterance = utterance[:0]
		}
	}
}

// flush emits a trailing partial utterance on shutdown
func (l *Listener) flush(utterance []byte) {
	if len(utterance) > 0 {
		l.emit(utterance)
	}
}

func (l *Listener) emit(utterance []byte) {
	samples := make([]byte, len(utterance))
	copy(samples, utterance)

	chunk := Chunk{
		Seq:         l.seq,
		Samples:     samples,
		SampleRate:  l.cfg.SampleRate,
		SampleWidth: 2,
		Channels:    l.cfg.Channels,
	}
	l.seq++

	observability.RecordChunkCaptured(len(samples))
	l.logger.Debug().Uint64("seq", chunk.Seq).Int("bytes", len(samples)).Msg("utterance captured")

	l.chunks <- chunk
}

func (l *Listener) setErr(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}
