package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscribe/dictation-engine/internal/audio"
	"github.com/medscribe/dictation-engine/internal/config"
	"github.com/medscribe/dictation-engine/internal/dictation"
	"github.com/medscribe/dictation-engine/internal/observability"
	"github.com/medscribe/dictation-engine/internal/stt"
)

var (
	// ErrAlreadyRunning is returned when a capture or file transcription is
	// started while one is still active.
	ErrAlreadyRunning = errors.New("session already running")

	// ErrNotRunning is returned by Stop when nothing is active.
	ErrNotRunning = errors.New("session not running")
)

// Session owns one dictation pipeline: a chunk source feeding the worker
// pool, and the interpreter serializing results into the document. The
// document outlives individual captures; starting and stopping capture
// appends to the same buffer.
type Session struct {
	cfg         *config.Config
	doc         *dictation.Document
	transcriber stt.Transcriber
	notifier    dictation.Notifier
	hooks       dictation.Hooks

	mu      sync.Mutex
	source  audio.Source
	running bool
	done    chan struct{}

	id     string
	logger zerolog.Logger
}

// New creates a session with an empty document. notifier and hooks may be
// nil.
func New(cfg *config.Config, transcriber stt.Transcriber, notifier dictation.Notifier, hooks dictation.Hooks) *Session {
	id := observability.NewSessionID()
	return &Session{
		cfg:         cfg,
		doc:         dictation.NewDocument(),
		transcriber: transcriber,
		notifier:    notifier,
		hooks:       hooks,
		id:          id,
		logger:      observability.WithSession(id),
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Document returns the session's document buffer
func (s *Session) Document() *dictation.Document {
	return s.doc
}

// Running reports whether a capture or file transcription is active
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start begins continuous capture from the given device. It fails with
// audio.ErrDeviceUnavailable (wrapped) if the device cannot be opened.
func (s *Session) Start(device audio.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	listener := audio.NewListener(device, audio.ListenerConfig{
		SampleRate: s.cfg.SampleRate,
		Channels:   1,
		VAD: &audio.VADConfig{
			EnergyThreshold: s.cfg.VADEnergyThreshold,
			SilenceFrames:   s.cfg.VADSilenceFrames,
			FrameSize:       s.cfg.SampleRate / 50, // 20ms frames
		},
		PhraseTimeLimit: time.Duration(s.cfg.PhraseTimeLimitMS) * time.Millisecond,
		QueueSize:       s.cfg.SubmitQueueSize,
	})

	if err := listener.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	s.beginLocked(listener)
	s.logger.Info().Msg("continuous capture session started")
	return nil
}

// TranscribeFile runs a one-shot transcription of a WAV file through the
// same pipeline
func (s *Session) TranscribeFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	source, err := audio.NewFileSource(path)
	if err != nil {
		return err
	}

	s.beginLocked(source)
	s.logger.Info().Str("path", path).Msg("file transcription started")
	return nil
}

// beginLocked wires source -> pool -> interpreter. Caller holds s.mu.
func (s *Session) beginLocked(source audio.Source) {
	pool := stt.NewPool(context.Background(), s.transcriber, s.cfg.WorkerCount, s.cfg.SubmitQueueSize)
	pool.Start()

	interp := dictation.NewInterpreter(
		s.doc,
		s.notifier,
		s.hooks,
		time.Duration(s.cfg.ReorderTimeoutMS)*time.Millisecond,
	)

	done := make(chan struct{})
	s.source = source
	s.running = true
	s.done = done
	observability.RecordSessionStart()

	// Fan chunks into the pool; once the source closes its channel every
	// captured chunk has been submitted and the pool can drain.
	go func() {
		for chunk := range source.Chunks() {
			pool.Submit(chunk)
		}
		pool.Close()
	}()

	// The interpreter returns after the pool's results channel closes, so
	// by then every submitted chunk has applied in order.
	go func() {
		interp.Run(pool.Results())

		if err := source.Err(); err != nil {
			s.logger.Warn().Err(err).Msg("capture ended abnormally")
			if s.notifier != nil {
				s.notifier.Status("Capture interrupted")
			}
		}

		s.mu.Lock()
		s.running = false
		s.source = nil
		s.mu.Unlock()

		observability.RecordSessionEnd()
		close(done)
	}()
}

// Stop stops accepting new chunks from the device immediately and returns.
// Chunks already captured keep draining through the pipeline and apply in
// order; use Wait to block until the drain completes.
func (s *Session) Stop() error {
	s.mu.Lock()
	source := s.source
	running := s.running
	s.mu.Unlock()

	if !running || source == nil {
		return ErrNotRunning
	}

	source.Stop()
	s.logger.Info().Msg("capture stopping, draining in-flight chunks")
	return nil
}

// Wait blocks until the active pipeline (if any) has fully drained
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}
