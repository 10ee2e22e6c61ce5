package stt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscribe/dictation-engine/internal/audio"
	"github.com/medscribe/dictation-engine/internal/observability"
)

// Pool is a fixed-size pool of concurrent transcription workers. Workers
// share nothing beyond the dispatch queue; they never touch the document.
// Every submitted chunk yields exactly one Result on the results channel,
// regardless of outcome.
type Pool struct {
	transcriber Transcriber
	workers     int

	jobs    chan audio.Chunk
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once

	logger zerolog.Logger
}

// NewPool creates a worker pool of the given size. queueSize bounds the
// number of chunks waiting for a free worker before Submit blocks.
func NewPool(parent context.Context, transcriber Transcriber, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = workers
	}
	ctx, cancel := context.WithCancel(parent)
	return &Pool{
		transcriber: transcriber,
		workers:     workers,
		jobs:        make(chan audio.Chunk, queueSize),
		results:     make(chan Result, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      observability.GetLogger().With().Str("component", "stt_pool").Logger(),
	}
}

// Start launches the workers
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		p.logger.Debug().Int("workers", p.workers).Msg("worker pool started")
	})
}

// Submit hands one chunk to the pool. Blocks when the dispatch queue is
// full. Must not be called after Close.
func (p *Pool) Submit(chunk audio.Chunk) {
	p.jobs <- chunk
}

// Results returns the channel of transcription results. Results arrive in
// completion order, not submission order; the channel closes after Close
// once every in-flight chunk has produced its result.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting new chunks and closes the results channel after all
// in-flight transcriptions finish. In-flight work is not cancelled.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
		go func() {
			p.wg.Wait()
			p.cancel()
			close(p.results)
		}()
	})
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for chunk := range p.jobs {
		start := time.Now()
		text, err := p.transcriber.Transcribe(p.ctx, chunk)
		latency := time.Since(start)

		result := Result{Seq: chunk.Seq, Text: text, Status: StatusOk}

		var transportErr *TransportError
		switch {
		case err == nil:
		case errors.Is(err, ErrUnrecognized):
			result = Result{Seq: chunk.Seq, Status: StatusUnrecognized}
		case errors.As(err, &transportErr):
			result = Result{Seq: chunk.Seq, Status: StatusTransport, Err: err}
		default:
			// Unexpected failure classes count as transport problems so the
			// sequence still advances.
			result = Result{Seq: chunk.Seq, Status: StatusTransport, Err: err}
		}

		observability.RecordSTTRequest(result.Status.String(), latency.Seconds())
		p.logger.Debug().
			Int("worker", id).
			Uint64("seq", chunk.Seq).
			Str("status", result.Status.String()).
			Dur("latency", latency).
			Msg("chunk transcribed")

		p.results <- result
	}
}
