package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/medscribe/dictation-engine/internal/audio"
	"github.com/medscribe/dictation-engine/internal/config"
	"github.com/medscribe/dictation-engine/internal/observability"
	"github.com/medscribe/dictation-engine/internal/resilience"
)

// DeepgramTranscriber implements Transcriber against Deepgram's prerecorded
// REST API. Each chunk is wrapped in a WAV container and sent as one request.
type DeepgramTranscriber struct {
	cfg     *config.Config
	api     *prerecorded.Client
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// NewDeepgramTranscriber creates a Deepgram-backed transcriber
func NewDeepgramTranscriber(cfg *config.Config) *DeepgramTranscriber {
	restClient := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})

	breaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	return &DeepgramTranscriber{
		cfg:     cfg,
		api:     prerecorded.New(restClient),
		breaker: breaker,
		logger:  observability.GetLogger().With().Str("component", "deepgram").Logger(),
	}
}

// Transcribe sends one chunk to Deepgram and returns the transcript.
// Backend failures map to *TransportError; an empty transcript maps to
// ErrUnrecognized. Failed requests are not retried here.
func (d *DeepgramTranscriber) Transcribe(ctx context.Context, chunk audio.Chunk) (string, error) {
	wavData, err := audio.EncodeWAV(chunk.Samples, chunk.SampleRate, chunk.Channels)
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("encode chunk: %w", err)}
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:     d.cfg.DeepgramModel,
		Language:  d.cfg.DeepgramLanguage,
		Punctuate: true,
	}

	var transcript string
	err = d.breaker.Call(func() error {
		res, err := d.api.FromStream(ctx, bytes.NewReader(wavData), options)
		if err != nil {
			return err
		}
		if len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
			return nil
		}
		transcript = res.Results.Channels[0].Alternatives[0].Transcript
		return nil
	})

	observability.UpdateCircuitBreakerState("deepgram", int(d.breaker.GetState()))
	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		d.logger.Warn().Err(err).Uint64("seq", chunk.Seq).Msg("deepgram request failed")
		return "", &TransportError{Err: err}
	}

	if strings.TrimSpace(transcript) == "" {
		return "", ErrUnrecognized
	}

	return transcript, nil
}
