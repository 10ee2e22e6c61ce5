package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/medscribe/dictation-engine/internal/config"
	"github.com/medscribe/dictation-engine/internal/observability"
	"github.com/medscribe/dictation-engine/internal/resilience"
)

var (
	// ErrTransformBusy is returned while another transform is in flight.
	// At most one transform runs per gateway at a time.
	ErrTransformBusy = errors.New("another transform is in progress")

	// ErrNoText is returned when the document snapshot is empty.
	ErrNoText = errors.New("no text to transform")

	// ErrDisabled is returned when no OpenAI API key is configured.
	ErrDisabled = errors.New("ai transforms are disabled")
)

// Kind selects which transform to apply to a document snapshot
type Kind string

const (
	KindRefine         Kind = "refine"          // Fix grammar and dictation artifacts
	KindImprove        Kind = "improve"         // Improve clarity and flow
	KindStructuredNote Kind = "structured_note" // Produce a structured clinical note
)

// ParseKind converts a wire-format kind string
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindRefine:
		return KindRefine, nil
	case KindImprove:
		return KindImprove, nil
	case KindStructuredNote:
		return KindStructuredNote, nil
	default:
		return "", fmt.Errorf("unknown transform kind %q", s)
	}
}

const (
	refineSystemMessage  = "You are an assistant that corrects grammar and punctuation in dictated medical text without changing its meaning."
	improveSystemMessage = "You are an assistant that improves the clarity and flow of dictated medical text while preserving all clinical facts."
	noteSystemMessage    = "You are an assistant that converts a dictated medical narrative into a structured clinical note with Subjective, Objective, Assessment and Plan sections."

	refineTemperature  = 0.0
	improveTemperature = 1.0
	noteTemperature    = 0.7

	transformMaxTokens = 4000
)

// chatCompleter is the slice of the OpenAI client the gateway uses;
// tests substitute a fake.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Gateway runs stateless text transforms against OpenAI. It is invoked only
// on a stable full-document snapshot, outside the ordering pipeline, and
// serializes concurrent requests by rejecting them with ErrTransformBusy.
type Gateway struct {
	cfg    *config.Config
	client chatCompleter
	busy   sync.Mutex
	logger zerolog.Logger
}

// NewGateway creates a transform gateway. The returned gateway reports
// ErrDisabled when no API key is configured.
func NewGateway(cfg *config.Config) *Gateway {
	g := &Gateway{
		cfg:    cfg,
		logger: observability.GetLogger().With().Str("component", "ai_gateway").Logger(),
	}
	if cfg.OpenAIAPIKey != "" {
		g.client = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return g
}

// Enabled reports whether transforms can run
func (g *Gateway) Enabled() bool {
	return g.client != nil
}

// Transform applies one transform kind to the given text and returns the
// rewritten text. Transient network failures are retried with backoff.
func (g *Gateway) Transform(ctx context.Context, kind Kind, text string) (string, error) {
	if g.client == nil {
		return "", ErrDisabled
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}

	if !g.busy.TryLock() {
		return "", ErrTransformBusy
	}
	defer g.busy.Unlock()

	model, system, prompt, temperature := g.request(kind, text)

	start := time.Now()
	var result string
	err := resilience.Retry(ctx, func() error {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: temperature,
			MaxTokens:   transformMaxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("empty completion response")
		}
		result = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	}, &resilience.RetryConfig{
		MaxAttempts:       g.cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(g.cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}, resilience.IsRetryableNetworkError)

	status := "success"
	if err != nil {
		status = "error"
		g.logger.Warn().Err(err).Str("kind", string(kind)).Msg("transform failed")
	}
	observability.RecordAITransform(string(kind), status, time.Since(start).Seconds())

	if err != nil {
		return "", fmt.Errorf("transform %s: %w", kind, err)
	}
	return result, nil
}

// request builds the per-kind model, system message, prompt and temperature
func (g *Gateway) request(kind Kind, text string) (model, system, prompt string, temperature float32) {
	switch kind {
	case KindImprove:
		return g.cfg.ImproveModel, improveSystemMessage,
			fmt.Sprintf("Improve the clarity of the following text.\n\nOriginal: %s\n\nImproved:", text),
			improveTemperature
	case KindStructuredNote:
		return g.cfg.StructuredModel, noteSystemMessage,
			fmt.Sprintf("Create a structured clinical note from the following dictation.\n\n%s", text),
			noteTemperature
	default:
		return g.cfg.RefineModel, refineSystemMessage,
			fmt.Sprintf("Correct the grammar and punctuation of the following text.\n\nOriginal: %s\n\nCorrected:", text),
			refineTemperature
	}
}
