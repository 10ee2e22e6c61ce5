package ai

import (
	"context"
	"errors"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medscribe/dictation-engine/internal/config"
)

// fakeCompleter scripts chat completion responses
type fakeCompleter struct {
	mu       sync.Mutex
	calls    int
	requests []openai.ChatCompletionRequest
	respond  func(call int, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(call, req)
}

func completionWith(text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: text}},
		},
	}
}

func testGateway(client chatCompleter) *Gateway {
	cfg := &config.Config{
		OpenAIAPIKey:        "test-key",
		RefineModel:         "gpt-3.5-turbo",
		ImproveModel:        "gpt-3.5-turbo",
		StructuredModel:     "gpt-4o",
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 1,
	}
	g := NewGateway(cfg)
	g.client = client
	return g
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"refine", KindRefine, false},
		{"Improve", KindImprove, false},
		{" structured_note ", KindStructuredNote, false},
		{"summarize", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseKind(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestGateway_Transform(t *testing.T) {
	fc := &fakeCompleter{
		respond: func(call int, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return completionWith("  The patient reports chest pain.  "), nil
		},
	}
	g := testGateway(fc)

	got, err := g.Transform(context.Background(), KindRefine, "the patient reports chest pain")
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if got != "The patient reports chest pain." {
		t.Errorf("Expected trimmed result, got %q", got)
	}
	if fc.calls != 1 {
		t.Errorf("Expected 1 completion call, got %d", fc.calls)
	}
}

func TestGateway_KindSelectsModelAndTemperature(t *testing.T) {
	cases := []struct {
		kind        Kind
		model       string
		temperature float32
	}{
		{KindRefine, "gpt-3.5-turbo", 0.0},
		{KindImprove, "gpt-3.5-turbo", 1.0},
		{KindStructuredNote, "gpt-4o", 0.7},
	}

	for _, tc := range cases {
		fc := &fakeCompleter{
			respond: func(call int, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
				return completionWith("ok"), nil
			},
		}
		g := testGateway(fc)

		if _, err := g.Transform(context.Background(), tc.kind, "some text"); err != nil {
			t.Fatalf("%s: Transform failed: %v", tc.kind, err)
		}

		req := fc.requests[0]
		if req.Model != tc.model {
			t.Errorf("%s: expected model %q, got %q", tc.kind, tc.model, req.Model)
		}
		if req.Temperature != tc.temperature {
			t.Errorf("%s: expected temperature %v, got %v", tc.kind, tc.temperature, req.Temperature)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("%s: expected system+user messages, got %v", tc.kind, req.Messages)
		}
	}
}

func TestGateway_Disabled(t *testing.T) {
	g := NewGateway(&config.Config{})
	if g.Enabled() {
		t.Error("Expected gateway disabled without API key")
	}
	if _, err := g.Transform(context.Background(), KindRefine, "text"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
}

func TestGateway_NoText(t *testing.T) {
	g := testGateway(&fakeCompleter{
		respond: func(int, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return completionWith("ok"), nil
		},
	})

	if _, err := g.Transform(context.Background(), KindRefine, "   "); !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
}

func TestGateway_BusyRejectsConcurrentTransform(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fc := &fakeCompleter{
		respond: func(call int, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			close(started)
			<-release
			return completionWith("done"), nil
		},
	}
	g := testGateway(fc)

	errCh := make(chan error, 1)
	go func() {
		_, err := g.Transform(context.Background(), KindRefine, "first")
		errCh <- err
	}()

	<-started
	if _, err := g.Transform(context.Background(), KindRefine, "second"); !errors.Is(err, ErrTransformBusy) {
		t.Errorf("Expected ErrTransformBusy, got %v", err)
	}

	close(release)
	if err := <-errCh; err != nil {
		t.Errorf("Expected first transform to succeed, got %v", err)
	}
}

func TestGateway_RetriesTransientFailures(t *testing.T) {
	fc := &fakeCompleter{
		respond: func(call int, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			if call < 3 {
				return openai.ChatCompletionResponse{}, errors.New("connection refused")
			}
			return completionWith("recovered"), nil
		},
	}
	g := testGateway(fc)

	got, err := g.Transform(context.Background(), KindRefine, "text")
	if err != nil {
		t.Fatalf("Expected retry to recover, got %v", err)
	}
	if got != "recovered" {
		t.Errorf("Expected %q, got %q", "recovered", got)
	}
	if fc.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", fc.calls)
	}
}

func TestGateway_NonRetryableFailsOnce(t *testing.T) {
	fc := &fakeCompleter{
		respond: func(call int, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, errors.New("401: invalid api key")
		},
	}
	g := testGateway(fc)

	if _, err := g.Transform(context.Background(), KindRefine, "text"); err == nil {
		t.Fatal("Expected error for auth failure")
	}
	if fc.calls != 1 {
		t.Errorf("Expected 1 attempt for non-retryable error, got %d", fc.calls)
	}
}

func TestGateway_EmptyCompletionIsError(t *testing.T) {
	fc := &fakeCompleter{
		respond: func(call int, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, nil
		},
	}
	g := testGateway(fc)

	if _, err := g.Transform(context.Background(), KindRefine, "text"); err == nil {
		t.Error("Expected error for empty completion response")
	}
}
