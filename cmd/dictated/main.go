package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medscribe/dictation-engine/internal/ai"
	"github.com/medscribe/dictation-engine/internal/config"
	"github.com/medscribe/dictation-engine/internal/gateway"
	"github.com/medscribe/dictation-engine/internal/observability"
	"github.com/medscribe/dictation-engine/internal/session"
	"github.com/medscribe/dictation-engine/internal/stt"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("deepgram_model", cfg.DeepgramModel).
		Int("workers", cfg.WorkerCount).
		Bool("ai_enabled", cfg.OpenAIAPIKey != "").
		Msg("Dictation Engine starting")

	transcriber := stt.NewDeepgramTranscriber(cfg)
	transforms := ai.NewGateway(cfg)
	hub := gateway.NewHub()
	sess := session.New(cfg, transcriber, hub, newServiceHooks(cfg, hub))

	srv := newServer(cfg, sess, transforms, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.Handler())
	mux.HandleFunc("/v1/session/start", srv.handleSessionStart)
	mux.HandleFunc("/v1/session/stop", srv.handleSessionStop)
	mux.HandleFunc("/v1/transcriptions", srv.handleTranscribeFile)
	mux.HandleFunc("/v1/document", srv.handleDocument)
	mux.HandleFunc("/v1/transform", srv.handleTransform)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"deepgram": func(ctx context.Context) (bool, error) {
			// Config-level check only; no API call to avoid costs.
			if cfg.DeepgramAPIKey == "" {
				return false, fmt.Errorf("deepgram api key not configured")
			}
			return true, nil
		},
		"openai": func(ctx context.Context) (bool, error) {
			// AI transforms are optional; an unset key is still ready.
			return true, nil
		},
	}))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // Transforms can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")

	// Stop capture and let queued chunks drain in order
	if err := sess.Stop(); err == nil {
		sess.Wait()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
