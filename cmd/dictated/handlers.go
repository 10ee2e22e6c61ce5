package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/medscribe/dictation-engine/internal/ai"
	"github.com/medscribe/dictation-engine/internal/audio"
	"github.com/medscribe/dictation-engine/internal/config"
	"github.com/medscribe/dictation-engine/internal/gateway"
	"github.com/medscribe/dictation-engine/internal/observability"
	"github.com/medscribe/dictation-engine/internal/session"
)

// server carries the handler dependencies
type server struct {
	cfg        *config.Config
	sess       *session.Session
	transforms *ai.Gateway
	hub        *gateway.Hub
	logger     zerolog.Logger
}

func newServer(cfg *config.Config, sess *session.Session, transforms *ai.Gateway, hub *gateway.Hub) *server {
	return &server{
		cfg:        cfg,
		sess:       sess,
		transforms: transforms,
		hub:        hub,
		logger:     observability.GetLogger().With().Str("component", "http").Logger(),
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleSessionStart begins continuous capture
func (s *server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	device := audio.NewExecDevice(s.cfg.CaptureCommand)
	if err := s.sess.Start(device); err != nil {
		switch {
		case errors.Is(err, session.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, "session already running")
		case errors.Is(err, audio.ErrDeviceUnavailable):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"session_id": s.sess.ID(), "status": "listening"})
}

// handleSessionStop stops capture; queued chunks keep draining in order
func (s *server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	if err := s.sess.Stop(); err != nil {
		writeError(w, http.StatusConflict, "session not running")
		return
	}

	// Stop is asynchronous-initiated: the drain continues in the background.
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "draining"})
}

// handleTranscribeFile runs a one-shot transcription of a WAV file
func (s *server) handleTranscribeFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"path\": \"...\"}")
		return
	}

	if err := s.sess.TranscribeFile(req.Path); err != nil {
		if errors.Is(err, session.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "session already running")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "transcribing"})
}

// handleDocument returns the current document snapshot
func (s *server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": s.sess.Document().Snapshot()})
}

// handleTransform applies an AI transform to the full document snapshot and
// replaces the buffer with the result
func (s *server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req struct {
		Kind string `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "body must be {\"kind\": \"refine|improve|structured_note\"}")
		return
	}

	kind, err := ai.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Transforms operate on a stable snapshot; while capture is running or
	// draining the buffer is still moving.
	if s.sess.Running() {
		writeError(w, http.StatusConflict, "session is active; stop capture before transforming")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.TransformTimeout)*time.Second)
	defer cancel()

	result, err := s.transforms.Transform(ctx, kind, s.sess.Document().Snapshot())
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrDisabled):
			writeError(w, http.StatusServiceUnavailable, "ai transforms are disabled (no OPENAI_API_KEY)")
		case errors.Is(err, ai.ErrTransformBusy):
			writeError(w, http.StatusConflict, "another transform is in progress")
		case errors.Is(err, ai.ErrNoText):
			writeError(w, http.StatusBadRequest, "no text to transform")
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	s.sess.Document().ReplaceAll(result)
	s.hub.DocumentChanged(result)
	writeJSON(w, http.StatusOK, map[string]string{"text": result})
}

// serviceHooks handles the voice commands that delegate outside the core.
// Copy has no clipboard on a headless service; subscribers receive the
// snapshot through the hub instead.
type serviceHooks struct {
	cfg    *config.Config
	hub    *gateway.Hub
	logger zerolog.Logger
}

func newServiceHooks(cfg *config.Config, hub *gateway.Hub) *serviceHooks {
	return &serviceHooks{
		cfg:    cfg,
		hub:    hub,
		logger: observability.GetLogger().With().Str("component", "hooks").Logger(),
	}
}

func (h *serviceHooks) NewDictation() {
	h.logger.Info().Msg("new dictation requested by voice command")
}

func (h *serviceHooks) ClearText() {
	h.logger.Info().Msg("document cleared by voice command")
}

func (h *serviceHooks) CopyText(snapshot string) {
	h.hub.DocumentChanged(snapshot)
}

func (h *serviceHooks) SaveText(snapshot string) {
	if err := os.WriteFile(h.cfg.SavePath, []byte(snapshot), 0o644); err != nil {
		h.logger.Error().Err(err).Str("path", h.cfg.SavePath).Msg("failed to save document")
		return
	}
	h.logger.Info().Str("path", h.cfg.SavePath).Msg("document saved")
}
