package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	"github.com/echolag-barista/server/internal/metrics"
	"github.com/echolag-barista/server/internal/speech"
	logx "github.com/echolag-barista/server/pkg/logger"
)

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "EchoLag Barista API"})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handlers) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found", Path: r.URL.Path})
}

func (h *handlers) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

func (h *handlers) handleConversation(w http.ResponseWriter, r *http.Request) {
	var req model.ConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := model.WithTurnID(r.Context(), uuid.NewString())
	resp, err := h.conversation.Invoke(ctx, req)
	if err != nil {
		writeAppError(w, h.env, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// reset is stateless on the server; order state lives with the client.
func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation reset successfully"})
}

func (h *handlers) analyzeSession(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := model.WithTurnID(r.Context(), uuid.NewString())
	resp, err := h.analyzer.AnalyzeOrFallback(ctx, req)
	if err != nil {
		writeAppError(w, h.env, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) textToSpeech(w http.ResponseWriter, r *http.Request) {
	var req speech.SynthesisRequest
	if !decodeJSON(w, r, &req) {
		metrics.ObserveTTS(http.StatusBadRequest)
		return
	}

	audio, err := h.speech.Stream(r.Context(), req)
	if err != nil {
		status, msg := speechError(err)
		metrics.ObserveTTS(status)
		writeError(w, status, msg)
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	metrics.ObserveTTS(http.StatusOK)

	if _, err := io.Copy(flushWriter{w}, audio); err != nil {
		logx.Warn().Err(err).Msg("Text-to-speech stream interrupted")
	}
}

func (h *handlers) voices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.speech.Voices(r.Context()))
}

func speechError(err error) (int, string) {
	var apiErr *speech.APIError
	switch {
	case errors.Is(err, speech.ErrNotConfigured):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &apiErr):
		logx.Warn().Int("status", apiErr.StatusCode).Str("message", apiErr.Message).Msg("ElevenLabs request failed")
		return apiErr.HTTPStatus(), apiErr.Message
	case errx.IsValidation(err):
		return errx.StatusOf(err), errx.MessageOf(err)
	}
	logx.Error().Str("error", errx.Redact(err.Error())).Msg("Text-to-speech request failed")
	return http.StatusInternalServerError, "Unexpected error from ElevenLabs."
}

type flushWriter struct {
	w http.ResponseWriter
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	if fl, ok := f.w.(http.Flusher); ok {
		fl.Flush()
	}
	return n, err
}
