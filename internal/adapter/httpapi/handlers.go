// Package httpapi exposes the session operations over HTTP for the browser
// chat demo: start sessions, add messages, trigger processing, and read
// events, with live updates delivered by the websocket hub.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zcox/messagedb-agent/internal/engine"
	"github.com/zcox/messagedb-agent/internal/service"
)

// Handlers holds the dependencies of the HTTP surface.
type Handlers struct {
	Engine   *engine.Engine
	Sessions *service.SessionService
}

type startSessionRequest struct {
	Message string `json:"message"`
}

type addMessageRequest struct {
	Message string `json:"message"`
}

// StartSession creates a new session from an initial message and kicks off
// processing in the background; the stream carries the results.
func (h *Handlers) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	threadID, err := h.Engine.StartSession(r.Context(), req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go h.processAsync(threadID)

	writeJSON(w, http.StatusCreated, map[string]string{"thread_id": threadID})
}

// AddMessage appends a user message to an existing session and resumes
// processing.
func (h *Handlers) AddMessage(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	var req addMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := h.Engine.AddUserMessage(r.Context(), threadID, req.Message); err != nil {
		writeEngineError(w, err)
		return
	}

	go h.processAsync(threadID)

	writeJSON(w, http.StatusAccepted, map[string]string{"thread_id": threadID})
}

// Process runs a processing pass synchronously and returns the resulting
// session state.
func (h *Handlers) Process(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	state, err := h.Engine.ProcessThread(r.Context(), threadID)
	if err != nil && !errors.Is(err, engine.ErrMaxIterations) {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Events returns the full event stream of a session.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	events, err := h.Sessions.Events(r.Context(), threadID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"thread_id": threadID, "events": events})
}

// State returns the projected session state of a session.
func (h *Handlers) State(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	state, err := h.Sessions.State(r.Context(), threadID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// List returns recent sessions, most recently active first.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 10)

	states, err := h.Sessions.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": states})
}

// Health reports store liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.HealthCheck(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// processAsync runs a pass detached from the request lifecycle; results
// land in the stream and reach clients through the subscriber.
func (h *Handlers) processAsync(threadID string) {
	if _, err := h.Engine.ProcessThread(context.Background(), threadID); err != nil && !errors.Is(err, engine.ErrMaxIterations) {
		slog.Error("background processing failed", "thread_id", threadID, "error", err)
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownThread):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrSessionClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
