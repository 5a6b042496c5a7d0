package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/go/internal/match"
	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/queue"
)

type apiHandler struct {
	services *Services
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *apiHandler) enqueue(w http.ResponseWriter, r *http.Request) {
	var req queue.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TeamID == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, "team_id and date are required")
		return
	}

	result, err := h.services.Queue.Enqueue(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if result.Matched {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *apiHandler) queueStatus(w http.ResponseWriter, r *http.Request) {
	teamID := r.PathValue("teamID")

	status, err := h.services.Queue.Status(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *apiHandler) cancelQueue(w http.ResponseWriter, r *http.Request) {
	teamID := r.PathValue("teamID")

	if err := h.services.Queue.Cancel(r.Context(), teamID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *apiHandler) getMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := parseMatchID(w, r)
	if !ok {
		return
	}

	m, err := h.services.Matches.Get(r.Context(), matchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *apiHandler) confirmMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := parseMatchID(w, r)
	if !ok {
		return
	}

	m, err := h.services.Matches.Confirm(r.Context(), matchID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *apiHandler) cancelMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := parseMatchID(w, r)
	if !ok {
		return
	}

	var req struct {
		TeamID string `json:"team_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamID == "" {
		writeError(w, http.StatusBadRequest, "team_id is required")
		return
	}

	m, err := h.services.Matches.Cancel(r.Context(), matchID, req.TeamID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *apiHandler) triggerReminderTick(w http.ResponseWriter, r *http.Request) {
	if err := h.services.Scheduler.TriggerTick(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func parseMatchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	matchID, err := uuid.Parse(r.PathValue("matchID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid match id")
		return uuid.Nil, false
	}
	return matchID, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, queue.ErrAlreadyQueued),
		errors.Is(err, queue.ErrAlreadyMatched),
		errors.Is(err, match.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, queue.ErrSlotUnavailable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, match.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, match.ErrNotFound), errors.Is(err, matchstore.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, matchstore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("internal error handling request")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
