package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/squadlab/posrating/internal/api"
	"github.com/squadlab/posrating/internal/service"
	"github.com/squadlab/posrating/internal/storage"
)

// maxBodyBytes bounds POST /ratings bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Upstream string `json:"upstream"`
	Tables   string `json:"tablesVersion"`
}

// GET /healthz
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Upstream: "ok", Tables: h.svc.Tables().Version}
	if err := h.svc.Healthcheck(r.Context()); err != nil {
		resp.Upstream = err.Error()
	}
	respondJSON(w, http.StatusOK, resp)
}

// GET /tables
func (h *handlers) tables(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Tables().Document())
}

// POST /ratings
func (h *handlers) rateAttributes(w http.ResponseWriter, r *http.Request) {
	var req service.AttributesRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "bad json: " + err.Error(), Reason: "invalid_request"})
		return
	}

	report, err := h.svc.RateAttributes(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GET /players/{playerID}/ratings[?refresh=true]
func (h *handlers) ratePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		h.svc.InvalidatePlayer(id)
	}

	report, err := h.svc.RatePlayer(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GET /players/{playerID}/ratings/latest
func (h *handlers) latest(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	report, err := h.svc.LatestReport(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GET /players/{playerID}/ratings/history[?limit=n]
func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid limit %q", raw), Reason: "invalid_request"})
			return
		}
		limit = n
	}

	reports, err := h.svc.History(r.Context(), id, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, reports)
}

func playerID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "playerID"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid player id %q", raw), Reason: "invalid_request"})
		return 0, false
	}
	return uint(id), true
}

// statusFor maps service errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case service.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrPlayerNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrUpstream), errors.Is(err, service.ErrNoPlayerSource):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrNoStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	respondJSON(w, status, errorResponse{Error: err.Error(), Reason: service.Reason(err)})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
