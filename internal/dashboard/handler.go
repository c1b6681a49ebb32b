// Package dashboard implements the read-only reporting HTTP API.
//
// Routes:
//
//	GET /health    → liveness probe
//	GET /postings  → all known postings
//	GET /bumps     → attempt history, filterable by posting/outcome/since/limit
//	GET /stats     → aggregate counters
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/SKUMP0/fastjob-bot/internal/model"
	"github.com/SKUMP0/fastjob-bot/internal/store"
)

// Handler holds shared dependencies.
type Handler struct {
	store   store.Store
	log     *zap.SugaredLogger
	version string
}

// NewHandler returns a configured Handler.
func NewHandler(st store.Store, log *zap.SugaredLogger, version string) *Handler {
	return &Handler{store: st, log: log, version: version}
}

// RegisterRoutes mounts all dashboard routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/postings", h.handlePostings)
	mux.HandleFunc("/bumps", h.handleBumps)
	mux.HandleFunc("/stats", h.handleStats)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{
		"status":  "ok",
		"service": "fastjob-bot",
		"version": h.version,
	})
}

func (h *Handler) handlePostings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	postings, err := h.store.ListPostings(r.Context())
	if err != nil {
		h.log.Errorw("listing postings failed", "err", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, postings)
}

func (h *Handler) handleBumps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	f := store.AttemptFilter{PostingID: r.URL.Query().Get("posting")}

	if s := r.URL.Query().Get("outcome"); s != "" {
		outcome, err := model.ParseOutcome(s)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Outcome = outcome
	}
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonError(w, fmt.Sprintf("since must be RFC3339: %v", err), http.StatusBadRequest)
			return
		}
		f.Since = since
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		f.Limit = limit
	}

	attempts, err := h.store.ListAttempts(r.Context(), f)
	if err != nil {
		h.log.Errorw("listing attempts failed", "err", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, attempts)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.log.Errorw("computing stats failed", "err", err)
		jsonError(w, "database error", http.StatusInternalServerError)
		return
	}
	jsonOK(w, stats)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
