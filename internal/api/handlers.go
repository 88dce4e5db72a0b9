// Package api serves a read-only view of the watch loop over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultMaxFailures is how many consecutive failed cycles /health
// tolerates before reporting unavailable.
const DefaultMaxFailures = 5

type Handlers struct {
	board       *Board
	maxFailures int
	logger      *slog.Logger
}

func NewHandlers(board *Board, maxFailures int, logger *slog.Logger) *Handlers {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		board:       board,
		maxFailures: maxFailures,
		logger:      logger.With("component", "api"),
	}
}

// Router wires the status routes with the usual middleware stack.
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.GetHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/slots", h.GetSlots)
		r.Get("/alerts", h.GetAlerts)
	})

	return r
}

// GetHealth reports unavailable once too many cycles in a row failed.
func (h *Handlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	st := h.board.Status()

	health := map[string]interface{}{
		"status":               "ok",
		"cycles":               st.Cycles,
		"consecutive_failures": st.ConsecutiveFailures,
		"uptime_seconds":       int64(h.board.Uptime().Seconds()),
	}

	status := http.StatusOK
	if st.ConsecutiveFailures > 0 {
		health["status"] = "warning"
	}
	if st.ConsecutiveFailures >= h.maxFailures {
		health["status"] = "error"
		if st.LastCycle != nil {
			health["message"] = st.LastCycle.Error
		}
		status = http.StatusServiceUnavailable
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.board.Status())
}

// GetSlots lists the last read slots. ?relevant=true keeps only today and
// tomorrow.
func (h *Handlers) GetSlots(w http.ResponseWriter, r *http.Request) {
	all := h.board.Slots()

	switch r.URL.Query().Get("relevant") {
	case "", "false":
	case "true":
		filtered := make([]Slot, 0, len(all))
		for _, s := range all {
			if s.Relevant {
				filtered = append(filtered, s)
			}
		}
		all = filtered
	default:
		h.respondError(w, http.StatusBadRequest, "relevant must be true or false")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"slots": all,
		"total": len(all),
	})
}

func (h *Handlers) GetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.board.Alerts()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
