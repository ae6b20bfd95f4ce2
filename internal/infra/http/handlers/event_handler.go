package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-engagement/internal/entity"
	"github.com/xavierca1/ligue-engagement/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-engagement/internal/usecase"
)

type EventHandler struct {
	service     *usecase.EngagementService
	rateLimiter *RateLimiter
}

func NewEventHandler(service *usecase.EngagementService) *EventHandler {
	return &EventHandler{
		service:     service,
		rateLimiter: NewRateLimiter(60, time.Minute), // 60 eventos/min por IP
	}
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message})
}

// statusForError mapeia a taxonomia de erros do core para status HTTP.
func statusForError(err error) int {
	switch {
	case errors.Is(err, entity.ErrLeadNotFound), errors.Is(err, entity.ErrEventNotFound):
		return http.StatusNotFound
	case usecase.IsInvalidTransition(err):
		return http.StatusConflict
	case usecase.IsDomainError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// HandleRecordEvent: POST /leads/{leadID}/events
func (h *EventHandler) HandleRecordEvent(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)
	if !h.rateLimiter.Allow(clientIP) {
		writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		return
	}

	leadID := chi.URLParam(r, "leadID")

	var input usecase.RecordEventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "JSON inválido: "+err.Error())
		return
	}

	output, err := h.service.RecordEngagementEvent(r.Context(), leadID, input)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	middleware.RecordEngagementEvent(input.EventType, input.Channel)
	if output.ScoreUpdate != nil && output.ScoreUpdate.Changed {
		middleware.RecordScoreRecalculation()
	}

	writeJSON(w, http.StatusCreated, output)
}

// HandleGetScore: GET /leads/{leadID}/score
func (h *EventHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")

	result, err := h.service.GetCurrentScore(r.Context(), leadID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}

	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := time.Now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}

	v.count++
	return v.count <= rl.limit
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
