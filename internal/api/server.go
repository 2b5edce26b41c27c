package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kalambet/psychtrend/internal/pipeline"
	"github.com/kalambet/psychtrend/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds what the HTTP API needs.
type Deps struct {
	Service        *pipeline.Service
	Token          string
	Backend        string   // inference backend name for /llm/health
	AllowedOrigins []string // browser origins for CORS and websockets; empty allows all
}

// NewHandler returns the psychtrend HTTP API. /health is open; every other
// route requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/session", handleStartSession(deps))
		r.Get("/session/{id}", handleGetSession(deps))
		r.Delete("/session/{id}", handleDeleteSession(deps))
		r.Post("/chat", handleChat(deps))
		r.Get("/analysis/{id}", handleAnalysis(deps))
		r.Get("/report/{id}", handleReport(deps))
		r.Get("/report-enhanced/{id}", handleEnhancedReport(deps))
		r.Post("/reset", handleReset(deps))
		r.Get("/llm/health", handleLLMHealth(deps))
		r.Get("/ws/chat/{id}", handleChatSocket(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func handleStartSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started, err := deps.Service.StartSession(r.Context())
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, started)
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := deps.Service.Session(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func handleDeleteSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
	}
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.SessionID) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "session_id is required")
			return
		}

		reply, err := deps.Service.Chat(r.Context(), req.SessionID, req.Message)
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reply)
	}
}

func handleAnalysis(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := deps.Service.Analysis(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func handleReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := deps.Service.Report(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func handleEnhancedReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := deps.Service.EnhancedReport(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleReset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Service.Reset(r.Context())
		if err != nil {
			serviceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":          "All data has been reset",
			"sessions_deleted": n,
		})
	}
}

// LLMHealth is the body of GET /llm/health.
type LLMHealth struct {
	Status    string `json:"status"`
	Backend   string `json:"backend,omitempty"`
	Model     string `json:"model,omitempty"`
	Available bool   `json:"model_available"`
}

func handleLLMHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		available, model := deps.Service.LLMStatus(r.Context())
		status := "unavailable"
		if available {
			status = "healthy"
		}
		writeJSON(w, http.StatusOK, LLMHealth{Status: status, Backend: deps.Backend, Model: model, Available: available})
	}
}

// serviceError maps pipeline errors to HTTP responses.
func serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found_error", "Session not found")
	case errors.Is(err, pipeline.ErrInsufficientData):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "Need at least 3 responses for report generation")
	default:
		slog.Error("request failed", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]apiError{
		"error": {Message: fmt.Sprintf(format, args...), Type: errType},
	})
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
