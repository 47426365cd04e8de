// Package httpapi exposes the learning engine over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/attempt"
	"github.com/p-n-ai/pai-adaptive/internal/learning"
	"github.com/p-n-ai/pai-adaptive/internal/quiz"
)

const readyTimeout = 2 * time.Second

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// HealthChecker is a dependency probed by /readyz. database.DB and
// cache.Cache implement it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the HTTP layer settings.
type Config struct {
	// Checks are probed by /readyz, keyed by name.
	Checks map[string]HealthChecker
	// WeakThreshold is the default cut-off for weak topic listings.
	WeakThreshold float64
}

// Server routes HTTP requests to the learning engine.
type Server struct {
	engine *learning.Engine
	cfg    Config
}

// New creates a server over engine.
func New(engine *learning.Engine, cfg Config) *Server {
	return &Server{engine: engine, cfg: cfg}
}

// Routes returns the HTTP router.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("POST /api/students/{studentID}/quizzes", s.handleGenerateQuiz)
	mux.HandleFunc("POST /api/attempts/{attemptID}/start", s.handleStartAttempt)
	mux.HandleFunc("POST /api/attempts/{attemptID}/submit", s.handleSubmitAttempt)

	mux.HandleFunc("POST /api/students/{studentID}/knowledge", s.handleRecompute)
	mux.HandleFunc("GET /api/students/{studentID}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/students/{studentID}/weak-topics", s.handleWeakTopics)
	mux.HandleFunc("GET /api/students/{studentID}/progress", s.handleProgress)
	mux.HandleFunc("GET /api/students/{studentID}/guidance", s.handleGuidance)
	mux.HandleFunc("GET /api/students/{studentID}/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/students/{studentID}/report", s.handleReport)

	mux.HandleFunc("GET /api/pool/stats", s.handlePoolStats)
	mux.HandleFunc("POST /api/pool/questions", s.handleAuthorQuestions)

	mux.Handle("GET /ws/{studentID}", s.engine.Hub())
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, c := range s.cfg.Checks {
		if err := c.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, attempt.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, quiz.ErrNotAvailable):
		return http.StatusForbidden
	case errors.Is(err, attempt.ErrNotFound), errors.Is(err, quiz.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, learning.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, learning.ErrNoAuthor):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, false)
}

// decodeOptional accepts an empty body and leaves v untouched.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
