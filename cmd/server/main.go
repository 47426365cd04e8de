package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-adaptive/internal/ai"
	"github.com/p-n-ai/pai-adaptive/internal/attempt"
	"github.com/p-n-ai/pai-adaptive/internal/curriculum"
	"github.com/p-n-ai/pai-adaptive/internal/events"
	"github.com/p-n-ai/pai-adaptive/internal/httpapi"
	"github.com/p-n-ai/pai-adaptive/internal/learning"
	"github.com/p-n-ai/pai-adaptive/internal/mastery"
	"github.com/p-n-ai/pai-adaptive/internal/notify"
	"github.com/p-n-ai/pai-adaptive/internal/platform/cache"
	"github.com/p-n-ai/pai-adaptive/internal/platform/config"
	"github.com/p-n-ai/pai-adaptive/internal/platform/database"
	"github.com/p-n-ai/pai-adaptive/internal/pool"
	"github.com/p-n-ai/pai-adaptive/internal/quiz"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the log settings. Unknown levels
// fall back to info.
func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	engineCfg := learning.EngineConfig{
		DefaultQuestions: cfg.Quiz.DefaultQuestions,
		DurationMinutes:  cfg.Quiz.DurationMinutes,
		AvailabilityDays: cfg.Quiz.AvailabilityDays,
	}
	checks := make(map[string]httpapi.HealthChecker)

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		if err := usePostgres(&engineCfg, db); err != nil {
			return err
		}
		checks["database"] = db
		slog.Info("database connected")
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cache.Options{
			URL:      cfg.Cache.URL,
			LockTTL:  time.Duration(cfg.Cache.LockTTLSeconds) * time.Second,
			LockWait: time.Duration(cfg.Cache.LockWaitSeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		defer c.Close()

		engineCfg.Locker = c.Locker()
		checks["cache"] = c
		slog.Info("cache connected")
	}

	engine, err := buildEngine(cfg, engineCfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     newHandler(engine, checks, cfg),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return nil
}

func newHandler(engine *learning.Engine, checks map[string]httpapi.HealthChecker, cfg *config.Config) http.Handler {
	return httpapi.New(engine, httpapi.Config{
		Checks:        checks,
		WeakThreshold: cfg.Knowledge.WeakThreshold,
	}).Routes()
}

func usePostgres(engineCfg *learning.EngineConfig, db *database.DB) error {
	quizzes, err := quiz.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	attempts, err := attempt.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}
	records, err := mastery.NewPostgresStore(db.Pool)
	if err != nil {
		return err
	}

	engineCfg.Quizzes = quizzes
	engineCfg.Attempts = attempts
	engineCfg.Mastery = records
	engineCfg.Events = events.NewPostgresEventLogger(db.Pool)
	return nil
}

// buildEngine wires the file-backed parts of the engine: question pool,
// prerequisite graph, overall classifier, question author and websocket hub.
func buildEngine(cfg *config.Config, engineCfg learning.EngineConfig) (*learning.Engine, error) {
	engineCfg.Pool = pool.NewFileSource(cfg.Pool.Path, pool.RowOptions{OneBased: cfg.Pool.OneBasedAnswers})

	loader, err := curriculum.NewLoader(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}
	graph, err := loader.Graph()
	if err != nil {
		return nil, err
	}
	engineCfg.Graph = graph

	classifier, fromArtifact, err := mastery.LoadClassifier(cfg.Classifier.ModelPath)
	if err != nil {
		return nil, err
	}
	engineCfg.OverallClassifier = classifier
	slog.Info("overall classifier selected", "artifact", fromArtifact, "path", cfg.Classifier.ModelPath)

	if cfg.HasAIProvider() {
		router := ai.NewRouter()
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey,
			ai.WithBaseURL(cfg.AI.OpenAI.BaseURL),
			ai.WithDefaultModel(cfg.AI.OpenAI.Model),
		))
		engineCfg.Author = pool.NewAuthor(router)
		slog.Info("question authoring enabled", "model", cfg.AI.OpenAI.Model)
	}

	engineCfg.Hub = notify.NewHub(notify.WithOriginPatterns(cfg.Server.AllowedOrigins...))
	return learning.NewEngine(engineCfg), nil
}
