package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/ai-researcher/server/internal/agent/graph"
	"github.com/ai-researcher/server/internal/agent/graph/tools"
	"github.com/ai-researcher/server/internal/agent/model"
	"github.com/ai-researcher/server/internal/agent/repo"
	"github.com/ai-researcher/server/internal/core"
	"github.com/ai-researcher/server/internal/httpapi"
	"github.com/ai-researcher/server/internal/render"
	"github.com/ai-researcher/server/pkg/arxiv"
	"github.com/ai-researcher/server/pkg/docreader"
	logx "github.com/ai-researcher/server/pkg/logger"
	pkgredis "github.com/ai-researcher/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the server,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string           `envconfig:"HTTP_ADDR" default:":8000"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Reasoning    model.ReasoningModelConfig
	Loop         model.LoopConfig
	Conversation model.ConversationConfig

	// Tool adapters
	Render render.Config
	Arxiv  arxiv.Config
	Reader docreader.Config
}

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load(".env")

	// Load structured config from env
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment})
	if envErr != nil {
		logx.Warn().Err(envErr).Msg("Could not load .env file")
	}

	conversationRepo, locker, closeStore := newStore(ctx, cfg)
	defer closeStore()

	pipeline, err := render.NewPipeline(cfg.Render)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create render pipeline")
	}

	toolset, err := tools.NewToolset(ctx, tools.Deps{
		Searcher: arxiv.New(cfg.Arxiv),
		Reader:   docreader.New(cfg.Reader),
		Renderer: pipeline,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create toolset")
	}

	runner, err := graph.BuildResearchGraph(ctx, graph.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		Reasoning:        cfg.Reasoning,
		Loop:             cfg.Loop,
		Toolset:          toolset,
		ConversationRepo: conversationRepo,
		Locker:           locker,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build graph")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(runner, pipeline),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().
			Str("addr", cfg.HTTPAddr).
			Str("environment", cfg.Environment.String()).
			Str("model", cfg.Reasoning.Model).
			Str("output_dir", pipeline.OutputDir()).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// newStore picks Redis when REDIS_URL is set and in-process storage otherwise.
func newStore(ctx context.Context, cfg AppConfig) (model.ConversationRepository, model.TurnLocker, func()) {
	if !cfg.Redis.Enabled() {
		logx.Info().Msg("REDIS_URL not set; conversations are kept in memory")
		return repo.NewMemoryConversationRepository(), repo.NewMemoryTurnLocker(), func() {}
	}

	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
	}
	logx.Info().Msg("Connected to Redis successfully")

	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logx.Error().Err(err).Msg("Error closing Redis client")
		}
	}
	return repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL),
		repo.NewRedisTurnLocker(rdb, cfg.Conversation.LockTTL),
		closeFn
}
