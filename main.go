package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/echolag-barista/server/internal/agent/analysis"
	"github.com/echolag-barista/server/internal/agent/graph"
	"github.com/echolag-barista/server/internal/agent/model"
	"github.com/echolag-barista/server/internal/api"
	"github.com/echolag-barista/server/internal/core"
	"github.com/echolag-barista/server/internal/events"
	"github.com/echolag-barista/server/internal/repo"
	"github.com/echolag-barista/server/internal/speech"
	logx "github.com/echolag-barista/server/pkg/logger"
	pkgredis "github.com/echolag-barista/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the server, sourced from
// environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        int    `envconfig:"PORT" default:"3001"`
	LogLevel    string `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis  pkgredis.Config
	Events events.Config
	HTTP   api.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Dialogue     model.DialogueModelConfig
	Extractor    model.ExtractorModelConfig
	Analysis     model.AnalysisModelConfig
	Conversation model.ConversationConfig
	Persona      model.PersonaConfig

	Speech speech.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dotenvErr := godotenv.Load(".env")

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	env := core.ParseEnvironment(envCfg.Environment)
	logx.Init(logx.LoggerOpts{Environment: env, Level: envCfg.LogLevel})
	if dotenvErr != nil {
		logx.Warn().Err(dotenvErr).Msg("Could not load .env file")
	}

	if err := run(ctx, env, envCfg); err != nil {
		logx.Fatal().Err(err).Msg("Server stopped with error")
	}
}

func run(ctx context.Context, env core.Environment, envCfg AppConfig) error {
	rdb, err := envCfg.Redis.New(ctx)
	if err != nil {
		return fmt.Errorf("initialise Redis client: %w", err)
	}
	var cache model.AnalysisCache
	if rdb != nil {
		defer rdb.Close()
		cache = repo.NewRedisAnalysisCache(rdb, envCfg.Analysis.CacheTTL)
		logx.Info().Msg("Connected to Redis; analysis cache enabled")
	}

	var publisher *events.Publisher
	if envCfg.Events.Enabled() {
		publisher, err = events.NewPublisher(envCfg.Events)
		if err != nil {
			return err
		}
		defer publisher.Close()
		logx.Info().Str("url", envCfg.Events.URL).Msg("Publishing events to NATS")
	}

	graphCfg := graph.Config{
		APIKey:       envCfg.APIKey,
		BaseURL:      envCfg.BaseURL,
		Dialogue:     envCfg.Dialogue,
		Extractor:    envCfg.Extractor,
		Analysis:     envCfg.Analysis,
		Conversation: envCfg.Conversation,
		Persona:      envCfg.Persona,
	}
	analysisCfg := analysis.Config{
		Timeout: envCfg.Conversation.LLMTimeout,
		Cache:   cache,
	}
	if publisher != nil {
		graphCfg.Publisher = publisher
		analysisCfg.Publisher = publisher
	}

	runner, cms, err := graph.BuildConversationGraph(ctx, graphCfg)
	if err != nil {
		return fmt.Errorf("build conversation graph: %w", err)
	}
	analysisCfg.ChatModel = cms.Analysis
	analysisCfg.ModelName = cms.AnalysisModelName

	analyzer, err := analysis.New(ctx, analysisCfg)
	if err != nil {
		return fmt.Errorf("build analyzer: %w", err)
	}

	tts := speech.NewClient(envCfg.Speech)
	if !tts.Configured() {
		logx.Warn().Msg("ELEVENLABS_API_KEY not set; text-to-speech disabled and voices served from placeholders")
	}

	httpCfg := envCfg.HTTP
	httpCfg.Environment = env
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", envCfg.Port),
		Handler: api.NewRouter(httpCfg, api.Deps{
			Conversation: runner,
			Analyzer:     analyzer,
			Speech:       tts,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().
			Str("addr", srv.Addr).
			Str("environment", env.String()).
			Str("dialogue_model", envCfg.Dialogue.Model).
			Str("extractor_model", envCfg.Extractor.Model).
			Msg("EchoLag Barista API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
