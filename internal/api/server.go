package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echolag-barista/server/internal/agent/graph"
	"github.com/echolag-barista/server/internal/agent/model"
	"github.com/echolag-barista/server/internal/core"
	"github.com/echolag-barista/server/internal/metrics"
	"github.com/echolag-barista/server/internal/speech"
)

// MaxBodyBytes caps every request body.
const MaxBodyBytes = 1 << 20

// SessionAnalyzer produces the post-session feedback report.
type SessionAnalyzer interface {
	AnalyzeOrFallback(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, error)
}

// Speech proxies text-to-speech so the provider key stays server side.
type Speech interface {
	Stream(ctx context.Context, req speech.SynthesisRequest) (io.ReadCloser, error)
	Voices(ctx context.Context) *speech.VoicesResponse
}

type Config struct {
	Environment        core.Environment `ignored:"true"`
	AllowedOrigins     []string         `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	RateLimitPerMinute int              `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
}

// Deps are the services behind the routes. All are required.
type Deps struct {
	Conversation graph.Runner
	Analyzer     SessionAnalyzer
	Speech       Speech
}

type handlers struct {
	env          core.Environment
	conversation graph.Runner
	analyzer     SessionAnalyzer
	speech       Speech
}

// NewRouter wires middleware and routes.
func NewRouter(cfg Config, deps Deps) http.Handler {
	h := &handlers{
		env:          cfg.Environment,
		conversation: deps.Conversation,
		analyzer:     deps.Analyzer,
		speech:       deps.Speech,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(recoverer(cfg.Environment))
	r.Use(metrics.Middleware())
	r.Use(corsHandler(cfg.AllowedOrigins))

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)

	r.Get("/", h.root)
	r.Get("/health", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			r.Use(rateLimit(cfg.RateLimitPerMinute, time.Minute))
		}
		r.Use(middleware.RequestSize(MaxBodyBytes))

		r.Post("/conversation", h.handleConversation)
		r.Get("/reset", h.reset)
		r.Post("/analyze-session", h.analyzeSession)

		r.Post("/elevenlabs/text-to-speech", h.textToSpeech)
		r.Get("/elevenlabs/voices", h.voices)
	})
	return r
}
