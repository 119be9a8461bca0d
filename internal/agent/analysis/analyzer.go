package analysis

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/echolag-barista/server/internal/agent/graph/nodes"
	"github.com/echolag-barista/server/internal/agent/graph/observers"
	"github.com/echolag-barista/server/internal/agent/graph/parsers"
	"github.com/echolag-barista/server/internal/agent/graph/prompts"
	"github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	"github.com/echolag-barista/server/internal/metrics"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// Report sources, used as metric labels and in AnalysisEvent.
const (
	SourceModel    = "model"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Publisher receives finished analyses. Publishing is best effort.
type Publisher interface {
	PublishAnalysis(ctx context.Context, evt AnalysisEvent)
}

// AnalysisEvent summarizes one analysis for downstream consumers. The
// transcript itself is not included.
type AnalysisEvent struct {
	AnalysisID     string    `json:"analysisId"`
	Source         string    `json:"source"`
	AverageScore   int       `json:"averageScore"`
	Fallback       bool      `json:"fallback"`
	Duration       float64   `json:"duration"`
	WordCount      float64   `json:"wordCount"`
	WordsPerMinute float64   `json:"wordsPerMinute"`
	AnalyzedAt     time.Time `json:"analyzedAt"`
}

type Config struct {
	ChatModel einomodel.BaseChatModel
	ModelName string
	Timeout   time.Duration
	// Cache and Publisher are optional.
	Cache     model.AnalysisCache
	Publisher Publisher
}

// Analyzer turns a finished session transcript into a feedback report.
type Analyzer struct {
	runnable  compose.Runnable[map[string]any, *model.AnalysisResponse]
	timeout   time.Duration
	cache     model.AnalysisCache
	publisher Publisher
}

func New(ctx context.Context, cfg Config) (*Analyzer, error) {
	g, err := nodes.NewModelGraph[*model.AnalysisResponse](prompts.AnalysisTemplate(), cfg.ChatModel, nodes.ComponentAnalyzer, cfg.ModelName)
	if err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(nodes.NodeParser, newAnalysisParserNode(), compose.WithNodeName(nodes.ComponentAnalyzer+"_parser")); err != nil {
		return nil, fmt.Errorf("analyzer: add parser node: %w", err)
	}
	if err := g.AddEdge(nodes.NodeChatModel, nodes.NodeParser); err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}
	if err := g.AddEdge(nodes.NodeParser, compose.END); err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}
	runnable, err := g.Compile(ctx, compose.WithGraphName(nodes.ComponentAnalyzer))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling analyzer graph")
		return nil, fmt.Errorf("error compiling analyzer graph: %w", err)
	}
	return &Analyzer{
		runnable:  runnable,
		timeout:   cfg.Timeout,
		cache:     cfg.Cache,
		publisher: cfg.Publisher,
	}, nil
}

func newAnalysisParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (*model.AnalysisResponse, error) {
		if resp == nil {
			return nil, fmt.Errorf("analyzer returned no message")
		}
		return parsers.ParseAnalysis(resp.Content)
	})
}

// Analyze validates req and asks the model for a report. Model and parse
// errors are returned to the caller.
func (a *Analyzer) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	resp, _, err := a.analyze(ctx, req)
	return resp, err
}

// AnalyzeOrFallback is Analyze with the canned report substituted for any
// model or parse failure. Only validation errors are returned.
func (a *Analyzer) AnalyzeOrFallback(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, source, err := a.analyze(ctx, req)
	if err != nil {
		logx.Warn().
			Str("turn_id", model.TurnIDFrom(ctx)).
			Str("component", nodes.ComponentAnalyzer).
			Str("error", errx.Redact(err.Error())).
			Msg("Session analysis failed; serving fallback report")
		resp, source = model.FallbackAnalysis(), SourceFallback
	}
	metrics.ObserveAnalysis(source)

	if a.publisher != nil {
		a.publisher.PublishAnalysis(ctx, AnalysisEvent{
			AnalysisID:     model.TurnIDFrom(ctx),
			Source:         source,
			AverageScore:   resp.AverageScore,
			Fallback:       resp.Fallback,
			Duration:       req.Duration.Value(),
			WordCount:      req.WordCount.Value(),
			WordsPerMinute: req.WordsPerMinute.Value(),
			AnalyzedAt:     time.Now().UTC(),
		})
	}
	return resp, nil
}

func (a *Analyzer) analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResponse, string, error) {
	key := model.AnalysisCacheKey(req)
	if a.cache != nil {
		cached, err := a.cache.Get(ctx, key)
		if err != nil {
			logx.Warn().Err(err).Msg("analysis cache lookup failed")
		} else if cached != nil {
			return cached, SourceCache, nil
		}
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if a.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
	}
	defer cancel()

	start := time.Now()
	resp, err := a.runnable.Invoke(callCtx, prompts.AnalysisVars(req), compose.WithCallbacks(observers.NewAllCallbacks()))
	metrics.ObserveLLMCall(nodes.ComponentAnalyzer, err, time.Since(start))
	if err != nil {
		return nil, "", errx.WrapProvider(err)
	}
	if resp == nil {
		return nil, "", fmt.Errorf("analyzer produced no report")
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, resp); err != nil {
			logx.Warn().Err(err).Msg("analysis cache store failed")
		}
	}
	return resp, SourceModel, nil
}
