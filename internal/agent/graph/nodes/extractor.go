package nodes

import (
	"context"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/echolag-barista/server/internal/agent/graph/conversations"
	"github.com/echolag-barista/server/internal/agent/graph/observers"
	"github.com/echolag-barista/server/internal/agent/graph/parsers"
	"github.com/echolag-barista/server/internal/agent/graph/prompts"
	"github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	"github.com/echolag-barista/server/internal/metrics"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// ExtractorConfig configures the order-state extractor.
type ExtractorConfig struct {
	ChatModel       einomodel.BaseChatModel
	ModelName       string
	MessagesManager *conversations.MessagesManager
	Timeout         time.Duration
}

// Extractor infers which order fields the conversation has now covered.
type Extractor struct {
	runnable compose.Runnable[map[string]any, *model.PartialOrderState]
	mm       *conversations.MessagesManager
	timeout  time.Duration
}

func NewExtractor(ctx context.Context, cfg ExtractorConfig) (*Extractor, error) {
	if cfg.MessagesManager == nil {
		return nil, fmt.Errorf("extractor: messages manager is nil")
	}
	g, err := NewModelGraph[*model.PartialOrderState](prompts.ExtractorTemplate(), cfg.ChatModel, ComponentExtractor, cfg.ModelName)
	if err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode(NodeParser, NewOrderParserNode(), compose.WithNodeName(ComponentExtractor+"_parser")); err != nil {
		return nil, fmt.Errorf("extractor: add parser node: %w", err)
	}
	if err := g.AddEdge(NodeChatModel, NodeParser); err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	if err := g.AddEdge(NodeParser, compose.END); err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	runnable, err := g.Compile(ctx, compose.WithGraphName(ComponentExtractor))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling extractor graph")
		return nil, fmt.Errorf("error compiling extractor graph: %w", err)
	}
	return &Extractor{runnable: runnable, mm: cfg.MessagesManager, timeout: cfg.Timeout}, nil
}

// NewOrderParserNode parses the extractor model's JSON answer.
func NewOrderParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (*model.PartialOrderState, error) {
		if resp == nil {
			return nil, fmt.Errorf("extractor returned no message")
		}
		return parsers.ParseOrderState(resp.Content)
	})
}

// Extract never fails: on any model or parse error the current state comes
// back unchanged. Fields already true stay true whatever the model claims.
func (e *Extractor) Extract(ctx context.Context, req model.ConversationRequest) model.OrderState {
	var current model.OrderState
	if req.OrderState != nil {
		current = *req.OrderState
	}

	vars := prompts.ExtractorVars(current, e.mm.BuildTranscript(req.ConversationHistory, req.Persona, req.UserMessage))

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	claim, err := e.runnable.Invoke(ctx, vars, compose.WithCallbacks(observers.NewAllCallbacks()))
	metrics.ObserveLLMCall(ComponentExtractor, err, time.Since(start))
	if err != nil {
		metrics.ObserveExtractorFailure()
		logx.Warn().
			Str("turn_id", model.TurnIDFrom(ctx)).
			Str("component", ComponentExtractor).
			Str("error", errx.Redact(err.Error())).
			Msg("Order state extraction failed; keeping current state")
		return current
	}
	if claim == nil {
		return current
	}
	return current.Merge(*claim)
}
