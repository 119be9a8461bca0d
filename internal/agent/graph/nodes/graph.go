package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/echolag-barista/server/internal/agent/model"
	"github.com/echolag-barista/server/internal/metrics"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// Node keys shared by every model chain.
const (
	NodePrompt    = "prompt"
	NodeChatModel = "chat_model"
	NodeParser    = "parser"
)

// Components label logs, metrics and graph names.
const (
	ComponentResponder = "responder"
	ComponentExtractor = "extractor"
	ComponentAnalyzer  = "analyzer"
)

// NewModelGraph wires START -> prompt -> chat model. The caller adds whatever
// follows NodeChatModel and compiles.
func NewModelGraph[O any](tpl prompt.ChatTemplate, cm einomodel.BaseChatModel, component, modelName string) (*compose.Graph[map[string]any, O], error) {
	if tpl == nil || cm == nil {
		return nil, fmt.Errorf("%s: prompt template and chat model are required", component)
	}

	g := compose.NewGraph[map[string]any, O](
		compose.WithGenLocalState(func(ctx context.Context) *model.CallState {
			return &model.CallState{
				TurnID:    model.TurnIDFrom(ctx),
				Component: component,
				ModelName: modelName,
			}
		}),
	)

	if err := g.AddChatTemplateNode(NodePrompt, tpl, compose.WithNodeName(component+"_prompt")); err != nil {
		return nil, fmt.Errorf("%s: add prompt node: %w", component, err)
	}
	if err := g.AddChatModelNode(NodeChatModel, cm,
		compose.WithNodeName(component+"_chat_model"),
		compose.WithStatePostHandler(NewUsagePostHandler()),
	); err != nil {
		return nil, fmt.Errorf("%s: add chat model node: %w", component, err)
	}
	if err := g.AddEdge(compose.START, NodePrompt); err != nil {
		return nil, fmt.Errorf("%s: %w", component, err)
	}
	if err := g.AddEdge(NodePrompt, NodeChatModel); err != nil {
		return nil, fmt.Errorf("%s: %w", component, err)
	}
	return g, nil
}

// NewUsagePostHandler computes and logs token usage and cost for a model call.
func NewUsagePostHandler() func(context.Context, *schema.Message, *model.CallState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *model.CallState) (*schema.Message, error) {
		if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
			return out, nil
		}
		usage := out.ResponseMeta.Usage
		pricing := model.ResolvePricing(state.ModelName)
		inC, outC, totalC := model.ComputeCost(usage, pricing)

		state.PromptTokens += usage.PromptTokens
		state.CompletionTokens += usage.CompletionTokens
		state.TotalCostUSD += totalC

		metrics.ObserveLLMUsage(state.ModelName, usage.PromptTokens, usage.CompletionTokens, totalC)
		logx.Debug().
			Str("turn_id", state.TurnID).
			Str("component", state.Component).
			Str("model", state.ModelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")
		return out, nil
	}
}

// withTimeout bounds one model call; a zero timeout leaves ctx untouched.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func messageText(msg *schema.Message) string {
	if msg == nil {
		return ""
	}
	return strings.TrimSpace(msg.Content)
}
