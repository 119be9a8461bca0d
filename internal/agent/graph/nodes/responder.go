package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/echolag-barista/server/internal/agent/graph/conversations"
	"github.com/echolag-barista/server/internal/agent/graph/observers"
	"github.com/echolag-barista/server/internal/agent/graph/prompts"
	"github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	"github.com/echolag-barista/server/internal/metrics"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// ErrEmptyCompletion is returned when the model answered with no text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// ResponderConfig configures the dialogue responder.
type ResponderConfig struct {
	ChatModel       einomodel.BaseChatModel
	ModelName       string
	MessagesManager *conversations.MessagesManager
	Persona         model.PersonaConfig
	Timeout         time.Duration
}

// Responder produces the next in-character line.
type Responder struct {
	runnable compose.Runnable[map[string]any, *schema.Message]
	mm       *conversations.MessagesManager
	persona  model.PersonaConfig
	timeout  time.Duration
}

func NewResponder(ctx context.Context, cfg ResponderConfig) (*Responder, error) {
	if cfg.MessagesManager == nil {
		return nil, fmt.Errorf("responder: messages manager is nil")
	}
	g, err := NewModelGraph[*schema.Message](prompts.DialogueTemplate(), cfg.ChatModel, ComponentResponder, cfg.ModelName)
	if err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeChatModel, compose.END); err != nil {
		return nil, fmt.Errorf("responder: %w", err)
	}
	runnable, err := g.Compile(ctx, compose.WithGraphName(ComponentResponder))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling responder graph")
		return nil, fmt.Errorf("error compiling responder graph: %w", err)
	}
	return &Responder{
		runnable: runnable,
		mm:       cfg.MessagesManager,
		persona:  cfg.Persona,
		timeout:  cfg.Timeout,
	}, nil
}

// Respond returns the reply text. Every error is an *errx.ProviderError with
// key material redacted.
func (r *Responder) Respond(ctx context.Context, req model.ConversationRequest) (string, error) {
	var state model.OrderState
	if req.OrderState != nil {
		state = *req.OrderState
	}
	vars := prompts.DialogueVars(
		prompts.PersonaPrompt(req.Persona, r.persona),
		req.Persona,
		state,
		r.mm.BuildDialogueContext(req.ConversationHistory, req.Persona),
		req.UserMessage,
	)

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := r.runnable.Invoke(ctx, vars, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err == nil && messageText(out) == "" {
		err = ErrEmptyCompletion
	}
	metrics.ObserveLLMCall(ComponentResponder, err, time.Since(start))

	if err != nil {
		perr := errx.WrapProvider(err)
		logx.Error().
			Str("turn_id", model.TurnIDFrom(ctx)).
			Str("component", ComponentResponder).
			Str("error", perr.Error()).
			Msg("Dialogue generation failed")
		return "", perr
	}
	return messageText(out), nil
}
