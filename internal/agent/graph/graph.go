package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/echolag-barista/server/internal/agent/graph/conversations"
	"github.com/echolag-barista/server/internal/agent/graph/nodes"
	"github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	"github.com/echolag-barista/server/internal/metrics"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// Apology lines returned in place of a reply when the responder fails.
const (
	ConfigApology    = "I apologize, but our ordering system is currently offline. Please try again in a few minutes."
	TransientApology = "I apologize, but I'm having trouble with our system right now. Could you please repeat your order?"
)

// Runner executes one conversation turn.
type Runner interface {
	Invoke(ctx context.Context, req model.ConversationRequest) (*model.ConversationResponse, error)
}

// TurnPublisher receives completed turns. Publishing is best effort.
type TurnPublisher interface {
	PublishTurn(ctx context.Context, turn TurnEvent)
}

// TurnEvent describes a finished turn for downstream consumers.
type TurnEvent struct {
	TurnID      string           `json:"turnId"`
	Persona     model.Persona    `json:"persona"`
	Outcome     string           `json:"outcome"`
	OrderState  model.OrderState `json:"orderState"`
	Complete    bool             `json:"complete"`
	DurationMS  int64            `json:"durationMs"`
	CompletedAt time.Time        `json:"completedAt"`
}

// Turn outcomes, used as metric labels and in TurnEvent.
const (
	OutcomeOK             = "ok"
	OutcomeConfigError    = "config_error"
	OutcomeTransientError = "transient_error"
	OutcomeInvalid        = "invalid"
)

// Config holds everything needed to build the runner end to end, including
// the Gemini chat models.
type Config struct {
	APIKey       string
	BaseURL      string
	Dialogue     model.DialogueModelConfig
	Extractor    model.ExtractorModelConfig
	Analysis     model.AnalysisModelConfig
	Conversation model.ConversationConfig
	Persona      model.PersonaConfig
	Publisher    TurnPublisher
}

// GraphConfig builds the runner from already constructed chat models.
type GraphConfig struct {
	ChatModels   *nodes.ChatModels
	Conversation model.ConversationConfig
	Persona      model.PersonaConfig
	Publisher    TurnPublisher
}

type responder interface {
	Respond(ctx context.Context, req model.ConversationRequest) (string, error)
}

type extractor interface {
	Extract(ctx context.Context, req model.ConversationRequest) model.OrderState
}

type turnRunner struct {
	responder responder
	extractor extractor
	publisher TurnPublisher
}

var _ Runner = (*turnRunner)(nil)

// BuildConversationGraph creates the chat models and returns a Runner along
// with the models so the analyzer can share the client.
func BuildConversationGraph(ctx context.Context, cfg Config) (Runner, *nodes.ChatModels, error) {
	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Dialogue:  &cfg.Dialogue,
		Extractor: &cfg.Extractor,
		Analysis:  &cfg.Analysis,
	})
	if err != nil {
		return nil, nil, err
	}

	runner, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:   cms,
		Conversation: cfg.Conversation,
		Persona:      cfg.Persona,
		Publisher:    cfg.Publisher,
	})
	if err != nil {
		return nil, nil, err
	}

	logx.Debug().Msg("Conversation graph built successfully")
	return runner, cms, nil
}

// BuildGraph compiles the responder and extractor chains.
func BuildGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Dialogue == nil || config.ChatModels.Extractor == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}

	mm := conversations.NewMessagesManager(config.Conversation)

	resp, err := nodes.NewResponder(ctx, nodes.ResponderConfig{
		ChatModel:       config.ChatModels.Dialogue,
		ModelName:       config.ChatModels.DialogueModelName,
		MessagesManager: mm,
		Persona:         config.Persona,
		Timeout:         config.Conversation.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}

	ext, err := nodes.NewExtractor(ctx, nodes.ExtractorConfig{
		ChatModel:       config.ChatModels.Extractor,
		ModelName:       config.ChatModels.ExtractorModelName,
		MessagesManager: mm,
		Timeout:         config.Conversation.LLMTimeout,
	})
	if err != nil {
		return nil, err
	}

	return &turnRunner{responder: resp, extractor: ext, publisher: config.Publisher}, nil
}

// Invoke validates req, then runs the responder and extractor concurrently.
// A responder failure turns the whole turn into an apology with the caller's
// original order state. Only validation errors are returned.
func (r *turnRunner) Invoke(ctx context.Context, req model.ConversationRequest) (*model.ConversationResponse, error) {
	if err := req.Validate(); err != nil {
		metrics.ObserveTurn(string(req.Persona), OutcomeInvalid)
		return nil, err
	}

	turnID := model.TurnIDFrom(ctx)
	if turnID == "" {
		turnID = uuid.NewString()
		ctx = model.WithTurnID(ctx, turnID)
	}
	original := *req.OrderState
	start := time.Now()

	var (
		reply     string
		replyErr  error
		extracted model.OrderState
	)

	// Both tasks return nil so neither can cancel or short-circuit the other;
	// each records its own outcome.
	var g errgroup.Group
	g.Go(func() error {
		reply, replyErr = r.responder.Respond(ctx, req)
		return nil
	})
	g.Go(func() error {
		extracted = r.extractor.Extract(ctx, req)
		return nil
	})
	_ = g.Wait()

	resp := &model.ConversationResponse{}
	outcome := OutcomeOK
	switch {
	case replyErr != nil && errx.IsConfigError(replyErr):
		outcome = OutcomeConfigError
		resp.Message = ConfigApology
		resp.OrderState = &original
	case replyErr != nil:
		outcome = OutcomeTransientError
		resp.Message = TransientApology
		resp.OrderState = &original
	default:
		merged := original.Merge(partialOf(extracted))
		resp.Message = reply
		resp.OrderState = &merged
		metrics.ObserveOrderProgress(merged.CompletedCount())
	}

	elapsed := time.Since(start)
	metrics.ObserveTurn(string(req.Persona), outcome)
	logx.Info().
		Str("turn_id", turnID).
		Str("persona", string(req.Persona)).
		Str("outcome", outcome).
		Int("history_len", len(req.ConversationHistory)).
		Str("order_progress", progressSummary(*resp.OrderState)).
		Dur("elapsed", elapsed).
		Msg("Conversation turn completed")

	if r.publisher != nil {
		r.publisher.PublishTurn(ctx, TurnEvent{
			TurnID:      turnID,
			Persona:     req.Persona,
			Outcome:     outcome,
			OrderState:  *resp.OrderState,
			Complete:    resp.OrderState.Complete(),
			DurationMS:  elapsed.Milliseconds(),
			CompletedAt: time.Now().UTC(),
		})
	}
	return resp, nil
}

// partialOf re-asserts every true field of s so the final merge stays an OR
// against the caller's state.
func partialOf(s model.OrderState) model.PartialOrderState {
	var p model.PartialOrderState
	if s.Drink {
		p.Drink = model.Bool(true)
	}
	if s.Size {
		p.Size = model.Bool(true)
	}
	if s.Milk {
		p.Milk = model.Bool(true)
	}
	if s.Name {
		p.Name = model.Bool(true)
	}
	return p
}

func progressSummary(s model.OrderState) string {
	return fmt.Sprintf("%d/%d", s.CompletedCount(), len(model.OrderFields))
}
