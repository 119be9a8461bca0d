package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/echolag-barista/server/internal/agent/model"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	Dialogue  *model.DialogueModelConfig
	Extractor *model.ExtractorModelConfig
	Analysis  *model.AnalysisModelConfig
}

// ChatModels holds one model per call site. Fields are interfaces so tests can
// swap in fakes.
type ChatModels struct {
	Dialogue  einomodel.BaseChatModel
	Extractor einomodel.BaseChatModel
	Analysis  einomodel.BaseChatModel

	DialogueModelName  string
	ExtractorModelName string
	AnalysisModelName  string
}

// NewChatModels creates the Gemini client and the three chat models sharing it.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Dialogue == nil || config.Extractor == nil || config.Analysis == nil {
		return nil, fmt.Errorf("chat model config is incomplete")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Turn-time calls skip thinking; the reply has to come back while the learner waits.
	dialogue, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Dialogue.Model,
		Temperature: &config.Dialogue.Temperature,
		MaxTokens:   &config.Dialogue.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating dialogue model")
		return nil, fmt.Errorf("error creating dialogue model: %w", err)
	}

	extractor, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Extractor.Model,
		Temperature: &config.Extractor.Temperature,
		MaxTokens:   &config.Extractor.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating extractor model")
		return nil, fmt.Errorf("error creating extractor model: %w", err)
	}

	analysis, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Analysis.Model,
		Temperature: &config.Analysis.Temperature,
		MaxTokens:   &config.Analysis.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating analysis model")
		return nil, fmt.Errorf("error creating analysis model: %w", err)
	}

	return &ChatModels{
		Dialogue:           dialogue,
		Extractor:          extractor,
		Analysis:           analysis,
		DialogueModelName:  config.Dialogue.Model,
		ExtractorModelName: config.Extractor.Model,
		AnalysisModelName:  config.Analysis.Model,
	}, nil
}
