package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	LLMTimeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"25s"`
	MaxHistoryTurns int           `envconfig:"CONVERSATION_MAX_HISTORY_TURNS" default:"0"`
}

type DialogueModelConfig struct {
	Model       string  `envconfig:"DIALOGUE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"DIALOGUE_MAX_TOKENS" default:"512"`
	Temperature float32 `envconfig:"DIALOGUE_TEMPERATURE" default:"0.7"`
}

type ExtractorModelConfig struct {
	Model       string  `envconfig:"EXTRACTOR_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"EXTRACTOR_MAX_TOKENS" default:"128"`
	Temperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" default:"0"`
}

type AnalysisModelConfig struct {
	Model       string        `envconfig:"ANALYSIS_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int           `envconfig:"ANALYSIS_MAX_TOKENS" default:"2048"`
	Temperature float32       `envconfig:"ANALYSIS_TEMPERATURE" default:"0.4"`
	CacheTTL    time.Duration `envconfig:"ANALYSIS_CACHE_TTL" default:"24h"`
}

// PersonaConfig overrides the embedded persona prompts when set.
type PersonaConfig struct {
	BaristaPrompt  string `envconfig:"PERSONA_BARISTA_PROMPT"`
	CustomerPrompt string `envconfig:"PERSONA_CUSTOMER_PROMPT"`
}
