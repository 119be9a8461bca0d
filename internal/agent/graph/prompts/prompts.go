package prompts

import (
	_ "embed"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/echolag-barista/server/internal/agent/model"
)

var (
	//go:embed template/barista_persona.txt
	baristaPersona string

	//go:embed template/customer_persona.txt
	customerPersona string

	//go:embed template/dialogue_prompt.txt
	dialoguePrompt string

	//go:embed template/extractor_prompt.txt
	extractorSystemPrompt string

	//go:embed template/extractor_input.txt
	extractorInputPrompt string

	//go:embed template/analysis_prompt.txt
	analysisPrompt string
)

// PersonaPrompt returns the system prompt for persona p, preferring a
// configured override.
func PersonaPrompt(p model.Persona, cfg model.PersonaConfig) string {
	if p == model.PersonaCustomer {
		if s := strings.TrimSpace(cfg.CustomerPrompt); s != "" {
			return s
		}
		return strings.TrimSpace(customerPersona)
	}
	if s := strings.TrimSpace(cfg.BaristaPrompt); s != "" {
		return s
	}
	return strings.TrimSpace(baristaPersona)
}

// DialogueTemplate renders the persona as the system message and the turn as
// the user message. Variables come from DialogueVars.
func DialogueTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage("{{.Persona}}"),
		schema.UserMessage(dialoguePrompt),
	)
}

func DialogueVars(persona string, p model.Persona, state model.OrderState, conversation, userMessage string) map[string]any {
	learner, modelRole := "Customer", "barista"
	if p == model.PersonaCustomer {
		learner, modelRole = "Barista", "customer"
	}
	return map[string]any{
		"Persona":       persona,
		"OrderProgress": state.ProgressText(),
		"NextField":     string(state.NextField()),
		"Conversation":  conversation,
		"LearnerRole":   learner,
		"ModelRole":     modelRole,
		"UserMessage":   userMessage,
	}
}

// ExtractorTemplate asks for the {drink,size,milk,name} classification.
func ExtractorTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(extractorSystemPrompt),
		schema.UserMessage(extractorInputPrompt),
	)
}

func ExtractorVars(state model.OrderState, transcript string) map[string]any {
	return map[string]any{
		"OrderProgress": state.ProgressText(),
		"Transcript":    transcript,
	}
}

// AnalysisTemplate asks for the session feedback report.
func AnalysisTemplate() prompt.ChatTemplate {
	return prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(analysisPrompt),
	)
}

func AnalysisVars(req model.AnalysisRequest) map[string]any {
	return map[string]any{
		"Transcript":     strings.TrimSpace(req.Transcript),
		"Duration":       formatMetric(req.Duration),
		"WordCount":      formatMetric(req.WordCount),
		"AveragePause":   formatMetric(req.AveragePause),
		"WordsPerMinute": formatMetric(req.WordsPerMinute),
	}
}

func formatMetric(m model.Metric) string {
	return strconv.FormatFloat(m.Value(), 'f', -1, 64)
}
