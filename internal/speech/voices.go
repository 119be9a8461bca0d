package speech

import "strings"

// Voice is the shape the client expects for a selectable voice.
type Voice struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Category    string            `json:"category,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// VoicesResponse is served by the voices endpoint. Fallback is set when the
// list is the built-in placeholder.
type VoicesResponse struct {
	Voices   []Voice `json:"voices"`
	Fallback bool    `json:"fallback,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// Fallback reasons.
const (
	ReasonNotConfigured  = "API key is not configured."
	ReasonPrimaryMissing = "Primary ElevenLabs voice not available."
	ReasonRequestFailed  = "Live ElevenLabs request failed. Using demo data."
)

// PlaceholderVoices is served whenever the live voice list cannot be used.
func PlaceholderVoices(primaryID string) []Voice {
	return []Voice{{
		ID:          primaryID,
		Name:        PrimaryVoiceName,
		Description: "Callum is a youthful, energetic voice suited for lively training simulations.",
		Category:    "default",
		Labels: map[string]string{
			"source":  "elevenlabs",
			"persona": "callum",
		},
	}}
}

func fallbackVoices(primaryID, reason string) *VoicesResponse {
	return &VoicesResponse{
		Voices:   PlaceholderVoices(primaryID),
		Fallback: true,
		Message:  reason,
	}
}

// ResolveVoice maps the "callum" alias to the primary voice id and trims
// anything else.
func ResolveVoice(voiceID, primaryID string) string {
	v := strings.TrimSpace(voiceID)
	if strings.EqualFold(v, "callum") {
		return primaryID
	}
	return v
}

type apiVoice struct {
	VoiceID     string            `json:"voice_id"`
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Labels      map[string]string `json:"labels"`
}

func (v apiVoice) resolvedID() string {
	if v.VoiceID != "" {
		return v.VoiceID
	}
	return v.ID
}

// pickPrimary finds the primary voice by id, then by name.
func pickPrimary(voices []apiVoice, primaryID string) (Voice, bool) {
	match := -1
	for i, v := range voices {
		if v.resolvedID() == primaryID {
			match = i
			break
		}
	}
	if match < 0 {
		for i, v := range voices {
			if strings.EqualFold(v.Name, PrimaryVoiceName) {
				match = i
				break
			}
		}
	}
	if match < 0 || voices[match].resolvedID() == "" {
		return Voice{}, false
	}
	v := voices[match]
	return Voice{
		ID:          v.resolvedID(),
		Name:        v.Name,
		Description: v.Description,
		Category:    v.Category,
		Labels:      v.Labels,
	}, true
}
