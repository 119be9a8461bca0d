package model

import (
	"fmt"
	"strings"

	errx "github.com/echolag-barista/server/internal/core/error"
)

// Role identifies who spoke a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Persona selects which side of the counter the model plays.
type Persona string

const (
	// PersonaBarista: the model is the barista, the learner orders.
	PersonaBarista Persona = "barista"
	// PersonaCustomer: the model orders, the learner takes the order.
	PersonaCustomer Persona = "customer"
)

// ConversationTurn is one line of the client-held history.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ConversationRequest carries everything a turn needs. The client owns
// history and order state; nothing is kept server side between turns.
type ConversationRequest struct {
	UserMessage         string             `json:"userMessage"`
	OrderState          *OrderState        `json:"orderState"`
	ConversationHistory []ConversationTurn `json:"conversationHistory"`
	Persona             Persona            `json:"persona,omitempty"`
}

// ConversationResponse always has a message. OrderState is the merged state
// on success and the caller's own state on failure.
type ConversationResponse struct {
	Message    string      `json:"message"`
	OrderState *OrderState `json:"orderState,omitempty"`
}

// Validate checks the request before any model call is made and fills defaults.
func (r *ConversationRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.UserMessage) == "" || r.OrderState == nil {
		return errx.Validation(errx.MissingFieldsMessage)
	}

	switch r.Persona {
	case "":
		r.Persona = PersonaBarista
	case PersonaBarista, PersonaCustomer:
	default:
		return errx.Validation(fmt.Sprintf("Unknown persona %q", r.Persona))
	}

	for i, turn := range r.ConversationHistory {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			return errx.Validation(fmt.Sprintf("Invalid role %q in conversationHistory[%d]", turn.Role, i))
		}
	}
	return nil
}

// Speaker returns the transcript label for role under persona p.
func (p Persona) Speaker(role Role) string {
	learnerIsCustomer := p != PersonaCustomer
	if (role == RoleUser) == learnerIsCustomer {
		return "Customer"
	}
	return "Barista"
}
