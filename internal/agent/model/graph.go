package model

import "context"

// CallState is the per-invocation local state of one compiled chain
// (responder, extractor or analyzer).
// Concurrency model:
//   - Registered as graph local state via compose.WithGenLocalState, so every
//     Invoke gets its own value.
//   - Read and written only inside Eino state handlers (WithStatePostHandler)
//     or compose.ProcessState, which serialize access.
type CallState struct {
	TurnID    string
	Component string
	ModelName string

	PromptTokens     int
	CompletionTokens int
	TotalCostUSD     float64
}

type turnIDKey struct{}

// WithTurnID attaches a turn id used to correlate the log lines of one request.
func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, turnIDKey{}, id)
}

// TurnIDFrom returns the turn id attached to ctx, or "".
func TurnIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(turnIDKey{}).(string)
	return id
}
