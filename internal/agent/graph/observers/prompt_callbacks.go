package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	agentmodel "github.com/echolag-barista/server/internal/agent/model"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// newPromptHandler logs rendered prompts at debug.
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			evt := logx.Debug().
				Str("turn_id", agentmodel.TurnIDFrom(ctx)).
				Str("node", info.Name)
			if output != nil {
				evt = evt.Int("messages", len(output.Result))
				if n := len(output.Result); n > 0 && output.Result[n-1] != nil {
					evt = evt.Str("rendered", clip(output.Result[n-1].Content))
				}
			}
			evt.Msg("prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().
				Err(err).
				Str("turn_id", agentmodel.TurnIDFrom(ctx)).
				Str("node", info.Name).
				Msg("prompt render failed")
			return ctx
		},
	}
}
