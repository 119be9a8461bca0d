package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	agentmodel "github.com/echolag-barista/server/internal/agent/model"
	errx "github.com/echolag-barista/server/internal/core/error"
	logx "github.com/echolag-barista/server/pkg/logger"
)

// maxLoggedContent caps message bodies in debug logs.
const maxLoggedContent = 500

// newModelHandler logs the latest user message and the model answer around each call.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			evt := logx.Debug().
				Str("turn_id", agentmodel.TurnIDFrom(ctx)).
				Str("node", info.Name).
				Str("type", info.Type)
			if input != nil {
				evt = evt.Int("messages", len(input.Messages)).
					Str("user", clip(lastUserContent(input.Messages)))
			}
			evt.Msg("model start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			evt := logx.Debug().
				Str("turn_id", agentmodel.TurnIDFrom(ctx)).
				Str("node", info.Name)
			if output != nil && output.Message != nil {
				evt = evt.Str("assistant", clip(strings.TrimSpace(output.Message.Content)))
			}
			evt.Msg("model end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Debug().
				Str("turn_id", agentmodel.TurnIDFrom(ctx)).
				Str("node", info.Name).
				Str("error", errx.Redact(err.Error())).
				Msg("model error")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

func clip(s string) string {
	if len(s) <= maxLoggedContent {
		return s
	}
	return s[:maxLoggedContent] + "..."
}
