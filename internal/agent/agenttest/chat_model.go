// Package agenttest provides a scripted eino chat model for tests.
package agenttest

import (
	"context"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel is a BaseChatModel whose answers come from a function.
type ChatModel struct {
	Fn func(ctx context.Context, in []*schema.Message) (*schema.Message, error)

	mu     sync.Mutex
	inputs [][]*schema.Message
}

var _ einomodel.BaseChatModel = (*ChatModel)(nil)

// Reply answers every call with text and a small token usage.
func Reply(text string) *ChatModel {
	return &ChatModel{Fn: func(context.Context, []*schema.Message) (*schema.Message, error) {
		return WithUsage(schema.AssistantMessage(text, nil), 120, 30), nil
	}}
}

// Fail answers every call with err.
func Fail(err error) *ChatModel {
	return &ChatModel{Fn: func(context.Context, []*schema.Message) (*schema.Message, error) {
		return nil, err
	}}
}

// Hang blocks until ctx is done.
func Hang() *ChatModel {
	return &ChatModel{Fn: func(ctx context.Context, _ []*schema.Message) (*schema.Message, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
}

// WithUsage attaches token usage to msg.
func WithUsage(msg *schema.Message, prompt, completion int) *schema.Message {
	msg.ResponseMeta = &schema.ResponseMeta{
		Usage: &schema.TokenUsage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}
	return msg
}

func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()
	return m.Fn(ctx, input)
}

func (m *ChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// Calls returns how many times the model was invoked.
func (m *ChatModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// LastInput returns the messages of the most recent call.
func (m *ChatModel) LastInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}
