package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicTransport serves an agent from the Anthropic Messages API. System
// messages become the system prompt; human and ai messages become user and
// assistant turns.
type AnthropicTransport struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	apiKey    string
}

// NewAnthropicTransport returns a transport for model.
//
// Precondition: model must be non-empty; maxTokens must be >= 1.
func NewAnthropicTransport(model, apiKey string, maxTokens int64, opts ...option.RequestOption) (*AnthropicTransport, error) {
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("anthropic transport: model must not be empty")
	}
	if maxTokens < 1 {
		maxTokens = 1024
	}
	if apiKey != "" {
		opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	}
	return &AnthropicTransport{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
		apiKey:    apiKey,
	}, nil
}

// Invoke implements Transport.
func (t *AnthropicTransport) Invoke(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(t.model),
		MaxTokens: t.maxTokens,
	}
	system, turns := anthropicTurns(req)
	for _, s := range system {
		params.System = append(params.System, anthropic.TextBlockParam{Text: s})
	}
	for _, turn := range turns {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(turn.texts))
		for _, text := range turn.texts {
			blocks = append(blocks, anthropic.NewTextBlock(text))
		}
		if turn.role == RoleAI {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(blocks...))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(blocks...))
		}
	}

	msg, err := t.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic messages %s: %w", t.model, err)
	}
	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return Response{Output: out.String()}, nil
}

// Probe checks that credentials are configured. The Messages API has no free
// reachability call, so the first Invoke is the real check.
func (t *AnthropicTransport) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.apiKey == "" {
		return fmt.Errorf("anthropic transport %s: no API key configured", t.model)
	}
	return nil
}

type anthropicTurn struct {
	role  Role
	texts []string
}

// anthropicTurns folds the history plus the new input into alternating turns,
// merging consecutive messages of the same side.
func anthropicTurns(req Request) ([]string, []anthropicTurn) {
	var system []string
	var turns []anthropicTurn
	push := func(role Role, text string) {
		if text == "" {
			return
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].texts = append(turns[n-1].texts, text)
			return
		}
		turns = append(turns, anthropicTurn{role: role, texts: []string{text}})
	}
	for _, m := range req.ChatHistory {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAI:
			push(RoleAI, m.Content)
		default:
			push(RoleHuman, m.Content)
		}
	}
	push(RoleHuman, req.Input)
	if len(turns) > 0 && turns[0].role == RoleAI {
		turns = append([]anthropicTurn{{role: RoleHuman, texts: []string{"(conversation start)"}}}, turns...)
	}
	return system, turns
}
