package evaluation

import (
	"context"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider scores criteria through the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a provider for the given model.
func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic provider requires an API key")
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// EvaluateCriterion sends one criterion assessment request and parses
// the JSON verdict out of the response.
func (p *AnthropicProvider) EvaluateCriterion(ctx context.Context, promptContent string, criterion Criterion) (*CriterionResult, error) {
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(p.model),
		System:    evaluationSystemPrompt,
		MaxTokens: 1024,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(buildUserMessage(promptContent, criterion)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request for %s failed: %w", criterion.Name, err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text += *block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("anthropic returned no text for %s", criterion.Name)
	}

	return parseResult(criterion.Name, text)
}
