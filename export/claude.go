package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const reportMaxTokens = 4096

// ClaudeGenerator generates text with the Anthropic Messages API.
type ClaudeGenerator struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeGenerator creates a generator for model. The client never retries;
// extra options are applied last so callers can point it elsewhere.
func NewClaudeGenerator(apiKey, model string, opts ...option.RequestOption) (*ClaudeGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY", ErrAPIKeyRequired)
	}

	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)

	return &ClaudeGenerator{
		client: anthropic.NewClient(clientOpts...),
		model:  anthropic.Model(model),
	}, nil
}

// ClaudeFactory returns a GeneratorFactory that reads the credential through
// apiKey on every call.
func ClaudeFactory(apiKey func() string, model string, opts ...option.RequestOption) GeneratorFactory {
	return func() (TextGenerator, error) {
		gen, err := NewClaudeGenerator(apiKey(), model, opts...)
		if err != nil {
			return nil, err
		}
		return gen, nil
	}
}

// Generate sends prompt as a single user message and joins the text blocks
// of the reply.
func (g *ClaudeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: reportMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("unexpected response format: no text content")
	}
	return b.String(), nil
}
