package pipeline

import (
	"context"

	"github.com/ppiankov/qaverify/internal/llm"
)

type cannedProvider struct{ text string }

func (c *cannedProvider) Name() string { return "canned" }

func (c *cannedProvider) IsAvailable(context.Context) bool { return true }

func (c *cannedProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Text: c.text}, nil
}
