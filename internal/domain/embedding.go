package domain

import (
	"context"
	"fmt"
	"strings"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by embedders that can probe their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is a vector plus the tokens the provider billed for it.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prefixes every query with a model-specific task
// instruction (e.g. "search_query: " for nomic-embed-text).
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed embeds instruction+text. Text that already carries the instruction is
// passed through unchanged.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	if !strings.HasPrefix(text, e.instruction) {
		text = e.instruction + text
	}
	res, err := e.inner.Embed(ctx, text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return res, nil
}

// HealthCheck forwards to inner when supported.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	hc, ok := e.inner.(HealthChecker)
	if !ok {
		return nil
	}
	return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
}
