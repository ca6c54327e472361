// Package embedding normalizes text before it reaches the embedding
// provider.
package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/hypermemo/hypermemo/internal/domain"
)

// Gateway wraps an embedder with input normalization: runs of whitespace
// collapse to single spaces and effectively-empty input short-circuits to
// an empty vector without touching the provider.
type Gateway struct {
	inner domain.Embedder
}

// New creates an embedding gateway.
func New(inner domain.Embedder) *Gateway {
	return &Gateway{inner: inner}
}

// Embed implements domain.Embedder.
func (g *Gateway) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	normalized := Normalize(text)
	if normalized == "" {
		return domain.EmbeddingResult{}, nil
	}

	result, err := g.inner.Embed(ctx, normalized)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return result, nil
}

// Normalize collapses all whitespace runs to single spaces and trims the
// ends. Identical questions with different spacing share one cache entry.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
