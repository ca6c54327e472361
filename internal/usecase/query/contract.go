package query

import (
	"context"

	"github.com/hypermemo/hypermemo/internal/domain"
)

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Retriever runs owner-scoped vector retrieval over the bookmark index.
type Retriever interface {
	Search(ctx context.Context, ownerID string, vector []float32, tagIDs []string, threshold float64, budget int) ([]domain.Candidate, error)
}

// TagResolver maps tag names to tag IDs for an owner. Unknown names are
// skipped, not errored.
type TagResolver interface {
	ResolveNames(ctx context.Context, ownerID string, names []string) ([]string, error)
}

// BookmarkReader resolves explicit document references, owner-scoped.
type BookmarkReader interface {
	GetByIDs(ctx context.Context, ownerID string, ids []string) ([]domain.Bookmark, error)
}

// Judge returns free-form text expected to contain a JSON array of the
// relevant candidate IDs.
type Judge interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator produces the final answer, synchronously or as a fragment
// stream.
type Generator = domain.Generator
