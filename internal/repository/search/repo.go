// Package search runs KNN retrieval over the bookmark index.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/hypermemo/hypermemo/internal/db"
	"github.com/hypermemo/hypermemo/internal/domain"
	"github.com/hypermemo/hypermemo/internal/repository/bookmark"
)

// Hash fields fetched per hit. Raw content and the vector itself are
// never pulled during retrieval.
var returnFields = []string{"title", "url", "summary", "tag_names"}

// store is the consumer interface for vector retrieval (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements the vector retriever contract.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search returns up to budget candidates of the given owner scoring at or
// above threshold, ordered by descending similarity. A non-empty tagIDs
// narrows retrieval to bookmarks carrying at least one of the tags.
func (r *Repo) Search(
	ctx context.Context, ownerID string, vector []float32, tagIDs []string, threshold float64, budget int,
) ([]domain.Candidate, error) {
	filters := []db.TagMatch{{Field: "owner", Values: []string{ownerID}}}
	if len(tagIDs) > 0 {
		filters = append(filters, db.TagMatch{Field: "tag_ids", Values: tagIDs})
	}

	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    bookmark.IndexName,
		Filters:      filters,
		Vector:       vector,
		K:            budget,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if entry.Score < threshold {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			ID:      extractID(entry.Key),
			Title:   entry.Fields["title"],
			URL:     entry.Fields["url"],
			Summary: entry.Fields["summary"],
			Tags:    splitTags(entry.Fields["tag_names"]),
			Score:   entry.Score,
		})
	}

	return candidates, nil
}

func extractID(key string) string {
	return strings.TrimPrefix(key, domain.KeyPrefix+"bookmark:")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
