package search

import (
	"context"
	"testing"

	"github.com/hypermemo/hypermemo/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}

func testVector() []float32 {
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = 0.1
	}
	return vec
}

func entry(id string, score float64) db.SearchEntry {
	return db.SearchEntry{
		Key:   "hypermemo:bookmark:" + id,
		Score: score,
		Fields: map[string]string{
			"title":     "title " + id,
			"url":       "https://example.com/" + id,
			"summary":   "summary " + id,
			"tag_names": "go,redis",
		},
	}
}
