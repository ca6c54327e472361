package bookmark

import (
	"context"
	"testing"

	"github.com/hypermemo/hypermemo/internal/domain"
)

type mockRepo struct {
	upsertFn func(b *domain.Bookmark) (bool, error)
	getFn    func(ownerID, id string) (domain.Bookmark, error)
	listFn   func(ownerID string, offset, limit int) ([]domain.Bookmark, int, error)
	deleteFn func(ownerID, id string) error

	upserted *domain.Bookmark
}

func (m *mockRepo) Upsert(_ context.Context, b *domain.Bookmark) (bool, error) {
	m.upserted = b
	if m.upsertFn != nil {
		return m.upsertFn(b)
	}
	return true, nil
}

func (m *mockRepo) Get(_ context.Context, ownerID, id string) (domain.Bookmark, error) {
	if m.getFn != nil {
		return m.getFn(ownerID, id)
	}
	return domain.Bookmark{}, domain.ErrBookmarkNotFound
}

func (m *mockRepo) List(_ context.Context, ownerID string, offset, limit int) ([]domain.Bookmark, int, error) {
	if m.listFn != nil {
		return m.listFn(ownerID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockRepo) Delete(_ context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ownerID, id)
	}
	return nil
}

type mockTagCatalog struct {
	tags    []domain.Tag
	listErr error

	created []domain.Tag
}

func (m *mockTagCatalog) List(_ context.Context, _ string) ([]domain.Tag, error) {
	return m.tags, m.listErr
}

func (m *mockTagCatalog) Create(_ context.Context, tag domain.Tag) error {
	m.created = append(m.created, tag)
	return nil
}

type mockEmbedder struct {
	result   domain.EmbeddingResult
	err      error
	calls    int
	lastText string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.lastText = text
	return m.result, m.err
}

type mockGenerator struct {
	generateFn func(prompt string) (string, error)
	calls      int
	prompts    []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.generateFn != nil {
		return m.generateFn(prompt)
	}
	return "", nil
}

type testDeps struct {
	repo      *mockRepo
	tags      *mockTagCatalog
	embedder  *mockEmbedder
	generator *mockGenerator
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	deps := &testDeps{
		repo:      &mockRepo{},
		tags:      &mockTagCatalog{},
		embedder:  &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}},
		generator: &mockGenerator{},
	}
	return New(deps.repo, deps.tags, deps.embedder, deps.generator), deps
}
