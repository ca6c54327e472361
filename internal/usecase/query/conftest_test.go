package query

import (
	"context"
	"testing"

	"github.com/hypermemo/hypermemo/internal/domain"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

type mockRetriever struct {
	candidates []domain.Candidate
	err        error
	calls      int
	lastTagIDs []string
}

func (m *mockRetriever) Search(
	_ context.Context, _ string, _ []float32, tagIDs []string, _ float64, _ int,
) ([]domain.Candidate, error) {
	m.calls++
	m.lastTagIDs = tagIDs
	return m.candidates, m.err
}

type mockTagResolver struct {
	ids   []string
	err   error
	calls int
}

func (m *mockTagResolver) ResolveNames(_ context.Context, _ string, _ []string) ([]string, error) {
	m.calls++
	return m.ids, m.err
}

type mockBookmarkReader struct {
	bookmarks []domain.Bookmark
	err       error
	calls     int
}

func (m *mockBookmarkReader) GetByIDs(_ context.Context, _ string, _ []string) ([]domain.Bookmark, error) {
	m.calls++
	return m.bookmarks, m.err
}

type mockJudge struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (m *mockJudge) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.response, m.err
}

type mockGenerator struct {
	answer     string
	err        error
	fragments  []domain.Fragment
	streamErr  error
	calls      int
	lastPrompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	return m.answer, m.err
}

func (m *mockGenerator) Stream(ctx context.Context, prompt string) (<-chan domain.Fragment, error) {
	m.calls++
	m.lastPrompt = prompt
	if m.streamErr != nil {
		return nil, m.streamErr
	}

	out := make(chan domain.Fragment)
	go func() {
		defer close(out)
		for _, f := range m.fragments {
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
			if f.Err != nil {
				return
			}
		}
	}()
	return out, nil
}

type testDeps struct {
	embedder  *mockEmbedder
	retriever *mockRetriever
	tags      *mockTagResolver
	bookmarks *mockBookmarkReader
	judge     *mockJudge
	generator *mockGenerator
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()

	deps := &testDeps{
		embedder:  &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}},
		retriever: &mockRetriever{},
		tags:      &mockTagResolver{},
		bookmarks: &mockBookmarkReader{},
		judge:     &mockJudge{response: "[]"},
		generator: &mockGenerator{answer: "answer"},
	}

	svc := New(
		deps.embedder, deps.retriever, deps.tags, deps.bookmarks,
		deps.judge, deps.generator,
		Config{
			ScoreThreshold:  0.25,
			CandidateBudget: 20,
			FallbackTopK:    5,
			MaxSourceChars:  4000,
			MinQuestionLen:  3,
		},
	)
	return svc, deps
}

func candidate(id string, score float64) domain.Candidate {
	return domain.Candidate{
		ID:      id,
		Title:   "title " + id,
		URL:     "https://example.com/" + id,
		Summary: "summary " + id,
		Tags:    []string{"go"},
		Score:   score,
	}
}

func collectEvents(t *testing.T, events <-chan domain.StreamEvent) []domain.StreamEvent {
	t.Helper()
	var out []domain.StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}
