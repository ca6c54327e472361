package chi

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hypermemo/hypermemo/internal/domain"
	bookmarkuc "github.com/hypermemo/hypermemo/internal/usecase/bookmark"
	healthuc "github.com/hypermemo/hypermemo/internal/usecase/health"
	queryuc "github.com/hypermemo/hypermemo/internal/usecase/query"
)

type mockBookmarkService struct {
	saveFn        func(ownerID string, in bookmarkuc.SaveInput) (domain.Bookmark, bool, error)
	getFn         func(ownerID, id string) (domain.Bookmark, error)
	listFn        func(ownerID string, offset, limit int) ([]domain.Bookmark, int, error)
	deleteFn      func(ownerID, id string) error
	summarizeFn   func(title, content, url string) (string, error)
	suggestTagsFn func(title, content string) ([]string, error)
}

func (m *mockBookmarkService) Save(_ context.Context, ownerID string, in bookmarkuc.SaveInput) (domain.Bookmark, bool, error) {
	if m.saveFn != nil {
		return m.saveFn(ownerID, in)
	}
	return domain.Bookmark{}, false, nil
}

func (m *mockBookmarkService) Get(_ context.Context, ownerID, id string) (domain.Bookmark, error) {
	if m.getFn != nil {
		return m.getFn(ownerID, id)
	}
	return domain.Bookmark{}, domain.ErrBookmarkNotFound
}

func (m *mockBookmarkService) List(_ context.Context, ownerID string, offset, limit int) ([]domain.Bookmark, int, error) {
	if m.listFn != nil {
		return m.listFn(ownerID, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockBookmarkService) Delete(_ context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ownerID, id)
	}
	return nil
}

func (m *mockBookmarkService) Summarize(_ context.Context, title, content, url string) (string, error) {
	if m.summarizeFn != nil {
		return m.summarizeFn(title, content, url)
	}
	return "", nil
}

func (m *mockBookmarkService) SuggestTags(_ context.Context, title, content string) ([]string, error) {
	if m.suggestTagsFn != nil {
		return m.suggestTagsFn(title, content)
	}
	return nil, nil
}

type mockTagService struct {
	createFn func(ownerID, name string) (domain.Tag, error)
	listFn   func(ownerID string) ([]domain.Tag, error)
	deleteFn func(ownerID, id string) error
}

func (m *mockTagService) Create(_ context.Context, ownerID, name string) (domain.Tag, error) {
	if m.createFn != nil {
		return m.createFn(ownerID, name)
	}
	return domain.Tag{}, nil
}

func (m *mockTagService) List(_ context.Context, ownerID string) ([]domain.Tag, error) {
	if m.listFn != nil {
		return m.listFn(ownerID)
	}
	return nil, nil
}

func (m *mockTagService) Delete(_ context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ownerID, id)
	}
	return nil
}

type mockQueryService struct {
	askFn    func(req *queryuc.Request) (*queryuc.Answer, error)
	streamFn func(ctx context.Context, req *queryuc.Request) (<-chan domain.StreamEvent, error)
}

func (m *mockQueryService) Ask(_ context.Context, req *queryuc.Request) (*queryuc.Answer, error) {
	if m.askFn != nil {
		return m.askFn(req)
	}
	return &queryuc.Answer{Answer: "ok", Matches: []domain.Match{}}, nil
}

func (m *mockQueryService) Stream(ctx context.Context, req *queryuc.Request) (<-chan domain.StreamEvent, error) {
	if m.streamFn != nil {
		return m.streamFn(ctx, req)
	}
	out := make(chan domain.StreamEvent)
	close(out)
	return out, nil
}

type mockHealthService struct {
	report healthuc.Report
}

func (m *mockHealthService) Check(_ context.Context) healthuc.Report {
	return m.report
}

type testMocks struct {
	bookmarks *mockBookmarkService
	tags      *mockTagService
	query     *mockQueryService
	health    *mockHealthService
}

// newTestRouter builds a router with the auth middleware disabled, so
// every request runs as the anonymous owner.
func newTestRouter(t *testing.T) (http.Handler, *testMocks) {
	t.Helper()

	mocks := &testMocks{
		bookmarks: &mockBookmarkService{},
		tags:      &mockTagService{},
		query:     &mockQueryService{},
		health: &mockHealthService{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"redis": healthuc.CheckOK},
		}},
	}

	srv := NewServer(mocks.bookmarks, mocks.tags, mocks.query, mocks.health, zap.NewNop())
	r := chi.NewRouter()
	r.Use(BearerAuthMiddleware(nil))
	srv.Register(r)
	return r, mocks
}
