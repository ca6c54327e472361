// Package bookmark implements bookmark management: save with embedding
// recomputation and optional content enrichment, lookup, listing, and
// deletion.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hypermemo/hypermemo/internal/domain"
	"github.com/hypermemo/hypermemo/internal/logger"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

// repo is the persistence contract this service consumes.
type repo interface {
	Upsert(ctx context.Context, b *domain.Bookmark) (bool, error)
	Get(ctx context.Context, ownerID, id string) (domain.Bookmark, error)
	List(ctx context.Context, ownerID string, offset, limit int) ([]domain.Bookmark, int, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// tagCatalog resolves and registers the owner's tags during save.
type tagCatalog interface {
	List(ctx context.Context, ownerID string) ([]domain.Tag, error)
	Create(ctx context.Context, tag domain.Tag) error
}

// generator is the narrow text generation contract used for auto-summary
// and tag suggestion.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service implements bookmark use cases.
type Service struct {
	repo      repo
	tags      tagCatalog
	embedder  domain.Embedder
	generator generator
}

// New creates a bookmark service.
func New(r repo, tags tagCatalog, embedder domain.Embedder, gen generator) *Service {
	return &Service{repo: r, tags: tags, embedder: embedder, generator: gen}
}

// SaveInput is the create/update payload. An empty ID creates a new
// bookmark; a non-empty ID updates an existing one.
type SaveInput struct {
	ID         string
	Title      string
	URL        string
	Summary    string
	Note       string
	RawContent string
	TagNames   []string
}

// Save creates or updates a bookmark. When raw content is present, an
// empty summary is generated and empty tags are suggested. The embedding
// is recomputed from title, summary, note and content on every save.
// Returns the stored bookmark and whether it was created.
func (s *Service) Save(ctx context.Context, ownerID string, in SaveInput) (domain.Bookmark, bool, error) {
	title := strings.TrimSpace(in.Title)
	url := strings.TrimSpace(in.URL)
	if title == "" || url == "" {
		return domain.Bookmark{}, false, fmt.Errorf("%w: title and url are required", domain.ErrInvalidInput)
	}

	now := time.Now().UnixMilli()
	b := domain.Bookmark{
		ID:         in.ID,
		OwnerID:    ownerID,
		Title:      title,
		URL:        url,
		Summary:    in.Summary,
		Note:       in.Note,
		RawContent: in.RawContent,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if b.ID == "" {
		b.ID = uuid.NewString()
	} else {
		existing, err := s.repo.Get(ctx, ownerID, b.ID)
		if err != nil {
			return domain.Bookmark{}, false, err
		}
		b.CreatedAt = existing.CreatedAt
	}

	if err := s.enrich(ctx, &b, in.TagNames); err != nil {
		return domain.Bookmark{}, false, err
	}

	if err := s.computeEmbedding(ctx, &b); err != nil {
		return domain.Bookmark{}, false, err
	}

	created, err := s.repo.Upsert(ctx, &b)
	if err != nil {
		return domain.Bookmark{}, false, fmt.Errorf("save bookmark: %w", err)
	}

	logger.FromContext(ctx).Info("Bookmark saved",
		zap.String("bookmark_id", b.ID),
		zap.Bool("created", created),
		zap.Int("tags", len(b.TagNames)),
	)
	return b, created, nil
}

// Get returns an owner's bookmark by ID.
func (s *Service) Get(ctx context.Context, ownerID, id string) (domain.Bookmark, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns an owner's bookmarks newest first with offset pagination,
// plus the owner's total.
func (s *Service) List(ctx context.Context, ownerID string, offset, limit int) ([]domain.Bookmark, int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, ownerID, offset, limit)
}

// Delete removes an owner's bookmark.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// enrich fills the summary and tags from raw content when they are empty,
// then resolves tag names against the owner's catalog, registering names
// that do not exist yet.
func (s *Service) enrich(ctx context.Context, b *domain.Bookmark, tagNames []string) error {
	if b.Summary == "" && b.RawContent != "" {
		summary, err := s.Summarize(ctx, b.Title, b.RawContent, b.URL)
		if err != nil {
			return err
		}
		b.Summary = summary
	}

	names := normalizeTagNames(tagNames)
	if len(names) == 0 && b.RawContent != "" {
		suggested, err := s.SuggestTags(ctx, b.Title, b.RawContent)
		if err != nil {
			return err
		}
		names = suggested
	}

	ids, err := s.ensureTags(ctx, b.OwnerID, names)
	if err != nil {
		return err
	}
	b.TagIDs = ids
	b.TagNames = names
	return nil
}

func (s *Service) computeEmbedding(ctx context.Context, b *domain.Bookmark) error {
	source := embeddingSource(b)
	result, err := s.embedder.Embed(ctx, source)
	if err != nil {
		return fmt.Errorf("embed bookmark: %w", err)
	}
	b.Embedding = result.Embedding
	return nil
}

// ensureTags maps tag names to catalog IDs, creating missing tags.
func (s *Service) ensureTags(ctx context.Context, ownerID string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	existing, err := s.tags.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	byName := make(map[string]string, len(existing))
	for _, t := range existing {
		byName[t.Name] = t.ID
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			id = uuid.NewString()
			tag := domain.Tag{ID: id, OwnerID: ownerID, Name: name}
			if err := s.tags.Create(ctx, tag); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
				return nil, fmt.Errorf("create tag %q: %w", name, err)
			}
			byName[name] = id
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// embeddingSource joins the non-empty text fields that feed the vector.
func embeddingSource(b *domain.Bookmark) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{b.Title, b.Summary, b.Note, b.RawContent} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

func normalizeTagNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		n := domain.NormalizeTagName(name)
		if n == "" || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}
