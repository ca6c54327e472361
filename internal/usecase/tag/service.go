// Package tag implements tag management. Tag names are case-normalized
// and unique per owner; deleting a tag detaches it from bookmarks without
// deleting them.
package tag

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hypermemo/hypermemo/internal/domain"
	"github.com/hypermemo/hypermemo/internal/logger"
)

// catalog is the tag persistence contract this service consumes.
type catalog interface {
	Create(ctx context.Context, tag domain.Tag) error
	Get(ctx context.Context, ownerID, id string) (domain.Tag, error)
	List(ctx context.Context, ownerID string) ([]domain.Tag, error)
	Delete(ctx context.Context, ownerID, id string) (domain.Tag, error)
}

// detacher removes a deleted tag from the bookmarks that reference it.
type detacher interface {
	DetachTag(ctx context.Context, tag domain.Tag) error
}

// Service implements tag use cases.
type Service struct {
	catalog   catalog
	bookmarks detacher
}

// New creates a tag service.
func New(c catalog, bookmarks detacher) *Service {
	return &Service{catalog: c, bookmarks: bookmarks}
}

// Create registers a new tag for the owner. The name is normalized before
// storage; an empty normalized name is rejected.
func (s *Service) Create(ctx context.Context, ownerID, name string) (domain.Tag, error) {
	normalized := domain.NormalizeTagName(name)
	if normalized == "" {
		return domain.Tag{}, fmt.Errorf("%w: tag name is required", domain.ErrInvalidInput)
	}

	tag := domain.Tag{ID: uuid.NewString(), OwnerID: ownerID, Name: normalized}
	if err := s.catalog.Create(ctx, tag); err != nil {
		return domain.Tag{}, err
	}
	return tag, nil
}

// Get returns an owner's tag by ID.
func (s *Service) Get(ctx context.Context, ownerID, id string) (domain.Tag, error) {
	return s.catalog.Get(ctx, ownerID, id)
}

// List returns all tags of an owner sorted by name.
func (s *Service) List(ctx context.Context, ownerID string) ([]domain.Tag, error) {
	return s.catalog.List(ctx, ownerID)
}

// Delete removes an owner's tag and detaches it from every bookmark that
// still references it. Bookmarks themselves are never deleted.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := s.catalog.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.bookmarks.DetachTag(ctx, tag); err != nil {
		// The catalog entry is already gone; the stale references only
		// narrow tag-filtered searches and are rewritten on the next save.
		logger.FromContext(ctx).Warn("Failed to detach deleted tag from bookmarks",
			zap.String("tag_id", tag.ID),
			zap.Error(err),
		)
		return fmt.Errorf("detach tag: %w", err)
	}
	return nil
}

// ResolveNames maps tag names to IDs for an owner. Unknown names are
// skipped.
func (s *Service) ResolveNames(ctx context.Context, ownerID string, names []string) ([]string, error) {
	trimmed := make([]string, 0, len(names))
	for _, n := range names {
		if t := strings.TrimSpace(n); t != "" {
			trimmed = append(trimmed, t)
		}
	}
	if len(trimmed) == 0 {
		return nil, nil
	}

	all, err := s.catalog.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(all))
	for _, t := range all {
		byName[t.Name] = t.ID
	}

	ids := make([]string, 0, len(trimmed))
	for _, name := range trimmed {
		if id, ok := byName[domain.NormalizeTagName(name)]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
