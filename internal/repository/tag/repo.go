// Package tag persists the per-owner tag catalog. All tags of one owner
// live in a single hash keyed by owner, mapping tag ID to tag name.
package tag

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hypermemo/hypermemo/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "tags:"

// store is the consumer interface for the tag catalog (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HDel(ctx context.Context, key string, fields ...string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Repo implements the tag catalog contracts.
type Repo struct {
	store store
}

// New creates a tag repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a new tag. Names are unique per owner after normalization.
func (r *Repo) Create(ctx context.Context, tag domain.Tag) error {
	key := catalogKey(tag.OwnerID)

	existing, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall %s: %w", key, err)
	}
	for _, name := range existing {
		if name == tag.Name {
			return domain.ErrAlreadyExists
		}
	}

	if err := r.store.HSet(ctx, key, map[string]string{tag.ID: tag.Name}); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Get returns an owner's tag by ID.
func (r *Repo) Get(ctx context.Context, ownerID, id string) (domain.Tag, error) {
	all, err := r.store.HGetAll(ctx, catalogKey(ownerID))
	if err != nil {
		return domain.Tag{}, fmt.Errorf("hgetall: %w", err)
	}
	name, ok := all[id]
	if !ok {
		return domain.Tag{}, domain.ErrTagNotFound
	}
	return domain.Tag{ID: id, OwnerID: ownerID, Name: name}, nil
}

// List returns all tags of an owner sorted by name.
func (r *Repo) List(ctx context.Context, ownerID string) ([]domain.Tag, error) {
	all, err := r.store.HGetAll(ctx, catalogKey(ownerID))
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}

	tags := make([]domain.Tag, 0, len(all))
	for id, name := range all {
		tags = append(tags, domain.Tag{ID: id, OwnerID: ownerID, Name: name})
	}
	slices.SortFunc(tags, func(a, b domain.Tag) int {
		return strings.Compare(a.Name, b.Name)
	})
	return tags, nil
}

// Delete removes an owner's tag and returns it, so callers can detach it
// from bookmarks that still reference it.
func (r *Repo) Delete(ctx context.Context, ownerID, id string) (domain.Tag, error) {
	tag, err := r.Get(ctx, ownerID, id)
	if err != nil {
		return domain.Tag{}, err
	}

	if err := r.store.HDel(ctx, catalogKey(ownerID), id); err != nil {
		return domain.Tag{}, fmt.Errorf("hdel: %w", err)
	}
	return tag, nil
}

// ResolveNames maps tag names to tag IDs for an owner. Unknown names are
// skipped: resolution never fails on them, it just narrows the result.
func (r *Repo) ResolveNames(ctx context.Context, ownerID string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	all, err := r.store.HGetAll(ctx, catalogKey(ownerID))
	if err != nil {
		return nil, fmt.Errorf("hgetall: %w", err)
	}

	byName := make(map[string]string, len(all))
	for id, name := range all {
		byName[name] = id
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := byName[domain.NormalizeTagName(name)]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func catalogKey(ownerID string) string {
	return keyPrefix + ownerID
}
