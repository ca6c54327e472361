// Package bookmark persists bookmarks as Redis hashes and maintains the
// FT index used for vector retrieval.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hypermemo/hypermemo/internal/db"
	"github.com/hypermemo/hypermemo/internal/domain"
)

// IndexName is the FT index over all bookmark hashes.
const IndexName = domain.KeyPrefix + "bookmark:idx"

const keyPrefix = domain.KeyPrefix + "bookmark:"

// listFields are the fields fetched for list and lookup operations.
// The raw vector stays out of every read path except retrieval.
var listFields = []string{
	fieldOwner, fieldTitle, fieldURL, fieldSummary, fieldNote,
	fieldTagIDs, fieldTagNames, fieldCreatedAt, fieldUpdatedAt,
}

// store is the consumer interface for bookmarks (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo implements the bookmark persistence contracts.
type Repo struct {
	store store
}

// New creates a bookmark repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// EnsureIndex creates the bookmark FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, vectorDim int) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     IndexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: fieldOwner, Type: db.IndexFieldTag},
			{Name: fieldTagIDs, Type: db.IndexFieldTag, TagSeparator: tagIDSeparator},
			{Name: fieldCreatedAt, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         vectorDim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           16,
				VectorEFConstruct: 200,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert creates or updates a bookmark. Returns true if created.
func (r *Repo) Upsert(ctx context.Context, b *domain.Bookmark) (bool, error) {
	key := bookmarkKey(b.ID)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.HSet(ctx, key, buildHashFields(b)); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}

	return !exists, nil
}

// Get returns an owner's bookmark by ID. A bookmark belonging to a
// different owner is reported as not found.
func (r *Repo) Get(ctx context.Context, ownerID, id string) (domain.Bookmark, error) {
	m, err := r.store.HGetAll(ctx, bookmarkKey(id))
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(m) == 0 || m[fieldOwner] != ownerID {
		return domain.Bookmark{}, domain.ErrBookmarkNotFound
	}
	return parseHashFields(id, m), nil
}

// GetByIDs returns the owner's bookmarks among the given IDs, in input
// order. Missing IDs and bookmarks of other owners are silently skipped.
func (r *Repo) GetByIDs(ctx context.Context, ownerID string, ids []string) ([]domain.Bookmark, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = bookmarkKey(id)
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi: %w", err)
	}

	out := make([]domain.Bookmark, 0, len(ids))
	for i, m := range maps {
		if len(m) == 0 || m[fieldOwner] != ownerID {
			continue
		}
		out = append(out, parseHashFields(ids[i], m))
	}
	return out, nil
}

// List returns an owner's bookmarks newest first, with offset pagination.
func (r *Repo) List(ctx context.Context, ownerID string, offset, limit int) ([]domain.Bookmark, int, error) {
	if limit <= 0 {
		limit = 20
	}

	query := db.TagQuery(fieldOwner, ownerID)
	result, err := r.store.SearchList(ctx, IndexName, query, offset, limit, listFields)
	if err != nil {
		return nil, 0, fmt.Errorf("search list: %w", err)
	}
	if result == nil || result.Total == 0 {
		return nil, 0, nil
	}

	out := make([]domain.Bookmark, 0, len(result.Entries))
	for _, entry := range result.Entries {
		out = append(out, parseHashFields(extractID(entry.Key), entry.Fields))
	}
	slices.SortFunc(out, func(a, b domain.Bookmark) int {
		return int(b.CreatedAt - a.CreatedAt)
	})

	return out, result.Total, nil
}

// Count returns the number of bookmarks an owner has.
func (r *Repo) Count(ctx context.Context, ownerID string) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName, db.TagQuery(fieldOwner, ownerID))
	if err != nil {
		return 0, fmt.Errorf("search count: %w", err)
	}
	return n, nil
}

// Delete removes an owner's bookmark.
func (r *Repo) Delete(ctx context.Context, ownerID, id string) error {
	key := bookmarkKey(id)

	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall %s: %w", id, err)
	}
	if len(m) == 0 || m[fieldOwner] != ownerID {
		return domain.ErrBookmarkNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

// DetachTag removes a deleted tag from every bookmark of its owner that
// still references it.
func (r *Repo) DetachTag(ctx context.Context, tag domain.Tag) error {
	query := db.TagQuery(fieldOwner, tag.OwnerID) + " " + db.TagQuery(fieldTagIDs, tag.ID)

	total, err := r.store.SearchCount(ctx, IndexName, query)
	if err != nil {
		return fmt.Errorf("count tagged bookmarks: %w", err)
	}
	if total == 0 {
		return nil
	}

	result, err := r.store.SearchList(ctx, IndexName, query, 0, total, []string{fieldTagIDs, fieldTagNames})
	if err != nil {
		return fmt.Errorf("list tagged bookmarks: %w", err)
	}

	now := time.Now().UnixMilli()
	for _, entry := range result.Entries {
		fields := map[string]string{
			fieldTagIDs:    strings.Join(removeValue(splitList(entry.Fields[fieldTagIDs]), tag.ID), tagIDSeparator),
			fieldTagNames:  strings.Join(removeValue(splitList(entry.Fields[fieldTagNames]), tag.Name), tagIDSeparator),
			fieldUpdatedAt: strconv.FormatInt(now, 10),
		}
		if err := r.store.HSet(ctx, entry.Key, fields); err != nil {
			return fmt.Errorf("detach tag from %s: %w", entry.Key, err)
		}
	}

	return nil
}

func bookmarkKey(id string) string {
	return keyPrefix + id
}

func extractID(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}

func removeValue(list []string, value string) []string {
	out := list[:0]
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
