package bookmark

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/hypermemo/hypermemo/internal/domain"
)

// Hash field names. The vector and its score field are double-underscored
// to keep them out of the way of user-visible fields.
const (
	fieldOwner     = "owner"
	fieldTitle     = "title"
	fieldURL       = "url"
	fieldSummary   = "summary"
	fieldNote      = "note"
	fieldContent   = "content"
	fieldTagIDs    = "tag_ids"
	fieldTagNames  = "tag_names"
	fieldVector    = "__vector"
	fieldCreatedAt = "created_at"
	fieldUpdatedAt = "updated_at"
)

// tagIDSeparator joins tag IDs inside the TAG-indexed tag_ids field and
// must match the index SEPARATOR.
const tagIDSeparator = ","

// buildHashFields converts a bookmark into a flat map[string]string for HSET.
func buildHashFields(b *domain.Bookmark) map[string]string {
	return map[string]string{
		fieldOwner:     b.OwnerID,
		fieldTitle:     b.Title,
		fieldURL:       b.URL,
		fieldSummary:   b.Summary,
		fieldNote:      b.Note,
		fieldContent:   b.RawContent,
		fieldTagIDs:    strings.Join(b.TagIDs, tagIDSeparator),
		fieldTagNames:  strings.Join(b.TagNames, tagIDSeparator),
		fieldVector:    vectorToBytes(b.Embedding),
		fieldCreatedAt: strconv.FormatInt(b.CreatedAt, 10),
		fieldUpdatedAt: strconv.FormatInt(b.UpdatedAt, 10),
	}
}

// parseHashFields converts a flat hash map back into a bookmark.
func parseHashFields(id string, m map[string]string) domain.Bookmark {
	createdAt, _ := strconv.ParseInt(m[fieldCreatedAt], 10, 64)
	updatedAt, _ := strconv.ParseInt(m[fieldUpdatedAt], 10, 64)

	return domain.Bookmark{
		ID:         id,
		OwnerID:    m[fieldOwner],
		Title:      m[fieldTitle],
		URL:        m[fieldURL],
		Summary:    m[fieldSummary],
		Note:       m[fieldNote],
		RawContent: m[fieldContent],
		TagIDs:     splitList(m[fieldTagIDs]),
		TagNames:   splitList(m[fieldTagNames]),
		Embedding:  bytesToVector(m[fieldVector]),
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, tagIDSeparator)
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
