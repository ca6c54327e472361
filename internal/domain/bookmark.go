package domain

import "strings"

// KeyPrefix namespaces all Redis keys owned by this service.
const KeyPrefix = "hypermemo:"

// Bookmark is a saved document owned by a single user. The embedding is
// derived from title+summary+note+content and recomputed on every save.
type Bookmark struct {
	ID         string
	OwnerID    string
	Title      string
	URL        string
	Summary    string
	Note       string
	RawContent string
	TagIDs     []string
	TagNames   []string
	Embedding  []float32
	CreatedAt  int64 // unix millis
	UpdatedAt  int64 // unix millis
}

// Tag is a per-owner label. Names are case-normalized and unique per owner.
type Tag struct {
	ID      string
	OwnerID string
	Name    string
}

// NormalizeTagName canonicalizes a tag name for storage and lookup.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ConversationMessage is one prior turn supplied by the caller. The query
// pipeline treats the history as read-only input; session persistence is
// not this service's concern.
type ConversationMessage struct {
	Role    string // RoleUser or RoleAssistant
	Content string
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
