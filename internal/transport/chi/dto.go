package chi

import (
	"time"

	"github.com/hypermemo/hypermemo/internal/domain"
	bookmarkuc "github.com/hypermemo/hypermemo/internal/usecase/bookmark"
	queryuc "github.com/hypermemo/hypermemo/internal/usecase/query"
)

// Error codes returned in error response bodies.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeAlreadyExists    = "already_exists"
	codeProviderError    = "provider_error"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type bookmarkRequest struct {
	ID         string   `json:"id,omitempty"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Summary    string   `json:"summary,omitempty"`
	Note       string   `json:"note,omitempty"`
	RawContent string   `json:"raw_content,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type bookmarkResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Summary   string    `json:"summary,omitempty"`
	Note      string    `json:"note,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type bookmarkListResponse struct {
	Items []bookmarkResponse `json:"items"`
	Total int                `json:"total"`
}

type tagRequest struct {
	Name string `json:"name"`
}

type tagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tagListResponse struct {
	Items []tagResponse `json:"items"`
}

type queryRequest struct {
	Question    string           `json:"question"`
	Tags        []string         `json:"tags,omitempty"`
	DocumentIDs []string         `json:"documentIds,omitempty"`
	History     []historyMessage `json:"conversationHistory,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type queryResponse struct {
	Answer  string          `json:"answer"`
	Matches []matchResponse `json:"matches"`
}

type matchResponse struct {
	Document matchDocument `json:"document"`
	Score    float64       `json:"score"`
}

type matchDocument struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	URL     string   `json:"url"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type summaryRequest struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Content string `json:"content"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

type suggestedTagsResponse struct {
	Tags []string `json:"tags"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func bookmarkToDTO(b domain.Bookmark) bookmarkResponse {
	tags := b.TagNames
	if tags == nil {
		tags = []string{}
	}
	return bookmarkResponse{
		ID:        b.ID,
		Title:     b.Title,
		URL:       b.URL,
		Summary:   b.Summary,
		Note:      b.Note,
		Tags:      tags,
		CreatedAt: time.UnixMilli(b.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(b.UpdatedAt).UTC(),
	}
}

func saveInputFromDTO(req bookmarkRequest) bookmarkuc.SaveInput {
	return bookmarkuc.SaveInput{
		ID:         req.ID,
		Title:      req.Title,
		URL:        req.URL,
		Summary:    req.Summary,
		Note:       req.Note,
		RawContent: req.RawContent,
		TagNames:   req.Tags,
	}
}

func queryRequestFromDTO(ownerID string, req queryRequest) *queryuc.Request {
	history := make([]domain.ConversationMessage, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, domain.ConversationMessage{Role: m.Role, Content: m.Content})
	}
	return &queryuc.Request{
		OwnerID:     ownerID,
		Question:    req.Question,
		TagNames:    req.Tags,
		DocumentIDs: req.DocumentIDs,
		History:     history,
	}
}

func matchesToDTO(matches []domain.Match) []matchResponse {
	out := make([]matchResponse, len(matches))
	for i, m := range matches {
		out[i] = matchResponse{
			Document: matchDocument{
				ID:      m.Document.ID,
				Title:   m.Document.Title,
				URL:     m.Document.URL,
				Summary: m.Document.Summary,
				Tags:    m.Document.Tags,
			},
			Score: m.Score,
		}
	}
	return out
}
