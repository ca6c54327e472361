package bookmark

import (
	"context"
	"fmt"
	"strings"
)

// Generation input caps. Longer content is truncated, not rejected.
const (
	maxSummaryInputChars = 8000
	maxTagInputChars     = 4000
	maxSuggestedTags     = 5
)

// Summarize produces a short summary of a page. Content beyond the input
// cap is dropped.
func (s *Service) Summarize(ctx context.Context, title, content, url string) (string, error) {
	var b strings.Builder
	b.WriteString("You are HyperMemo, a concise research assistant. Summarize the following page in a few sentences.\n")
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n", title)
	}
	if url != "" {
		fmt.Fprintf(&b, "URL: %s\n", url)
	}
	b.WriteString("Content:\n")
	b.WriteString(truncateChars(content, maxSummaryInputChars))

	summary, err := s.generator.Generate(ctx, b.String())
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(summary), nil
}

// SuggestTags asks the generator for up to five single-word tags for a
// page. The response is parsed as a comma-separated list; entries are
// trimmed and lowercased.
func (s *Service) SuggestTags(ctx context.Context, title, content string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Suggest up to %d concise tags (single words) describing the following page. "+
			"Return comma-separated words only.\n\nTitle: %s\nContent:\n%s",
		maxSuggestedTags, title, truncateChars(content, maxTagInputChars),
	)

	raw, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("suggest tags: %w", err)
	}
	return parseTagList(raw), nil
}

func parseTagList(raw string) []string {
	tags := make([]string, 0, maxSuggestedTags)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxSuggestedTags {
			break
		}
	}
	return tags
}

func truncateChars(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
