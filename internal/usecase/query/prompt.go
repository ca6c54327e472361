package query

import (
	"fmt"
	"strings"

	"github.com/hypermemo/hypermemo/internal/domain"
)

// composePrompt builds the single instruction+context string handed to the
// generator. Matches become numbered source blocks in their given order;
// the question is always the final element.
func composePrompt(question string, matches []domain.Match, history []domain.ConversationMessage, maxSourceChars int) string {
	var b strings.Builder

	b.WriteString("You are a helpful assistant answering questions about the user's saved bookmarks.\n\n")

	if len(matches) > 0 {
		b.WriteString("Sources:\n\n")
		for i, m := range matches {
			writeSourceBlock(&b, i+1, m, maxSourceChars)
		}
		b.WriteString("Answer the question using the numbered sources above as your primary context. ")
		b.WriteString("Cite sources inline with their numbers, for example [1] or [2][3]; ")
		b.WriteString("a single claim may cite several sources.\n\n")
	} else {
		b.WriteString("No saved bookmarks matched this question. ")
		b.WriteString("Answer from general knowledge and state explicitly that ")
		b.WriteString("no matching saved bookmarks were found.\n\n")
	}

	if len(history) > 0 {
		b.WriteString("Conversation so far (use it for continuity):\n")
		for _, msg := range history {
			b.WriteString(roleLabel(msg.Role))
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)

	return b.String()
}

// writeSourceBlock renders one match as a numbered block, preferring full
// content over the summary. Content is capped to keep prompt cost bounded.
func writeSourceBlock(b *strings.Builder, n int, m domain.Match, maxSourceChars int) {
	fmt.Fprintf(b, "[%d] %s\n", n, m.Document.Title)
	if m.Document.URL != "" {
		fmt.Fprintf(b, "URL: %s\n", m.Document.URL)
	}
	if len(m.Document.Tags) > 0 {
		fmt.Fprintf(b, "Tags: %s\n", strings.Join(m.Document.Tags, ", "))
	}

	text := m.Content
	if text == "" {
		text = m.Document.Summary
	}
	b.WriteString(truncateRunes(text, maxSourceChars))
	b.WriteString("\n\n")
}

func roleLabel(role string) string {
	if role == domain.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
