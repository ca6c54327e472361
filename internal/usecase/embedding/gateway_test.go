package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/hypermemo/hypermemo/internal/domain"
)

type mockEmbedder struct {
	result   domain.EmbeddingResult
	err      error
	calls    int
	lastText string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.lastText = text
	return m.result, m.err
}

func TestEmbed_CollapsesWhitespace(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	g := New(inner)

	_, err := g.Embed(context.Background(), "  what\tis\n\n  vector   search ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.lastText != "what is vector search" {
		t.Errorf("unexpected normalized text: %q", inner.lastText)
	}
}

func TestEmbed_EmptyInputSkipsProvider(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	g := New(inner)

	for _, input := range []string{"", "   ", "\t\n  \t"} {
		result, err := g.Embed(context.Background(), input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", input, err)
		}
		if len(result.Embedding) != 0 {
			t.Errorf("expected empty vector for %q, got %v", input, result.Embedding)
		}
	}
	if inner.calls != 0 {
		t.Errorf("expected no provider calls, got %d", inner.calls)
	}
}

func TestEmbed_PropagatesError(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	g := New(inner)

	_, err := g.Embed(context.Background(), "question")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a  b", "a b"},
		{" a\tb\nc ", "a b c"},
		{"", ""},
		{"   ", ""},
		{"single", "single"},
	}
	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
