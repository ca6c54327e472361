package query

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/hypermemo/hypermemo/internal/domain"
	"github.com/hypermemo/hypermemo/internal/logger"
	"github.com/hypermemo/hypermemo/internal/metrics"
)

// rerank asks the judge which candidates actually answer the question and
// returns them as matches in the judge's order, each with the sentinel
// score. Zero candidates means zero matches with no model call. Any judge
// or parse failure degrades to the similarity-ordered fallback.
func (s *Service) rerank(ctx context.Context, question string, candidates []domain.Candidate) []domain.Match {
	if len(candidates) == 0 {
		return nil
	}

	raw, err := s.judge.Generate(ctx, buildRerankPrompt(question, candidates))
	if err != nil {
		logger.FromContext(ctx).Warn("Relevance judgment failed, falling back to similarity order", zap.Error(err))
		return s.fallbackMatches(candidates)
	}

	ids, ok := extractIDArray(raw)
	if !ok {
		logger.FromContext(ctx).Warn("Relevance judgment returned no parsable ID array",
			zap.String("response", truncateRunes(raw, 200)))
		return s.fallbackMatches(candidates)
	}

	byID := make(map[string]domain.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}

	// Judge order wins; IDs the judge invented are dropped.
	matches := make([]domain.Match, 0, len(ids))
	for _, id := range ids {
		c, known := byID[id]
		if !known {
			continue
		}
		matches = append(matches, domain.MatchFromCandidate(c, domain.ScoreMaxRelevance))
		delete(byID, id)
	}

	return matches
}

// fallbackMatches returns the top candidates by original similarity, each
// keeping its original score instead of the sentinel.
func (s *Service) fallbackMatches(candidates []domain.Candidate) []domain.Match {
	metrics.RerankFallbacksTotal.Inc()

	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b domain.Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})

	if len(sorted) > s.cfg.FallbackTopK {
		sorted = sorted[:s.cfg.FallbackTopK]
	}

	matches := make([]domain.Match, 0, len(sorted))
	for _, c := range sorted {
		matches = append(matches, domain.MatchFromCandidate(c, c.Score))
	}
	return matches
}

func buildRerankPrompt(question string, candidates []domain.Candidate) string {
	var b strings.Builder

	b.WriteString("You are selecting which of the user's saved bookmarks are relevant to a question.\n\n")
	b.WriteString("Bookmarks:\n\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "ID: %s\nTitle: %s\nSummary: %s\n\n", c.ID, c.Title, c.Summary)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nReturn strictly a JSON array of the IDs of relevant bookmarks, ")
	b.WriteString("most relevant first. Return [] if none are relevant. No other text.")

	return b.String()
}

// extractIDArray locates a JSON array substring in free-form model output
// and parses it as string IDs. Model output is not guaranteed to be pure
// JSON.
func extractIDArray(raw string) ([]string, bool) {
	start := strings.Index(raw, "[")
	if start == -1 {
		return nil, false
	}
	end := strings.LastIndex(raw, "]")
	if end < start {
		return nil, false
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &ids); err != nil {
		return nil, false
	}
	return ids, true
}
