package domain

// ScoreMaxRelevance is the sentinel score carried by matches that were
// judged relevant by the reranker or resolved by direct reference.
// Similarity-only matches carry their continuous [0,1] score instead.
const ScoreMaxRelevance = 1.0

// Candidate is a bookmark row returned by vector retrieval, before
// relevance reranking. Raw content is never fetched for candidates.
type Candidate struct {
	ID      string
	Title   string
	URL     string
	Summary string
	Tags    []string
	Score   float64
}

// MatchDocument is the bookmark subset exposed to callers in a match.
type MatchDocument struct {
	ID      string
	Title   string
	URL     string
	Summary string
	Tags    []string
}

// Match is a document judged relevant enough to ground the answer.
// Content is populated only for direct-reference matches and is consumed
// by the prompt composer; it is never returned to callers.
type Match struct {
	Document MatchDocument
	Score    float64
	Content  string
}

// MatchFromCandidate wraps a retrieval candidate as a match with the
// given score.
func MatchFromCandidate(c Candidate, score float64) Match {
	return Match{
		Document: MatchDocument{
			ID:      c.ID,
			Title:   c.Title,
			URL:     c.URL,
			Summary: c.Summary,
			Tags:    c.Tags,
		},
		Score: score,
	}
}

// MatchFromBookmark wraps a directly-referenced bookmark as a maximally
// relevant match with its full content attached for prompt use.
func MatchFromBookmark(b Bookmark) Match {
	return Match{
		Document: MatchDocument{
			ID:      b.ID,
			Title:   b.Title,
			URL:     b.URL,
			Summary: b.Summary,
			Tags:    b.TagNames,
		},
		Score:   ScoreMaxRelevance,
		Content: b.RawContent,
	}
}
