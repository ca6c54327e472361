// Package query runs the question-answering pipeline: validate, resolve
// references or retrieve candidates, judge relevance, compose a prompt,
// and generate the answer.
package query

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hypermemo/hypermemo/internal/domain"
	"github.com/hypermemo/hypermemo/internal/logger"
	"github.com/hypermemo/hypermemo/internal/metrics"
)

// Fixed answers for locally-recovered not-found cases. These short-circuit
// the pipeline: no generation call is made.
const (
	answerNoDocuments  = "Could not find the specified documents."
	answerNoTagMatches = "No bookmarks with that tag were found."
)

// Request is one query pipeline input. The conversation history is caller
// supplied and read-only.
type Request struct {
	OwnerID     string
	Question    string
	TagNames    []string
	DocumentIDs []string
	History     []domain.ConversationMessage
}

// Answer is the synchronous pipeline output.
type Answer struct {
	Answer  string
	Matches []domain.Match
}

// Config bounds the pipeline stages.
type Config struct {
	ScoreThreshold  float64
	CandidateBudget int
	FallbackTopK    int
	MaxSourceChars  int
	MinQuestionLen  int
}

// Service orchestrates the query pipeline.
type Service struct {
	embedder  Embedder
	retriever Retriever
	tags      TagResolver
	bookmarks BookmarkReader
	judge     Judge
	generator Generator
	cfg       Config
}

// New creates a query service.
func New(
	embedder Embedder,
	retriever Retriever,
	tags TagResolver,
	bookmarks BookmarkReader,
	judge Judge,
	generator Generator,
	cfg Config,
) *Service {
	return &Service{
		embedder:  embedder,
		retriever: retriever,
		tags:      tags,
		bookmarks: bookmarks,
		judge:     judge,
		generator: generator,
		cfg:       cfg,
	}
}

// Ask runs the pipeline synchronously.
func (s *Service) Ask(ctx context.Context, req *Request) (*Answer, error) {
	prep, err := s.prepare(ctx, req)
	if err != nil {
		s.countQuery(err)
		return nil, err
	}

	if prep.fixedAnswer != "" {
		s.countQuery(nil)
		return &Answer{Answer: prep.fixedAnswer, Matches: []domain.Match{}}, nil
	}

	text, err := s.generator.Generate(ctx, prep.prompt)
	if err != nil {
		err = domain.NewPipelineError(domain.StageGeneration, err)
		s.countQuery(err)
		return nil, err
	}

	s.countQuery(nil)
	return &Answer{Answer: text, Matches: prep.matches}, nil
}

// Stream runs the pipeline in streaming mode. Validation failures are
// returned synchronously; everything after that arrives as StreamEvents:
// one matches event first, then content fragments, then exactly one
// terminal done or error event.
func (s *Service) Stream(ctx context.Context, req *Request) (<-chan domain.StreamEvent, error) {
	if err := s.validate(req); err != nil {
		s.countQuery(err)
		return nil, err
	}

	out := make(chan domain.StreamEvent)

	go func() {
		defer close(out)

		prep, err := s.prepare(ctx, req)
		if err != nil {
			s.countQuery(err)
			s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamEventError, Err: err.Error()})
			return
		}

		if !s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamEventMatches, Matches: prep.matches}) {
			return
		}

		if prep.fixedAnswer != "" {
			if s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamEventContent, Content: prep.fixedAnswer}) {
				s.countQuery(nil)
				s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamEventDone})
			}
			return
		}

		frags, err := s.generator.Stream(ctx, prep.prompt)
		if err != nil {
			err = domain.NewPipelineError(domain.StageGeneration, err)
			s.countQuery(err)
			s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamEventError, Err: err.Error()})
			return
		}

		for f := range frags {
			if f.Err != nil {
				err = domain.NewPipelineError(domain.StageGeneration, f.Err)
				s.countQuery(err)
				s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamEventError, Err: err.Error()})
				return
			}
			if !s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamEventContent, Content: f.Text}) {
				return
			}
		}

		s.countQuery(nil)
		s.emit(ctx, out, domain.StreamEvent{Type: domain.StreamEventDone})
	}()

	return out, nil
}

// preparation is the pipeline state up to (not including) generation.
type preparation struct {
	matches []domain.Match
	prompt  string

	// fixedAnswer short-circuits generation when set.
	fixedAnswer string
}

// prepare runs validating through composing. Direct references take
// precedence over retrieval: when DocumentIDs is non-empty no embedding or
// vector-store call is made.
func (s *Service) prepare(ctx context.Context, req *Request) (*preparation, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	question := trimmedQuestion(req)

	if len(req.DocumentIDs) > 0 {
		return s.prepareDirect(ctx, req, question)
	}
	return s.prepareRetrieval(ctx, req, question)
}

func (s *Service) prepareDirect(ctx context.Context, req *Request, question string) (*preparation, error) {
	docs, err := s.bookmarks.GetByIDs(ctx, req.OwnerID, req.DocumentIDs)
	if err != nil {
		return nil, domain.NewPipelineError(domain.StageRetrieval, err)
	}
	if len(docs) == 0 {
		return &preparation{matches: []domain.Match{}, fixedAnswer: answerNoDocuments}, nil
	}

	matches := make([]domain.Match, 0, len(docs))
	for _, d := range docs {
		matches = append(matches, domain.MatchFromBookmark(d))
	}

	return &preparation{
		matches: matches,
		prompt:  composePrompt(question, matches, req.History, s.cfg.MaxSourceChars),
	}, nil
}

func (s *Service) prepareRetrieval(ctx context.Context, req *Request, question string) (*preparation, error) {
	var tagIDs []string
	if len(req.TagNames) > 0 {
		ids, err := s.tags.ResolveNames(ctx, req.OwnerID, req.TagNames)
		if err != nil {
			return nil, domain.NewPipelineError(domain.StageRetrieval, err)
		}
		// A tag filter that resolves to nothing must not widen into an
		// unfiltered search.
		if len(ids) == 0 {
			return &preparation{matches: []domain.Match{}, fixedAnswer: answerNoTagMatches}, nil
		}
		tagIDs = ids
	}

	embResult, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, domain.NewPipelineError(domain.StageEmbedding, err)
	}
	if len(embResult.Embedding) == 0 {
		return nil, domain.NewPipelineError(domain.StageEmbedding, domain.ErrEmptyEmbedding)
	}

	candidates, err := s.retriever.Search(
		ctx, req.OwnerID, embResult.Embedding, tagIDs, s.cfg.ScoreThreshold, s.cfg.CandidateBudget,
	)
	if err != nil {
		return nil, domain.NewPipelineError(domain.StageRetrieval, err)
	}

	logger.FromContext(ctx).Debug("Retrieved candidates",
		zap.Int("count", len(candidates)),
		zap.Int("tag_filter", len(tagIDs)),
	)

	matches := s.rerank(ctx, question, candidates)
	if matches == nil {
		matches = []domain.Match{}
	}

	return &preparation{
		matches: matches,
		prompt:  composePrompt(question, matches, req.History, s.cfg.MaxSourceChars),
	}, nil
}

func (s *Service) validate(req *Request) error {
	if utf8.RuneCountInString(trimmedQuestion(req)) < s.cfg.MinQuestionLen {
		return domain.NewPipelineError(domain.StageValidation,
			fmt.Errorf("%w: minimum length is %d", domain.ErrQuestionTooShort, s.cfg.MinQuestionLen))
	}
	return nil
}

func (s *Service) emit(ctx context.Context, out chan<- domain.StreamEvent, ev domain.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Service) countQuery(err error) {
	if err == nil {
		metrics.QueriesTotal.WithLabelValues("success", "none").Inc()
		return
	}
	stage := domain.StageOf(err)
	if stage == "" {
		stage = "unknown"
	}
	metrics.QueriesTotal.WithLabelValues("error", stage).Inc()
}

func trimmedQuestion(req *Request) string {
	return strings.TrimSpace(req.Question)
}
