package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrBookmarkNotFound signals a missing bookmark.
	ErrBookmarkNotFound = errors.New("bookmark not found")
	// ErrTagNotFound signals a missing tag.
	ErrTagNotFound = errors.New("tag not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidInput signals a client-input validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrQuestionTooShort signals a question below the minimum length.
	ErrQuestionTooShort = errors.New("question is too short")
	// ErrEmptyEmbedding signals that the question could not be embedded.
	ErrEmptyEmbedding = errors.New("unable to embed question")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGenerationProviderError signals a generation provider failure.
	ErrGenerationProviderError = errors.New("generation provider error")
)

// Pipeline stages used to identify where a query failed.
const (
	StageValidation = "validation"
	StageEmbedding  = "embedding"
	StageRetrieval  = "retrieval"
	StageGeneration = "generation"
)

// PipelineError wraps a failure with the pipeline stage that produced it.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s stage: %s", e.Stage, e.Err.Error())
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError annotates err with the failing stage.
func NewPipelineError(stage string, err error) error {
	return &PipelineError{Stage: stage, Err: err}
}

// StageOf returns the failing stage of a pipeline error, or "" if err
// carries no stage annotation.
func StageOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
