package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hypermemo/hypermemo/internal/domain"
	"github.com/hypermemo/hypermemo/internal/metrics"
)

// Generator is a chat completion provider using the OpenAI-compatible API.
// One instance serves both synchronous generation and streaming.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	provider    string
	timeout     time.Duration
	logger      *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Provider    string
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		provider:    cfg.Provider,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// Generate implements domain.Generator for the synchronous mode.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(prompt, false))
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "sync", "error").Inc()
		return "", parseGenerationAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "sync", "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "sync", "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model, "sync").Observe(time.Since(start).Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

// Stream implements domain.Generator for the streaming mode. Fragments are
// delivered over an unbuffered channel so production is paced by the
// consumer. The channel is closed after the final fragment; a fragment with
// a non-nil Err is terminal.
func (g *Generator) Stream(ctx context.Context, prompt string) (<-chan domain.Fragment, error) {
	start := time.Now()

	// The timeout covers the whole stream, from the initial request to the
	// last delta. Fragment delivery stays on the caller context so a
	// deadline hit mid-stream still reaches the consumer as a terminal Err.
	callCtx, cancel := withTimeout(ctx, g.timeout)

	stream, err := g.client.CreateChatCompletionStream(callCtx, g.buildRequest(prompt, true))
	if err != nil {
		cancel()
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "stream", "error").Inc()
		return nil, parseGenerationAPIError(err)
	}

	out := make(chan domain.Fragment)

	go func() {
		defer close(out)
		defer stream.Close()
		defer cancel()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "stream", "success").Inc()
				metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model, "stream").Observe(time.Since(start).Seconds())
				return
			}
			if err != nil {
				metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "stream", "error").Inc()
				g.send(ctx, out, domain.Fragment{Err: parseGenerationAPIError(err)})
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}

			if !g.send(ctx, out, domain.Fragment{Text: delta}) {
				return
			}
		}
	}()

	return out, nil
}

// send delivers a fragment unless the consumer is gone. Returns false when
// the context is done.
func (g *Generator) send(ctx context.Context, out chan<- domain.Fragment, f domain.Fragment) bool {
	select {
	case out <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func (g *Generator) buildRequest(prompt string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		Stream:      stream,
	}
}

// parseGenerationAPIError wraps provider failures with
// domain.ErrGenerationProviderError for correct 502 mapping.
func parseGenerationAPIError(err error) error {
	return parseAPIError(err, "generation", domain.ErrGenerationProviderError)
}
