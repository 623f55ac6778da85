// Package openai generates search answers with an OpenAI-compatible chat API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mixpeek/searchkit/internal/domain/document"
	"github.com/mixpeek/searchkit/internal/metrics"
	"github.com/mixpeek/searchkit/internal/usecase/pipeline"
)

// ErrProvider wraps every answer provider failure.
var ErrProvider = errors.New("answer provider error")

const systemPrompt = "You answer search queries in two or three sentences using only the numbered sources. " +
	"Cite sources as [n]. If the sources do not answer the query, say so."

// Answerer streams chat completions grounded on the retrieved documents.
type Answerer struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

var _ pipeline.Answerer = (*Answerer)(nil)

// Config holds the answer provider settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewAnswerer creates an OpenAI-compatible answer provider.
func NewAnswerer(cfg *Config) *Answerer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}

	return &Answerer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: provider,
		logger:   logger,
	}
}

// Answer implements pipeline.Answerer. Each streamed delta is passed to onChunk.
func (a *Answerer) Answer(
	ctx context.Context, query string, docs []document.Document, onChunk func(string) error,
) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Sources:\n" + pipeline.SourcesPrompt(docs) + "\nQuery: " + query},
		},
		Stream: true,
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		metrics.AnswerRequestsTotal.WithLabelValues(a.provider, a.model, "error").Inc()
		return "", parseAPIError(err)
	}
	defer func() { _ = stream.Close() }()

	var b strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			metrics.AnswerRequestsTotal.WithLabelValues(a.provider, a.model, "error").Inc()
			return "", parseAPIError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		metrics.AnswerTokensTotal.WithLabelValues(a.provider, a.model).Inc()
		b.WriteString(delta)
		if err := onChunk(delta); err != nil {
			return "", err
		}
	}

	metrics.AnswerRequestsTotal.WithLabelValues(a.provider, a.model, "success").Inc()
	a.logger.Debug("answer generated", zap.String("model", a.model), zap.Int("chars", b.Len()))
	return b.String(), nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (a *Answerer) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with ErrProvider.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("answer API error %d: %s: %w", reqErr.HTTPStatusCode, detail, ErrProvider)
		}
		return fmt.Errorf("answer API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), ErrProvider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("answer API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("answer request failed: %v: %w", err, ErrProvider)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
