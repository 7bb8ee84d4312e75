package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/edgarlens/factgraph/pkg/types"
)

// PromptVersion identifies the extraction prompt for the audit trail.
const PromptVersion = "v3"

const extractionSystemPrompt = `You extract structured facts from SEC filing excerpts.
Return a single JSON object with two arrays:
  "entities": [{"name": "...", "type": "company|instrument|sector|country|event|concept|indicator", "aliases": ["..."]}]
  "relations": [{"subject": "...", "predicate": "BENEFITS_FROM|EXPOSED_TO|COMPETES_WITH|SUPPLIES_TO|OPERATES_IN|HEADQUARTERED_IN|BELONGS_TO_SECTOR|HAS_CEO|HAS_TICKER|MENTIONS_EVENT|ISSUED_BY|AFFECTED_BY", "object": "...", "literal": "...", "confidence": 0.0}]
Use "object" for entity targets and "literal" for plain values. Return JSON only.`

// OpenAIExtractor calls an OpenAI-compatible chat endpoint and repairs the
// response before it crosses the boundary.
type OpenAIExtractor struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIExtractor creates an extractor. baseURL may point at any
// OpenAI-compatible server; empty uses the default endpoint.
func NewOpenAIExtractor(apiKey, baseURL, model string, temperature float32) *OpenAIExtractor {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIExtractor{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

func (e *OpenAIExtractor) Extract(ctx context.Context, chunkText string) (*Candidate, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: chunkText},
		},
	})
	if err != nil {
		return nil, types.NewUpstreamError("extractor", err)
	}
	if len(resp.Choices) == 0 {
		return nil, types.NewUpstreamError("extractor", fmt.Errorf("empty completion"))
	}

	content := resp.Choices[0].Message.Content

	// Models frequently emit almost-JSON: trailing commas, unquoted keys,
	// fenced blocks. Repair before parsing.
	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		repaired = content
	}

	var candidate Candidate
	if err := json.Unmarshal([]byte(repaired), &candidate); err != nil {
		return nil, types.NewUpstreamError("extractor", fmt.Errorf("unparseable extraction payload: %w", err))
	}
	return &candidate, nil
}

// BreakerConfig holds circuit breaker settings for the extractor.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      2,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		ReadyToTripRatio: 0.6,
	}
}

// BreakerExtractor wraps an Extractor with a circuit breaker so a failing
// model endpoint sheds load instead of stalling every ingestion worker.
type BreakerExtractor struct {
	inner Extractor
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerExtractor wraps the given extractor.
func NewBreakerExtractor(inner Extractor, cfg BreakerConfig) *BreakerExtractor {
	st := gobreaker.Settings{
		Name:        "extractor",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
	}
	return &BreakerExtractor{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(st),
	}
}

func (b *BreakerExtractor) Extract(ctx context.Context, chunkText string) (*Candidate, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Extract(ctx, chunkText)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Candidate), nil
}
