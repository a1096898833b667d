// Package llm talks to an OpenAI-compatible chat API for answer
// synthesis and follow-up question suggestion.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
	"github.com/kailas-cloud/askdex/internal/domain/search/mode"
	"github.com/kailas-cloud/askdex/internal/metrics"
)

// Defaults applied when Config leaves a knob zero.
const (
	DefaultTemperature    = 0.0
	DefaultMaxTokens      = 1024
	DefaultRequestTimeout = 30 * time.Second
	DefaultContextTokens  = 8000
)

// BudgetChecker enforces the LLM token budget.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Config holds the LLM provider settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Provider       string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
	// RPS caps outgoing requests per second; zero disables the limiter.
	RPS float64
	// ContextTokens bounds the prompt size; passages past the budget are dropped.
	ContextTokens int
	Budget        BudgetChecker
	Logger        *zap.Logger
}

// Client is a synthesis provider using an OpenAI-compatible chat API.
// It implements domain.Synthesizer and domain.Suggester.
type Client struct {
	model          llms.Model
	modelName      string
	provider       string
	temperature    float64
	maxTokens      int
	requestTimeout time.Duration
	contextTokens  int
	limiter        *rate.Limiter
	budget         BudgetChecker
	logger         *zap.Logger
}

// New creates an LLM client.
func New(cfg *Config) (*Client, error) {
	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}

	c := &Client{
		model:          model,
		modelName:      cfg.Model,
		provider:       cfg.Provider,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
		requestTimeout: cfg.RequestTimeout,
		contextTokens:  cfg.ContextTokens,
		budget:         cfg.Budget,
		logger:         cfg.Logger,
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = DefaultRequestTimeout
	}
	if c.contextTokens <= 0 {
		c.contextTokens = DefaultContextTokens
	}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// synthesisResponse is the JSON shape requested from the model.
type synthesisResponse struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// Synthesize implements domain.Synthesizer. Passages past the context
// budget are dropped, best-scored first so the tail goes.
func (c *Client) Synthesize(
	ctx context.Context, query string, m mode.Mode, passages []passage.Passage,
) (domain.Synthesis, error) {
	if len(passages) == 0 {
		return domain.Synthesis{}, fmt.Errorf("%w: no passages to synthesize from", domain.ErrNoResults)
	}

	kept := c.clampToContext(query, passages)

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt(m))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt(query, kept))},
		},
	}

	raw, usage, err := c.generate(ctx, content)
	if err != nil {
		return domain.Synthesis{}, err
	}

	var parsed synthesisResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		c.logger.Warn("synthesis response is not valid JSON, using raw text",
			zap.String("model", c.modelName), zap.Error(err))
		parsed = synthesisResponse{Answer: strings.TrimSpace(raw)}
	}
	if parsed.Answer == "" {
		return domain.Synthesis{}, fmt.Errorf("empty synthesis answer: %w", domain.ErrLLMUnavailable)
	}

	return domain.Synthesis{
		Answer:           parsed.Answer,
		Citations:        knownCitations(parsed.Citations, kept),
		PromptTokens:     usage.prompt,
		CompletionTokens: usage.completion,
	}, nil
}

// suggestResponse is the JSON shape requested from the model.
type suggestResponse struct {
	Questions []string `json:"questions"`
}

// Suggest implements domain.Suggester.
func (c *Client) Suggest(ctx context.Context, query string) ([]string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(
				`The user's search found nothing. Propose up to 3 broader or rephrased questions ` +
					`that might match the corpus. Respond with JSON: {"questions": ["..."]}`)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(query)},
		},
	}

	raw, _, err := c.generate(ctx, content)
	if err != nil {
		return nil, err
	}

	var parsed suggestResponse
	if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", domain.ErrLLMUnavailable)
	}
	return parsed.Questions, nil
}

// HealthCheck verifies provider availability with a minimal completion.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	_, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart("ping")},
		}},
		llms.WithMaxTokens(1),
	)
	if err != nil {
		return fmt.Errorf("llm health check: %w", err)
	}
	return nil
}

type tokenUsage struct {
	prompt     int
	completion int
}

// generate runs one rate-limited, budget-checked, instrumented call.
func (c *Client) generate(ctx context.Context, content []llms.MessageContent) (string, tokenUsage, error) {
	if c.budget != nil {
		if err := c.budget.Check(ctx); err != nil {
			return "", tokenUsage{}, fmt.Errorf("llm budget check: %w", err)
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", tokenUsage{}, fmt.Errorf("llm rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	start := time.Now()

	resp, err := c.model.GenerateContent(ctx, content,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
		llms.WithJSONMode(),
	)

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.modelName, "error").Inc()
		c.logger.Error("llm request failed",
			zap.String("provider", c.provider),
			zap.String("model", c.modelName),
			zap.Duration("duration", duration),
			zap.Error(err))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", tokenUsage{}, fmt.Errorf("llm request: %w", err)
		}
		return "", tokenUsage{}, fmt.Errorf("llm request: %v: %w", err, domain.ErrLLMUnavailable)
	}
	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.modelName, "error").Inc()
		return "", tokenUsage{}, fmt.Errorf("empty llm response: %w", domain.ErrLLMUnavailable)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider, c.modelName, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(c.provider, c.modelName).Observe(duration.Seconds())

	usage := extractUsage(resp.Choices[0].GenerationInfo)
	if total := usage.prompt + usage.completion; total > 0 {
		metrics.LLMTokensTotal.WithLabelValues(c.provider, c.modelName, "prompt").Add(float64(usage.prompt))
		metrics.LLMTokensTotal.WithLabelValues(c.provider, c.modelName, "completion").Add(float64(usage.completion))
		if c.budget != nil {
			c.budget.Record(int64(total))
			remaining := metrics.LLMBudgetTokensRemaining
			remaining.WithLabelValues(c.provider, "daily").Set(float64(c.budget.RemainingDaily()))
			remaining.WithLabelValues(c.provider, "monthly").Set(float64(c.budget.RemainingMonthly()))
		}
	}

	return resp.Choices[0].Content, usage, nil
}

// clampToContext drops trailing passages once the prompt would exceed
// the context token budget. At least one passage always survives.
func (c *Client) clampToContext(query string, passages []passage.Passage) []passage.Passage {
	used := llms.CountTokens(c.modelName, query) + c.maxTokens
	kept := make([]passage.Passage, 0, len(passages))
	for _, p := range passages {
		used += llms.CountTokens(c.modelName, p.Content())
		if used > c.contextTokens && len(kept) > 0 {
			c.logger.Debug("context budget reached, truncating passages",
				zap.Int("kept", len(kept)), zap.Int("total", len(passages)))
			break
		}
		kept = append(kept, p)
	}
	return kept
}

func systemPrompt(m mode.Mode) string {
	base := `You answer questions strictly from the provided passages. ` +
		`Never use outside knowledge. If the passages do not contain the answer, say so. ` +
		`Respond with JSON: {"answer": "...", "citations": ["passage-id", ...]} ` +
		`where citations lists the IDs of the passages you used.`

	switch m {
	case mode.Quote:
		return base + ` Quote the passages verbatim; do not paraphrase.`
	case mode.List:
		return base + ` Format the answer as a bulleted list.`
	case mode.Table:
		return base + ` Format the answer as a markdown table.`
	case mode.Summary, mode.DocumentFull:
		return base + ` Summarize the passages as a whole.`
	default:
		return base
	}
}

func userPrompt(query string, passages []passage.Passage) string {
	var b strings.Builder
	b.WriteString("Passages:\n")
	for _, p := range passages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", p.ID(), p.Content())
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

// knownCitations keeps only citations that name a passage actually sent
// to the model; anything else is hallucinated.
func knownCitations(cited []string, passages []passage.Passage) []string {
	known := make(map[string]bool, len(passages))
	for _, p := range passages {
		known[p.ID()] = true
	}
	var out []string
	for _, id := range cited {
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

// stripFences removes a markdown code fence around a JSON body.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractUsage(info map[string]any) tokenUsage {
	return tokenUsage{
		prompt:     intFrom(info, "PromptTokens"),
		completion: intFrom(info, "CompletionTokens"),
	}
}

func intFrom(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
