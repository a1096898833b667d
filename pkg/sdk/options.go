package askdex

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// OpenAIConfig configures the built-in OpenAI-compatible providers.
// ChatModel is optional: without it no answer synthesis happens and
// results carry chunks only.
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
	Dimensions     int
	ChatModel      string
}

// Engine exposes the retrieval engine constants. Zero values keep the
// defaults.
type Engine struct {
	Alpha                  float64
	Beta                   float64
	Fusion                 string // "weighted" or "rrf"
	SingleSignalPenalty    float64
	ThresholdStep          float64
	StrictnessStep         float64
	FullDocumentChunkLimit int
	ContextBudgetTokens    int
	ShortQueryTokens       int
	SuggestedQuestions     []string
}

type clientConfig struct {
	driver   string // "redis" or "local"
	addrs    []string
	password string
	path     string // local driver; empty means in-memory

	embedder    Embedder
	synthesizer Synthesizer
	suggester   Suggester
	openai      *OpenAIConfig

	engine           Engine
	synonyms         map[string][]string
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int

	cacheMaxEntries int
	cacheTTL        time.Duration
	cacheDisabled   bool

	feedbackWorkers int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance with
// the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithLocal configures the embedded store. An empty path keeps
// everything in memory.
func WithLocal(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "local"
		c.path = path
	})
}

// WithEmbedder sets the text embedding provider.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAI wires the built-in OpenAI-compatible embedding provider,
// and the chat provider for answer synthesis when ChatModel is set.
// WithEmbedder and WithSynthesizer take precedence over it.
func WithOpenAI(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &cfg
	})
}

// WithSynthesizer sets a custom answer synthesis provider.
func WithSynthesizer(s Synthesizer) Option {
	return optionFunc(func(c *clientConfig) {
		c.synthesizer = s
	})
}

// WithSuggester sets a custom follow-up question provider used when
// retrieval finds nothing.
func WithSuggester(s Suggester) Option {
	return optionFunc(func(c *clientConfig) {
		c.suggester = s
	})
}

// WithEngine overrides the retrieval engine constants.
func WithEngine(e Engine) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine = e
	})
}

// WithSynonyms sets a static query expansion table.
func WithSynonyms(table map[string][]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.synonyms = table
	})
}

// WithVectorDimensions sets the vector dimension of the passage index.
// Defaults to 1024.
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction)
// for the redis driver. Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithCache sizes the result cache. Defaults: 512 entries, 5 minutes.
func WithCache(maxEntries int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheMaxEntries = maxEntries
		c.cacheTTL = ttl
	})
}

// WithoutCache disables answer memoization entirely.
func WithoutCache() Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheDisabled = true
	})
}

// WithFeedbackWorkers sets the async feedback write pool size. Default: 4.
func WithFeedbackWorkers(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.feedbackWorkers = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
