package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the askdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Engine    EngineConfig    `yaml:"engine"`
	Cache     CacheConfig     `yaml:"cache"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds store backend settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, local (default: local)
	Addrs            []string `yaml:"addrs"`  // redis driver
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // local driver data directory
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index build parameters for the redis driver.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit      int64   `yaml:"daily_token_limit"`       // 0 = unlimited
	MonthlyTokenLimit    int64   `yaml:"monthly_token_limit"`     // 0 = unlimited
	CostPerMillionTokens float64 `yaml:"cost_per_million_tokens"` // for the dashboard
	Action               string  `yaml:"action"`                  // "reject" | "warn" (default)
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// LLMConfig holds answer synthesis provider settings.
type LLMConfig struct {
	APIKey            string       `yaml:"api_key"`
	BaseURL           string       `yaml:"base_url"`
	Model             string       `yaml:"model"`
	Provider          string       `yaml:"provider"`
	Temperature       float64      `yaml:"temperature"`
	MaxTokens         int          `yaml:"max_tokens"`
	RequestTimeoutSec int          `yaml:"request_timeout_sec"`
	RPS               float64      `yaml:"rps"` // 0 = no rate limit
	ContextTokens     int          `yaml:"context_tokens"`
	Budget            BudgetConfig `yaml:"budget"`
}

// Enabled reports whether answer synthesis is configured at all.
func (c LLMConfig) Enabled() bool {
	return c.Model != "" || c.APIKey != ""
}

// EngineConfig exposes the retrieval engine constants.
type EngineConfig struct {
	Alpha                  float64             `yaml:"alpha"`
	Beta                   float64             `yaml:"beta"`
	Fusion                 string              `yaml:"fusion"` // weighted (default), rrf
	SingleSignalPenalty    float64             `yaml:"single_signal_penalty"`
	ThresholdStep          float64             `yaml:"threshold_step"`
	StrictnessStep         float64             `yaml:"strictness_step"`
	DefaultTopK            int                 `yaml:"default_top_k"`
	DefaultThreshold       float64             `yaml:"default_threshold"`
	FullDocumentChunkLimit int                 `yaml:"full_document_chunk_limit"`
	ContextBudgetTokens    int                 `yaml:"context_budget_tokens"`
	ShortQueryTokens       int                 `yaml:"short_query_tokens"`
	Synonyms               map[string][]string `yaml:"synonyms"`
	SynonymsFile           string              `yaml:"synonyms_file"` // hot-reloaded; overrides synonyms
	SuggestedQuestions     []string            `yaml:"suggested_questions"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"` // -1 disables the cache
	TTLSec     int `yaml:"ttl_sec"`
}

// FeedbackConfig holds feedback write pool settings.
type FeedbackConfig struct {
	Workers int `yaml:"workers"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "local"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "askdex:"
	}
	if c.LLM.RequestTimeoutSec <= 0 {
		c.LLM.RequestTimeoutSec = 30
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 512
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 3600
	}
	if c.Feedback.Workers <= 0 {
		c.Feedback.Workers = 4
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "local":
		// Path has a default
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"local\", got %q", c.Database.Driver)
	}
	for name, p := range c.Embedding.Providers {
		if err := validateBudgetAction(p.Budget.Action); err != nil {
			return fmt.Errorf("embedding.providers.%s.budget.action: %w", name, err)
		}
	}
	if err := validateBudgetAction(c.LLM.Budget.Action); err != nil {
		return fmt.Errorf("llm.budget.action: %w", err)
	}
	switch c.Engine.Fusion {
	case "", "weighted", "rrf":
	default:
		return fmt.Errorf("engine.fusion must be \"weighted\" or \"rrf\", got %q", c.Engine.Fusion)
	}
	if c.Engine.Alpha < 0 || c.Engine.Beta < 0 {
		return fmt.Errorf("engine.alpha and engine.beta must be non-negative")
	}
	if c.Engine.DefaultThreshold < 0 || c.Engine.DefaultThreshold > 1 {
		return fmt.Errorf("engine.default_threshold must be in [0, 1], got %g", c.Engine.DefaultThreshold)
	}
	return nil
}

func validateBudgetAction(action string) error {
	switch action {
	case "", "warn", "reject":
		return nil
	default:
		return fmt.Errorf("must be \"warn\" or \"reject\", got %q", action)
	}
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
