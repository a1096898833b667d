package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Database: DatabaseConfig{
			Driver: "redis",
			Addrs:  []string{"localhost:6379"},
		},
	}
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding = EmbeddingConfig{
		Providers: map[string]ProviderConfig{
			"nebius": {
				APIKey:  "test-key",
				BaseURL: "https://api.example.com/v1/",
				Budget: BudgetConfig{
					DailyTokenLimit: 1000000,
					Action:          "invalid_action",
				},
			},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.providers.nebius.budget.action: must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_InvalidLLMBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Budget.Action = "block"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid llm budget action")
	}
	if !strings.Contains(err.Error(), "llm.budget.action") {
		t.Errorf("error should name the field, got %q", err.Error())
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	validActions := []string{"", "warn", "reject"}

	for _, action := range validActions {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding = EmbeddingConfig{
				Providers: map[string]ProviderConfig{
					"nebius": {
						APIKey: "test-key",
						Budget: BudgetConfig{Action: action},
					},
				},
			}
			cfg.LLM.Budget.Action = action

			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_RedisDriverRequiresAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis driver without addrs")
	}
}

func TestValidate_LocalDriverNeedsNoAddrs(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Driver: "local", Path: "data"},
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = "postgres"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestValidate_Fusion(t *testing.T) {
	for _, fusion := range []string{"", "weighted", "rrf"} {
		cfg := validConfig()
		cfg.Engine.Fusion = fusion
		if err := cfg.Validate(); err != nil {
			t.Errorf("fusion %q: unexpected error: %v", fusion, err)
		}
	}

	cfg := validConfig()
	cfg.Engine.Fusion = "borda"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown fusion algorithm")
	}
}

func TestValidate_DefaultThresholdRange(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.DefaultThreshold = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold above 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.Driver != "local" {
		t.Errorf("expected driver=local, got %q", cfg.Database.Driver)
	}
	if cfg.Database.Path != "data" {
		t.Errorf("expected Path='data', got %q", cfg.Database.Path)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Index.HNSWM != 16 {
		t.Errorf("expected HNSWM=16, got %d", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 200 {
		t.Errorf("expected HNSWEFConstruct=200, got %d", cfg.Index.HNSWEFConstruct)
	}
	if cfg.Storage.KeyPrefix != "askdex:" {
		t.Errorf("expected KeyPrefix='askdex:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.LLM.RequestTimeoutSec != 30 {
		t.Errorf("expected LLM RequestTimeoutSec=30, got %d", cfg.LLM.RequestTimeoutSec)
	}
	if cfg.Cache.MaxEntries != 512 {
		t.Errorf("expected Cache MaxEntries=512, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.TTLSec != 3600 {
		t.Errorf("expected Cache TTLSec=3600, got %d", cfg.Cache.TTLSec)
	}
	if cfg.Feedback.Workers != 4 {
		t.Errorf("expected Feedback Workers=4, got %d", cfg.Feedback.Workers)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Driver: "redis", Path: "/var/lib/askdex", ReadinessTimeout: 15},
		Index:    IndexConfig{HNSWM: 32, HNSWEFConstruct: 400},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
		Cache:    CacheConfig{MaxEntries: -1, TTLSec: 60},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Database.Driver != "redis" {
		t.Errorf("expected driver=redis, got %q", cfg.Database.Driver)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Cache.MaxEntries != -1 {
		t.Errorf("expected MaxEntries=-1 preserved, got %d", cfg.Cache.MaxEntries)
	}
}

func TestLLMConfig_Enabled(t *testing.T) {
	if (LLMConfig{}).Enabled() {
		t.Error("empty llm config must be disabled")
	}
	if !(LLMConfig{Model: "m"}).Enabled() {
		t.Error("llm config with a model must be enabled")
	}
}
