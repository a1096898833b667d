package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/config"
	"github.com/kailas-cloud/askdex/internal/db"
	dbLocal "github.com/kailas-cloud/askdex/internal/db/local"
	dbRedis "github.com/kailas-cloud/askdex/internal/db/redis"
	"github.com/kailas-cloud/askdex/internal/domain"
	logpkg "github.com/kailas-cloud/askdex/internal/logger"
	"github.com/kailas-cloud/askdex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/askdex/internal/repository/budget"
	corpusrepo "github.com/kailas-cloud/askdex/internal/repository/corpus"
	"github.com/kailas-cloud/askdex/internal/repository/embcache"
	feedbackrepo "github.com/kailas-cloud/askdex/internal/repository/feedback"
	passagerepo "github.com/kailas-cloud/askdex/internal/repository/passage"
	"github.com/kailas-cloud/askdex/internal/repository/resultcache"
	chiTransport "github.com/kailas-cloud/askdex/internal/transport/chi"
	llmTransport "github.com/kailas-cloud/askdex/internal/transport/llm"
	openaiEmb "github.com/kailas-cloud/askdex/internal/transport/openai"
	askuc "github.com/kailas-cloud/askdex/internal/usecase/ask"
	embeddinguc "github.com/kailas-cloud/askdex/internal/usecase/embedding"
	feedbackuc "github.com/kailas-cloud/askdex/internal/usecase/feedback"
	healthuc "github.com/kailas-cloud/askdex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/askdex/internal/usecase/ingest"
	usageuc "github.com/kailas-cloud/askdex/internal/usecase/usage"
	"github.com/kailas-cloud/askdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting askdex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "local":
		store, err = dbLocal.NewStore(dbLocal.Config{
			Path:   cfg.Database.Path,
			Logger: logger,
		})
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterLLMMetrics()

	// Build embedder chain — take the first vectorizer config
	var vecCfg config.VectorizerConfig
	var provName string
	for _, vc := range cfg.Embedding.Vectorizers {
		vecCfg = vc
		provName = vc.Provider
		break
	}
	provCfg := cfg.Embedding.Providers[provName]

	budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)

	// Shared by the embedder chain and the usage service.
	embBudget := newBudgetTracker(ctx, provName, provCfg.Budget, budgetStore, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var embBudgetChecker embeddinguc.BudgetChecker
	if embBudget != nil {
		embBudgetChecker = embBudget
	}

	docEmbedder := buildEmbedder(
		provName, provCfg, vecCfg, vecCfg.DocumentInstruction,
		store, embBudgetChecker, logger,
	)
	queryEmbedder := buildEmbedder(
		provName, provCfg, vecCfg, vecCfg.QueryInstruction,
		store, embBudgetChecker, logger,
	)
	logger.Info("Embedders created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	// Create repositories
	vectorDim := vecCfg.Dimensions
	if vectorDim == 0 {
		vectorDim = domain.DefaultVectorConfig().Dimensions
	}

	passageRepo := passagerepo.New(store)
	if err := passageRepo.EnsureIndex(ctx, vectorDim, cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct); err != nil {
		logger.Fatal("Failed to create passage index", zap.Error(err))
	}
	corpusStore := corpusrepo.New(store)
	feedbackRepo := feedbackrepo.New(store)

	var cache *resultcache.Cache
	if cfg.Cache.MaxEntries > 0 {
		cache, err = resultcache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLSec)*time.Second)
		if err != nil {
			logger.Fatal("Failed to create result cache", zap.Error(err))
		}
	}

	// LLM client for answer synthesis, optional
	llmBudget, synthesizer, suggester, llmChecker := buildLLM(ctx, cfg.LLM, budgetStore, logger)

	// Synonym table with optional hot reload
	synonyms, err := config.NewSynonyms(cfg.Engine.Synonyms, cfg.Engine.SynonymsFile, logger)
	if err != nil {
		logger.Fatal("Failed to load synonyms", zap.Error(err))
	}
	defer func() { _ = synonyms.Close() }()

	// Create use case services
	askDeps := askuc.Deps{
		Passages:    passageRepo,
		Corpus:      corpusStore,
		Embedder:    queryEmbedder,
		Synthesizer: synthesizer,
		Suggester:   suggester,
		Synonyms:    synonyms,
		Logger:      logger,
	}
	if cache != nil {
		askDeps.Cache = cache
	}
	askSvc := askuc.NewInstrumented(askuc.New(askDeps, askuc.Tunables{
		Alpha:                  cfg.Engine.Alpha,
		Beta:                   cfg.Engine.Beta,
		Fusion:                 cfg.Engine.Fusion,
		SingleSignalPenalty:    cfg.Engine.SingleSignalPenalty,
		ThresholdStep:          cfg.Engine.ThresholdStep,
		StrictnessStep:         cfg.Engine.StrictnessStep,
		FullDocumentChunkLimit: cfg.Engine.FullDocumentChunkLimit,
		ContextBudgetTokens:    cfg.Engine.ContextBudgetTokens,
		ShortQueryTokens:       cfg.Engine.ShortQueryTokens,
		SuggestedQuestions:     cfg.Engine.SuggestedQuestions,
	}))

	var cacheInvalidator ingestuc.CacheInvalidator
	if cache != nil {
		cacheInvalidator = cache
	}
	ingestSvc := ingestuc.New(passageRepo, corpusStore, docEmbedder, cacheInvalidator, logger)

	feedbackSvc, err := feedbackuc.New(feedbackRepo, cfg.Feedback.Workers, logger)
	if err != nil {
		logger.Fatal("Failed to create feedback service", zap.Error(err))
	}
	defer func() { _ = feedbackSvc.Close() }()

	// Usage service — reads from the shared budget trackers
	var embBudgetReader, llmBudgetReader usageuc.BudgetReader
	if embBudget != nil {
		embBudgetReader = embBudget
	}
	if llmBudget != nil {
		llmBudgetReader = llmBudget
	}
	usageSvc := usageuc.New(embBudgetReader, llmBudgetReader)

	// Health service
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(docEmbedder), llmChecker)

	// Create chi server
	var cacheAdmin chiTransport.CacheAdmin
	if cache != nil {
		cacheAdmin = cache
	}
	server := chiTransport.NewServer(
		askSvc, ingestSvc, feedbackSvc, cacheAdmin, usageSvc, healthSvc,
		chiTransport.RequestDefaults{
			TopK:      cfg.Engine.DefaultTopK,
			Threshold: cfg.Engine.DefaultThreshold,
		},
		logger,
	)

	handler := server.Router(
		jsonRecoverer(logger),
		chiMiddleware.RequestID,
		wideEventMiddleware(logger),
		chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys),
		metrics.Middleware(),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// newBudgetTracker creates a persisted token budget tracker, or nil
// when no limit is configured.
func newBudgetTracker(
	ctx context.Context,
	provider string,
	cfg config.BudgetConfig,
	store embeddinguc.BudgetStore,
	logger *zap.Logger,
) *embeddinguc.BudgetTracker {
	if cfg.DailyTokenLimit <= 0 && cfg.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := embeddinguc.BudgetActionWarn
	if cfg.Action == "reject" {
		action = embeddinguc.BudgetActionReject
	}
	tracker := embeddinguc.NewBudgetTracker(
		provider, cfg.DailyTokenLimit, cfg.MonthlyTokenLimit, action, logger,
	)
	// Connect persistence store — loads current counters from DB.
	tracker.WithStore(ctx, store)
	return tracker
}

// buildLLM assembles the synthesis client and its budget tracker.
// Everything is nil when synthesis is not configured; the ask service
// then falls back to passages-only answers.
func buildLLM(
	ctx context.Context,
	cfg config.LLMConfig,
	budgetStore embeddinguc.BudgetStore,
	logger *zap.Logger,
) (*embeddinguc.BudgetTracker, domain.Synthesizer, domain.Suggester, healthuc.LLMChecker) {
	if !cfg.Enabled() {
		logger.Info("LLM synthesis disabled, answers will contain passages only")
		return nil, nil, nil, nil
	}

	budget := newBudgetTracker(ctx, "llm", cfg.Budget, budgetStore, logger)
	var budgetChecker llmTransport.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	client, err := llmTransport.New(&llmTransport.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Provider:       cfg.Provider,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
		RequestTimeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		RPS:            cfg.RPS,
		ContextTokens:  cfg.ContextTokens,
		Budget:         budgetChecker,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal("Failed to create LLM client", zap.Error(err))
	}

	logger.Info("LLM client created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
	)
	return budget, client, client, client
}

// documentEmbedder is what ingestion needs: single and batch embedding.
type documentEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	instruction string,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) documentEmbedder {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (budget + metrics)
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		embedder, provName, vecCfg.Model, budget, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}

	return instrumented
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
