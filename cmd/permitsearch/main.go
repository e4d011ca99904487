package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/openpermit/permitsearch/internal/config"
	"github.com/openpermit/permitsearch/internal/db"
	dbQdrant "github.com/openpermit/permitsearch/internal/db/qdrant"
	dbRedis "github.com/openpermit/permitsearch/internal/db/redis"
	"github.com/openpermit/permitsearch/internal/domain"
	"github.com/openpermit/permitsearch/internal/domain/schema"
	logpkg "github.com/openpermit/permitsearch/internal/logger"
	"github.com/openpermit/permitsearch/internal/metrics"
	"github.com/openpermit/permitsearch/internal/querylog"
	budgetrepo "github.com/openpermit/permitsearch/internal/repository/budget"
	documentrepo "github.com/openpermit/permitsearch/internal/repository/document"
	"github.com/openpermit/permitsearch/internal/repository/embcache"
	searchrepo "github.com/openpermit/permitsearch/internal/repository/search"
	chiTransport "github.com/openpermit/permitsearch/internal/transport/chi"
	openaiEmb "github.com/openpermit/permitsearch/internal/transport/openai"
	batchuc "github.com/openpermit/permitsearch/internal/usecase/batch"
	documentuc "github.com/openpermit/permitsearch/internal/usecase/document"
	embeddinguc "github.com/openpermit/permitsearch/internal/usecase/embedding"
	healthuc "github.com/openpermit/permitsearch/internal/usecase/health"
	searchuc "github.com/openpermit/permitsearch/internal/usecase/search"
	usageuc "github.com/openpermit/permitsearch/internal/usecase/usage"
	"github.com/openpermit/permitsearch/internal/version"
)

// embeddingProvider is the label used in metrics and budget keys.
const embeddingProvider = "openai"

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

	logger.Info("Starting permitsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("collection", cfg.Search.Collection),
	)

	// Create database store based on driver
	var store db.Store
	switch cfg.Database.Driver {
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Database.Addrs,
			Password:  cfg.Database.Password,
			KeyPrefix: cfg.Storage.KeyPrefix,
		})
	case "qdrant":
		store, err = dbQdrant.NewStore(dbQdrant.Config{
			Addr: cfg.Database.Addrs[0],
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

	// Permit schema is fixed per deployment and comes from config.
	sch, err := schema.FromConfig(cfg.Search.Collection, cfg.Embedding.Dimensions, cfg.Search.Fields)
	if err != nil {
		logger.Fatal("Invalid permit schema", zap.Error(err))
	}

	// Ensure the vector index exists. A dimension mismatch against an
	// existing index is a startup failure, not something to heal silently.
	if err := ensureIndex(ctx, store, sch, cfg.Index); err != nil {
		logger.Fatal("Failed to ensure index", zap.Error(err))
	}
	logger.Info("Index ready",
		zap.String("collection", sch.Collection()),
		zap.Int("dimensions", sch.VectorDim()),
		zap.Int("fields", len(sch.Fields())),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	// Qdrant has no KV storage: embedding cache and budget persistence
	// are Redis-only features.
	supportsKV := cfg.Database.Driver == "redis"

	// Single BudgetTracker shared across all embedders and usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := cfg.Embedding.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			embeddingProvider, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		if supportsKV {
			// Connect persistence store — loads current counters from DB.
			budgetStore := budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour)
			budget.WithStore(ctx, budgetStore, cfg.Storage.KeyPrefix)
		}
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	var cacheStore db.Store
	if cfg.Embedding.CacheEnabled && supportsKV {
		cacheStore = store
	}

	docEmbedder := buildEmbedder(
		cfg.Embedding, cfg.Embedding.DocumentInstruction,
		cacheStore, cfg.Storage.KeyPrefix, budgetChecker, logger,
	)
	queryEmbedder := buildEmbedder(
		cfg.Embedding, cfg.Embedding.QueryInstruction,
		cacheStore, cfg.Storage.KeyPrefix, budgetChecker, logger,
	)
	logger.Info("Embedders created",
		zap.String("provider", embeddingProvider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cacheStore != nil),
	)

	// Query log: one JSON line per search request.
	if dir := filepath.Dir(cfg.QueryLog.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("Failed to create query log directory", zap.Error(err))
		}
	}
	qlog, err := querylog.New(cfg.QueryLog.Path, metrics.QueryLogWritesTotal)
	if err != nil {
		logger.Fatal("Failed to open query log", zap.Error(err))
	}
	defer func() { _ = qlog.Close() }()

	// Create repositories (domain-native, no adapters)
	docRepo := documentrepo.New(store, sch)
	searchRepo := searchrepo.New(store, sch)

	// Create use case services
	searchSvc := searchuc.New(searchRepo, sch, queryEmbedder, qlog)
	docSvc := documentuc.New(docRepo, sch, docEmbedder).
		WithPagination(cfg.Index.DefaultPageSize, cfg.Index.MaxPageSize)
	batchSvc := batchuc.New(docRepo, docRepo, sch, docEmbedder).
		WithMaxBatchSize(cfg.Index.MaxBatchSize)

	// Usage service — reads from shared BudgetTracker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader, cfg.Search.Collection)
	if budgetCfg.CostPerMillionTokens > 0 {
		usageSvc = usageSvc.WithCost(int(budgetCfg.CostPerMillionTokens * 1000))
	}

	// Health service
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(docEmbedder))

	// Create chi server
	server := chiTransport.NewServer(searchSvc, docSvc, batchSvc, usageSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(chiTransport.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	r.Use(metrics.Middleware())
	server.Register(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
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

// ensureIndex builds the index definition from the schema and creates it
// if missing.
func ensureIndex(ctx context.Context, store db.Store, sch schema.Schema, idx config.IndexConfig) error {
	builder := db.NewIndex(sch.Collection()).
		Dimensions(sch.VectorDim()).
		HNSW(idx.HNSWM, idx.HNSWEFConstruct)
	for _, f := range sch.Fields() {
		switch f.Kind() {
		case schema.Tag:
			builder.Tag(f.Name())
		case schema.Numeric:
			builder.Numeric(f.Name())
		}
	}
	def, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build index definition: %w", err)
	}
	if err := store.EnsureIndex(ctx, def); err != nil {
		return fmt.Errorf("ensure index %s: %w", sch.Collection(), err)
	}
	return nil
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
	embCfg config.EmbeddingConfig,
	instruction string,
	cacheStore db.Store,
	keyPrefix string,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) interface {
	domain.Embedder
	domain.BatchEmbedder
} {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Provider:   embeddingProvider,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if cacheStore != nil {
		cached := embcache.New(base, cacheStore, keyPrefix, metrics.EmbeddingCacheTotal, logger)
		if embCfg.CacheTTLHours > 0 {
			cached = cached.WithTTL(time.Duration(embCfg.CacheTTLHours) * time.Hour)
		}
		embedder = cached
	}

	// Instrumented (budget + metrics)
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		embedder, embeddingProvider, embCfg.Model, budget, logger,
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

			// Per-request logger with request_id; the id also travels in
			// context so the query log can record it.
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)
			ctx = logpkg.ContextWithRequestID(ctx, requestID)

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
