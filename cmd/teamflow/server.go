package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/api/handlers"
	"github.com/BaSui01/teamflow/config"
	"github.com/BaSui01/teamflow/gateway"
	"github.com/BaSui01/teamflow/internal/metrics"
	"github.com/BaSui01/teamflow/internal/server"
	"github.com/BaSui01/teamflow/internal/telemetry"
	"github.com/BaSui01/teamflow/orchestrator"
	"github.com/BaSui01/teamflow/reasoning"
	"github.com/BaSui01/teamflow/router"
	"github.com/BaSui01/teamflow/session"
	"github.com/BaSui01/teamflow/team"
)

// Server wires the full service: team registry, session store, tool gateway,
// router, orchestrator, HTTP API, and the metrics listener.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	registry  *team.Registry
	store     session.Store
	orch      *orchestrator.Orchestrator
	collector *metrics.Collector

	httpManager    *server.Manager
	metricsManager *server.Manager

	watcher       *team.Watcher
	watcherCancel context.CancelFunc

	limiterCancel context.CancelFunc
	otel          *telemetry.Providers
}

// NewServer builds all components from config without binding any listeners.
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector("teamflow", logger),
		otel:      otelProviders,
	}

	s.registry = team.NewRegistry(logger)
	if err := s.registry.LoadDir(cfg.Teams.Dir); err != nil {
		return nil, fmt.Errorf("load teams from %s: %w", cfg.Teams.Dir, err)
	}
	logger.Info("teams loaded",
		zap.String("dir", cfg.Teams.Dir),
		zap.Int("count", s.registry.Len()),
	)

	store, err := session.NewStore(session.Config{
		Type:       session.StoreType(cfg.Store.Type),
		BaseDir:    cfg.Store.BaseDir,
		SQLitePath: cfg.Store.SQLitePath,
		Redis: session.RedisConfig{
			Addr:      cfg.Store.Redis.Addr,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			PoolSize:  cfg.Store.Redis.PoolSize,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
		},
	}, s.registry)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	s.store = store

	gw := gateway.New(gateway.Config{
		Timeout:       cfg.Gateway.Timeout,
		RatePerSecond: cfg.Gateway.RatePerSecond,
		Burst:         cfg.Gateway.Burst,
	}, logger)
	gateway.RegisterBuiltins(gw, gateway.BuiltinConfig{
		DataDir:        cfg.Gateway.DataDir,
		SearchEndpoint: cfg.Gateway.SearchEndpoint,
	})

	provider := reasoning.NewOpenAIProvider(reasoning.OpenAIConfig{
		BaseURL: cfg.Reasoning.BaseURL,
		APIKey:  cfg.Reasoning.APIKey,
		Model:   cfg.Reasoning.Model,
		Timeout: cfg.Reasoning.Timeout,
	}, logger)

	var classifier router.Classifier
	switch cfg.Router.Classifier {
	case "llm":
		model := cfg.Router.Model
		if model == "" {
			model = cfg.Reasoning.Model
		}
		classifier = router.NewLLMClassifier(provider, model, logger)
	default:
		classifier = router.KeywordClassifier{}
	}
	rtr := router.New(classifier, logger)

	windower := session.NewWindower(cfg.Orchestrator.ContextEncoding, cfg.Orchestrator.ContextBudget)

	s.orch = orchestrator.New(orchestrator.Config{
		Model:             cfg.Reasoning.Model,
		Temperature:       float32(cfg.Orchestrator.Temperature),
		MaxTokens:         cfg.Orchestrator.MaxTokens,
		MaxToolIterations: cfg.Orchestrator.MaxToolIterations,
		MaxHandoffDepth:   cfg.Orchestrator.MaxHandoffDepth,
		RequestTimeout:    cfg.Orchestrator.RequestTimeout,
	}, s.registry, s.store, rtr, gw, provider, windower, s.collector, logger)

	return s, nil
}

// Start binds both listeners and, when configured, the team file watcher.
func (s *Server) Start() error {
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}
	if s.cfg.Teams.Watch {
		s.watcher = team.NewWatcher(s.cfg.Teams.Dir, s.cfg.Teams.WatchInterval, s.registry, s.logger)
		ctx, cancel := context.WithCancel(context.Background())
		s.watcherCancel = cancel
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("start team watcher: %w", err)
		}
	}

	s.logger.Info("all servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("team_watch", s.cfg.Teams.Watch),
	)
	return nil
}

func (s *Server) buildMux() http.Handler {
	interact := handlers.NewInteractHandler(s.orch, s.registry, s.logger)
	teams := handlers.NewTeamsHandler(s.registry, s.logger)
	conversations := handlers.NewConversationsHandler(s.store, s.logger)
	health := handlers.NewHealthHandler(s.store, s.registry, Version, s.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/interact", interact.Interact)
	mux.HandleFunc("GET /v1/teams", teams.List)
	mux.HandleFunc("GET /v1/conversations/{id}", conversations.Get)
	mux.HandleFunc("DELETE /v1/conversations/{id}", conversations.Delete)
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /livez", health.Live)
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	// Compatibility route for clients of the original service.
	mux.HandleFunc("POST /inferenceAgentTeam", interact.LegacyInference)

	skipAuthPaths := []string{"/healthz", "/livez", "/version"}
	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		OTelTracing(),
		MetricsMiddleware(s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.RatePerSecond > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.limiterCancel = cancel
		middlewares = append(middlewares,
			RateLimiter(ctx, s.cfg.Server.RatePerSecond, s.cfg.Server.RateBurst, s.logger))
	}
	if s.cfg.Auth.Enabled {
		middlewares = append(middlewares,
			JWTAuth(s.cfg.Auth.JWTSecret, skipAuthPaths, s.logger))
	}

	return Chain(mux, middlewares...)
}

func (s *Server) startHTTPServer() error {
	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	s.httpManager = server.NewManager(s.buildMux(), serverConfig, s.logger)
	return s.httpManager.Start()
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}
	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	return s.metricsManager.Start()
}

// WaitForShutdown blocks until SIGINT/SIGTERM or a listener failure, then
// shuts everything down.
func (s *Server) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-s.httpManager.Errors():
		s.logger.Error("HTTP server exited unexpectedly", zap.Error(err))
	case err := <-s.metricsManager.Errors():
		s.logger.Error("metrics server exited unexpectedly", zap.Error(err))
	}

	s.Shutdown()
}

// Shutdown stops the watcher, drains both listeners, closes the store, and
// flushes telemetry.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")
	ctx := context.Background()

	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.watcherCancel != nil {
		s.watcherCancel()
	}
	if s.limiterCancel != nil {
		s.limiterCancel()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("session store close error", zap.Error(err))
		}
	}
	if err := s.otel.Shutdown(ctx); err != nil {
		s.logger.Error("telemetry shutdown error", zap.Error(err))
	}

	s.logger.Info("graceful shutdown completed")
}
