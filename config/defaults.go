package config

import "time"

// DefaultConfig returns the configuration used when nothing overrides it.
// Every default keeps a bare `teamflow serve` runnable without a reasoning
// backend: memory store, keyword classifier, no auth.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9090,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    180 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RatePerSecond:   0,
			RateBurst:       20,
		},
		Teams: TeamsConfig{
			Dir:           "agentTeamFiles",
			Watch:         false,
			WatchInterval: 5 * time.Second,
		},
		Store: StoreConfig{
			Type:    "memory",
			BaseDir: "data/sessions",
			Redis: RedisStoreConfig{
				Addr:      "localhost:6379",
				PoolSize:  10,
				KeyPrefix: "teamflow:",
			},
			SQLitePath: "data/teamflow.db",
		},
		Reasoning: ReasoningConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Router: RouterConfig{
			Classifier: "keyword",
		},
		Gateway: GatewayConfig{
			Timeout:       30 * time.Second,
			RatePerSecond: 10,
			Burst:         20,
			DataDir:       "data/files",
		},
		Orchestrator: OrchestratorConfig{
			MaxToolIterations: 5,
			MaxHandoffDepth:   3,
			RequestTimeout:    120 * time.Second,
			Temperature:       0.7,
			ContextBudget:     8000,
			ContextEncoding:   "cl100k_base",
		},
		Auth: AuthConfig{
			Enabled: false,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "teamflow",
			SampleRate:  1.0,
		},
	}
}
