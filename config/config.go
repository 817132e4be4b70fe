package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the complete teamflow service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" env:"SERVER"`
	Teams        TeamsConfig        `yaml:"teams" env:"TEAMS"`
	Store        StoreConfig        `yaml:"store" env:"STORE"`
	Reasoning    ReasoningConfig    `yaml:"reasoning" env:"REASONING"`
	Router       RouterConfig       `yaml:"router" env:"ROUTER"`
	Gateway      GatewayConfig      `yaml:"gateway" env:"GATEWAY"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`
	Auth         AuthConfig         `yaml:"auth" env:"AUTH"`
	Log          LogConfig          `yaml:"log" env:"LOG"`
	Telemetry    TelemetryConfig    `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// RatePerSecond limits inbound requests per client; zero disables.
	RatePerSecond float64 `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	RateBurst     int     `yaml:"rate_burst" env:"RATE_BURST"`
	// CORSAllowedOrigins lists origins allowed to call the API from a
	// browser. Empty means no CORS headers are set.
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// TeamsConfig configures team definition ingestion.
type TeamsConfig struct {
	// Dir holds the *.json team definition files.
	Dir string `yaml:"dir" env:"DIR"`
	// Watch reloads team files when they change on disk.
	Watch         bool          `yaml:"watch" env:"WATCH"`
	WatchInterval time.Duration `yaml:"watch_interval" env:"WATCH_INTERVAL"`
}

// RedisStoreConfig configures the Redis session backend.
type RedisStoreConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	PoolSize  int    `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	// Type selects the backend: memory, file, redis, sqlite.
	Type       string           `yaml:"type" env:"TYPE"`
	BaseDir    string           `yaml:"base_dir" env:"BASE_DIR"`
	SQLitePath string           `yaml:"sqlite_path" env:"SQLITE_PATH"`
	Redis      RedisStoreConfig `yaml:"redis" env:"REDIS"`
}

// ReasoningConfig configures the chat-completion backend.
type ReasoningConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	Model   string        `yaml:"model" env:"MODEL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// RouterConfig configures triage classification.
type RouterConfig struct {
	// Classifier selects the backend: llm or keyword.
	Classifier string `yaml:"classifier" env:"CLASSIFIER"`
	// Model overrides the reasoning model for classification calls.
	Model string `yaml:"model" env:"MODEL"`
}

// GatewayConfig configures tool dispatch.
type GatewayConfig struct {
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RatePerSecond float64       `yaml:"rate_per_second" env:"RATE_PER_SECOND"`
	Burst         int           `yaml:"burst" env:"BURST"`
	// DataDir holds uploaded CSV files and RAG collections.
	DataDir        string `yaml:"data_dir" env:"DATA_DIR"`
	SearchEndpoint string `yaml:"search_endpoint" env:"SEARCH_ENDPOINT"`
}

// OrchestratorConfig bounds message handling.
type OrchestratorConfig struct {
	MaxToolIterations int           `yaml:"max_tool_iterations" env:"MAX_TOOL_ITERATIONS"`
	MaxHandoffDepth   int           `yaml:"max_handoff_depth" env:"MAX_HANDOFF_DEPTH"`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	Temperature       float64       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens         int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	// ContextBudget caps transcript tokens handed to the backend; zero
	// disables windowing.
	ContextBudget   int    `yaml:"context_budget" env:"CONTEXT_BUDGET"`
	ContextEncoding string `yaml:"context_encoding" env:"CONTEXT_ENCODING"`
}

// AuthConfig configures bearer-token authentication.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level            string   `yaml:"level" env:"LEVEL"`
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}
	if c.Teams.Dir == "" {
		errs = append(errs, "teams dir is required")
	}
	switch c.Store.Type {
	case "memory", "file", "redis", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unknown store type %q", c.Store.Type))
	}
	if c.Store.Type == "redis" && c.Store.Redis.Addr == "" {
		errs = append(errs, "redis store requires an addr")
	}
	if c.Store.Type == "sqlite" && c.Store.SQLitePath == "" {
		errs = append(errs, "sqlite store requires a path")
	}
	switch c.Router.Classifier {
	case "llm", "keyword":
	default:
		errs = append(errs, fmt.Sprintf("unknown classifier %q", c.Router.Classifier))
	}
	if c.Router.Classifier == "llm" && c.Reasoning.BaseURL == "" {
		errs = append(errs, "llm classifier requires a reasoning base_url")
	}
	if c.Orchestrator.MaxToolIterations <= 0 {
		errs = append(errs, "max_tool_iterations must be positive")
	}
	if c.Orchestrator.MaxHandoffDepth <= 0 {
		errs = append(errs, "max_handoff_depth must be positive")
	}
	if c.Orchestrator.Temperature < 0 || c.Orchestrator.Temperature > 2 {
		errs = append(errs, "temperature must be between 0 and 2")
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		errs = append(errs, "auth requires a jwt_secret")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
