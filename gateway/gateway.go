package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config configures the gateway.
type Config struct {
	// Timeout bounds a single tool invocation. Zero means no gateway-level
	// timeout beyond the caller's context.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// RatePerSecond limits outbound tool dispatches across all
	// conversations. Zero disables limiting.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`

	// Burst is the limiter burst size.
	Burst int `json:"burst" yaml:"burst"`
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:       30 * time.Second,
		RatePerSecond: 10,
		Burst:         20,
	}
}

// Gateway dispatches tool calls, enforcing the allowed-tools boundary.
type Gateway struct {
	tools   map[string]Tool
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
	mu      sync.RWMutex
}

// New creates a gateway.
func New(cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Gateway{
		tools:   make(map[string]Tool),
		limiter: limiter,
		timeout: cfg.Timeout,
		logger:  logger.With(zap.String("component", "tool_gateway")),
	}
}

// Register adds a tool. Re-registering a name replaces the prior tool.
func (g *Gateway) Register(tool Tool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tools[tool.Name()] = tool
	g.logger.Info("registered tool", zap.String("tool", tool.Name()))
}

// Lookup returns the registered tool by name.
func (g *Gateway) Lookup(name string) (Tool, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.tools[name]
	return t, ok
}

// ToolNames returns the registered tool names.
func (g *Gateway) ToolNames() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.tools))
	for name := range g.tools {
		names = append(names, name)
	}
	return names
}

// Invoke executes the named tool call for an agent whose allowed tool set is
// allowedTools.
//
// The allowed-tools check is a hard security boundary: violations return a
// TOOL_NOT_ALLOWED error and no invocation record, since the dispatch never
// happened. Every other failure mode — unregistered tool, execution error,
// timeout — is recoverable and comes back as a completed ToolInvocation with
// ErrorMessage set, never a dangling record.
func (g *Gateway) Invoke(ctx context.Context, call types.ToolCall, allowedTools []string) (types.ToolInvocation, error) {
	allowed := false
	for _, name := range allowedTools {
		if name == call.Name {
			allowed = true
			break
		}
	}
	if !allowed {
		return types.ToolInvocation{}, types.NewError(types.ErrToolNotAllowed,
			fmt.Sprintf("tool %q is not in the calling agent's allowed tools", call.Name)).
			WithHTTPStatus(403)
	}

	inv := types.ToolInvocation{
		ToolName:  call.Name,
		Input:     call.Input,
		StartedAt: time.Now(),
	}

	tool, ok := g.Lookup(call.Name)
	if !ok {
		inv.FinishedAt = time.Now()
		inv.ErrorMessage = fmt.Sprintf("tool %q is allowed but not registered", call.Name)
		return inv, nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			inv.FinishedAt = time.Now()
			inv.ErrorMessage = fmt.Sprintf("tool dispatch rate limited: %v", err)
			return inv, nil
		}
	}

	output, err := tool.Invoke(ctx, call.Input)
	inv.FinishedAt = time.Now()
	if err != nil {
		execErr := types.NewError(types.ErrToolExecution,
			fmt.Sprintf("tool %q failed", call.Name)).WithCause(err)
		inv.ErrorMessage = execErr.Error()
		g.logger.Warn("tool execution failed",
			zap.String("tool", call.Name),
			zap.Duration("duration", inv.FinishedAt.Sub(inv.StartedAt)),
			zap.Error(err),
		)
		return inv, nil
	}

	inv.Output = output
	g.logger.Debug("tool executed",
		zap.String("tool", call.Name),
		zap.Duration("duration", inv.FinishedAt.Sub(inv.StartedAt)),
	)
	return inv, nil
}
