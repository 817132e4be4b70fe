// Package teamflow provides an embedded entry point for running agent teams
// without the HTTP service.
//
// Usage:
//
//	import "github.com/BaSui01/teamflow"
//
//	rt, err := teamflow.New(
//	    teamflow.WithTeamsDir("agentTeamFiles"),
//	    teamflow.WithOpenAI("https://api.openai.com/v1", apiKey, "gpt-4o-mini"),
//	)
//	res, err := rt.Send(ctx, "company_research", "", "compare Acme to its rivals")
//
// The runtime wires the same components the server does: team registry,
// session store, tool gateway, triage router, and orchestrator.
package teamflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/gateway"
	"github.com/BaSui01/teamflow/orchestrator"
	"github.com/BaSui01/teamflow/reasoning"
	"github.com/BaSui01/teamflow/router"
	"github.com/BaSui01/teamflow/session"
	"github.com/BaSui01/teamflow/team"
)

// Option configures the runtime created by New.
type Option func(*options)

type options struct {
	teamsDir   string
	teamJSONs  []string
	provider   reasoning.Provider
	classifier router.Classifier
	store      session.Store
	orchCfg    *orchestrator.Config
	gatewayCfg gateway.Config
	dataDir    string
	logger     *zap.Logger
}

// WithTeamsDir loads every *.json team definition in dir.
func WithTeamsDir(dir string) Option {
	return func(o *options) { o.teamsDir = dir }
}

// WithTeamJSON registers a team from an inline JSON definition. May be given
// more than once.
func WithTeamJSON(definition string) Option {
	return func(o *options) { o.teamJSONs = append(o.teamJSONs, definition) }
}

// WithProvider sets a pre-built reasoning provider.
func WithProvider(p reasoning.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithOpenAI creates a provider for any backend speaking the OpenAI
// chat-completions protocol.
func WithOpenAI(baseURL, apiKey, model string) Option {
	return func(o *options) {
		o.provider = reasoning.NewOpenAIProvider(reasoning.OpenAIConfig{
			BaseURL: baseURL,
			APIKey:  apiKey,
			Model:   model,
		}, o.logger)
		if o.orchCfg == nil {
			cfg := orchestrator.DefaultConfig()
			o.orchCfg = &cfg
		}
		o.orchCfg.Model = model
	}
}

// WithClassifier overrides the triage classifier. Defaults to the LLM
// classifier when a provider is set.
func WithClassifier(c router.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithStore overrides the session store. Defaults to in-memory.
func WithStore(s session.Store) Option {
	return func(o *options) { o.store = s }
}

// WithOrchestratorConfig overrides the orchestrator limits.
func WithOrchestratorConfig(cfg orchestrator.Config) Option {
	return func(o *options) { o.orchCfg = &cfg }
}

// WithDataDir sets the directory the built-in CSV and document-collection
// tools read from.
func WithDataDir(dir string) Option {
	return func(o *options) { o.dataDir = dir }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Runtime is an in-process teamflow instance.
type Runtime struct {
	Registry     *team.Registry
	Store        session.Store
	Orchestrator *orchestrator.Orchestrator
}

// New builds a runtime. At minimum a provider and at least one team must be
// configured.
func New(opts ...Option) (*Runtime, error) {
	o := &options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	if o.provider == nil {
		return nil, fmt.Errorf("teamflow: a reasoning provider is required (use WithProvider or WithOpenAI)")
	}

	registry := team.NewRegistry(o.logger)
	if o.teamsDir != "" {
		if err := registry.LoadDir(o.teamsDir); err != nil {
			return nil, err
		}
	}
	for _, definition := range o.teamJSONs {
		tm, err := team.Load([]byte(definition))
		if err != nil {
			return nil, err
		}
		if err := registry.Register(tm); err != nil {
			return nil, err
		}
	}
	if registry.Len() == 0 {
		return nil, fmt.Errorf("teamflow: no teams configured (use WithTeamsDir or WithTeamJSON)")
	}

	store := o.store
	if store == nil {
		store = session.NewMemoryStore(registry)
	}

	gw := gateway.New(o.gatewayCfg, o.logger)
	gateway.RegisterBuiltins(gw, gateway.BuiltinConfig{DataDir: o.dataDir})

	classifier := o.classifier
	if classifier == nil {
		model := ""
		if o.orchCfg != nil {
			model = o.orchCfg.Model
		}
		classifier = router.NewLLMClassifier(o.provider, model, o.logger)
	}
	rtr := router.New(classifier, o.logger)

	cfg := orchestrator.DefaultConfig()
	if o.orchCfg != nil {
		cfg = *o.orchCfg
	}

	orch := orchestrator.New(cfg, registry, store, rtr, gw, o.provider, nil, nil, o.logger)
	return &Runtime{
		Registry:     registry,
		Store:        store,
		Orchestrator: orch,
	}, nil
}

// Send routes one user message through the named team. An empty
// conversationID starts a new conversation; reuse the returned one to
// continue it.
func (r *Runtime) Send(ctx context.Context, teamName, conversationID, message string) (*orchestrator.Result, error) {
	return r.Orchestrator.HandleMessage(ctx, conversationID, teamName, message)
}

// Close releases the session store.
func (r *Runtime) Close() error {
	return r.Store.Close()
}
