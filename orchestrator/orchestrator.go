package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/teamflow/gateway"
	"github.com/BaSui01/teamflow/internal/metrics"
	"github.com/BaSui01/teamflow/reasoning"
	"github.com/BaSui01/teamflow/router"
	"github.com/BaSui01/teamflow/session"
	"github.com/BaSui01/teamflow/team"
	"github.com/BaSui01/teamflow/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config bounds a single message exchange.
type Config struct {
	// Model is the reasoning model agents complete with.
	Model string `json:"model" yaml:"model"`

	Temperature float32 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`

	// MaxToolIterations caps completion/tool round-trips per agent run.
	MaxToolIterations int `json:"max_tool_iterations" yaml:"max_tool_iterations"`

	// MaxHandoffDepth caps chained specialist handoffs within one message.
	MaxHandoffDepth int `json:"max_handoff_depth" yaml:"max_handoff_depth"`

	// RequestTimeout bounds the whole exchange including routing and tools.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Temperature:       0.7,
		MaxToolIterations: 5,
		MaxHandoffDepth:   3,
		RequestTimeout:    120 * time.Second,
	}
}

// Result is the outcome of one handled message.
type Result struct {
	ConversationID string
	Turn           types.Turn
	ActiveAgent    string
	Usage          types.TokenUsage
}

// Orchestrator coordinates registry, store, router, gateway, and reasoning
// backend for the interact operation.
type Orchestrator struct {
	cfg      Config
	registry *team.Registry
	store    session.Store
	router   *router.Router
	gateway  *gateway.Gateway
	provider reasoning.Provider
	windower *session.Windower
	locks    *session.KeyedMutex
	metrics  *metrics.Collector
	logger   *zap.Logger
	tracer   trace.Tracer
}

// New creates an orchestrator. collector may be nil.
func New(cfg Config, registry *team.Registry, store session.Store, rtr *router.Router,
	gw *gateway.Gateway, provider reasoning.Provider, windower *session.Windower,
	collector *metrics.Collector, logger *zap.Logger) *Orchestrator {

	if logger == nil {
		logger = zap.NewNop()
	}
	if windower == nil {
		windower = session.NewWindower("", 0)
	}
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = DefaultConfig().MaxToolIterations
	}
	if cfg.MaxHandoffDepth <= 0 {
		cfg.MaxHandoffDepth = DefaultConfig().MaxHandoffDepth
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		store:    store,
		router:   rtr,
		gateway:  gw,
		provider: provider,
		windower: windower,
		locks:    session.NewKeyedMutex(),
		metrics:  collector,
		logger:   logger.With(zap.String("component", "orchestrator")),
		tracer:   otel.Tracer("teamflow/orchestrator"),
	}
}

// HandleMessage runs one user message through the team bound to the
// conversation and returns the responding turn.
//
// An empty conversationID starts a fresh conversation. The user turn is
// durable before routing or reasoning begin; failures after that point
// surface as an in-band system-error turn rather than losing the exchange.
// The only post-persistence exception is a routing backend outage, which is
// returned as a retryable error with the conversation state unchanged.
func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID, teamName, message string) (*Result, error) {
	if strings.TrimSpace(message) == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "message must not be empty").
			WithHTTPStatus(400)
	}
	tm, err := o.registry.Get(teamName)
	if err != nil {
		return nil, err
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.handle_message",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("team.name", teamName),
		))
	defer span.End()

	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}

	// One writer per conversation.
	o.locks.Lock(conversationID)
	defer o.locks.Unlock(conversationID)

	sess, err := o.store.GetOrCreate(ctx, conversationID, teamName, tm.InitialAgent())
	if err != nil {
		return nil, err
	}
	if sess.TeamName != teamName {
		return nil, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("conversation %q is bound to team %q", conversationID, sess.TeamName)).
			WithHTTPStatus(409)
	}

	if _, err := o.store.AppendTurn(ctx, conversationID, types.NewUserTurn(message)); err != nil {
		return nil, err
	}
	o.recordTurn(teamName, string(types.RoleUser))

	history := o.windower.Window(sess.Turns)

	decision, err := o.router.Route(ctx, tm, sess.ActiveAgent, message, history)
	if err != nil {
		o.recordRouting(teamName, "unavailable")
		return nil, err
	}

	if decision.Clarify {
		return o.respondClarification(ctx, tm, conversationID, decision)
	}

	if decision.Handoff != nil {
		if err := o.store.SetActiveAgent(ctx, conversationID, decision.Agent); err != nil {
			return nil, err
		}
		o.recordRouting(tm.Name, "routed")
		o.recordHandoff(tm.Name, decision.Handoff.FromAgent, decision.Handoff.ToAgent)
	} else {
		o.recordRouting(tm.Name, "routed")
	}

	if tm.Pattern == team.PatternSequential {
		return o.runPipeline(ctx, tm, conversationID, message, history)
	}
	return o.runAgent(ctx, tm, conversationID, decision.Agent, decision.Handoff, message, history, 0)
}

// respondClarification answers on behalf of the triage agent without routing.
func (o *Orchestrator) respondClarification(ctx context.Context, tm *team.Team, conversationID string, decision router.Decision) (*Result, error) {
	o.recordRouting(tm.Name, "clarify")
	turn := types.NewAgentTurn(decision.Agent, decision.Question).
		WithHandoff(&types.HandoffRecord{
			FromAgent:     decision.Agent,
			ToAgent:       decision.Agent,
			Rationale:     "request needs clarification before routing",
			Clarification: true,
		})
	turn, err := o.store.AppendTurn(ctx, conversationID, turn)
	if err != nil {
		return nil, err
	}
	o.recordTurn(tm.Name, string(types.RoleAgent))
	return &Result{ConversationID: conversationID, Turn: turn, ActiveAgent: decision.Agent}, nil
}

// runAgent executes one specialist (or sole agent) and follows chained
// handoff directives up to the configured depth.
func (o *Orchestrator) runAgent(ctx context.Context, tm *team.Team, conversationID, agentName string,
	handoff *types.HandoffRecord, input string, history []types.Turn, depth int) (*Result, error) {

	def, err := tm.Get(agentName)
	if err != nil {
		return nil, err
	}

	content, invocations, usage, err := o.complete(ctx, def, history, input)
	if err != nil {
		return o.respondError(ctx, tm, conversationID, agentName, err, usage)
	}

	// A specialist may close its answer with a handoff directive.
	if target, rest, ok := router.ParseHandoffDirective(content); ok && tm.Pattern == team.PatternMultiAgent {
		if strings.EqualFold(target, router.HandoffToTriage) {
			target = tm.TriageAgent
		}
		switch {
		case depth >= o.cfg.MaxHandoffDepth:
			o.logger.Warn("handoff depth limit reached, keeping control",
				zap.String("agent", agentName), zap.String("target", target))
		case !tm.CanHandoff(agentName, target):
			o.logger.Warn("ignoring handoff to undeclared target",
				zap.String("agent", agentName), zap.String("target", target))
		default:
			return o.followHandoff(ctx, tm, conversationID, def, target, rest, invocations, usage, input, history, depth)
		}
	}

	turn := types.NewAgentTurn(agentName, content).
		WithToolCalls(invocations).
		WithHandoff(handoff)
	turn, err = o.store.AppendTurn(ctx, conversationID, turn)
	if err != nil {
		return nil, err
	}
	o.recordTurn(tm.Name, string(types.RoleAgent))

	return &Result{
		ConversationID: conversationID,
		Turn:           turn,
		ActiveAgent:    agentName,
		Usage:          usage,
	}, nil
}

// followHandoff persists the handing-off agent's partial turn, moves the
// active-agent pointer, and runs the next agent on the same message. A
// handoff back to triage re-classifies immediately so the exchange still
// ends with a routed answer.
func (o *Orchestrator) followHandoff(ctx context.Context, tm *team.Team, conversationID string,
	def *team.AgentDefinition, target, partial string,
	invocations []types.ToolInvocation, usage types.TokenUsage,
	input string, history []types.Turn, depth int) (*Result, error) {

	if err := o.store.SetActiveAgent(ctx, conversationID, target); err != nil {
		return nil, err
	}
	o.recordHandoff(tm.Name, def.Name, target)

	if partial == "" {
		partial = fmt.Sprintf("Handing off to %s.", target)
	}
	turn := types.NewAgentTurn(def.Name, partial).
		WithToolCalls(invocations).
		WithHandoff(&types.HandoffRecord{
			FromAgent: def.Name,
			ToAgent:   target,
			Rationale: "agent handoff directive",
		})
	turn, err := o.store.AppendTurn(ctx, conversationID, turn)
	if err != nil {
		return nil, err
	}
	o.recordTurn(tm.Name, string(types.RoleAgent))

	if target == tm.TriageAgent {
		next, err := o.retriage(ctx, tm, conversationID, input, append(history, turn), depth)
		if err != nil {
			return nil, err
		}
		next.Usage.Add(usage)
		return next, nil
	}

	// The directive record lives on the partial turn; the chained agent's
	// own turn starts clean.
	next, err := o.runAgent(ctx, tm, conversationID, target, nil, input, append(history, turn), depth+1)
	if err != nil {
		return nil, err
	}
	next.Usage.Add(usage)
	return next, nil
}

// retriage re-runs classification on the same message after a specialist
// handed control back to the triage agent mid-exchange. The selected
// specialist runs one handoff level deeper, so a classifier that keeps
// bouncing the message stays bounded by MaxHandoffDepth.
func (o *Orchestrator) retriage(ctx context.Context, tm *team.Team, conversationID, message string,
	history []types.Turn, depth int) (*Result, error) {

	decision, err := o.router.Route(ctx, tm, tm.TriageAgent, message, history)
	if err != nil {
		o.recordRouting(tm.Name, "unavailable")
		return nil, err
	}
	if decision.Clarify {
		return o.respondClarification(ctx, tm, conversationID, decision)
	}
	o.recordRouting(tm.Name, "routed")
	if decision.Handoff != nil {
		if err := o.store.SetActiveAgent(ctx, conversationID, decision.Agent); err != nil {
			return nil, err
		}
		o.recordHandoff(tm.Name, decision.Handoff.FromAgent, decision.Handoff.ToAgent)
	}
	return o.runAgent(ctx, tm, conversationID, decision.Agent, decision.Handoff, message, history, depth+1)
}

// runPipeline runs every stage of a sequential team in declared order, the
// output of each stage feeding the next. The returned turn is the last
// stage's.
func (o *Orchestrator) runPipeline(ctx context.Context, tm *team.Team, conversationID, message string, history []types.Turn) (*Result, error) {
	input := message
	var usage types.TokenUsage
	var last types.Turn

	for _, stage := range tm.Stages() {
		def, err := tm.Get(stage)
		if err != nil {
			return nil, err
		}
		content, invocations, stageUsage, err := o.complete(ctx, def, history, input)
		usage.Add(stageUsage)
		if err != nil {
			res, rerr := o.respondError(ctx, tm, conversationID, stage, err, usage)
			return res, rerr
		}

		turn := types.NewAgentTurn(stage, content).WithToolCalls(invocations)
		turn, err = o.store.AppendTurn(ctx, conversationID, turn)
		if err != nil {
			return nil, err
		}
		o.recordTurn(tm.Name, string(types.RoleAgent))

		history = append(history, turn)
		input = content
		last = turn
	}

	// The pipeline restarts from the first stage on the next message.
	if err := o.store.SetActiveAgent(ctx, conversationID, tm.Stages()[0]); err != nil {
		return nil, err
	}

	return &Result{
		ConversationID: conversationID,
		Turn:           last,
		ActiveAgent:    tm.Stages()[0],
		Usage:          usage,
	}, nil
}

// respondError converts a reasoning or tool failure into an in-band
// system-error turn so the user still gets a response.
func (o *Orchestrator) respondError(ctx context.Context, tm *team.Team, conversationID, agentName string, cause error, usage types.TokenUsage) (*Result, error) {
	o.logger.Error("agent run failed",
		zap.String("conversation_id", conversationID),
		zap.String("agent", agentName),
		zap.Error(cause),
	)

	content := fmt.Sprintf("The %s agent could not complete this request: %s", agentName, cause.Error())
	turn := types.NewErrorTurn(content)
	turn.AgentName = agentName
	turn, err := o.store.AppendTurn(ctx, conversationID, turn)
	if err != nil {
		// The store itself failed; nothing in-band can be recorded.
		return nil, cause
	}
	o.recordTurn(tm.Name, string(types.RoleSystemError))

	return &Result{
		ConversationID: conversationID,
		Turn:           turn,
		ActiveAgent:    agentName,
		Usage:          usage,
	}, nil
}

func (o *Orchestrator) recordRouting(team, outcome string) {
	if o.metrics != nil {
		o.metrics.RecordRoutingDecision(team, outcome)
	}
}

func (o *Orchestrator) recordHandoff(team, from, to string) {
	if o.metrics != nil {
		o.metrics.RecordHandoff(team, from, to)
	}
}

func (o *Orchestrator) recordTurn(team, role string) {
	if o.metrics != nil {
		o.metrics.RecordTurnAppended(team, role)
	}
}
