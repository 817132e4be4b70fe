package router

import (
	"context"
	"fmt"

	"github.com/BaSui01/teamflow/team"
	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// Decision names the agent that handles the next turn.
type Decision struct {
	// Agent is the agent that should produce the response.
	Agent string

	// Handoff is set when routing moved control between agents.
	Handoff *types.HandoffRecord

	// Clarify is set when triage could not pick a target; Question is the
	// clarification to send back and Agent stays on the triage agent.
	Clarify  bool
	Question string
}

// Router applies a team's design pattern to pick the next active agent.
type Router struct {
	classifier Classifier
	logger     *zap.Logger
}

// New creates a router using classifier for triage decisions.
func New(classifier Classifier, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		classifier: classifier,
		logger:     logger.With(zap.String("component", "triage_router")),
	}
}

// Route decides who handles the incoming message given the conversation's
// current active agent.
//
// Routing is side-effect free: a ROUTER_UNAVAILABLE failure leaves no trace
// and the caller retries with the same active agent.
func (r *Router) Route(ctx context.Context, tm *team.Team, activeAgent, message string, history []types.Turn) (Decision, error) {
	switch tm.Pattern {
	case team.PatternSingleAgent:
		return Decision{Agent: tm.InitialAgent()}, nil

	case team.PatternSequential:
		// The pipeline restarts at the first stage for every message; the
		// orchestrator advances through the remaining stages itself.
		return Decision{Agent: tm.Stages()[0]}, nil

	case team.PatternMultiAgent:
		return r.routeMultiAgent(ctx, tm, activeAgent, message, history)

	default:
		return Decision{}, types.NewError(types.ErrConfig,
			fmt.Sprintf("team %q has unsupported design pattern %q", tm.Name, tm.Pattern))
	}
}

func (r *Router) routeMultiAgent(ctx context.Context, tm *team.Team, activeAgent, message string, history []types.Turn) (Decision, error) {
	if activeAgent == "" {
		activeAgent = tm.TriageAgent
	}

	// Specialists keep control until they hand back.
	if activeAgent != tm.TriageAgent {
		if _, err := tm.Get(activeAgent); err != nil {
			return Decision{}, err
		}
		return Decision{Agent: activeAgent}, nil
	}

	triage, err := tm.Get(tm.TriageAgent)
	if err != nil {
		return Decision{}, err
	}
	targets := make([]*team.AgentDefinition, 0, len(triage.HandoffTargets))
	for _, name := range triage.HandoffTargets {
		def, err := tm.Get(name)
		if err != nil {
			return Decision{}, err
		}
		targets = append(targets, def)
	}

	sel, err := r.classifier.Classify(ctx, triage, targets, message, history)
	if err != nil {
		return Decision{}, err
	}
	if sel.Ambiguous() {
		r.logger.Info("triage needs clarification",
			zap.String("team", tm.Name),
			zap.String("reasoning", sel.Reasoning))
		return Decision{
			Agent:    tm.TriageAgent,
			Clarify:  true,
			Question: clarificationQuestion(targets),
		}, nil
	}

	r.logger.Info("triage routed message",
		zap.String("team", tm.Name),
		zap.String("to", sel.Agent))
	return Decision{
		Agent: sel.Agent,
		Handoff: &types.HandoffRecord{
			FromAgent: tm.TriageAgent,
			ToAgent:   sel.Agent,
			Rationale: sel.Reasoning,
		},
	}, nil
}

func clarificationQuestion(targets []*team.AgentDefinition) string {
	msg := "I need a bit more detail to route your request. Our specialists cover:\n"
	for _, target := range targets {
		desc := target.HandoffDescription
		if desc == "" {
			desc = target.Name
		}
		msg += fmt.Sprintf("- %s: %s\n", target.Name, desc)
	}
	return msg + "Which of these is closest to what you need?"
}
