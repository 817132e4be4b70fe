package team

import (
	"fmt"

	"github.com/BaSui01/teamflow/types"
)

// DesignPattern determines how a team's agents cooperate.
type DesignPattern string

const (
	PatternSingleAgent DesignPattern = "single_agent"
	PatternSequential  DesignPattern = "sequential"
	PatternMultiAgent  DesignPattern = "multi_agent"
)

// Valid reports whether the pattern is one of the known design patterns.
func (p DesignPattern) Valid() bool {
	switch p {
	case PatternSingleAgent, PatternSequential, PatternMultiAgent:
		return true
	}
	return false
}

// AgentDefinition describes one agent of a team. Created at team-load time
// and immutable thereafter; owned exclusively by the registry.
type AgentDefinition struct {
	Name               string
	Instructions       string
	HandoffDescription string
	AllowedTools       []string
	IsTriage           bool
	HandoffTargets     []string
}

// AllowsTool reports whether the agent may invoke the named tool.
// Triage agents never hold tools, so this is always false for them.
func (a *AgentDefinition) AllowsTool(name string) bool {
	for _, t := range a.AllowedTools {
		if t == name {
			return true
		}
	}
	return false
}

// CanHandoffTo reports whether target is a declared handoff target.
func (a *AgentDefinition) CanHandoffTo(target string) bool {
	for _, t := range a.HandoffTargets {
		if t == target {
			return true
		}
	}
	return false
}

// Team is an immutable, validated collection of agent definitions.
type Team struct {
	Name        string
	Pattern     DesignPattern
	TriageAgent string

	agents map[string]*AgentDefinition
	order  []string
}

// Get returns the named agent definition.
func (t *Team) Get(name string) (*AgentDefinition, error) {
	if def, ok := t.agents[name]; ok {
		return def, nil
	}
	return nil, types.NewError(types.ErrUnknownAgent,
		fmt.Sprintf("agent %q not defined in team %q", name, t.Name)).
		WithHTTPStatus(404)
}

// AgentNames returns agent names in declared order. For sequential teams this
// is the stage order; for multi_agent teams specialists precede the triage
// agent.
func (t *Team) AgentNames() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of agents in the team.
func (t *Team) Len() int {
	return len(t.agents)
}

// InitialAgent returns the agent a fresh conversation starts on: the triage
// agent for multi_agent teams, the sole agent for single_agent teams, the
// first stage for sequential teams.
func (t *Team) InitialAgent() string {
	if t.Pattern == PatternMultiAgent {
		return t.TriageAgent
	}
	return t.order[0]
}

// Stages returns the ordered stage names of a sequential team, or nil for
// other patterns.
func (t *Team) Stages() []string {
	if t.Pattern != PatternSequential {
		return nil
	}
	return t.AgentNames()
}

// NextStage returns the stage following current in declared order.
func (t *Team) NextStage(current string) (string, bool) {
	if t.Pattern != PatternSequential {
		return "", false
	}
	for i, name := range t.order {
		if name == current && i+1 < len(t.order) {
			return t.order[i+1], true
		}
	}
	return "", false
}

// CanHandoff reports whether control may move from one agent to another.
// Declared targets are always legal; in multi_agent teams any specialist may
// additionally return control to the triage agent.
func (t *Team) CanHandoff(from, to string) bool {
	def, ok := t.agents[from]
	if !ok {
		return false
	}
	if _, ok := t.agents[to]; !ok {
		return false
	}
	if def.CanHandoffTo(to) {
		return true
	}
	return t.Pattern == PatternMultiAgent && to == t.TriageAgent && from != t.TriageAgent
}

// Description returns a human-readable summary of the team, matching the
// summaries the original team listing produced.
func (t *Team) Description() string {
	switch t.Pattern {
	case PatternSingleAgent:
		return fmt.Sprintf("Single agent: %s", t.order[0])
	case PatternSequential:
		return fmt.Sprintf("Sequential workflow with %d agents", len(t.order))
	default:
		return fmt.Sprintf("Multi-agent system with %d specialist agents", len(t.order)-1)
	}
}
