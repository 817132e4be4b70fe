package router

import (
	"context"

	"github.com/BaSui01/teamflow/team"
	"github.com/BaSui01/teamflow/types"
)

// Selection is a classifier's verdict: the chosen target agent and the
// reasoning behind the choice.
type Selection struct {
	Agent     string
	Reasoning string
}

// Ambiguous reports whether the classifier declined to pick a target.
func (s Selection) Ambiguous() bool { return s.Agent == "" }

// Classifier picks one of the triage agent's handoff targets for a user
// message.
//
// An ambiguous message yields a Selection with an empty Agent and a nil
// error; Reasoning then explains what is missing. A hard error means the
// classification backend itself failed (ROUTER_UNAVAILABLE) and the caller
// must leave routing state unchanged.
type Classifier interface {
	Classify(ctx context.Context, triage *team.AgentDefinition, targets []*team.AgentDefinition, message string, history []types.Turn) (Selection, error)
}
