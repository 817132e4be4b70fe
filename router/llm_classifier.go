package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/teamflow/reasoning"
	"github.com/BaSui01/teamflow/team"
	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// LLMClassifier asks a reasoning backend which target should handle the
// message. The triage prompt asks for a two-line verdict:
//
//	Reasoning: <analysis>
//	Selected Agent: <agent name>
//
// An answer naming an agent outside the target set counts as ambiguous, not
// as an error.
type LLMClassifier struct {
	provider reasoning.Provider
	model    string
	logger   *zap.Logger
}

// NewLLMClassifier creates a classifier backed by provider.
func NewLLMClassifier(provider reasoning.Provider, model string, logger *zap.Logger) *LLMClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMClassifier{
		provider: provider,
		model:    model,
		logger:   logger.With(zap.String("component", "llm_classifier")),
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, triage *team.AgentDefinition, targets []*team.AgentDefinition, message string, history []types.Turn) (Selection, error) {
	prompt := buildTriagePrompt(targets, message)

	messages := []reasoning.Message{
		{Role: reasoning.RoleSystem, Content: triage.Instructions},
	}
	// Recent turns give the classifier continuity across clarification
	// rounds.
	for _, turn := range history {
		role := reasoning.RoleUser
		if turn.Role == types.RoleAgent {
			role = reasoning.RoleAssistant
		}
		messages = append(messages, reasoning.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, reasoning.Message{Role: reasoning.RoleUser, Content: prompt})

	resp, err := c.provider.Completion(ctx, &reasoning.ChatRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return Selection{}, types.NewError(types.ErrRouterUnavailable,
			"triage classification backend unavailable").
			WithCause(err).WithHTTPStatus(503).WithRetryable(true)
	}

	sel := parseTriageResponse(resp.Content)
	if sel.Ambiguous() {
		c.logger.Info("triage response did not select an agent",
			zap.String("reasoning", sel.Reasoning))
		return sel, nil
	}

	for _, target := range targets {
		if target.Name == sel.Agent {
			return sel, nil
		}
	}
	c.logger.Warn("triage selected an agent outside the target set",
		zap.String("selected", sel.Agent))
	return Selection{Reasoning: fmt.Sprintf("selected agent %q is not a handoff target", sel.Agent)}, nil
}

func buildTriagePrompt(targets []*team.AgentDefinition, message string) string {
	var b strings.Builder
	b.WriteString("You are the triage agent for a multi-agent system. Analyze the user's message and determine which agent is best suited to respond.\n\n")
	b.WriteString("Available agents:\n")
	for _, target := range targets {
		desc := target.HandoffDescription
		if desc == "" {
			desc = target.Name + " agent"
		}
		fmt.Fprintf(&b, "- %s: %s - %s\n", target.Name, desc, target.Instructions)
	}
	b.WriteString("\nUser message: ")
	b.WriteString(message)
	b.WriteString("\n\nFirst, analyze the user's message and determine which agent should respond. Provide your reasoning.\n")
	b.WriteString("Then, output the name of the selected agent exactly as it appears in the list above.\n\n")
	b.WriteString("Format your response as:\nReasoning: <your analysis>\nSelected Agent: <agent_name>\n")
	return b.String()
}

// parseTriageResponse extracts the verdict lines. Missing or empty
// "Selected Agent:" means ambiguous.
func parseTriageResponse(text string) Selection {
	var sel Selection
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Reasoning:"); ok {
			sel.Reasoning = strings.TrimSpace(rest)
		} else if rest, ok := strings.CutPrefix(line, "Selected Agent:"); ok {
			sel.Agent = strings.TrimSpace(rest)
		}
	}
	return sel
}
