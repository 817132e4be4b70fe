package orchestrator

import (
	"context"
	"time"

	"github.com/BaSui01/teamflow/reasoning"
	"github.com/BaSui01/teamflow/team"
	"github.com/BaSui01/teamflow/types"
	"go.uber.org/zap"
)

// complete runs one agent's completion loop: ask the reasoning backend,
// dispatch any requested tools through the gateway, feed results back, and
// repeat until the backend produces text or the iteration cap is hit.
func (o *Orchestrator) complete(ctx context.Context, def *team.AgentDefinition, history []types.Turn, input string) (string, []types.ToolInvocation, types.TokenUsage, error) {
	messages := o.buildMessages(def, history, input)
	schemas := o.toolSchemas(def)

	var invocations []types.ToolInvocation
	var usage types.TokenUsage

	for i := 0; i < o.cfg.MaxToolIterations; i++ {
		start := time.Now()
		resp, err := o.provider.Completion(ctx, &reasoning.ChatRequest{
			Model:       o.cfg.Model,
			Messages:    messages,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
			Tools:       schemas,
		})
		if err != nil {
			o.recordReasoning("error", time.Since(start), types.TokenUsage{})
			return "", invocations, usage, err
		}
		o.recordReasoning("ok", time.Since(start), resp.Usage)
		usage.Add(resp.Usage)

		if !resp.WantsTools() {
			return resp.Content, invocations, usage, nil
		}

		messages = append(messages, reasoning.Message{
			Role:      reasoning.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			inv, err := o.gateway.Invoke(ctx, call, def.AllowedTools)
			if err != nil {
				// Allowed-tools violation: hard stop for this run.
				o.recordTool(call.Name, "denied", 0)
				return "", invocations, usage, err
			}
			invocations = append(invocations, inv)
			status := "ok"
			result := string(inv.Output)
			if inv.Failed() {
				status = "error"
				result = inv.ErrorMessage
			}
			o.recordTool(call.Name, status, inv.FinishedAt.Sub(inv.StartedAt))
			messages = append(messages, reasoning.Message{
				Role:       reasoning.RoleTool,
				Content:    result,
				Name:       call.Name,
				ToolCallID: call.ID,
			})
		}
	}

	o.logger.Warn("tool iteration cap reached",
		zap.String("agent", def.Name),
		zap.Int("iterations", o.cfg.MaxToolIterations),
	)
	return "", invocations, usage, types.NewError(types.ErrToolExecution,
		"agent exceeded the tool iteration limit without producing an answer").
		WithAgent(def.Name)
}

// buildMessages renders the windowed transcript plus the current input into
// chat messages under the agent's instructions.
func (o *Orchestrator) buildMessages(def *team.AgentDefinition, history []types.Turn, input string) []reasoning.Message {
	messages := make([]reasoning.Message, 0, len(history)+2)
	if def.Instructions != "" {
		messages = append(messages, reasoning.Message{
			Role:    reasoning.RoleSystem,
			Content: def.Instructions,
		})
	}
	for _, turn := range history {
		switch turn.Role {
		case types.RoleUser:
			messages = append(messages, reasoning.Message{
				Role:    reasoning.RoleUser,
				Content: turn.Content,
			})
		case types.RoleAgent:
			messages = append(messages, reasoning.Message{
				Role:    reasoning.RoleAssistant,
				Content: turn.Content,
				Name:    turn.AgentName,
			})
		}
		// system-error turns carry no signal for the backend
	}
	return append(messages, reasoning.Message{
		Role:    reasoning.RoleUser,
		Content: input,
	})
}

// toolSchemas describes the agent's allowed tools to the backend. Tools that
// are allowed but not registered are omitted; calling them would only
// produce an error record.
func (o *Orchestrator) toolSchemas(def *team.AgentDefinition) []reasoning.ToolSchema {
	schemas := make([]reasoning.ToolSchema, 0, len(def.AllowedTools))
	for _, name := range def.AllowedTools {
		tool, ok := o.gateway.Lookup(name)
		if !ok {
			o.logger.Warn("agent references unregistered tool",
				zap.String("agent", def.Name),
				zap.String("tool", name))
			continue
		}
		schemas = append(schemas, reasoning.ToolSchema{
			Name:        tool.Name(),
			Description: tool.Description(),
		})
	}
	return schemas
}

func (o *Orchestrator) recordReasoning(status string, duration time.Duration, usage types.TokenUsage) {
	if o.metrics != nil {
		o.metrics.RecordReasoningRequest(o.cfg.Model, status, duration, usage.PromptTokens, usage.CompletionTokens)
	}
}

func (o *Orchestrator) recordTool(name, status string, duration time.Duration) {
	if o.metrics != nil {
		o.metrics.RecordToolInvocation(name, status, duration)
	}
}
