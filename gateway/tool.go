package gateway

import (
	"context"
	"encoding/json"
)

// Tool executes one named capability. Implementations must be safe for
// concurrent use; the gateway dispatches from many conversations at once.
type Tool interface {
	// Name returns the tool identifier agents reference in their tools list.
	Name() string
	// Description returns a short human-readable summary, surfaced to the
	// reasoning backend as part of the tool schema.
	Description() string
	// Invoke runs the tool. Input and output are JSON documents.
	Invoke(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

// ToolFunc adapts a function to the Tool interface.
type ToolFunc struct {
	ToolName string
	Desc     string
	Fn       func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)
}

func (t ToolFunc) Name() string        { return t.ToolName }
func (t ToolFunc) Description() string { return t.Desc }

func (t ToolFunc) Invoke(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	return t.Fn(ctx, input)
}
