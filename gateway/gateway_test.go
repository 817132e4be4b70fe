package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/teamflow/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return ToolFunc{
		ToolName: name,
		Desc:     "echoes its input",
		Fn: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
			return input, nil
		},
	}
}

func newTestGateway(t *testing.T, tools ...Tool) *Gateway {
	t.Helper()
	g := New(Config{Timeout: 2 * time.Second}, nil)
	for _, tool := range tools {
		g.Register(tool)
	}
	return g
}

func TestGateway_InvokeAllowedTool(t *testing.T) {
	g := newTestGateway(t, echoTool("search_web"))

	call := types.ToolCall{Name: "search_web", Input: json.RawMessage(`{"query":"go"}`)}
	inv, err := g.Invoke(context.Background(), call, []string{"search_web"})
	require.NoError(t, err)

	assert.Equal(t, "search_web", inv.ToolName)
	assert.False(t, inv.Failed())
	assert.JSONEq(t, `{"query":"go"}`, string(inv.Output))
	assert.False(t, inv.FinishedAt.Before(inv.StartedAt))
}

func TestGateway_DeniedToolIsHardError(t *testing.T) {
	g := newTestGateway(t, echoTool("search_web"))

	call := types.ToolCall{Name: "search_web", Input: json.RawMessage(`{}`)}
	inv, err := g.Invoke(context.Background(), call, []string{"query_csv_data"})

	require.Error(t, err)
	assert.Equal(t, types.ErrToolNotAllowed, types.GetErrorCode(err))
	// The dispatch never happened, so there is no invocation record.
	assert.Zero(t, inv)
}

func TestGateway_DeniedEvenWhenUnregistered(t *testing.T) {
	g := newTestGateway(t)

	call := types.ToolCall{Name: "deep_research", Input: json.RawMessage(`{}`)}
	_, err := g.Invoke(context.Background(), call, nil)

	require.Error(t, err)
	assert.Equal(t, types.ErrToolNotAllowed, types.GetErrorCode(err))
}

func TestGateway_AllowedButUnregisteredIsRecoverable(t *testing.T) {
	g := newTestGateway(t)

	call := types.ToolCall{Name: "deep_research", Input: json.RawMessage(`{}`)}
	inv, err := g.Invoke(context.Background(), call, []string{"deep_research"})

	require.NoError(t, err)
	assert.True(t, inv.Failed())
	assert.Contains(t, inv.ErrorMessage, "not registered")
}

func TestGateway_ExecutionErrorRecordedOnInvocation(t *testing.T) {
	boom := ToolFunc{
		ToolName: "search_web",
		Desc:     "always fails",
		Fn: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("backend down")
		},
	}
	g := newTestGateway(t, boom)

	call := types.ToolCall{Name: "search_web", Input: json.RawMessage(`{}`)}
	inv, err := g.Invoke(context.Background(), call, []string{"search_web"})

	require.NoError(t, err)
	assert.True(t, inv.Failed())
	assert.Contains(t, inv.ErrorMessage, "backend down")
	assert.Nil(t, inv.Output)
}

func TestGateway_TimeoutRecordedOnInvocation(t *testing.T) {
	slow := ToolFunc{
		ToolName: "deep_research",
		Desc:     "never returns in time",
		Fn: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(5 * time.Second):
				return json.RawMessage(`{}`), nil
			}
		},
	}
	g := New(Config{Timeout: 20 * time.Millisecond}, nil)
	g.Register(slow)

	call := types.ToolCall{Name: "deep_research", Input: json.RawMessage(`{}`)}
	inv, err := g.Invoke(context.Background(), call, []string{"deep_research"})

	require.NoError(t, err)
	assert.True(t, inv.Failed())
	assert.Contains(t, inv.ErrorMessage, context.DeadlineExceeded.Error())
}

func TestGateway_ReRegisterReplaces(t *testing.T) {
	g := newTestGateway(t, echoTool("search_web"))
	g.Register(ToolFunc{
		ToolName: "search_web",
		Desc:     "v2",
		Fn: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{"v":2}`), nil
		},
	})

	inv, err := g.Invoke(context.Background(),
		types.ToolCall{Name: "search_web", Input: json.RawMessage(`{}`)},
		[]string{"search_web"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(inv.Output))
}

// The allowed-tools boundary must hold for every combination of requested
// tool and allowed set: a call succeeds past the boundary exactly when its
// name appears in the allowed list.
func TestProperty_AllowedToolBoundary(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	toolNames := []string{
		"search_web", "query_csv_data", "deep_research",
		"create_mermaid_diagram", "run_interactive_pipeline", "rag_collection_query",
	}

	g := New(Config{}, nil)
	for _, name := range toolNames {
		g.Register(echoTool(name))
	}

	properties.Property("invocation passes the boundary iff the tool is allowed", prop.ForAll(
		func(toolIdx int, allowedMask int) bool {
			callName := toolNames[toolIdx]
			var allowed []string
			for i, name := range toolNames {
				if allowedMask&(1<<i) != 0 {
					allowed = append(allowed, name)
				}
			}
			isAllowed := allowedMask&(1<<toolIdx) != 0

			call := types.ToolCall{Name: callName, Input: json.RawMessage(`{}`)}
			inv, err := g.Invoke(context.Background(), call, allowed)

			if isAllowed {
				if err != nil {
					t.Logf("allowed tool %s rejected: %v", callName, err)
					return false
				}
				if inv.Failed() {
					t.Logf("allowed tool %s failed: %s", callName, inv.ErrorMessage)
					return false
				}
				return true
			}
			if err == nil {
				t.Logf("denied tool %s passed the boundary", callName)
				return false
			}
			if types.GetErrorCode(err) != types.ErrToolNotAllowed {
				t.Logf("denied tool %s returned wrong code: %v", callName, err)
				return false
			}
			return true
		},
		gen.IntRange(0, len(toolNames)-1),
		gen.IntRange(0, (1<<len(toolNames))-1),
	))

	properties.TestingRun(t)
}

// Failed invocations carry enough context for the agent's next reasoning
// step: the tool name, the input, and a non-empty error message.
func TestProperty_FailureRecordsAreComplete(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	g := New(Config{}, nil)
	g.Register(ToolFunc{
		ToolName: "flaky",
		Desc:     "fails when told to",
		Fn: func(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
			var in struct {
				Fail bool `json:"fail"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, err
			}
			if in.Fail {
				return nil, fmt.Errorf("requested failure")
			}
			return json.RawMessage(`{"ok":true}`), nil
		},
	})

	properties.Property("invocation records are complete either way", prop.ForAll(
		func(fail bool) bool {
			input := json.RawMessage(fmt.Sprintf(`{"fail":%v}`, fail))
			inv, err := g.Invoke(context.Background(),
				types.ToolCall{Name: "flaky", Input: input}, []string{"flaky"})
			if err != nil {
				return false
			}
			if inv.ToolName != "flaky" || !strings.Contains(string(inv.Input), "fail") {
				return false
			}
			if fail {
				return inv.Failed() && inv.Output == nil
			}
			return !inv.Failed() && inv.Output != nil
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}
