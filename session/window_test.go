package session

import (
	"strings"
	"testing"

	"github.com/BaSui01/teamflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindower_ZeroBudgetDisables(t *testing.T) {
	w := NewWindower("", 0)
	turns := []types.Turn{types.NewUserTurn("a"), types.NewUserTurn("b")}
	assert.Equal(t, turns, w.Window(turns))
}

func TestWindower_KeepsRecentTurns(t *testing.T) {
	w := NewWindower("cl100k_base", 40)
	long := strings.Repeat("background context ", 30)

	turns := []types.Turn{
		types.NewUserTurn(long),
		types.NewAgentTurn("A", long),
		types.NewUserTurn("short question"),
		types.NewAgentTurn("A", "short answer"),
	}
	got := w.Window(turns)
	require.NotEmpty(t, got)
	assert.Less(t, len(got), len(turns))
	// The window is a suffix ending at the newest turn.
	assert.Equal(t, "short answer", got[len(got)-1].Content)
}

func TestWindower_AlwaysKeepsLastTurn(t *testing.T) {
	w := NewWindower("cl100k_base", 1)
	turns := []types.Turn{
		types.NewUserTurn(strings.Repeat("x ", 500)),
		types.NewUserTurn(strings.Repeat("y ", 500)),
	}
	got := w.Window(turns)
	require.Len(t, got, 1)
	assert.Equal(t, turns[1].Content, got[0].Content)
}

func TestWindower_CountTokens(t *testing.T) {
	w := NewWindower("cl100k_base", 100)
	assert.Equal(t, 0, w.CountTokens(""))
	assert.Greater(t, w.CountTokens("hello world"), 0)
}
