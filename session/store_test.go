package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/BaSui01/teamflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// allowAllButForbidden rejects transitions into the agent named "Forbidden".
type allowAllButForbidden struct{}

func (allowAllButForbidden) ValidateHandoff(teamName, from, to string) error {
	if to == "Forbidden" {
		return types.NewError(types.ErrUnknownAgent,
			fmt.Sprintf("agent %q is not a handoff target of %q", to, from))
	}
	return nil
}

// runStoreSuite exercises the Store contract against any backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("get_or_create_idempotent", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		created, err := s.GetOrCreate(ctx, "conv-1", "company_research", "Triage")
		require.NoError(t, err)
		assert.Equal(t, "conv-1", created.ConversationID)
		assert.Equal(t, "Triage", created.ActiveAgent)

		_, err = s.AppendTurn(ctx, "conv-1", types.NewUserTurn("hello"))
		require.NoError(t, err)

		// Replaying returns the same session state, not a fresh one.
		again, err := s.GetOrCreate(ctx, "conv-1", "company_research", "Triage")
		require.NoError(t, err)
		assert.Equal(t, created.CreatedAt.Unix(), again.CreatedAt.Unix())
		assert.Len(t, again.Turns, 1)
	})

	t.Run("generates_conversation_id", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		sess, err := s.GetOrCreate(ctx, "", "team", "Solo")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.ConversationID)
	})

	t.Run("append_preserves_order", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.GetOrCreate(ctx, "conv-order", "team", "Solo")
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			_, err := s.AppendTurn(ctx, "conv-order", types.NewUserTurn(fmt.Sprintf("msg-%d", i)))
			require.NoError(t, err)
		}

		sess, err := s.Get(ctx, "conv-order")
		require.NoError(t, err)
		require.Len(t, sess.Turns, 5)
		for i, turn := range sess.Turns {
			assert.Equal(t, fmt.Sprintf("msg-%d", i), turn.Content)
			assert.NotEmpty(t, turn.ID)
		}
	})

	t.Run("set_active_agent_validated", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.GetOrCreate(ctx, "conv-agent", "team", "Triage")
		require.NoError(t, err)

		require.NoError(t, s.SetActiveAgent(ctx, "conv-agent", "Specialist"))
		sess, err := s.Get(ctx, "conv-agent")
		require.NoError(t, err)
		assert.Equal(t, "Specialist", sess.ActiveAgent)

		err = s.SetActiveAgent(ctx, "conv-agent", "Forbidden")
		require.Error(t, err)
		assert.Equal(t, types.ErrUnknownAgent, types.GetErrorCode(err))

		// Failed transition leaves state unchanged.
		sess, err = s.Get(ctx, "conv-agent")
		require.NoError(t, err)
		assert.Equal(t, "Specialist", sess.ActiveAgent)
	})

	t.Run("missing_conversation", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.Get(ctx, "nope")
		require.Error(t, err)
		assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.AppendTurn(ctx, "nope", types.NewUserTurn("x"))
		require.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.GetOrCreate(ctx, "conv-del", "team", "Solo")
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, "conv-del"))

		_, err = s.Get(ctx, "conv-del")
		require.Error(t, err)
	})
}

// Property: concurrent appenders on one conversation never interleave into an
// out-of-order transcript — every appender's own turns appear in its send
// order, and the total count is exact.
func TestProperty_ConcurrentAppendOrdering(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		writers := rapid.IntRange(2, 6).Draw(t, "writers")
		perWriter := rapid.IntRange(1, 10).Draw(t, "perWriter")

		s := NewMemoryStore(nil)
		defer s.Close()
		ctx := context.Background()

		_, err := s.GetOrCreate(ctx, "conv", "team", "Solo")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					_, err := s.AppendTurn(ctx, "conv",
						types.NewUserTurn(fmt.Sprintf("w%d-%d", w, i)))
					if err != nil {
						t.Errorf("append: %v", err)
						return
					}
				}
			}(w)
		}
		wg.Wait()

		sess, err := s.Get(ctx, "conv")
		require.NoError(t, err)
		require.Len(t, sess.Turns, writers*perWriter)

		// Per-writer monotonicity.
		last := make(map[int]int)
		for w := 0; w < writers; w++ {
			last[w] = -1
		}
		for _, turn := range sess.Turns {
			var w, i int
			_, err := fmt.Sscanf(turn.Content, "w%d-%d", &w, &i)
			require.NoError(t, err)
			require.Greater(t, i, last[w], "turns of writer %d out of order", w)
			last[w] = i
		}
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		return NewMemoryStore(allowAllButForbidden{})
	})
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), ErrStoreClosed)
	_, err := s.GetOrCreate(context.Background(), "x", "t", "a")
	assert.ErrorIs(t, err, ErrStoreClosed)
}
