package team

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSingleAgentTeam(t *testing.T, dir, file, teamName, agentName string) string {
	t.Helper()
	body := `{
  "team_name": "` + teamName + `",
  "design_pattern": "single_agent",
  "agents": {
    "name": "` + agentName + `",
    "instructions": "Answer questions.",
    "tools": []
  }
}`
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// touch bumps the file's mod time past what the watcher has recorded, so the
// test does not depend on filesystem timestamp granularity.
func touch(t *testing.T, path string) {
	t.Helper()
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
}

func newStartedWatcher(t *testing.T, dir string, registry *Registry) *Watcher {
	t.Helper()
	w := NewWatcher(dir, time.Hour, registry, nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		w.Stop()
		cancel()
	})
	return w
}

func TestWatcher_ReloadsModifiedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSingleAgentTeam(t, dir, "support.json", "support", "Helper")

	registry := NewRegistry(nil)
	require.NoError(t, registry.LoadDir(dir))
	w := newStartedWatcher(t, dir, registry)

	writeSingleAgentTeam(t, dir, "support.json", "support", "BetterHelper")
	touch(t, path)
	w.scan()

	tm, err := registry.Get("support")
	require.NoError(t, err)
	assert.Equal(t, "BetterHelper", tm.InitialAgent())
}

func TestWatcher_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()
	writeSingleAgentTeam(t, dir, "support.json", "support", "Helper")

	registry := NewRegistry(nil)
	require.NoError(t, registry.LoadDir(dir))
	w := newStartedWatcher(t, dir, registry)

	writeSingleAgentTeam(t, dir, "billing.json", "billing", "BillingAgent")
	w.scan()

	_, err := registry.Get("billing")
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())
}

func TestWatcher_RemovesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSingleAgentTeam(t, dir, "support.json", "support", "Helper")

	registry := NewRegistry(nil)
	require.NoError(t, registry.LoadDir(dir))
	w := newStartedWatcher(t, dir, registry)

	require.NoError(t, os.Remove(path))
	w.scan()

	_, err := registry.Get("support")
	require.Error(t, err)
	assert.Equal(t, 0, registry.Len())
}

func TestWatcher_KeepsPreviousDefinitionOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := writeSingleAgentTeam(t, dir, "support.json", "support", "Helper")

	registry := NewRegistry(nil)
	require.NoError(t, registry.LoadDir(dir))
	w := newStartedWatcher(t, dir, registry)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	touch(t, path)
	w.scan()

	tm, err := registry.Get("support")
	require.NoError(t, err)
	assert.Equal(t, "Helper", tm.InitialAgent())
}

func TestWatcher_RenamedTeamRetiresOldName(t *testing.T) {
	dir := t.TempDir()
	path := writeSingleAgentTeam(t, dir, "support.json", "support", "Helper")

	registry := NewRegistry(nil)
	require.NoError(t, registry.LoadDir(dir))
	w := newStartedWatcher(t, dir, registry)

	writeSingleAgentTeam(t, dir, "support.json", "customer-care", "Helper")
	touch(t, path)
	w.scan()

	_, err := registry.Get("support")
	require.Error(t, err)
	_, err = registry.Get("customer-care")
	require.NoError(t, err)
	assert.Equal(t, 1, registry.Len())
}

func TestWatcher_StartTwiceFails(t *testing.T) {
	dir := t.TempDir()
	registry := NewRegistry(nil)
	w := newStartedWatcher(t, dir, registry)
	assert.Error(t, w.Start(context.Background()))
}
