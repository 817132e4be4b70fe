package team

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BaSui01/teamflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTeamFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeTeamFile(t, dir, "company_research.json", companyResearchJSON)
	writeTeamFile(t, dir, "house_price.json", housePriceJSON)
	writeTeamFile(t, dir, "notes.txt", "not a team")

	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.LoadDir(dir))
	assert.Equal(t, 2, r.Len())

	tm, err := r.Get("company_research")
	require.NoError(t, err)
	assert.Equal(t, PatternMultiAgent, tm.Pattern)

	_, err = r.Get("missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownTeam, types.GetErrorCode(err))
}

func TestRegistry_LoadDirMissingIsNotFatal(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.LoadDir(filepath.Join(t.TempDir(), "absent")))
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_DuplicateTeam(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tm, err := Load([]byte(housePriceJSON))
	require.NoError(t, err)
	require.NoError(t, r.Register(tm))
	err = r.Register(tm)
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.GetErrorCode(err))
}

func TestRegistry_List(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tm, err := Load([]byte(companyResearchJSON))
	require.NoError(t, err)
	require.NoError(t, r.Register(tm))

	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "company_research", list[0].TeamName)
	assert.Equal(t, "multi_agent", list[0].DesignPattern)
	assert.Equal(t, "Multi-agent system with 3 specialist agents", list[0].Description)
}

func TestRegistry_ValidateHandoff(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	tm, err := Load([]byte(companyResearchJSON))
	require.NoError(t, err)
	require.NoError(t, r.Register(tm))

	// Initial assignment: target only needs to exist.
	assert.NoError(t, r.ValidateHandoff("company_research", "", "Company Research Triage Agent"))

	// Triage to a declared target.
	assert.NoError(t, r.ValidateHandoff("company_research",
		"Company Research Triage Agent", "Data Acquisition Agent"))

	// Chained specialist handoff.
	assert.NoError(t, r.ValidateHandoff("company_research",
		"Data Acquisition Agent", "SWOT Analysis Agent"))

	// Undeclared transition.
	err = r.ValidateHandoff("company_research", "Recommendation Agent", "Data Acquisition Agent")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownAgent, types.GetErrorCode(err))

	// Unknown target.
	err = r.ValidateHandoff("company_research", "Company Research Triage Agent", "Ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownAgent, types.GetErrorCode(err))
}
