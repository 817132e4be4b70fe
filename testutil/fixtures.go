package testutil

import (
	"testing"

	"github.com/BaSui01/teamflow/team"
	"github.com/stretchr/testify/require"
)

// SoloTeamJSON is a minimal single-agent team definition.
const SoloTeamJSON = `{
  "team_name": "house_price",
  "design_pattern": "single_agent",
  "agents": {
    "name": "HousePricePredictor",
    "instructions": "Predict house prices.",
    "tools": []
  }
}`

// ResearchTeamJSON is a triage team with two specialists.
const ResearchTeamJSON = `{
  "team_name": "company_research",
  "design_pattern": "multi_agent",
  "agents": {
    "handoffs": [
      {
        "name": "Data Acquisition Agent",
        "instructions": "Collect company data from public sources.",
        "handoff_description": "Collects raw company data",
        "tools": ["search_web"]
      },
      {
        "name": "SWOT Analysis Agent",
        "instructions": "Produce a SWOT analysis from collected data.",
        "handoff_description": "Performs SWOT analysis",
        "tools": []
      }
    ],
    "triage": {
      "name": "Company Research Triage Agent",
      "instructions": "Route research requests to the right specialist.",
      "handoffs": ["Data Acquisition Agent", "SWOT Analysis Agent"]
    }
  }
}`

// MustLoadTeam parses a team definition or fails the test.
func MustLoadTeam(t *testing.T, data string) *team.Team {
	t.Helper()
	tm, err := team.Load([]byte(data))
	require.NoError(t, err)
	return tm
}

// NewRegistryWith builds a registry holding the given team definitions.
func NewRegistryWith(t *testing.T, teamJSONs ...string) *team.Registry {
	t.Helper()
	registry := team.NewRegistry(nil)
	for _, data := range teamJSONs {
		require.NoError(t, registry.Register(MustLoadTeam(t, data)))
	}
	return registry
}
