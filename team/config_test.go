package team

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/BaSui01/teamflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const companyResearchJSON = `{
  "team_name": "company_research",
  "design_pattern": "multi_agent",
  "agents": {
    "handoffs": [
      {
        "name": "Data Acquisition Agent",
        "instructions": "Collect public information about the target company.",
        "handoff_description": "Hand off when the user asks to gather or research company data.",
        "tools": ["search_web", "deep_research"],
        "handoffs": ["SWOT Analysis Agent"]
      },
      {
        "name": "SWOT Analysis Agent",
        "instructions": "Produce a SWOT analysis from collected data.",
        "handoff_description": "Hand off when the user asks for a SWOT analysis.",
        "tools": ["query_csv_data"],
        "handoffs": ["Recommendation Agent"]
      },
      {
        "name": "Recommendation Agent",
        "instructions": "Give investment recommendations based on the analysis.",
        "handoff_description": "Hand off when the user asks for recommendations.",
        "tools": []
      }
    ],
    "triage": {
      "name": "Company Research Triage Agent",
      "instructions": "Act only as a router between specialists. Do not use any tools.",
      "handoffs": ["Data Acquisition Agent", "SWOT Analysis Agent", "Recommendation Agent"]
    }
  }
}`

const housePriceJSON = `{
  "team_name": "house_price",
  "design_pattern": "single_agent",
  "agents": {
    "name": "HousePricePredictor",
    "instructions": "Predict house prices from uploaded CSV data.",
    "tools": ["query_csv_data", "run_interactive_pipeline"]
  }
}`

const sequentialJSON = `{
  "team_name": "swot_pipeline",
  "design_pattern": "sequential",
  "agents": {
    "1": {"name": "Data Acquisition", "instructions": "gather", "tools": ["search_web"]},
    "2": {"name": "SWOT Analysis", "instructions": "analyze", "tools": []},
    "3": {"name": "Recommendation", "instructions": "recommend", "tools": []}
  }
}`

func TestLoad_MultiAgent(t *testing.T) {
	tm, err := Load([]byte(companyResearchJSON))
	require.NoError(t, err)

	assert.Equal(t, "company_research", tm.Name)
	assert.Equal(t, PatternMultiAgent, tm.Pattern)
	assert.Equal(t, "Company Research Triage Agent", tm.TriageAgent)
	assert.Equal(t, "Company Research Triage Agent", tm.InitialAgent())
	assert.Equal(t, 4, tm.Len())

	triage, err := tm.Get("Company Research Triage Agent")
	require.NoError(t, err)
	assert.True(t, triage.IsTriage)
	assert.Empty(t, triage.AllowedTools)
	assert.Len(t, triage.HandoffTargets, 3)

	dataAcq, err := tm.Get("Data Acquisition Agent")
	require.NoError(t, err)
	assert.False(t, dataAcq.IsTriage)
	assert.True(t, dataAcq.AllowsTool("search_web"))
	assert.False(t, dataAcq.AllowsTool("query_csv_data"))

	// Chained specialist handoff from the SWOT example.
	assert.True(t, tm.CanHandoff("Data Acquisition Agent", "SWOT Analysis Agent"))
	assert.False(t, tm.CanHandoff("Recommendation Agent", "Data Acquisition Agent"))
	// Specialists may always return control to triage.
	assert.True(t, tm.CanHandoff("SWOT Analysis Agent", "Company Research Triage Agent"))
}

func TestLoad_SingleAgent(t *testing.T) {
	tm, err := Load([]byte(housePriceJSON))
	require.NoError(t, err)
	assert.Equal(t, PatternSingleAgent, tm.Pattern)
	assert.Equal(t, "HousePricePredictor", tm.InitialAgent())
	assert.Empty(t, tm.TriageAgent)
	assert.Equal(t, "Single agent: HousePricePredictor", tm.Description())
}

func TestLoad_Sequential(t *testing.T) {
	tm, err := Load([]byte(sequentialJSON))
	require.NoError(t, err)
	assert.Equal(t, []string{"Data Acquisition", "SWOT Analysis", "Recommendation"}, tm.Stages())
	assert.Equal(t, "Data Acquisition", tm.InitialAgent())

	next, ok := tm.NextStage("Data Acquisition")
	require.True(t, ok)
	assert.Equal(t, "SWOT Analysis", next)

	_, ok = tm.NextStage("Recommendation")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{
			name: "missing team name",
			json: `{"design_pattern": "single_agent", "agents": {"name": "A"}}`,
			want: "team_name",
		},
		{
			name: "invalid pattern",
			json: `{"team_name": "x", "design_pattern": "swarm", "agents": {"name": "A"}}`,
			want: "design_pattern",
		},
		{
			name: "unresolved handoff target",
			json: `{"team_name": "x", "design_pattern": "multi_agent", "agents": {
				"handoffs": [{"name": "A", "instructions": "a"}],
				"triage": {"name": "T", "instructions": "t", "handoffs": ["A", "Ghost"]}}}`,
			want: `handoff target "Ghost"`,
		},
		{
			name: "self loop",
			json: `{"team_name": "x", "design_pattern": "multi_agent", "agents": {
				"handoffs": [{"name": "A", "instructions": "a", "handoffs": ["A"]}],
				"triage": {"name": "T", "instructions": "t", "handoffs": ["A"]}}}`,
			want: "itself",
		},
		{
			name: "triage with tools",
			json: `{"team_name": "x", "design_pattern": "multi_agent", "agents": {
				"handoffs": [{"name": "A", "instructions": "a"}],
				"triage": {"name": "T", "instructions": "t", "tools": ["search_web"], "handoffs": ["A"]}}}`,
			want: "triage agents cannot have tools",
		},
		{
			name: "missing triage",
			json: `{"team_name": "x", "design_pattern": "multi_agent", "agents": {
				"handoffs": [{"name": "A", "instructions": "a"}]}}`,
			want: "exactly one triage",
		},
		{
			name: "gapped sequential stages",
			json: `{"team_name": "x", "design_pattern": "sequential", "agents": {
				"1": {"name": "A", "instructions": "a"},
				"3": {"name": "B", "instructions": "b"}}}`,
			want: "contiguous",
		},
		{
			name: "non-numeric stage key",
			json: `{"team_name": "x", "design_pattern": "sequential", "agents": {
				"first": {"name": "A", "instructions": "a"}}}`,
			want: "not numeric",
		},
		{
			name: "duplicate agent name",
			json: `{"team_name": "x", "design_pattern": "sequential", "agents": {
				"1": {"name": "A", "instructions": "a"},
				"2": {"name": "A", "instructions": "b"}}}`,
			want: "duplicate agent name",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load([]byte(tc.json))
			require.Error(t, err)
			assert.Equal(t, types.ErrConfig, types.GetErrorCode(err))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGet_UnknownAgent(t *testing.T) {
	tm, err := Load([]byte(housePriceJSON))
	require.NoError(t, err)
	_, err = tm.Get("Nobody")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownAgent, types.GetErrorCode(err))
}

// Property: for every team the loader accepts, every handoff target of every
// agent resolves through Get.
func TestProperty_LoadedTargetsResolve(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "specialists")
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("Specialist %d", i+1)
		}

		handoffs := make([]map[string]any, n)
		for i, name := range names {
			// Each specialist may chain to any strictly later specialist,
			// keeping the generated graph free of self-loops.
			var chain []string
			for j := i + 1; j < n; j++ {
				if rapid.Bool().Draw(t, fmt.Sprintf("chain_%d_%d", i, j)) {
					chain = append(chain, names[j])
				}
			}
			handoffs[i] = map[string]any{
				"name":         name,
				"instructions": "specialist",
				"tools":        []string{"search_web"},
				"handoffs":     chain,
			}
		}

		doc := map[string]any{
			"team_name":      "generated",
			"design_pattern": "multi_agent",
			"agents": map[string]any{
				"handoffs": handoffs,
				"triage": map[string]any{
					"name":         "Triage",
					"instructions": "route",
					"handoffs":     names,
				},
			},
		}
		data, err := json.Marshal(doc)
		require.NoError(t, err)

		tm, err := Load(data)
		require.NoError(t, err)

		for _, agentName := range tm.AgentNames() {
			def, err := tm.Get(agentName)
			require.NoError(t, err)
			for _, target := range def.HandoffTargets {
				_, err := tm.Get(target)
				require.NoError(t, err, "target %q of %q must resolve", target, agentName)
			}
		}
	})
}
