package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const housingCSV = `suburb,rooms,price
Richmond,2,800000
Richmond,3,1100000
Carlton,2,950000
Fitzroy,4,1600000
`

func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "housing.csv"), []byte(housingCSV), 0o644))

	collDir := filepath.Join(dir, "collections", "product-docs")
	require.NoError(t, os.MkdirAll(collDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(collDir, "pricing.md"),
		[]byte("Pricing tiers: starter, growth, enterprise. Enterprise pricing is custom."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(collDir, "onboarding.txt"),
		[]byte("Onboarding takes two weeks for most teams."), 0o644))
	return dir
}

func TestRegisterBuiltins_ExposesExpectedNames(t *testing.T) {
	g := New(Config{}, nil)
	RegisterBuiltins(g, BuiltinConfig{DataDir: t.TempDir()})

	for _, name := range []string{
		"search_web", "query_csv_data", "deep_research",
		"create_mermaid_diagram", "run_interactive_pipeline", "rag_collection_query",
	} {
		_, ok := g.Lookup(name)
		assert.True(t, ok, "missing builtin %s", name)
	}
}

func TestQueryCSVTool_FiltersRows(t *testing.T) {
	tool := &QueryCSVTool{DataDir: writeDataDir(t)}

	out, err := tool.Invoke(context.Background(),
		json.RawMessage(`{"file_name":"housing.csv","query":"richmond"}`))
	require.NoError(t, err)

	var got csvQueryOutput
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, []string{"suburb", "rooms", "price"}, got.Columns)
	assert.Equal(t, 4, got.TotalRows)
	assert.Equal(t, 2, got.MatchedRows)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "Richmond", got.Rows[0][0])
}

func TestQueryCSVTool_RejectsPathEscape(t *testing.T) {
	tool := &QueryCSVTool{DataDir: writeDataDir(t)}

	_, err := tool.Invoke(context.Background(),
		json.RawMessage(`{"file_name":"../etc/passwd"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path separators")
}

func TestQueryCSVTool_MissingFile(t *testing.T) {
	tool := &QueryCSVTool{DataDir: t.TempDir()}

	_, err := tool.Invoke(context.Background(),
		json.RawMessage(`{"file_name":"nope.csv"}`))
	assert.Error(t, err)
}

func TestPipelineTool_ProfilesNumericColumns(t *testing.T) {
	tool := &PipelineTool{DataDir: writeDataDir(t)}

	out, err := tool.Invoke(context.Background(),
		json.RawMessage(`{"csv_filename":"housing.csv","target_column":"price"}`))
	require.NoError(t, err)

	var got struct {
		Rows               int           `json:"rows"`
		Columns            []columnStats `json:"columns"`
		BaselinePrediction float64       `json:"baseline_prediction"`
		TargetColumn       string        `json:"target_column"`
	}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, 4, got.Rows)
	// suburb is non-numeric and must not appear in the stats.
	for _, s := range got.Columns {
		assert.NotEqual(t, "suburb", s.Column)
	}
	assert.Equal(t, "price", got.TargetColumn)
	assert.InDelta(t, 1112500.0, got.BaselinePrediction, 0.01)
}

func TestSearchWebTool_QueriesBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang concurrency", r.URL.Query().Get("q"))
		assert.Equal(t, "3", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"title":"Go by Example"}]}`))
	}))
	defer backend.Close()

	tool := &SearchWebTool{Endpoint: backend.URL, Client: backend.Client()}
	out, err := tool.Invoke(context.Background(),
		json.RawMessage(`{"query":"golang concurrency","num_results":3}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[{"title":"Go by Example"}]}`, string(out))
}

func TestSearchWebTool_NoEndpoint(t *testing.T) {
	tool := &SearchWebTool{Client: http.DefaultClient}
	_, err := tool.Invoke(context.Background(), json.RawMessage(`{"query":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no search endpoint")
}

func TestDeepResearchTool_CoversAllAngles(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer backend.Close()

	tool := &DeepResearchTool{Search: &SearchWebTool{Endpoint: backend.URL, Client: backend.Client()}}
	out, err := tool.Invoke(context.Background(), json.RawMessage(`{"topic":"Acme Corp"}`))
	require.NoError(t, err)

	var got struct {
		Topic    string                     `json:"topic"`
		Sections map[string]json.RawMessage `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Acme Corp", got.Topic)
	assert.Len(t, got.Sections, len(researchAngles))
}

func TestMermaidTool_RendersFlowchart(t *testing.T) {
	out, err := MermaidTool{}.Invoke(context.Background(),
		json.RawMessage(`{"title":"Pipeline","steps":["Collect data","Analyze","Report"]}`))
	require.NoError(t, err)

	var got struct {
		Title   string `json:"title"`
		Diagram string `json:"diagram"`
	}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Pipeline", got.Title)
	assert.Contains(t, got.Diagram, "graph TD")
	assert.Contains(t, got.Diagram, `n0["Collect data"]`)
	assert.Contains(t, got.Diagram, "n0 --> n1")
	assert.Contains(t, got.Diagram, "n1 --> n2")
}

func TestMermaidTool_RequiresSteps(t *testing.T) {
	_, err := MermaidTool{}.Invoke(context.Background(), json.RawMessage(`{"steps":[]}`))
	assert.Error(t, err)
}

func TestRAGQueryTool_RanksByTermOverlap(t *testing.T) {
	tool := &RAGQueryTool{DataDir: writeDataDir(t)}

	out, err := tool.Invoke(context.Background(),
		json.RawMessage(`{"query":"enterprise pricing","collection_name":"product-docs"}`))
	require.NoError(t, err)

	var got struct {
		Collection string   `json:"collection"`
		Hits       []ragHit `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "product-docs", got.Collection)
	require.NotEmpty(t, got.Hits)
	assert.Equal(t, "pricing.md", got.Hits[0].Document)
	assert.Greater(t, got.Hits[0].Score, 0.0)
}

func TestRAGQueryTool_UnknownCollection(t *testing.T) {
	tool := &RAGQueryTool{DataDir: t.TempDir()}
	_, err := tool.Invoke(context.Background(),
		json.RawMessage(`{"query":"x","collection_name":"missing"}`))
	assert.Error(t, err)
}
