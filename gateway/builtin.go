package gateway

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// BuiltinConfig configures the built-in tool set.
type BuiltinConfig struct {
	// DataDir holds uploaded CSV files and RAG collections
	// (DataDir/collections/<name>/*.txt|*.md).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// SearchEndpoint is the web search backend. The query is appended as
	// the "q" parameter.
	SearchEndpoint string `json:"search_endpoint" yaml:"search_endpoint"`

	// HTTPClient overrides the client used by network tools.
	HTTPClient *http.Client `json:"-" yaml:"-"`
}

// RegisterBuiltins registers the built-in tools under the names existing team
// files reference.
func RegisterBuiltins(g *Gateway, cfg BuiltinConfig) {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	search := &SearchWebTool{Endpoint: cfg.SearchEndpoint, Client: client}
	g.Register(search)
	g.Register(&QueryCSVTool{DataDir: cfg.DataDir})
	g.Register(&DeepResearchTool{Search: search})
	g.Register(MermaidTool{})
	g.Register(&PipelineTool{DataDir: cfg.DataDir})
	g.Register(&RAGQueryTool{DataDir: cfg.DataDir})
}

// ---------------------------------------------------------------------------
// search_web
// ---------------------------------------------------------------------------

// SearchWebTool queries an HTTP search backend.
type SearchWebTool struct {
	Endpoint string
	Client   *http.Client
}

type searchInput struct {
	Query      string `json:"query"`
	NumResults int    `json:"num_results,omitempty"`
}

func (t *SearchWebTool) Name() string        { return "search_web" }
func (t *SearchWebTool) Description() string { return "Search the web for current information" }

func (t *SearchWebTool) Invoke(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in searchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parse search input: %w", err)
	}
	if in.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if t.Endpoint == "" {
		return nil, fmt.Errorf("no search endpoint configured")
	}

	u, err := url.Parse(t.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid search endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", in.Query)
	if in.NumResults > 0 {
		q.Set("count", strconv.Itoa(in.NumResults))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search backend returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if json.Valid(body) {
		return body, nil
	}
	return json.Marshal(map[string]string{"results": string(body)})
}

// ---------------------------------------------------------------------------
// query_csv_data
// ---------------------------------------------------------------------------

// QueryCSVTool filters rows of an uploaded CSV file.
type QueryCSVTool struct {
	DataDir string
}

type csvQueryInput struct {
	FileName string `json:"file_name"`
	Query    string `json:"query,omitempty"`
	MaxRows  int    `json:"max_rows,omitempty"`
}

type csvQueryOutput struct {
	FileName    string     `json:"file_name"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
	TotalRows   int        `json:"total_rows"`
	MatchedRows int        `json:"matched_rows"`
}

func (t *QueryCSVTool) Name() string        { return "query_csv_data" }
func (t *QueryCSVTool) Description() string { return "Query rows from an uploaded CSV file" }

// readCSV resolves name inside the data dir, refusing path escapes.
func readCSV(dataDir, name string) ([]string, [][]string, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("file_name is required")
	}
	if filepath.Base(name) != name {
		return nil, nil, fmt.Errorf("file_name must not contain path separators")
	}
	f, err := os.Open(filepath.Join(dataDir, name))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csv file %s is empty", name)
	}
	return records[0], records[1:], nil
}

func (t *QueryCSVTool) Invoke(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in csvQueryInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parse csv query input: %w", err)
	}
	header, rows, err := readCSV(t.DataDir, in.FileName)
	if err != nil {
		return nil, err
	}

	maxRows := in.MaxRows
	if maxRows <= 0 || maxRows > 100 {
		maxRows = 20
	}

	needle := strings.ToLower(in.Query)
	out := csvQueryOutput{FileName: in.FileName, Columns: header, TotalRows: len(rows)}
	for _, row := range rows {
		if needle != "" && !rowMatches(row, needle) {
			continue
		}
		out.MatchedRows++
		if len(out.Rows) < maxRows {
			out.Rows = append(out.Rows, row)
		}
	}
	return json.Marshal(out)
}

func rowMatches(row []string, needle string) bool {
	for _, cell := range row {
		if strings.Contains(strings.ToLower(cell), needle) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// deep_research
// ---------------------------------------------------------------------------

// DeepResearchTool fans a topic out into several focused web searches and
// merges the results.
type DeepResearchTool struct {
	Search *SearchWebTool
}

type deepResearchInput struct {
	Topic string `json:"topic"`
}

var researchAngles = []string{"overview", "recent news", "competitors", "financials"}

func (t *DeepResearchTool) Name() string { return "deep_research" }
func (t *DeepResearchTool) Description() string {
	return "Run a multi-angle web research pass over a topic"
}

func (t *DeepResearchTool) Invoke(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in deepResearchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parse research input: %w", err)
	}
	if in.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	// The angles are independent searches, so fan them out.
	results := make([]json.RawMessage, len(researchAngles))
	g, gctx := errgroup.WithContext(ctx)
	for i, angle := range researchAngles {
		g.Go(func() error {
			q, _ := json.Marshal(searchInput{Query: in.Topic + " " + angle, NumResults: 3})
			result, err := t.Search.Invoke(gctx, q)
			if err != nil {
				// Partial research still has value; record the failed angle.
				result, _ = json.Marshal(map[string]string{"error": err.Error()})
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	sections := make(map[string]json.RawMessage, len(researchAngles))
	for i, angle := range researchAngles {
		sections[angle] = results[i]
	}
	return json.Marshal(map[string]any{"topic": in.Topic, "sections": sections})
}

// ---------------------------------------------------------------------------
// create_mermaid_diagram
// ---------------------------------------------------------------------------

// MermaidTool renders a node list into mermaid flowchart syntax.
type MermaidTool struct{}

type mermaidInput struct {
	DiagramType string   `json:"diagram_type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Steps       []string `json:"steps"`
}

func (MermaidTool) Name() string        { return "create_mermaid_diagram" }
func (MermaidTool) Description() string { return "Generate a mermaid flowchart from ordered steps" }

func (MermaidTool) Invoke(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in mermaidInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parse mermaid input: %w", err)
	}
	if len(in.Steps) == 0 {
		return nil, fmt.Errorf("steps are required")
	}
	direction := "TD"
	if in.DiagramType == "flowchart_lr" {
		direction = "LR"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "graph %s\n", direction)
	for i, step := range in.Steps {
		fmt.Fprintf(&b, "    n%d[%q]\n", i, step)
	}
	for i := 0; i+1 < len(in.Steps); i++ {
		fmt.Fprintf(&b, "    n%d --> n%d\n", i, i+1)
	}
	return json.Marshal(map[string]string{"title": in.Title, "diagram": b.String()})
}

// ---------------------------------------------------------------------------
// run_interactive_pipeline
// ---------------------------------------------------------------------------

// PipelineTool profiles a CSV dataset: per-column numeric statistics plus a
// baseline estimate for an optional target column. A stand-in for the
// original on-the-fly ML pipeline that keeps the same tool contract.
type PipelineTool struct {
	DataDir string
}

type pipelineInput struct {
	CSVFilename  string `json:"csv_filename"`
	UserQuery    string `json:"user_query,omitempty"`
	TargetColumn string `json:"target_column,omitempty"`
}

type columnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func (t *PipelineTool) Name() string { return "run_interactive_pipeline" }
func (t *PipelineTool) Description() string {
	return "Profile a CSV dataset and produce a baseline prediction for a target column"
}

func (t *PipelineTool) Invoke(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in pipelineInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parse pipeline input: %w", err)
	}
	header, rows, err := readCSV(t.DataDir, in.CSVFilename)
	if err != nil {
		return nil, err
	}

	stats := make([]columnStats, 0, len(header))
	for col, name := range header {
		s := columnStats{Column: name}
		for _, row := range rows {
			if col >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				continue
			}
			if s.Count == 0 || v < s.Min {
				s.Min = v
			}
			if s.Count == 0 || v > s.Max {
				s.Max = v
			}
			s.Mean += v
			s.Count++
		}
		if s.Count > 0 {
			s.Mean /= float64(s.Count)
			stats = append(stats, s)
		}
	}

	out := map[string]any{
		"csv_filename": in.CSVFilename,
		"rows":         len(rows),
		"columns":      stats,
	}
	if in.TargetColumn != "" {
		for _, s := range stats {
			if s.Column == in.TargetColumn {
				out["baseline_prediction"] = s.Mean
				out["target_column"] = in.TargetColumn
			}
		}
	}
	return json.Marshal(out)
}

// ---------------------------------------------------------------------------
// rag_collection_query
// ---------------------------------------------------------------------------

// RAGQueryTool retrieves the best-matching documents from a named collection
// by term overlap.
type RAGQueryTool struct {
	DataDir string
}

type ragInput struct {
	Query          string `json:"query"`
	CollectionName string `json:"collection_name"`
	TopK           int    `json:"top_k,omitempty"`
}

type ragHit struct {
	Document string  `json:"document"`
	Score    float64 `json:"score"`
	Excerpt  string  `json:"excerpt"`
}

func (t *RAGQueryTool) Name() string        { return "rag_collection_query" }
func (t *RAGQueryTool) Description() string { return "Query documents from a named collection" }

func (t *RAGQueryTool) Invoke(ctx context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in ragInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("parse rag input: %w", err)
	}
	if in.Query == "" || in.CollectionName == "" {
		return nil, fmt.Errorf("query and collection_name are required")
	}
	if filepath.Base(in.CollectionName) != in.CollectionName {
		return nil, fmt.Errorf("collection_name must not contain path separators")
	}
	dir := filepath.Join(t.DataDir, "collections", in.CollectionName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", in.CollectionName, err)
	}

	terms := strings.Fields(strings.ToLower(in.Query))
	var hits []ragHit
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".txt" && ext != ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		text := strings.ToLower(string(data))
		score := 0.0
		for _, term := range terms {
			score += float64(strings.Count(text, term))
		}
		if score > 0 {
			hits = append(hits, ragHit{
				Document: entry.Name(),
				Score:    score,
				Excerpt:  excerpt(string(data), 300),
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	topK := in.TopK
	if topK <= 0 || topK > 10 {
		topK = 3
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return json.Marshal(map[string]any{"collection": in.CollectionName, "hits": hits})
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
