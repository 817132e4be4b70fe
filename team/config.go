package team

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/BaSui01/teamflow/types"
)

// Wire format of a team file. Field names and nesting are preserved exactly
// for compatibility with existing configuration files.
type teamFile struct {
	TeamName      string          `json:"team_name"`
	DesignPattern string          `json:"design_pattern"`
	Agents        json.RawMessage `json:"agents"`
}

type agentEntry struct {
	Name               string   `json:"name"`
	Instructions       string   `json:"instructions"`
	HandoffDescription string   `json:"handoff_description,omitempty"`
	Tools              []string `json:"tools,omitempty"`
	Handoffs           []string `json:"handoffs,omitempty"`
}

type multiAgentEntry struct {
	Handoffs []agentEntry `json:"handoffs"`
	Triage   *agentEntry  `json:"triage"`
}

func configErr(team, format string, args ...any) *types.Error {
	msg := fmt.Sprintf(format, args...)
	if team != "" {
		msg = fmt.Sprintf("team %q: %s", team, msg)
	}
	return types.NewError(types.ErrConfig, msg).WithHTTPStatus(400)
}

// Load parses and validates a single team configuration document.
// All violations are reported as CONFIG_ERROR naming the offending agent and
// the rule it breaks. The returned Team is immutable.
func Load(data []byte) (*Team, error) {
	var tf teamFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, configErr("", "invalid team JSON: %v", err)
	}
	if tf.TeamName == "" {
		return nil, configErr("", "team_name is required")
	}
	pattern := DesignPattern(tf.DesignPattern)
	if !pattern.Valid() {
		return nil, configErr(tf.TeamName, "invalid design_pattern %q", tf.DesignPattern)
	}
	if len(tf.Agents) == 0 {
		return nil, configErr(tf.TeamName, "agents section is required")
	}

	t := &Team{
		Name:    tf.TeamName,
		Pattern: pattern,
		agents:  make(map[string]*AgentDefinition),
	}

	var err error
	switch pattern {
	case PatternSingleAgent:
		err = loadSingle(t, tf.Agents)
	case PatternSequential:
		err = loadSequential(t, tf.Agents)
	case PatternMultiAgent:
		err = loadMultiAgent(t, tf.Agents)
	}
	if err != nil {
		return nil, err
	}

	if err := validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

func loadSingle(t *Team, raw json.RawMessage) error {
	var entry agentEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return configErr(t.Name, "single_agent agents must be a single agent object: %v", err)
	}
	if len(entry.Handoffs) > 0 {
		return configErr(t.Name, "agent %q: single_agent teams cannot declare handoffs", entry.Name)
	}
	return addAgent(t, entry, false)
}

// loadSequential orders stages by their numeric keys. Declared order in the
// configuration file is authoritative; a stage set that is not totally
// ordered (non-numeric, duplicate, or gapped keys) is a config error.
func loadSequential(t *Team, raw json.RawMessage) error {
	var stages map[string]agentEntry
	if err := json.Unmarshal(raw, &stages); err != nil {
		return configErr(t.Name, "sequential agents must be a stage-keyed map: %v", err)
	}
	if len(stages) == 0 {
		return configErr(t.Name, "sequential team has no stages")
	}

	keys := make([]int, 0, len(stages))
	byIndex := make(map[int]agentEntry, len(stages))
	for k, entry := range stages {
		n, err := strconv.Atoi(k)
		if err != nil {
			return configErr(t.Name, "stage key %q is not numeric", k)
		}
		keys = append(keys, n)
		byIndex[n] = entry
	}
	sort.Ints(keys)
	for i, n := range keys {
		if n != i+1 {
			return configErr(t.Name, "stage keys must be contiguous from 1, got %d at position %d", n, i+1)
		}
	}

	for _, n := range keys {
		entry := byIndex[n]
		if len(entry.Handoffs) > 0 {
			return configErr(t.Name, "agent %q: sequential stages advance in declared order and cannot declare handoffs", entry.Name)
		}
		if err := addAgent(t, entry, false); err != nil {
			return err
		}
	}
	return nil
}

func loadMultiAgent(t *Team, raw json.RawMessage) error {
	var entry multiAgentEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return configErr(t.Name, "multi_agent agents must hold handoffs and triage: %v", err)
	}
	if entry.Triage == nil {
		return configErr(t.Name, "multi_agent teams require exactly one triage agent")
	}
	if len(entry.Handoffs) == 0 {
		return configErr(t.Name, "multi_agent teams require at least one handoff agent")
	}

	for _, h := range entry.Handoffs {
		if err := addAgent(t, h, false); err != nil {
			return err
		}
	}

	// The triage agent only classifies and redirects: holding tools would let
	// it answer directly, so the restriction is structural, not prompt text.
	if len(entry.Triage.Tools) > 0 {
		return configErr(t.Name, "agent %q: triage agents cannot have tools", entry.Triage.Name)
	}
	if err := addAgent(t, *entry.Triage, true); err != nil {
		return err
	}
	t.TriageAgent = entry.Triage.Name
	return nil
}

func addAgent(t *Team, entry agentEntry, isTriage bool) error {
	if entry.Name == "" {
		return configErr(t.Name, "agent name is required")
	}
	if _, exists := t.agents[entry.Name]; exists {
		return configErr(t.Name, "agent %q: duplicate agent name", entry.Name)
	}
	def := &AgentDefinition{
		Name:               entry.Name,
		Instructions:       entry.Instructions,
		HandoffDescription: entry.HandoffDescription,
		AllowedTools:       append([]string(nil), entry.Tools...),
		IsTriage:           isTriage,
		HandoffTargets:     append([]string(nil), entry.Handoffs...),
	}
	t.agents[entry.Name] = def
	t.order = append(t.order, entry.Name)
	return nil
}

// validate enforces the handoff-graph invariants shared by all patterns.
func validate(t *Team) error {
	for _, name := range t.order {
		def := t.agents[name]
		for _, target := range def.HandoffTargets {
			if target == name {
				return configErr(t.Name, "agent %q: lists itself as a handoff target", name)
			}
			if _, ok := t.agents[target]; !ok {
				return configErr(t.Name, "agent %q: handoff target %q is not defined in the team", name, target)
			}
		}
		if def.IsTriage && name != t.TriageAgent {
			return configErr(t.Name, "agent %q: only one triage agent is allowed", name)
		}
	}
	if t.Pattern == PatternMultiAgent {
		triage := t.agents[t.TriageAgent]
		if len(triage.HandoffTargets) == 0 {
			return configErr(t.Name, "agent %q: triage agent declares no handoff targets", t.TriageAgent)
		}
	}
	return nil
}
