// Package team provides the agent registry: loading, validating, and serving
// immutable team definitions.
//
// A team is described by a JSON document whose shape depends on its design
// pattern:
//
//   - single_agent: "agents" is a single agent object
//   - sequential:   "agents" is a map keyed by stage number ("1", "2", ...)
//   - multi_agent:  "agents" holds a "handoffs" list of specialists and a
//     "triage" agent naming its allowed handoff targets
//
// The handoff topology is validated at load time as an explicit directed
// graph; free-text handoff descriptions are prompt content only, never
// control-flow data. Teams are read-only after load and safe to share across
// goroutines without locking.
package team
