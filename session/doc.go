// Package session provides durable conversation state for the orchestrator.
//
// A Session holds the append-only transcript of one conversation and the
// pointer to its active agent. Every mutation is durable before the call
// returns: a response has already been shown to the user and must survive a
// crash.
//
// Supported backends:
//   - Memory: for development and testing (default)
//   - File: for single-node deployments (atomic rename writes)
//   - Redis: for distributed deployments
//   - SQLite via GORM: for single-node deployments needing queryability
//
// All backends serialize operations per conversation id. Turn ordering is a
// correctness invariant: routing decisions depend on the immediately
// preceding state.
package session
