// Package orchestrator drives one user message end to end: persist the user
// turn, route it, run the active agent's reasoning loop with tool dispatch,
// and persist the resulting agent turn.
//
// Conversations are serialized: a per-conversation lock makes the
// read-route-respond-append sequence atomic with respect to concurrent
// messages on the same conversation. Distinct conversations proceed in
// parallel. Failures below the orchestrator become in-band system-error
// turns so that every message yields a response and no user turn is lost.
package orchestrator
