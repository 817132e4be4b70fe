// Package gateway executes named tool calls on behalf of the active agent.
//
// The gateway is the single dispatch point for tools and enforces the
// allowed-tools boundary: a call naming a tool outside the calling agent's
// allowed set is rejected before dispatch. Tool execution failures are not
// fatal — they are recorded on the invocation and handed back to the agent
// as input for its next reasoning step.
package gateway
