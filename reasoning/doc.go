// Package reasoning abstracts the chat-completion backend agents think with.
//
// A Provider takes a conversation rendered as messages plus the calling
// agent's tool schemas, and returns either assistant text or tool calls.
// The orchestrator owns the loop around it; this package only speaks the
// wire protocol and maps backend failures onto the shared error taxonomy.
package reasoning
