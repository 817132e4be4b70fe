// Package router decides which agent handles the next turn of a
// conversation.
//
// For multi_agent teams the triage agent classifies the user message against
// its declared handoff targets; specialists keep control once selected.
// Sequential teams advance deterministically and single-agent teams never
// route. Classification is pluggable: an LLM-backed classifier and a
// deterministic keyword classifier ship with the package.
package router
