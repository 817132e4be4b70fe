// Package api defines the HTTP wire types for the teamflow service.
//
// The interact exchange keeps the field names existing clients send and
// expect: camelCase conversationId/teamName/message on the way in, the
// responding turn with agentName, toolCalls, and optional handoff metadata on
// the way out. Handlers live in the handlers subpackage.
package api
