// Package handlers implements the HTTP handlers for the teamflow service:
// the interact exchange, team listing, conversation fetch/delete, and
// health. Handlers share a uniform response envelope and error mapping.
package handlers
