// Package server manages HTTP listener lifecycles: non-blocking start,
// graceful shutdown, and asynchronous error propagation. teamflow uses one
// Manager for the API listener and one for the metrics listener.
package server
