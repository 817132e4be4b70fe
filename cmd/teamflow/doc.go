// Command teamflow runs the agent triage and handoff router service: it
// loads team definitions, exposes the interact API, and serves Prometheus
// metrics on a separate listener.
package main
