// Package testutil provides shared test scaffolding: context helpers,
// scripted reasoning providers, and team definition fixtures. It is imported
// only from _test.go files.
package testutil
