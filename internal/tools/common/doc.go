// Package common provides shared utilities for MCP tool implementations.
// It contains the instrumentation wrapper applied to every tool handler
// to ensure consistent metrics and tracing behavior.
package common
