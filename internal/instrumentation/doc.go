// Package instrumentation provides OpenTelemetry instrumentation for the
// taskdeck server.
//
// This package enables production-grade observability through:
//   - OpenTelemetry metrics for HTTP requests, commands, OAuth operations, and Google API calls
//   - Distributed tracing for command flows and API calls
//   - Prometheus metrics export via /metrics endpoint on dedicated port
//   - OTLP export support for modern observability platforms
//
// # Metrics
//
// The package exposes the following metric categories:
//
// Server/HTTP Metrics:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//   - command_requests_total: Counter of command envelope requests by command and status
//   - command_request_duration_seconds: Histogram of command handling durations
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// OAuth Authentication Metrics:
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Digest Metrics:
//   - digest_runs_total: Counter of digest runs by trigger and status
//   - digest_tasks_total: Counter of unfinished tasks reported in digests
//   - task_day_buckets: Gauge of stored day buckets
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Configuration
//
// Instrumentation can be configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: taskdeck)
package instrumentation
