/*
Package observability turns trainer lifecycle events into Prometheus metrics
and structured log lines.
*/
package observability
