// Package observability provides structured logging, Prometheus metrics,
// and health probe handlers shared by all services.
package observability
