// Package duration provides the time constants used across the codebase.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.Shutdown)
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// HTTPRequest bounds one call to the API under test (30s)
	HTTPRequest = 30 * time.Second

	// Dial bounds TCP and proxy connection setup (10s)
	Dial = 10 * time.Second

	// IdleConn is how long idle keep-alive connections live (90s)
	IdleConn = 90 * time.Second

	// RetryDelay is the base delay between retries, multiplied by attempt (500ms)
	RetryDelay = 500 * time.Millisecond
)

// ============================================================================
// SERVER AND EXPORTER TIMEOUTS
// ============================================================================

const (
	// ReadHeader bounds header reads on the metrics server (5s)
	ReadHeader = 5 * time.Second

	// Write bounds responses of the metrics server (10s)
	Write = 10 * time.Second

	// Connect bounds the OTLP exporter's initial connection (10s)
	Connect = 10 * time.Second

	// Shutdown bounds graceful shutdown of servers and exporters (5s)
	Shutdown = 5 * time.Second
)
