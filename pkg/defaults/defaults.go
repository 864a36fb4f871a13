// Package defaults holds the canonical default values shared by the CLI,
// the configuration layer and the transport.
//
// Usage:
//
//	cfg.UserAgent = defaults.UserAgent
//	os.Exit(defaults.ExitErrorsFound)
package defaults

// ToolName is used as logger name, tracer service name and metric prefix.
const ToolName = "contractfuzz"

// Version is the current contractfuzz version.
const Version = "0.4.0"

// UserAgent is sent on every call unless configured otherwise.
const UserAgent = ToolName + "/" + Version

// ============================================================================
// CONCURRENCY SETTINGS
// ============================================================================

const (
	// Concurrency is the default number of fuzzer streams run at once (2)
	Concurrency = 2

	// MaxIdleConns bounds the transport's idle pool (100)
	MaxIdleConns = 100

	// MaxConnsPerHost bounds connections to the API under test (20)
	MaxConnsPerHost = 20
)

// ============================================================================
// FILES
// ============================================================================

const (
	// RefDataFile is where resolved reference data is written.
	RefDataFile = "refData_custom.yml"

	// ReportDir is the default report directory.
	ReportDir = ToolName + "-report"

	// MetricsAddr is the default Prometheus listen address.
	MetricsAddr = ":9464"

	// OTLPEndpoint is the default OTLP gRPC collector.
	OTLPEndpoint = "localhost:4317"
)

// MaxBodySize caps how much of a response body is read (10 MiB).
const MaxBodySize = 10 << 20
