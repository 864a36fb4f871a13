// Package report provides the run exporters.
//
// The package is organized by output format:
//
// # JSONL (jsonl.go)
//
// One finalized test case per line, plus a summary JSON document written
// when the run closes.
//
// # Spreadsheet (xlsx.go)
//
// One row per test case with error and warning rows filled, followed by a
// summary block.
//
// # Text summary (text.go)
//
// A plain text summary rendered from a text/template with Sprig functions.
//
// Open builds a Multi exporter writing the configured formats into a
// report directory.
package report
