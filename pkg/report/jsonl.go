package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/waftester/contractfuzz/pkg/jsonutil"
	"github.com/waftester/contractfuzz/pkg/registry"
)

// JSONLExporter writes each finalized record as a single JSON line, which
// lets jq and streaming parsers follow a run while it progresses. The
// summary document is written on Close.
type JSONLExporter struct {
	mu      sync.Mutex
	encoder *jsonutil.LineEncoder
	summary io.Writer
	target  string
}

// NewJSONLExporter writes records to w and the run summary to summary.
// It is safe for concurrent use.
func NewJSONLExporter(w, summary io.Writer, target string) *JSONLExporter {
	return &JSONLExporter{
		encoder: jsonutil.NewLineEncoder(w),
		summary: summary,
		target:  target,
	}
}

// Export writes rec as one line.
func (e *JSONLExporter) Export(rec registry.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.encoder.Encode(rec); err != nil {
		return fmt.Errorf("write jsonl record %d: %w", rec.ID, err)
	}
	return nil
}

// Close writes the summary document.
func (e *JSONLExporter) Close(run registry.Run) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, err := jsonutil.MarshalIndent(NewSummary(run, e.target), "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if _, err := e.summary.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
