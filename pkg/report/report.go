package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/waftester/contractfuzz/pkg/config"
	"github.com/waftester/contractfuzz/pkg/registry"
)

// Report file names inside the report directory.
const (
	RecordsFile = "records.jsonl"
	SummaryFile = "summary.json"
	XLSXFile    = "report.xlsx"
	TextFile    = "summary.txt"
)

// Compile-time interface checks.
var (
	_ registry.Exporter = (*Multi)(nil)
	_ registry.Exporter = (*JSONLExporter)(nil)
	_ registry.Exporter = (*XLSXExporter)(nil)
	_ registry.Exporter = (*TextExporter)(nil)
)

// Summary is the run-level document shared by the exporters.
type Summary struct {
	RunID      string         `json:"run_id"`
	Target     string         `json:"target,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Duration   time.Duration  `json:"duration,format:nano"`
	Total      int            `json:"total"`
	Stats      registry.Stats `json:"stats"`
}

// NewSummary derives the summary of run against target.
func NewSummary(run registry.Run, target string) Summary {
	return Summary{
		RunID:      run.ID,
		Target:     target,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Duration:   run.FinishedAt.Sub(run.StartedAt),
		Total:      run.Stats.Total(),
		Stats:      run.Stats,
	}
}

// Multi fans records out to several exporters and closes the files it
// opened once the run is closed.
type Multi struct {
	exporters []registry.Exporter
	closers   []io.Closer
	log       *zap.Logger
}

// NewMulti returns an exporter forwarding to every exporter in order.
func NewMulti(log *zap.Logger, exporters ...registry.Exporter) *Multi {
	if log == nil {
		log = zap.NewNop()
	}
	return &Multi{exporters: exporters, log: log}
}

// Export implements registry.Exporter.
func (m *Multi) Export(rec registry.Record) error {
	var errs []error
	for _, e := range m.exporters {
		if err := e.Export(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements registry.Exporter.
func (m *Multi) Close(run registry.Run) error {
	var errs []error
	for _, e := range m.exporters {
		if err := e.Close(run); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.closeFiles(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Multi) closeFiles() error {
	var errs []error
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return errors.Join(errs...)
}

// Open creates dir and an exporter per configured format.
func Open(cfg config.ReportConfig, target string, log *zap.Logger) (*Multi, error) {
	m := NewMulti(log)
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	create := func(name string) (*os.File, error) {
		f, err := os.Create(filepath.Join(cfg.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("create report file: %w", err)
		}
		m.closers = append(m.closers, f)
		return f, nil
	}

	for _, format := range cfg.Formats {
		var err error
		switch strings.ToLower(format) {
		case config.FormatJSONL:
			var records, summary *os.File
			if records, err = create(RecordsFile); err == nil {
				if summary, err = create(SummaryFile); err == nil {
					m.exporters = append(m.exporters, NewJSONLExporter(records, summary, target))
				}
			}
		case config.FormatXLSX:
			var f *os.File
			if f, err = create(XLSXFile); err == nil {
				m.exporters = append(m.exporters, NewXLSXExporter(f, target))
			}
		case config.FormatText:
			var f *os.File
			if f, err = create(TextFile); err == nil {
				var tx *TextExporter
				if tx, err = NewTextExporter(f, target); err == nil {
					m.exporters = append(m.exporters, tx)
				}
			}
		default:
			err = fmt.Errorf("unknown report format %q", format)
		}
		if err != nil {
			_ = m.closeFiles()
			return nil, err
		}
		m.log.Debug("report format enabled", zap.String("format", format), zap.String("dir", cfg.Dir))
	}
	return m, nil
}
