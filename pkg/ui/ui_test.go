package ui

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/waftester/contractfuzz/pkg/defaults"
	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/registry"
	"github.com/waftester/contractfuzz/pkg/runner"
)

func TestMain(m *testing.M) {
	SetNoColor(true)
	os.Exit(m.Run())
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(Summary{
		RunID:    "run-1",
		Target:   "http://api.test",
		Duration: 1500 * time.Millisecond,
		Stats:    registry.Stats{Success: 3, Warnings: 1, Errors: 2},
		Streams: []runner.Result{
			{Fuzzer: "CustomFuzzer", Operations: 4, Failed: 1, Duration: time.Second},
		},
		ReportDir: "out",
	})

	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "http://api.test")
	assert.Contains(t, out, "1.5s")
	assert.Regexp(t, `Tests\s+6`, out)
	assert.Regexp(t, `Errors\s+2`, out)
	assert.Contains(t, out, "CustomFuzzer")
	assert.Contains(t, out, "(1 failed)")
	assert.Contains(t, out, "out")
}

func TestPrintSummaryIncludesBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summary{RunID: "r"})
	assert.Contains(t, buf.String(), defaults.ToolName)
	assert.Contains(t, buf.String(), defaults.Version)
}

func TestFormatRecord(t *testing.T) {
	line := FormatRecord(registry.Record{
		ID:       7,
		Fuzzer:   "SecurityFuzzer",
		Path:     "/pets",
		Request:  &registry.Request{Method: "post"},
		Response: &registry.Response{StatusCode: 500},
		Result:   oracle.Error,
		Reason:   oracle.ReasonUnexpectedBehaviour,
	})
	assert.Equal(t, "[error] #7 SecurityFuzzer POST /pets [500] UNEXPECTED_BEHAVIOUR", line)
}

func TestPrinterHidesSuccessUnlessVerbose(t *testing.T) {
	var quiet, verbose bytes.Buffer
	ok := registry.Record{ID: 1, Fuzzer: "CustomFuzzer", Result: oracle.Success}
	warn := registry.Record{ID: 2, Fuzzer: "CustomFuzzer", Result: oracle.Warning}

	q := NewPrinter(&quiet, false)
	v := NewPrinter(&verbose, true)
	for _, rec := range []registry.Record{ok, warn} {
		q.Observe(rec)
		v.Observe(rec)
	}
	assert.NotContains(t, quiet.String(), "#1")
	assert.Contains(t, quiet.String(), "#2")
	assert.Contains(t, verbose.String(), "#1")
}

func TestStatusCodeStyleBuckets(t *testing.T) {
	assert.Equal(t, Status5xx, StatusCodeStyle(503).GetForeground())
	assert.Equal(t, Status4xx, StatusCodeStyle(404).GetForeground())
	assert.Equal(t, Status3xx, StatusCodeStyle(301).GetForeground())
	assert.Equal(t, Status2xx, StatusCodeStyle(200).GetForeground())
}
