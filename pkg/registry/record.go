package registry

import (
	"time"

	"github.com/waftester/contractfuzz/pkg/oracle"
)

// Record is the outcome of one executed test case. It is filled while the
// test runs and never changes after it is finalized.
type Record struct {
	// ID is the sequence number, unique within the run.
	ID int64 `json:"id"`

	// Fuzzer is the name of the fuzzer that produced the test.
	Fuzzer string `json:"fuzzer"`

	// Narration.
	Scenario       string `json:"scenario"`
	ExpectedResult string `json:"expected_result"`
	Path           string `json:"path,omitempty"`
	FullURL        string `json:"full_url,omitempty"`

	// Snapshots of the first request and response captured for the test.
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`

	// Verdict.
	Result oracle.Result `json:"result"`
	Reason oracle.Reason `json:"result_reason,omitempty"`
	Detail string        `json:"result_details,omitempty"`
	Note   string        `json:"note,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration,format:nano"`
	Finalized  bool          `json:"-"`
}

// Request is the request snapshot of a test.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Payload string            `json:"payload,omitempty"`
}

// Response is the response snapshot of a test.
type Response struct {
	StatusCode int               `json:"status_code"`
	Body       string            `json:"body,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Duration   time.Duration     `json:"duration,format:nano"`
	// FuzzedField is the payload field mutated by the test, if any.
	FuzzedField string `json:"fuzzed_field,omitempty"`
}

// Stats are the run-wide counts by result.
type Stats struct {
	Success  int `json:"success"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
	Skipped  int `json:"skipped"`
}

// Total returns the number of finalized tests.
func (s Stats) Total() int {
	return s.Success + s.Warnings + s.Errors + s.Skipped
}

func (s *Stats) add(r oracle.Result) {
	switch r {
	case oracle.Success:
		s.Success++
	case oracle.Warning:
		s.Warnings++
	case oracle.Error:
		s.Errors++
	case oracle.Skipped:
		s.Skipped++
	}
}

// Run is handed to the exporter when the session ends.
type Run struct {
	ID         string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Stats      Stats     `json:"stats"`
	Records    []Record  `json:"-"`
}

// Exporter receives finalized records and the run summary.
type Exporter interface {
	Export(rec Record) error
	Close(run Run) error
}

// Observer is notified of every finalized record, skipped ones included.
type Observer interface {
	Observe(rec Record)
}

type nopExporter struct{}

func (nopExporter) Export(Record) error { return nil }
func (nopExporter) Close(Run) error     { return nil }
