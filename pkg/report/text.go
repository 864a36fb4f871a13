package report

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/registry"
)

const textSummaryTemplate = `{{ "contractfuzz run summary" | title }}
{{ repeat 24 "=" }}
Run:      {{ .Summary.RunID }}
Target:   {{ .Summary.Target | default "n/a" }}
Duration: {{ .Summary.Duration }}

Results:
  Total:    {{ .Summary.Total }}
  Success:  {{ .Summary.Stats.Success }}
  Warnings: {{ .Summary.Stats.Warnings }}
  Errors:   {{ .Summary.Stats.Errors }}
  Skipped:  {{ .Summary.Stats.Skipped }}
{{ if .Fuzzers }}
By fuzzer:
{{- range .Fuzzers }}
  {{ .Name | printf "%-16s" }} {{ .Stats.Success }} ok, {{ .Stats.Warnings }} warn, {{ .Stats.Errors }} error
{{- end }}
{{ end }}
{{- if .Problems }}
Problems:
{{- range .Problems }}
  [{{ .Result | toString | upper }}] #{{ .ID }} {{ .Fuzzer }} {{ .Path }}: {{ .Reason }}{{ if .Detail }} - {{ .Detail | trunc 160 }}{{ end }}
{{- end }}
{{ end -}}
`

// FuzzerStats are the counts of one fuzzer.
type FuzzerStats struct {
	Name  string
	Stats registry.Stats
}

type textData struct {
	Summary  Summary
	Fuzzers  []FuzzerStats
	Problems []registry.Record
}

// TextExporter renders a plain text summary of the run on Close.
type TextExporter struct {
	mu     sync.Mutex
	w      io.Writer
	tmpl   *template.Template
	target string
}

// NewTextExporter parses the summary template. Sprig functions and
// "title" are available to it.
func NewTextExporter(w io.Writer, target string) (*TextExporter, error) {
	funcMap := sprig.TxtFuncMap()
	funcMap["title"] = cases.Title(language.English).String
	tmpl, err := template.New("summary").Funcs(funcMap).Parse(textSummaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}
	return &TextExporter{w: w, tmpl: tmpl, target: target}, nil
}

// Export is a no-op; the summary needs the whole run.
func (e *TextExporter) Export(registry.Record) error { return nil }

// Close renders the summary.
func (e *TextExporter) Close(run registry.Run) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.tmpl.Execute(e.w, buildTextData(run, e.target)); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	return nil
}

func buildTextData(run registry.Run, target string) textData {
	byFuzzer := make(map[string]*registry.Stats)
	var problems []registry.Record
	for _, rec := range run.Records {
		s, ok := byFuzzer[rec.Fuzzer]
		if !ok {
			s = &registry.Stats{}
			byFuzzer[rec.Fuzzer] = s
		}
		switch rec.Result {
		case oracle.Success:
			s.Success++
		case oracle.Warning:
			s.Warnings++
			problems = append(problems, rec)
		case oracle.Error:
			s.Errors++
			problems = append(problems, rec)
		case oracle.Skipped:
			s.Skipped++
		}
	}
	fuzzers := make([]FuzzerStats, 0, len(byFuzzer))
	for _, name := range slices.Sorted(maps.Keys(byFuzzer)) {
		fuzzers = append(fuzzers, FuzzerStats{Name: name, Stats: *byFuzzer[name]})
	}
	slices.SortStableFunc(problems, func(a, b registry.Record) int {
		return cmp.Compare(b.Result, a.Result)
	})
	return textData{Summary: NewSummary(run, target), Fuzzers: fuzzers, Problems: problems}
}
