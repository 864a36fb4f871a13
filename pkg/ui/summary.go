package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/waftester/contractfuzz/pkg/defaults"
	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/registry"
	"github.com/waftester/contractfuzz/pkg/runner"
)

// Banner returns the one-line tool banner.
func Banner() string {
	return TitleStyle.Render(defaults.ToolName) + " " + SubtitleStyle.Render("v"+defaults.Version)
}

// Summary is what the console prints when a run ends.
type Summary struct {
	RunID     string
	Target    string
	Duration  time.Duration
	Stats     registry.Stats
	Streams   []runner.Result
	ReportDir string
}

// RenderSummary renders s as a boxed block.
func RenderSummary(s Summary) string {
	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(LabelStyle.Render(label) + " " + value + "\n")
	}
	row("Run", ValueStyle.Render(s.RunID))
	if s.Target != "" {
		row("Target", ValueStyle.Render(s.Target))
	}
	row("Duration", ValueStyle.Render(s.Duration.Round(time.Millisecond).String()))
	row("Tests", ValueStyle.Render(fmt.Sprint(s.Stats.Total())))
	row("Success", ResultStyle(oracle.Success).Render(fmt.Sprint(s.Stats.Success)))
	row("Warnings", ResultStyle(oracle.Warning).Render(fmt.Sprint(s.Stats.Warnings)))
	row("Errors", ResultStyle(oracle.Error).Render(fmt.Sprint(s.Stats.Errors)))
	row("Skipped", ResultStyle(oracle.Skipped).Render(fmt.Sprint(s.Stats.Skipped)))

	if len(s.Streams) > 0 {
		b.WriteString("\n")
		for _, st := range s.Streams {
			line := fmt.Sprintf("%-16s %d operations in %s", st.Fuzzer, st.Operations, st.Duration.Round(time.Millisecond))
			if st.Failed > 0 {
				line += " " + ResultStyle(oracle.Error).Render(fmt.Sprintf("(%d failed)", st.Failed))
			}
			b.WriteString(SubtitleStyle.Render(line) + "\n")
		}
	}
	if s.ReportDir != "" {
		b.WriteString("\n" + LabelStyle.Render("Reports") + " " + s.ReportDir + "\n")
	}
	return BoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// PrintSummary writes the rendered summary to w.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, Banner(), RenderSummary(s)))
}

// FormatRecord formats one finalized test case:
// [result] #id fuzzer METHOD path [status] reason
func FormatRecord(rec registry.Record) string {
	bracket := func(s string) string {
		return BracketStyle.Render("[") + s + BracketStyle.Render("]")
	}
	parts := []string{
		bracket(ResultStyle(rec.Result).Render(rec.Result.String())),
		ValueStyle.Render(fmt.Sprintf("#%d", rec.ID)),
		rec.Fuzzer,
	}
	if rec.Request != nil {
		parts = append(parts, strings.ToUpper(rec.Request.Method))
	}
	if rec.Path != "" {
		parts = append(parts, rec.Path)
	}
	if rec.Response != nil {
		parts = append(parts, bracket(StatusCodeStyle(rec.Response.StatusCode).Render(fmt.Sprint(rec.Response.StatusCode))))
	}
	if rec.Reason != "" {
		parts = append(parts, SubtitleStyle.Render(string(rec.Reason)))
	}
	return strings.Join(parts, " ")
}

// Printer streams finalized records to the console. Successes are only
// printed when Verbose is set.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

var _ registry.Observer = (*Printer)(nil)

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer, verbose bool) *Printer {
	return &Printer{w: w, verbose: verbose}
}

// Observe implements registry.Observer.
func (p *Printer) Observe(rec registry.Record) {
	if rec.Result == oracle.Success && !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, FormatRecord(rec))
}
