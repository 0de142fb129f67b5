package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/strandline/internal/model"
)

// Renderer writes reports as JSON files and one-screen text summaries
type Renderer struct {
	summary io.Writer
}

// NewRenderer creates a renderer printing summaries to w (stderr when nil)
func NewRenderer(w io.Writer) *Renderer {
	if w == nil {
		w = os.Stderr
	}
	return &Renderer{summary: w}
}

// WriteJSON encodes report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// RenderJSON writes report to path, creating parent directories
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := r.WriteJSON(tmp, report); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderSummary prints the headline of a report
func (r *Renderer) RenderSummary(report *model.Report) {
	w := r.summary
	counts := report.Findings.BySeverity()

	fmt.Fprintf(w, "\nSample: %s (run %s)\n", report.Sample, report.RunID)
	fmt.Fprintf(w, "Catalog: %s (%s), %d markers, %d rules\n",
		report.Catalog.Version, report.Catalog.Build, report.Catalog.Markers, report.Catalog.Rules)
	fmt.Fprintf(w, "Markers: %d reconciled (%d flipped), %d ambiguous, %d unusable, %d missing\n",
		report.Stats.Reconciled, report.Stats.Flipped, report.Stats.Ambiguous, report.Stats.Unusable, report.Stats.Missing)
	fmt.Fprintf(w, "Findings: %d critical, %d moderate, %d indeterminate, %d informational\n",
		counts[model.SeverityCritical], counts[model.SeverityModerate],
		counts[model.SeverityIndeterminate], counts[model.SeverityInformational])

	for _, f := range report.Findings.Findings {
		if f.Severity != model.SeverityCritical && f.Severity != model.SeverityModerate {
			continue
		}
		fmt.Fprintf(w, "  [%s] %s: %s\n", f.Severity, f.Label, f.AggregateState)
	}
	for _, q := range report.TrialQueries {
		fmt.Fprintf(w, "  trial search: %s", q.Condition)
		if q.Term != "" {
			fmt.Fprintf(w, " (%s)", q.Term)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "Screening-level associations only; not a diagnosis.")
}

// RenderReport writes the JSON report (when jsonPath is set) and prints the summary
func (r *Renderer) RenderReport(report *model.Report, jsonPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(r.summary, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}
	r.RenderSummary(report)
	return nil
}
