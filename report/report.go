// Package report builds the machine-readable outcome record of a batch run
// and its human summary table. A report is assembled by the orchestrator's
// collector, written once, and never mutated afterwards.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
)

// FileSuccess is one translated document.
type FileSuccess struct {
	Original       string  `json:"original"`
	Output         string  `json:"output"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// FileFailure is one document that could not be processed, with the reason.
type FileFailure struct {
	Original string `json:"original"`
	Error    string `json:"error"`
}

// Report aggregates a whole run. Field names in the JSON form are stable;
// downstream tooling keys on them.
type Report struct {
	RunID            string        `json:"run_id"`
	Timestamp        string        `json:"timestamp"`
	TargetLanguage   string        `json:"target_language"`
	SuccessCount     int           `json:"success_count"`
	FailedCount      int           `json:"failed_count"`
	TranslatedBlocks int64         `json:"translated_blocks"`
	TranslatedChars  int64         `json:"translated_chars"`
	SuccessFiles     []FileSuccess `json:"success_files"`
	FailedFiles      []FileFailure `json:"failed_files"`
}

// New starts an empty report for the given target language. Additions are
// not synchronized; the orchestrator's collector serializes them.
func New(targetLang string) *Report {
	return &Report{
		RunID:          uuid.NewString(),
		Timestamp:      time.Now().Format(time.RFC3339),
		TargetLanguage: targetLang,
		SuccessFiles:   []FileSuccess{},
		FailedFiles:    []FileFailure{},
	}
}

// AddSuccess records one translated document.
func (r *Report) AddSuccess(original, output string, elapsed time.Duration) {
	r.SuccessCount++
	r.SuccessFiles = append(r.SuccessFiles, FileSuccess{
		Original:       original,
		Output:         output,
		ElapsedSeconds: roundSeconds(elapsed),
	})
}

// AddFailure records one failed document with its reason.
func (r *Report) AddFailure(original string, err error) {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	r.FailedCount++
	r.FailedFiles = append(r.FailedFiles, FileFailure{Original: original, Error: reason})
}

// AddBlocks accumulates fragment and character counters.
func (r *Report) AddBlocks(fragments, chars int64) {
	r.TranslatedBlocks += fragments
	r.TranslatedChars += chars
}

// Sort orders the per-file lists by original path for stable output.
func (r *Report) Sort() {
	sort.Slice(r.SuccessFiles, func(i, j int) bool {
		return r.SuccessFiles[i].Original < r.SuccessFiles[j].Original
	})
	sort.Slice(r.FailedFiles, func(i, j int) bool {
		return r.FailedFiles[i].Original < r.FailedFiles[j].Original
	})
}

// Total returns the number of documents attempted.
func (r *Report) Total() int {
	return r.SuccessCount + r.FailedCount
}

// WriteFile serializes the report as indented JSON.
func (r *Report) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// DefaultFilename names a report file after the run's wall-clock time,
// e.g. translation_report_20260825_153045.json.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("translation_report_%s.json", now.Format("20060102_150405"))
}

// Table renders the human summary: one row per file plus a totals footer.
func (r *Report) Table(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"File", "Status", "Elapsed", "Detail"})

	for _, f := range r.SuccessFiles {
		tw.AppendRow(table.Row{f.Original, "ok", fmt.Sprintf("%.2fs", f.ElapsedSeconds), f.Output})
	}
	for _, f := range r.FailedFiles {
		tw.AppendRow(table.Row{f.Original, "failed", "-", f.Error})
	}

	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d files", r.Total()),
		fmt.Sprintf("%d ok / %d failed", r.SuccessCount, r.FailedCount),
		"",
		fmt.Sprintf("%d fragments, %d chars", r.TranslatedBlocks, r.TranslatedChars),
	})
	tw.Render()
}

// Summary returns the one-line outcome for log output.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d succeeded, %d failed, %d fragments translated (%s)",
		r.SuccessCount, r.FailedCount, r.TranslatedBlocks, r.TargetLanguage)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
