package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReportCountsAndJSON(t *testing.T) {
	r := New("zh-CN")
	r.AddSuccess("a.html", "out/a.html", 1234*time.Millisecond)
	r.AddSuccess("b.html", "out/b.html", 2*time.Second)
	r.AddFailure("c.html", errors.New("extraction failed: no tool"))
	r.AddBlocks(17, 420)
	r.Sort()

	if r.SuccessCount != 2 || r.FailedCount != 1 {
		t.Fatalf("counts = %d/%d, want 2/1", r.SuccessCount, r.FailedCount)
	}
	if r.Total() != 3 {
		t.Fatalf("Total() = %d, want 3", r.Total())
	}

	path := filepath.Join(t.TempDir(), "report.json")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	for _, key := range []string{
		"run_id", "timestamp", "target_language",
		"success_count", "failed_count", "translated_blocks",
		"success_files", "failed_files",
	} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("report JSON missing key %q: %s", key, data)
		}
	}
	if decoded["target_language"] != "zh-CN" {
		t.Fatalf("target_language = %v, want zh-CN", decoded["target_language"])
	}
	if decoded["success_count"].(float64) != 2 {
		t.Fatalf("success_count = %v, want 2", decoded["success_count"])
	}

	successes := decoded["success_files"].([]any)
	first := successes[0].(map[string]any)
	if first["elapsed_seconds"].(float64) != 1.23 {
		t.Fatalf("elapsed_seconds = %v, want 1.23", first["elapsed_seconds"])
	}

	failures := decoded["failed_files"].([]any)
	entry := failures[0].(map[string]any)
	if !strings.Contains(entry["error"].(string), "extraction failed") {
		t.Fatalf("failure reason = %v, want the extraction error", entry["error"])
	}
}

func TestReportEmptyListsMarshalAsArrays(t *testing.T) {
	r := New("de")
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"success_files": []`) && !strings.Contains(string(data), `"success_files":[]`) {
		t.Fatalf("empty success_files should marshal as [], got %s", data)
	}
}

func TestDefaultFilename(t *testing.T) {
	at := time.Date(2026, 8, 25, 15, 30, 45, 0, time.UTC)
	want := "translation_report_20260825_153045.json"
	if got := DefaultFilename(at); got != want {
		t.Fatalf("DefaultFilename() = %q, want %q", got, want)
	}
}

func TestTableAndSummary(t *testing.T) {
	r := New("zh-CN")
	r.AddSuccess("guide.html", "out/guide.html", time.Second)
	r.AddFailure("broken.html", errors.New("document parse failed"))

	var buf bytes.Buffer
	r.Table(&buf)
	out := buf.String()
	for _, want := range []string{"guide.html", "broken.html", "failed", "1 ok / 1 failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Table() output missing %q:\n%s", want, out)
		}
	}

	sum := r.Summary()
	if !strings.Contains(sum, "1 succeeded, 1 failed") {
		t.Fatalf("Summary() = %q", sum)
	}
}
