package chmfile

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeZip builds a zip archive on disk for extraction tests.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip.Create() error: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write error: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Close() error: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}
}

// noTools empties PATH so LookPath cannot find external binaries and the
// chains exercise their fallback and failure behavior.
func noTools(t *testing.T) {
	t.Helper()
	t.Setenv("PATH", t.TempDir())
}

func TestExtractZipFallback(t *testing.T) {
	noTools(t)

	archive := filepath.Join(t.TempDir(), "help.chm")
	writeZip(t, archive, map[string]string{
		"index.html":    "<html><body>hi</body></html>",
		"img/logo.png":  "binarydata",
		"sub/page.html": "<html></html>",
	})

	dest := t.TempDir()
	method, err := Extract(context.Background(), archive, dest)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if method != "zip" {
		t.Fatalf("Extract() method = %q, want zip fallback", method)
	}

	for _, name := range []string{"index.html", "img/logo.png", "sub/page.html"} {
		if _, err := os.Stat(filepath.Join(dest, name)); err != nil {
			t.Fatalf("extracted file %s missing: %v", name, err)
		}
	}
}

func TestExtractAllStrategiesFail(t *testing.T) {
	noTools(t)

	archive := filepath.Join(t.TempDir(), "broken.chm")
	if err := os.WriteFile(archive, []byte("ITSF not really"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	_, err := Extract(context.Background(), archive, t.TempDir())
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("Extract() error = %v, want ErrExtraction", err)
	}
	for _, tool := range []string{"7z", "extract_chmLib", "zip"} {
		if !strings.Contains(err.Error(), tool) {
			t.Fatalf("Extract() error %q should list attempt %q", err, tool)
		}
	}
}

func TestExtractMissingArchive(t *testing.T) {
	_, err := Extract(context.Background(), filepath.Join(t.TempDir(), "nope.chm"), t.TempDir())
	if !errors.Is(err, ErrExtraction) {
		t.Fatalf("Extract(missing) error = %v, want ErrExtraction", err)
	}
}

func TestZipExtractRejectsEscapingEntries(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.zip")
	writeZip(t, archive, map[string]string{"../evil.txt": "pwn"})

	err := zipExtract(context.Background(), archive, t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "escapes") {
		t.Fatalf("zipExtract(evil) error = %v, want escape rejection", err)
	}
}

func TestCompileNoToolsAvailable(t *testing.T) {
	noTools(t)

	dir := writeTree(t, map[string]string{
		"index.html": "<html><head><title>T</title></head><body></body></html>",
	})
	out := filepath.Join(t.TempDir(), "out.chm")

	_, err := Compile(context.Background(), dir, out)
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("Compile() error = %v, want ErrCompile", err)
	}
	for _, tool := range []string{"hhc", "chmcmd", "hhw"} {
		if !strings.Contains(err.Error(), tool) {
			t.Fatalf("Compile() error %q should list attempt %q", err, tool)
		}
	}

	// Project files are generated before the compiler chain runs.
	if _, err := os.Stat(filepath.Join(dir, projectFileName)); err != nil {
		t.Fatalf("project file not generated: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "toc.hhc")); err != nil {
		t.Fatalf("contents file not generated: %v", err)
	}
}

func TestCompileEmptyTree(t *testing.T) {
	noTools(t)
	_, err := Compile(context.Background(), t.TempDir(), filepath.Join(t.TempDir(), "out.chm"))
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("Compile(empty) error = %v, want ErrCompile", err)
	}
}
