// Package chmfile drives the external collaborator tools around the
// translation core: unpacking compiled help archives into a directory tree
// and compiling a directory tree back into an archive. Each side is a
// chain of strategies tried in a fixed order; the first success wins.
//
// The tools themselves (7z, extract_chmLib, hhc, chmcmd, hhw) are located
// on PATH at call time. A missing tool just moves the chain along.
package chmfile

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Per-invocation timeouts for the external tools.
const (
	ExtractTimeout = 300 * time.Second
	CompileTimeout = 600 * time.Second
)

// ErrExtraction marks an archive no available strategy could unpack.
var ErrExtraction = errors.New("extraction failed")

// ErrCompile marks a directory no available compiler turned into the
// expected output archive.
var ErrCompile = errors.New("compilation failed")

// strategy is one way to perform a step.
type strategy struct {
	name    string
	attempt func(ctx context.Context, in, out string) error
}

// ---------------------------------------------------------------------------
// Extraction
// ---------------------------------------------------------------------------

// Extract unpacks archive into destDir, trying 7z, then extract_chmLib,
// then a plain zip read. It returns the name of the strategy that
// succeeded. Each attempt gets its own ExtractTimeout.
func Extract(ctx context.Context, archive, destDir string) (string, error) {
	if _, err := os.Stat(archive); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, archive, err)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrExtraction, destDir, err)
	}

	strategies := []strategy{
		{name: "7z", attempt: sevenZipExtract},
		{name: "extract_chmLib", attempt: chmLibExtract},
		{name: "zip", attempt: zipExtract},
	}

	var attempts []string
	for _, s := range strategies {
		stepCtx, cancel := context.WithTimeout(ctx, ExtractTimeout)
		err := s.attempt(stepCtx, archive, destDir)
		cancel()
		if err == nil {
			return s.name, nil
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", s.name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %s: %s", ErrExtraction, archive, strings.Join(attempts, "; "))
}

// sevenZipExtract shells out to 7z.
func sevenZipExtract(ctx context.Context, archive, dest string) error {
	path, err := exec.LookPath("7z")
	if err != nil {
		return fmt.Errorf("not found (install p7zip-full)")
	}
	return runTool(ctx, path, "x", "-y", "-o"+dest, archive)
}

// chmLibExtract shells out to the chmlib extractor.
func chmLibExtract(ctx context.Context, archive, dest string) error {
	path, err := exec.LookPath("extract_chmLib")
	if err != nil {
		return fmt.Errorf("not found (install libchm-bin)")
	}
	return runTool(ctx, path, archive, dest)
}

// zipExtract reads the archive with the standard zip reader. Real help
// archives are not zip files, but renamed zips show up in the wild and
// this keeps the chain's last rung dependency-free.
func zipExtract(ctx context.Context, archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return fmt.Errorf("opening as zip: %v", err)
	}
	// On ErrInsecurePath the reader is still usable; the per-entry guard
	// below rejects the offending names.
	defer r.Close()

	cleanDest := filepath.Clean(dest)
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target := filepath.Join(cleanDest, f.Name)
		if !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes the destination", f.Name)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := writeZipEntry(f, target); err != nil {
			return fmt.Errorf("entry %q: %v", f.Name, err)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// ---------------------------------------------------------------------------
// Compilation
// ---------------------------------------------------------------------------

// Compile turns dir into the archive at outPath, trying hhc, then chmcmd,
// then hhw. Project files (hhp/hhc/hhk) are generated first when the
// directory lacks them. hhc exits non-zero even on success, so the success
// signal for every strategy is the output file existing on disk. Returns
// the name of the strategy that produced the archive.
func Compile(ctx context.Context, dir, outPath string) (string, error) {
	abs, err := filepath.Abs(outPath)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", ErrCompile, outPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return "", fmt.Errorf("%w: creating output directory: %v", ErrCompile, err)
	}

	hhp, err := EnsureProject(dir, ProjectOptions{OutputFile: abs})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompile, err)
	}

	strategies := []strategy{
		{name: "hhc", attempt: makeCompiler("hhc", "install HTML Help Workshop")},
		{name: "chmcmd", attempt: makeCompiler("chmcmd", "install fpc-chm")},
		{name: "hhw", attempt: makeCompiler("hhw", "install HTML Help Workshop")},
	}

	var attempts []string
	for _, s := range strategies {
		stepCtx, cancel := context.WithTimeout(ctx, CompileTimeout)
		err := s.attempt(stepCtx, hhp, abs)
		cancel()
		if fileExists(abs) {
			return s.name, nil
		}
		if err == nil {
			err = fmt.Errorf("exited cleanly but produced no output")
		}
		attempts = append(attempts, fmt.Sprintf("%s: %v", s.name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("%w: %s: %s", ErrCompile, outPath, strings.Join(attempts, "; "))
}

// makeCompiler wraps one help compiler binary as a strategy. They all take
// the project file as their argument.
func makeCompiler(binary, installHint string) func(ctx context.Context, hhp, out string) error {
	return func(ctx context.Context, hhp, _ string) error {
		path, err := exec.LookPath(binary)
		if err != nil {
			return fmt.Errorf("not found (%s)", installHint)
		}
		// Run from the project directory so relative [FILES] entries resolve.
		return runToolIn(ctx, filepath.Dir(hhp), path, filepath.Base(hhp))
	}
}

// ---------------------------------------------------------------------------
// Tool runner
// ---------------------------------------------------------------------------

// runTool executes one external command, surfacing stderr only on failure.
func runTool(ctx context.Context, path string, args ...string) error {
	return runToolIn(ctx, "", path, args...)
}

func runToolIn(ctx context.Context, dir, path string, args ...string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("timed out")
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%v", err)
		}
		return fmt.Errorf("%v: %s", err, firstLine(msg))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
