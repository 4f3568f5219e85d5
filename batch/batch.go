// Package batch orchestrates translation runs over directory trees of
// HTML files and over compiled help archives.
package batch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chmtools/chmloc/chmfile"
	"github.com/chmtools/chmloc/glossary"
	"github.com/chmtools/chmloc/htmldoc"
	"github.com/chmtools/chmloc/langmeta"
	"github.com/chmtools/chmloc/report"
	"github.com/chmtools/chmloc/translate"
)

// Options configure a batch run. The zero value translates sequentially
// with the default tag sets.
type Options struct {
	// Workers caps the number of concurrent file or archive jobs.
	Workers int
	// SkipExisting leaves outputs that already exist untouched.
	SkipExisting bool
	// KeepWorkDirs retains the per-archive scratch directories for
	// inspection instead of removing them.
	KeepWorkDirs bool
	// WorkDir is the parent for scratch directories; empty means the
	// system temp dir.
	WorkDir string
	// TranslatableTags and SkipTags override the document walker's tag
	// sets when non-empty.
	TranslatableTags []string
	SkipTags         []string
	// OnLog receives progress messages.
	OnLog func(string)
	// OnProgress receives completed and total job counts.
	OnProgress func(done, total int)
}

func (o Options) effectiveWorkers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

func (o Options) logf(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(fmt.Sprintf(format, args...))
	}
}

func (o Options) progress(done, total int) {
	if o.OnProgress != nil {
		o.OnProgress(done, total)
	}
}

// Runner binds the translation pipeline to run options. A Runner is safe
// for the concurrent jobs it starts itself; the Translator's counters and
// the Glossary are read-only or atomic.
type Runner struct {
	Translator *translate.Translator
	Glossary   *glossary.Glossary
	Options    Options
}

func (r *Runner) walker() *htmldoc.Walker {
	w := &htmldoc.Walker{
		Glossary:  r.Glossary,
		Translate: r.Translator.TranslateChunked,
	}
	if len(r.Options.TranslatableTags) > 0 {
		w.Tags = htmldoc.TagSet(r.Options.TranslatableTags)
	}
	if len(r.Options.SkipTags) > 0 {
		w.Skip = htmldoc.TagSet(r.Options.SkipTags)
	}
	return w
}

// TranslateFile translates a single HTML document from src to dst. The two
// paths may be equal for an in-place rewrite; the source is fully read
// before the output is opened.
func (r *Runner) TranslateFile(ctx context.Context, src, dst string) (htmldoc.WalkStats, error) {
	doc, err := htmldoc.ParseFile(src)
	if err != nil {
		return htmldoc.WalkStats{}, err
	}
	stats, err := r.walker().Walk(ctx, doc)
	if err != nil {
		return stats, err
	}
	if err := doc.RenderFile(dst); err != nil {
		return stats, err
	}
	return stats, nil
}

// fileJob is one translation unit inside a run.
type fileJob struct {
	rel string
	src string
	dst string
}

// TranslateTree mirrors srcDir into dstDir: HTML files are translated,
// everything else is copied byte for byte. The returned report lists each
// HTML file; a failed file is recorded and does not stop its siblings.
func (r *Runner) TranslateTree(ctx context.Context, srcDir, dstDir string) (*report.Report, error) {
	rep := report.New(r.Translator.TargetLang())

	htmlFiles, otherFiles, err := enumerate(srcDir)
	if err != nil {
		return rep, err
	}

	// Assets go first so the output tree is complete even when the
	// translation pass stops early.
	for _, rel := range otherFiles {
		if err := copyFile(filepath.Join(srcDir, rel), filepath.Join(dstDir, rel)); err != nil {
			return rep, fmt.Errorf("copying %s: %v", rel, err)
		}
	}
	if len(otherFiles) > 0 {
		r.Options.logf("Copied %d asset files", len(otherFiles))
	}

	jobs := make([]fileJob, 0, len(htmlFiles))
	for _, rel := range htmlFiles {
		jobs = append(jobs, fileJob{
			rel: rel,
			src: filepath.Join(srcDir, rel),
			dst: filepath.Join(dstDir, rel),
		})
	}

	err = r.runJobs(ctx, jobs, rep)
	rep.Sort()
	return rep, err
}

// TranslateTreeInPlace rewrites every HTML file under dir where it stands.
// Archive jobs use it between extraction and recompilation.
func (r *Runner) TranslateTreeInPlace(ctx context.Context, dir string) (*report.Report, error) {
	rep := report.New(r.Translator.TargetLang())

	htmlFiles, _, err := enumerate(dir)
	if err != nil {
		return rep, err
	}

	jobs := make([]fileJob, 0, len(htmlFiles))
	for _, rel := range htmlFiles {
		p := filepath.Join(dir, rel)
		jobs = append(jobs, fileJob{rel: rel, src: p, dst: p})
	}

	err = r.runJobs(ctx, jobs, rep)
	rep.Sort()
	return rep, err
}

// runJobs drains jobs through a bounded worker pool. Job failures are
// collected into the report and never cancel siblings; only ctx stops the
// run early, and the context error is returned.
func (r *Runner) runJobs(ctx context.Context, jobs []fileJob, rep *report.Report) error {
	total := len(jobs)
	sem := make(chan struct{}, r.Options.effectiveWorkers())
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(j fileJob) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if r.Options.SkipExisting && j.src != j.dst && fileExists(j.dst) {
				mu.Lock()
				done++
				r.Options.logf("Skipping %s (output already exists)", j.rel)
				r.Options.progress(done, total)
				mu.Unlock()
				return
			}

			start := time.Now()
			stats, err := r.TranslateFile(ctx, j.src, j.dst)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				rep.AddFailure(j.rel, err)
				r.Options.logf("Failed %s: %v", j.rel, err)
			} else {
				rep.AddSuccess(j.rel, j.dst, time.Since(start))
				rep.AddBlocks(int64(stats.Fragments), int64(stats.Chars))
			}
			r.Options.progress(done, total)
		}(job)
	}

	wg.Wait()
	return ctx.Err()
}

// ---------------------------------------------------------------------------
// Archive runs
// ---------------------------------------------------------------------------

// TranslateArchives processes help archives end to end: extract, translate
// the HTML tree in place, recompile. Outputs land in outDir named with the
// target language suffix. A failed archive is recorded in the report and
// does not stop the remaining archives.
func (r *Runner) TranslateArchives(ctx context.Context, archives []string, outDir string) (*report.Report, error) {
	rep := report.New(r.Translator.TargetLang())
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return rep, fmt.Errorf("creating output directory: %v", err)
	}

	total := len(archives)
	sem := make(chan struct{}, r.Options.effectiveWorkers())
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for _, archive := range archives {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(archive string) {
			defer func() {
				<-sem
				wg.Done()
			}()

			output := filepath.Join(outDir, OutputName(archive, r.Translator.TargetLang()))

			if r.Options.SkipExisting && fileExists(output) {
				mu.Lock()
				done++
				r.Options.logf("Skipping %s (output already exists)", filepath.Base(archive))
				r.Options.progress(done, total)
				mu.Unlock()
				return
			}

			start := time.Now()
			blocks, chars, err := r.translateArchive(ctx, archive, output)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				rep.AddFailure(archive, err)
				r.Options.logf("Failed %s: %v", filepath.Base(archive), err)
			} else {
				rep.AddSuccess(archive, output, time.Since(start))
				rep.AddBlocks(blocks, chars)
			}
			r.Options.progress(done, total)
		}(archive)
	}

	wg.Wait()
	rep.Sort()
	return rep, ctx.Err()
}

// translateArchive runs one archive through extract, translate, compile.
// Text-level failures inside the tree degrade to passthrough, so the
// archive still compiles; only extraction and compilation errors fail it.
func (r *Runner) translateArchive(ctx context.Context, archive, output string) (blocks, chars int64, err error) {
	stem := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))

	workDir, err := os.MkdirTemp(r.Options.WorkDir, "chmloc-"+stem+"-")
	if err != nil {
		return 0, 0, fmt.Errorf("creating work directory: %v", err)
	}
	if r.Options.KeepWorkDirs {
		defer r.Options.logf("Work directory kept at %s", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	r.Options.logf("Extracting %s", filepath.Base(archive))
	method, err := chmfile.Extract(ctx, archive, workDir)
	if err != nil {
		return 0, 0, err
	}
	r.Options.logf("Extracted %s with %s", filepath.Base(archive), method)

	// Files inside one archive are translated sequentially; parallelism
	// lives at the archive level.
	inner := &Runner{
		Translator: r.Translator,
		Glossary:   r.Glossary,
		Options: Options{
			TranslatableTags: r.Options.TranslatableTags,
			SkipTags:         r.Options.SkipTags,
			OnLog:            r.Options.OnLog,
		},
	}
	innerRep, err := inner.TranslateTreeInPlace(ctx, workDir)
	if err != nil {
		return 0, 0, err
	}

	r.Options.logf("Compiling %s", filepath.Base(output))
	tool, err := chmfile.Compile(ctx, workDir, output)
	if err != nil {
		return 0, 0, err
	}
	r.Options.logf("Compiled %s with %s", filepath.Base(output), tool)

	return innerRep.TranslatedBlocks, innerRep.TranslatedChars, nil
}

// ---------------------------------------------------------------------------
// Input handling
// ---------------------------------------------------------------------------

// OutputName derives the output archive name from the input and the target
// language: guide.chm targeting zh-CN becomes guide-zh_cn.chm.
func OutputName(path, lang string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return stem + "-" + langmeta.Suffix(lang) + ext
}

// ExpandPatterns resolves archive arguments: each argument may be a
// comma-separated list whose elements are literal paths or glob patterns.
// Results are deduplicated and ordered largest first so the longest jobs
// start early. Literal paths pass through unchecked; a missing file then
// fails its own job instead of the whole run.
func ExpandPatterns(patterns []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, arg := range patterns {
		for _, pattern := range strings.Split(arg, ",") {
			pattern = strings.TrimSpace(pattern)
			if pattern == "" {
				continue
			}
			if !strings.ContainsAny(pattern, "*?[") {
				add(pattern)
				continue
			}
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %v", pattern, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				add(m)
			}
		}
	}

	sortBySizeDesc(out)
	return out, nil
}

func sortBySizeDesc(paths []string) {
	sizes := make(map[string]int64, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			sizes[p] = info.Size()
		}
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return sizes[paths[i]] > sizes[paths[j]]
	})
}

// enumerate walks dir and splits regular files into HTML and the rest,
// both as sorted dir-relative paths.
func enumerate(dir string) (htmlFiles, otherFiles []string, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			return relErr
		}
		if chmfile.IsHTML(path) {
			htmlFiles = append(htmlFiles, rel)
		} else {
			otherFiles = append(otherFiles, rel)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scanning %s: %v", dir, err)
	}
	sort.Strings(htmlFiles)
	sort.Strings(otherFiles)
	return htmlFiles, otherFiles, nil
}

// copyFile copies src to dst byte for byte, creating parent directories.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
