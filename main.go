// chmloc — batch translator for compiled HTML help archives and HTML trees.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/chmtools/chmloc/batch"
	"github.com/chmtools/chmloc/chmfile"
	"github.com/chmtools/chmloc/config"
	"github.com/chmtools/chmloc/glossary"
	"github.com/chmtools/chmloc/i18n"
	"github.com/chmtools/chmloc/langmeta"
	"github.com/chmtools/chmloc/report"
	"github.com/chmtools/chmloc/settings"
	"github.com/chmtools/chmloc/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors. Blanked by disableColors when stderr is not a terminal.
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow, colorBlue = "", "", "", "", ""
}

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// progressBar renders percent as a fixed-width colored bar, clamped to
// the 0..100 range.
func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := width * percent / 100

	var color string
	switch {
	case percent >= 100:
		color = colorGreen
	case percent >= 33:
		color = colorYellow
	default:
		color = colorRed
	}

	return color + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + colorReset + fmt.Sprintf(" %3d%%", percent)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	configPath string
	verbose    bool
	noColor    bool
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chmloc",
		Short: "Translate compiled HTML help archives and HTML trees",
		Long: `chmloc — batch translator for compiled HTML help (.chm) archives.

Extracts each archive, machine-translates the HTML topic text while
preserving markup, code samples and untranslatable strings, applies an
optional terminology glossary, and recompiles the result. Plain HTML
files and directory trees are supported without the archive steps.

Commands:
  translate   Translate an HTML file or directory tree
  batch       Translate .chm archives end to end
  extract     Unpack an archive without translating
  compile     Compile a directory back into an archive
  glossary    Inspect a glossary file
  engines     List translation engines
  auth        Manage engine API keys

Engines:
  google      Google web endpoint — no API key
  deepl       DeepL API — API key required
  microsoft   Microsoft Translator — API key required`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor || os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stderr.Fd()) {
				disableColors()
			}
		},
	}

	// Global persistent flags — inherited by all subcommands
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: chmloc.yaml in the working directory)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable detailed logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newTranslateCmd(),
		newBatchCmd(),
		newExtractCmd(),
		newCompileCmd(),
		newGlossaryCmd(),
		newEnginesCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("chmloc version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// Shared pipeline setup
// ---------------------------------------------------------------------------

// pipelineArgs carries the flags shared by translate and batch.
type pipelineArgs struct {
	targetLang     string
	sourceLang     string
	engine         string
	apiKey         string
	glossaryFile   string
	glossaryPolicy string
	maxRetries     int
	retryDelay     time.Duration
	workers        int
	skipExisting   bool
}

// addPipelineFlags registers the shared flags on cmd.
func addPipelineFlags(cmd *cobra.Command, a *pipelineArgs) {
	cmd.Flags().StringVarP(&a.targetLang, "lang", "l", "", "Target language (default from config: zh-CN)")
	cmd.Flags().StringVar(&a.sourceLang, "source-lang", "", "Source language (default from config: en)")
	cmd.Flags().StringVarP(&a.engine, "engine", "e", "", "Translation engine: google, deepl, microsoft")
	cmd.Flags().StringVar(&a.apiKey, "api-key", "", "API key (or DEEPL_API_KEY / MICROSOFT_API_KEY / CHMLOC_API_KEY env vars)")
	cmd.Flags().StringVarP(&a.glossaryFile, "glossary", "g", "", "Glossary file (.csv or .json)")
	cmd.Flags().StringVar(&a.glossaryPolicy, "glossary-policy", "", "Overlap policy: first-match, longest-match")
	cmd.Flags().IntVar(&a.maxRetries, "max-retries", 0, "Retries per fragment before passthrough (default from config: 3)")
	cmd.Flags().DurationVar(&a.retryDelay, "retry-delay", 0, "Base delay between retries (default from config: 2s)")
	cmd.Flags().BoolVar(&a.skipExisting, "skip-existing", false, "Skip inputs whose output already exists")

	_ = cmd.RegisterFlagCompletionFunc("engine", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		completions := make([]string, 0, 3)
		for _, e := range translate.Engines() {
			completions = append(completions, fmt.Sprintf("%s\t%s", e.Name, e.Description))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("glossary-policy", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return glossary.ValidPolicies(), cobra.ShellCompDirectiveNoFileComp
	})
}

// loadConfig reads the config file and, in verbose mode, reports which
// file was actually used.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	path := configPath
	if path == "" {
		path = config.DefaultFileName
	}
	if verbose {
		if _, statErr := os.Stat(path); statErr == nil {
			logInfo(i18n.T("Configuration loaded from %s"), path)
		}
	}
	return cfg, nil
}

// mergeConfig folds flag values over the loaded config. Flags win when set.
func mergeConfig(cfg *config.Config, a pipelineArgs) {
	if a.targetLang != "" {
		cfg.TargetLang = a.targetLang
	}
	if a.sourceLang != "" {
		cfg.SourceLang = a.sourceLang
	}
	if a.engine != "" {
		cfg.Engine = a.engine
	}
	if a.apiKey != "" {
		cfg.APIKey = a.apiKey
	}
	if a.glossaryFile != "" {
		cfg.GlossaryFile = a.glossaryFile
	}
	if a.glossaryPolicy != "" {
		cfg.GlossaryPolicy = a.glossaryPolicy
	}
	if a.maxRetries > 0 {
		cfg.MaxRetries = a.maxRetries
	}
	if a.retryDelay > 0 {
		cfg.RetryDelay = int(a.retryDelay / time.Second)
	}
	if a.workers > 0 {
		cfg.MaxWorkers = a.workers
	}
}

// buildRunner assembles the translation pipeline from the merged config.
// Engine misconfiguration (missing key, unknown name) fails here, before
// any file is touched.
func buildRunner(cfg config.Config, opts batch.Options) (*batch.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	key := settings.ResolveAPIKey(cfg.Engine, cfg.APIKey)
	engine, err := translate.NewEngine(cfg.Engine, key, nil)
	if err != nil {
		return nil, err
	}
	if ms, ok := engine.(*translate.MicrosoftEngine); ok {
		ms.Region = settings.GetRegion(cfg.Engine)
	}

	var gloss *glossary.Glossary
	if cfg.GlossaryFile != "" {
		gloss, err = glossary.Load(cfg.GlossaryFile, cfg.Policy())
		if err != nil {
			return nil, err
		}
		logInfo(i18n.T("Loaded %d glossary entries from %s"), gloss.Len(), cfg.GlossaryFile)
	}

	meta := langmeta.Resolve(cfg.TargetLang)
	logInfo(i18n.T("Using engine %s"), cfg.Engine)
	logInfo("Target language: %s (%s)", meta.Name, meta.Native)

	translator := translate.New(translate.Options{
		Engine:     engine,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelayDuration(),
		ChunkSize:  cfg.ChunkSize,
		MaxLength:  cfg.MaxLength,
		OnLog: func(msg string) {
			if verbose {
				logWarning("%s", msg)
			}
		},
	})

	opts.TranslatableTags = cfg.TranslatableTags
	opts.SkipTags = cfg.SkipTags
	opts.OnLog = func(msg string) { logInfo("%s", msg) }

	return &batch.Runner{
		Translator: translator,
		Glossary:   gloss,
		Options:    opts,
	}, nil
}

// signalContext returns a context cancelled by the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, finishing in-flight files...")
		cancel()
	}()

	return ctx, cancel
}

// finishRun prints the run summary and writes the report file when asked.
// Returns the number of failures for the caller's exit decision.
func finishRun(rep *report.Report, stats translate.Stats, reportPath string) int {
	if rep.Total() > 0 {
		rep.Table(os.Stdout)
	}
	logInfo(i18n.T("Translated %d text fragments (%d characters)"), stats.Strings, stats.Chars)
	if stats.Failures > 0 {
		logWarning("%d fragments fell back to the original text", stats.Failures)
	}
	logInfo(i18n.T("Done: %d succeeded, %d failed"), rep.SuccessCount, rep.FailedCount)

	if reportPath != "" {
		if err := rep.WriteFile(reportPath); err != nil {
			logError("Writing report: %v", err)
		} else {
			logSuccess(i18n.T("Report written to %s"), reportPath)
		}
	}
	return rep.FailedCount
}

// ---------------------------------------------------------------------------
// translate (HTML file or directory tree)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		a          pipelineArgs
		output     string
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "translate <input>",
		Short: "Translate an HTML file or directory tree",
		Long: `Translate a single HTML file or a whole directory tree.

Directories are mirrored into the output directory: HTML files are
translated, every other file is copied unchanged. Text inside code and
pre blocks, URLs, numbers, file paths and other untranslatable strings
are preserved. Fragments whose translation keeps failing after retries
fall back to the original text instead of aborting the file.

Examples:
  # Translate one page to Simplified Chinese (default engine: google)
  chmloc translate docs/intro.html

  # Translate a tree to Russian with a terminology glossary
  chmloc translate docs/ --lang ru --glossary terms.csv -o docs-ru/

  # DeepL with four parallel files
  chmloc translate docs/ --engine deepl --api-key KEY --workers 4`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runTranslate(args[0], output, reportPath, a)
		},
	}

	addPipelineFlags(cmd, &a)
	cmd.Flags().IntVarP(&a.workers, "workers", "j", 0, "Concurrent files (default from config: 4)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory (default: input name with language suffix)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a JSON run report to this path")

	return cmd
}

func runTranslate(input, output, reportPath string, a pipelineArgs) {
	cfg, err := loadConfig()
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	mergeConfig(&cfg, a)

	info, err := os.Stat(input)
	if err != nil {
		logError("Reading input: %v", err)
		os.Exit(1)
	}

	runner, err := buildRunner(cfg, batch.Options{
		Workers:      cfg.MaxWorkers,
		SkipExisting: a.skipExisting,
		OnProgress: func(done, total int) {
			logInfo("%s %d/%d", progressBar(done*100/total, 20), done, total)
		},
	})
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !info.IsDir() {
		runTranslateFile(ctx, runner, input, output, reportPath)
		return
	}

	if output == "" {
		output = strings.TrimSuffix(input, string(filepath.Separator)) + "-" + langmeta.Suffix(cfg.TargetLang)
	}

	logInfo(i18n.T("Translating %s"), input)
	rep, runErr := runner.TranslateTree(ctx, input, output)
	if runErr != nil && ctx.Err() == nil {
		logError("%v", runErr)
		os.Exit(1)
	}

	failed := finishRun(rep, runner.Translator.Stats(), reportPath)
	if ctx.Err() != nil {
		os.Exit(1)
	}
	// A partially failed tree is still useful; only a fully failed run
	// signals an error.
	if failed > 0 && rep.SuccessCount == 0 {
		logError(i18n.T("All files failed"))
		os.Exit(1)
	}
}

func runTranslateFile(ctx context.Context, runner *batch.Runner, input, output, reportPath string) {
	if output == "" {
		output = filepath.Join(filepath.Dir(input), batch.OutputName(input, runner.Translator.TargetLang()))
	}

	logInfo(i18n.T("Translating %s"), input)
	start := time.Now()
	stats, err := runner.TranslateFile(ctx, input, output)

	rep := report.New(runner.Translator.TargetLang())
	if err != nil {
		rep.AddFailure(input, err)
	} else {
		rep.AddSuccess(input, output, time.Since(start))
		rep.AddBlocks(int64(stats.Fragments), int64(stats.Chars))
	}

	finishRun(rep, runner.Translator.Stats(), reportPath)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	logSuccess("%s -> %s", input, output)
}

// ---------------------------------------------------------------------------
// batch (.chm archives end to end)
// ---------------------------------------------------------------------------

func newBatchCmd() *cobra.Command {
	var (
		a            pipelineArgs
		outDir       string
		workDir      string
		keepWorkDirs bool
		reportPath   string
	)

	cmd := &cobra.Command{
		Use:   "batch <archives...>",
		Short: "Translate .chm archives end to end",
		Long: `Translate compiled help archives: extract, translate every HTML
topic, and recompile.

Each argument may be a path, a glob pattern, or a comma-separated list
of either. Outputs are written next to each other in the output
directory as <name>-<lang>.chm (for example guide-zh_cn.chm). Archives
are processed largest first; a failed archive is reported and does not
stop the rest.

Extraction tries 7z, then extract_chmLib, then the built-in zip reader.
Compilation needs one of hhc, chmcmd or hhw on the PATH.

Examples:
  # Translate every archive in a directory to Simplified Chinese
  chmloc batch 'help/*.chm'

  # Two archives to Russian, three at a time, keep scratch dirs
  chmloc batch a.chm,b.chm --lang ru --jobs 3 --keep-work-dirs`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runBatch(args, outDir, workDir, reportPath, keepWorkDirs, a)
		},
	}

	addPipelineFlags(cmd, &a)
	cmd.Flags().IntVarP(&a.workers, "jobs", "j", 1, "Concurrent archives")
	cmd.Flags().StringVarP(&outDir, "output", "o", "translated", "Output directory")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "Parent directory for per-archive scratch space")
	cmd.Flags().BoolVar(&keepWorkDirs, "keep-work-dirs", false, "Keep per-archive scratch directories")
	cmd.Flags().StringVar(&reportPath, "report", "", "Report path (default: timestamped file in the output directory)")

	return cmd
}

func runBatch(patterns []string, outDir, workDir, reportPath string, keepWorkDirs bool, a pipelineArgs) {
	cfg, err := loadConfig()
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	mergeConfig(&cfg, a)
	if keepWorkDirs {
		cfg.KeepWorkDirs = true
	}

	archives, err := batch.ExpandPatterns(patterns)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	if len(archives) == 0 {
		logError(i18n.T("No input files matched"))
		os.Exit(1)
	}
	logInfo(i18n.N("Found %d file", "Found %d files", len(archives)), len(archives))

	// Archive jobs parallelize across archives, not inside them.
	jobs := a.workers
	if jobs < 1 {
		jobs = 1
	}
	runner, err := buildRunner(cfg, batch.Options{
		Workers:      jobs,
		SkipExisting: a.skipExisting,
		KeepWorkDirs: cfg.KeepWorkDirs,
		WorkDir:      workDir,
		OnProgress: func(done, total int) {
			logInfo("%s %d/%d", progressBar(done*100/total, 20), done, total)
		},
	})
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	rep, runErr := runner.TranslateArchives(ctx, archives, outDir)
	if runErr != nil && ctx.Err() == nil {
		logError("%v", runErr)
		os.Exit(1)
	}

	if reportPath == "" {
		reportPath = filepath.Join(outDir, report.DefaultFilename(time.Now()))
	}
	failed := finishRun(rep, runner.Translator.Stats(), reportPath)

	// Batch runs feed release pipelines: any missing output is an error.
	if failed > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// extract (unpack an archive)
// ---------------------------------------------------------------------------

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <archive> [dest]",
		Short: "Unpack an archive without translating",
		Long: `Unpack a compiled help archive into a directory.

Tries 7z first, then extract_chmLib, then the built-in zip reader.
The default destination is the archive name without its extension.`,
		Args: cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			archive := args[0]
			dest := strings.TrimSuffix(archive, filepath.Ext(archive))
			if len(args) == 2 {
				dest = args[1]
			}

			ctx, cancel := signalContext()
			defer cancel()

			logInfo(i18n.T("Extracting %s"), archive)
			method, err := chmfile.Extract(ctx, archive, dest)
			if err != nil {
				logError("%v", err)
				os.Exit(1)
			}
			logSuccess("Extracted to %s (using %s)", dest, method)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// compile (directory back into an archive)
// ---------------------------------------------------------------------------

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <dir> [output]",
		Short: "Compile a directory back into an archive",
		Long: `Compile a directory of HTML files into a help archive.

Reuses the directory's own contents (.hhc) and index (.hhk) files when
present and generates minimal ones otherwise. Needs one of hhc, chmcmd
or hhw on the PATH. The default output is the directory name with a
.chm extension.`,
		Args: cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			dir := args[0]
			output := filepath.Base(strings.TrimSuffix(dir, string(filepath.Separator))) + ".chm"
			if len(args) == 2 {
				output = args[1]
			}

			ctx, cancel := signalContext()
			defer cancel()

			logInfo(i18n.T("Compiling %s"), output)
			tool, err := chmfile.Compile(ctx, dir, output)
			if err != nil {
				logError("%v", err)
				os.Exit(1)
			}
			logSuccess("Compiled %s (using %s)", output, tool)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// glossary (inspect a glossary file)
// ---------------------------------------------------------------------------

func newGlossaryCmd() *cobra.Command {
	var policy string

	cmd := &cobra.Command{
		Use:   "glossary <file>",
		Short: "Inspect a glossary file",
		Long: `Load a glossary file and show its entries as the translator
would apply them: sources lowercased, duplicates collapsed, ordered by
the overlap policy.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			g, err := glossary.Load(args[0], glossary.MatchPolicy(policy))
			if err != nil {
				logError("%v", err)
				os.Exit(1)
			}

			logSuccess(i18n.T("Loaded %d glossary entries from %s"), g.Len(), args[0])
			logInfo("Overlap policy: %s", g.Policy())
			if verbose {
				logInfo("Indexed words for multi-word terms: %d", g.IndexedWords())
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"#", "Source", "Target"})
			for i, e := range g.Entries() {
				t.AppendRow(table.Row{i + 1, e.Source, e.Target})
			}
			t.Render()
		},
	}

	cmd.Flags().StringVar(&policy, "policy", "", "Overlap policy: first-match, longest-match")

	return cmd
}

// ---------------------------------------------------------------------------
// engines (list translation engines)
// ---------------------------------------------------------------------------

func newEnginesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List translation engines",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(i18n.T("Available engines:"))

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Engine", "Auth", "Description"})
			for _, e := range translate.Engines() {
				auth := "none"
				if e.NeedsKey {
					auth = "API key"
					if settings.GetAPIKey(e.Name) != "" {
						auth = "API key (stored)"
					}
				}
				t.AppendRow(table.Row{e.Name, auth, e.Description})
			}
			t.Render()
		},
	}
}

// ---------------------------------------------------------------------------
// auth (manage engine API keys)
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage engine API keys",
		Long: `Manage stored API keys for translation engines.

API key engines:
  deepl       DeepL API (free or pro plan)
  microsoft   Microsoft Translator (key + optional region)

No auth required:
  google      Google web endpoint

Examples:
  chmloc auth login                     Interactive engine selection
  chmloc auth login --engine deepl      Store a DeepL API key
  chmloc auth logout --engine deepl     Remove the DeepL key
  chmloc auth logout                    Remove all stored keys
  chmloc auth list                      Show stored keys`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

// keyedEngines is the ordered list for the interactive menu.
var keyedEngines = []struct {
	id   string
	name string
	desc string
}{
	{"deepl", "DeepL", "free or pro plan, https://www.deepl.com/pro-api"},
	{"microsoft", "Microsoft Translator", "Azure key, optional region"},
}

func newAuthLoginCmd() *cobra.Command {
	var engine string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key for an engine",
		Run: func(cmd *cobra.Command, args []string) {
			if engine == "" {
				fmt.Fprintln(os.Stderr, "")
				fmt.Fprintf(os.Stderr, "%sSelect engine to configure:%s\n\n", colorBlue, colorReset)
				for i, e := range keyedEngines {
					fmt.Fprintf(os.Stderr, "  %d. %s%-11s%s %s\n", i+1, colorYellow, e.id, colorReset, e.desc)
				}
				fmt.Fprintln(os.Stderr)
				fmt.Fprintf(os.Stderr, "Enter choice (number or name): ")

				scanner := bufio.NewScanner(os.Stdin)
				if !scanner.Scan() {
					logError("No input received")
					os.Exit(1)
				}
				choice := strings.TrimSpace(scanner.Text())

				for i, e := range keyedEngines {
					if choice == fmt.Sprintf("%d", i+1) || choice == e.id {
						engine = e.id
						break
					}
				}
				if engine == "" {
					logError("Invalid choice. Use: chmloc auth login --engine ENGINE")
					os.Exit(1)
				}
			}

			switch engine {
			case "deepl", "microsoft":
				authLoginAPIKey(engine)
			case "google":
				logInfo("The google engine needs no API key")
			default:
				logError("Unknown engine '%s'. Run 'chmloc engines' for options.", engine)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "Engine to configure")
	_ = cmd.RegisterFlagCompletionFunc("engine", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		completions := make([]string, 0, len(keyedEngines))
		for _, e := range keyedEngines {
			completions = append(completions, fmt.Sprintf("%s\t%s", e.id, e.name))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func authLoginAPIKey(engineID string) {
	var name string
	for _, e := range keyedEngines {
		if e.id == engineID {
			name = e.name
		}
	}

	fmt.Fprintf(os.Stderr, "\n%s%s — API Key Setup%s\n", colorBlue, name, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintln(os.Stderr)

	scanner := bufio.NewScanner(os.Stdin)

	existing := settings.GetAPIKey(engineID)
	if existing != "" {
		fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(existing), colorReset)
		fmt.Fprintf(os.Stderr, "  Enter new key to replace, or press Enter to keep: ")
	} else {
		fmt.Fprintf(os.Stderr, "  Enter API key: ")
	}

	if !scanner.Scan() {
		logError("No input received")
		os.Exit(1)
	}
	key := strings.TrimSpace(scanner.Text())

	if key == "" {
		if existing != "" {
			logInfo("Keeping existing key")
			return
		}
		logError("No API key provided")
		os.Exit(1)
	}

	if err := settings.SetAPIKey(engineID, key); err != nil {
		logError("Failed to save API key: %v", err)
		os.Exit(1)
	}

	if engineID == "microsoft" {
		fmt.Fprintf(os.Stderr, "  Subscription region (press Enter to skip): ")
		if scanner.Scan() {
			region := strings.TrimSpace(scanner.Text())
			if region != "" {
				if err := settings.Set(engineID, &settings.Info{Key: key, Region: region}); err != nil {
					logError("Failed to save region: %v", err)
					os.Exit(1)
				}
			}
		}
	}

	logSuccess("%s API key saved!", name)
	fmt.Fprintf(os.Stderr, "\n  You can now use: chmloc translate docs/ --engine %s\n\n", engineID)
}

func newAuthLogoutCmd() *cobra.Command {
	var engine string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored API keys",
		Long: `Remove stored API keys for one or all engines.

If --engine is not specified, keys for ALL engines are removed.`,
		Run: func(cmd *cobra.Command, args []string) {
			if engine != "" {
				if err := settings.Remove(engine); err != nil {
					logError("Failed to remove %s credentials: %v", engine, err)
					os.Exit(1)
				}
				logSuccess("%s credentials removed", engine)
				return
			}

			if err := settings.RemoveAll(); err != nil {
				logError("Failed to remove credentials: %v", err)
				os.Exit(1)
			}
			logSuccess("All stored credentials removed")
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "", "Engine to logout (default: all)")

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored API keys and status",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(os.Stderr, "\n%sStored Credentials%s (%s)\n", colorBlue, colorReset, settings.FilePath())
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

			fmt.Fprintf(os.Stderr, "\n  %sEngines%s\n", colorYellow, colorReset)
			for _, e := range keyedEngines {
				entry := settings.Get(e.id)
				if entry != nil && entry.Key != "" {
					status := fmt.Sprintf("%sconfigured%s (key: %s)", colorGreen, colorReset, settings.MaskKey(entry.Key))
					if entry.Region != "" {
						status += fmt.Sprintf(", region: %s", entry.Region)
					}
					fmt.Fprintf(os.Stderr, "  %-11s %s\n", e.id, status)
				} else {
					fmt.Fprintf(os.Stderr, "  %-11s %snot configured%s\n", e.id, colorRed, colorReset)
				}
			}
			fmt.Fprintf(os.Stderr, "  %-11s no key needed\n", "google")

			fmt.Fprintf(os.Stderr, "\n  %sEnvironment Variables%s\n", colorYellow, colorReset)
			for _, env := range []string{"DEEPL_API_KEY", "MICROSOFT_API_KEY", "CHMLOC_API_KEY"} {
				if val := os.Getenv(env); val != "" {
					fmt.Fprintf(os.Stderr, "  %s: %s%s%s (overrides stored keys)\n", env, colorGreen, settings.MaskKey(val), colorReset)
				} else {
					fmt.Fprintf(os.Stderr, "  %s: %snot set%s\n", env, colorRed, colorReset)
				}
			}
			fmt.Fprintln(os.Stderr)
		},
	}
}
