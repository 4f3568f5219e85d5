package chmfile

import (
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chmtools/chmloc/htmldoc"
)

// projectFileName is the project file Compile writes and hands to the
// compilers. A fresh one is generated per compile so the compiled-file path
// always points at the requested output.
const projectFileName = "chmloc.hhp"

// ProjectOptions controls help-project generation.
type ProjectOptions struct {
	// Title is the help title; defaults to the output file's base name.
	Title string
	// OutputFile is the archive path written into the project's
	// Compiled file option.
	OutputFile string
	// DefaultTopic overrides the start page; defaults to index.html or
	// the first HTML file found.
	DefaultTopic string
}

// EnsureProject prepares dir for compilation: reuses the directory's own
// contents (.hhc) and index (.hhk) files when the archive shipped them,
// generates minimal ones otherwise, and writes the project file tying them
// together. Returns the project file path.
func EnsureProject(dir string, opts ProjectOptions) (string, error) {
	files, err := ListHTMLFiles(dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no HTML files under %s", dir)
	}

	title := opts.Title
	if title == "" {
		base := filepath.Base(opts.OutputFile)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if title == "" || title == "." {
		title = "Help"
	}

	topic := opts.DefaultTopic
	if topic == "" {
		topic = defaultTopic(files)
	}

	contents, err := ensureContents(dir, files)
	if err != nil {
		return "", err
	}
	index, err := ensureIndex(dir)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("[OPTIONS]\n")
	sb.WriteString("Compatibility=1.1 or later\n")
	fmt.Fprintf(&sb, "Compiled file=%s\n", opts.OutputFile)
	fmt.Fprintf(&sb, "Contents file=%s\n", contents)
	fmt.Fprintf(&sb, "Index file=%s\n", index)
	fmt.Fprintf(&sb, "Default topic=%s\n", topic)
	sb.WriteString("Display compile progress=No\n")
	sb.WriteString("Full-text search=Yes\n")
	fmt.Fprintf(&sb, "Title=%s\n", title)
	sb.WriteString("\n[FILES]\n")
	for _, f := range files {
		sb.WriteString(f)
		sb.WriteByte('\n')
	}
	sb.WriteString("\n[INFOTYPES]\n")

	hhpPath := filepath.Join(dir, projectFileName)
	if err := os.WriteFile(hhpPath, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", hhpPath, err)
	}
	return hhpPath, nil
}

// ListHTMLFiles returns the HTML files under dir as sorted, dir-relative
// paths.
func ListHTMLFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if d.IsDir() {
			return nil
		}
		if IsHTML(path) {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// IsHTML reports whether path has an HTML extension.
func IsHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// defaultTopic prefers a conventional start page over the first file.
func defaultTopic(files []string) string {
	for _, f := range files {
		switch strings.ToLower(filepath.Base(f)) {
		case "index.html", "index.htm", "default.htm", "default.html":
			return f
		}
	}
	return files[0]
}

// ensureContents returns the directory's contents file name, generating a
// table of contents from the document titles when none shipped with the
// archive.
func ensureContents(dir string, files []string) (string, error) {
	if name, ok := findByExt(dir, ".hhc"); ok {
		return name, nil
	}

	var sb strings.Builder
	sb.WriteString(sitemapHeader)
	sb.WriteString("<UL>\n")
	for _, f := range files {
		title := documentTitle(filepath.Join(dir, f))
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		}
		sb.WriteString(" <LI> <OBJECT type=\"text/sitemap\">\n")
		fmt.Fprintf(&sb, "  <param name=\"Name\" value=\"%s\">\n", html.EscapeString(title))
		fmt.Fprintf(&sb, "  <param name=\"Local\" value=\"%s\">\n", html.EscapeString(filepath.ToSlash(f)))
		sb.WriteString(" </OBJECT>\n")
	}
	sb.WriteString("</UL>\n</BODY></HTML>\n")

	name := "toc.hhc"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return name, nil
}

// ensureIndex returns the directory's keyword index file name, generating
// an empty one when none exists.
func ensureIndex(dir string) (string, error) {
	if name, ok := findByExt(dir, ".hhk"); ok {
		return name, nil
	}

	content := sitemapHeader + "<UL>\n</UL>\n</BODY></HTML>\n"
	name := "index.hhk"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	return name, nil
}

const sitemapHeader = `<!DOCTYPE HTML PUBLIC "-//IETF//DTD HTML//EN">
<HTML>
<HEAD>
<meta name="GENERATOR" content="chmloc">
</HEAD><BODY>
<OBJECT type="text/site properties">
 <param name="Window Styles" value="0x800025">
</OBJECT>
`

// documentTitle extracts a document's <title>, or "" when unreadable.
func documentTitle(path string) string {
	doc, err := htmldoc.ParseFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Title())
}

// findByExt finds the first root-level file in dir with the extension,
// in sorted order.
func findByExt(dir, ext string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return names[0], true
}
