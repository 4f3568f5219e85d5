// Package htmldoc parses, rewrites and serializes the HTML documents found
// inside help archives. Parsing is lenient (golang.org/x/net/html) and
// charset-aware; serialization preserves the parsed structure so that a
// document rendered with no rewrites survives a parse/render round trip
// byte-identically.
package htmldoc

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ErrParse marks a document that could not be read as markup. The owning
// file's job fails; the batch continues.
var ErrParse = errors.New("document parse failed")

// Document is one parsed HTML file.
type Document struct {
	root *html.Node
}

// Parse reads an HTML document from r. Input in a legacy charset declared
// via <meta> is transparently decoded; the in-memory tree is always UTF-8.
func Parse(r io.Reader) (*Document, error) {
	decoded, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("%w: detecting charset: %v", ErrParse, err)
	}
	root, err := html.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	doc := &Document{root: root}
	doc.normalizeCharset()
	return doc, nil
}

// ParseFile reads and parses one HTML file.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Render serializes the document as UTF-8 HTML.
func (d *Document) Render(w io.Writer) error {
	if err := html.Render(w, d.root); err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}
	return nil
}

// RenderFile writes the document to path, creating parent directories.
func (d *Document) RenderFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer f.Close()

	if err := d.Render(f); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Root exposes the underlying tree for traversal.
func (d *Document) Root() *html.Node {
	return d.root
}

// Title returns the text of the document's <title>, or "".
func (d *Document) Title() string {
	var title string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			if c := n.FirstChild; c != nil && c.Type == html.TextNode {
				title = c.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return title
}

// normalizeCharset rewrites charset declarations to utf-8 so the rendered
// output stays readable after legacy-encoded input was decoded.
func (d *Document) normalizeCharset() {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "meta" {
			for i, attr := range n.Attr {
				switch attr.Key {
				case "charset":
					n.Attr[i].Val = "utf-8"
				case "http-equiv":
					if strings.EqualFold(attr.Val, "content-type") {
						setAttr(n, "content", "text/html; charset=utf-8")
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
}

// getAttr returns the value of the named attribute and whether it exists.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// setAttr replaces the value of an existing attribute; missing keys are
// left unset so rewrites never invent attributes.
func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
}
