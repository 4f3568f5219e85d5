package htmldoc

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/chmtools/chmloc/classify"
	"github.com/chmtools/chmloc/glossary"
)

// DefaultTranslatableTags lists the elements whose direct text content is
// eligible for translation.
func DefaultTranslatableTags() []string {
	return []string{
		"p", "h1", "h2", "h3", "h4", "h5", "h6",
		"span", "div", "li", "td", "th", "a", "title",
		"strong", "em", "b", "i", "caption", "label",
		"figcaption", "button", "option",
	}
}

// DefaultSkipTags lists the elements whose entire subtree must pass through
// untranslated.
func DefaultSkipTags() []string {
	return []string{"code", "pre", "script", "style", "noscript"}
}

// TagSet builds a lookup set from a tag list, lowercasing each name.
func TagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[strings.ToLower(strings.TrimSpace(t))] = true
	}
	return set
}

// TranslateFunc resolves one text fragment. Implementations come from the
// translate package; they never fail, degrading to passthrough instead.
type TranslateFunc func(ctx context.Context, text string) string

// WalkStats counts the rewrites performed on one document.
type WalkStats struct {
	// Fragments is the number of text nodes and attributes replaced.
	Fragments int
	// Chars is the total character count of the source fragments replaced.
	Chars int
}

// Walker translates a document in place. For every element in the
// translatable set whose content is a single uninterrupted text run, the
// text passes through classification, the glossary and the translate
// function, and is substituted only when the result differs. Elements with
// element children are left to their descendants, so each text run is
// touched at most once. Subtrees under a skip tag are never entered.
//
// Attribute rewrites ride along the same pipeline: the content attribute
// of <meta name="description"> and <meta name="keywords">, and the alt
// attribute of <img>.
type Walker struct {
	// Tags is the translatable allow-list; nil means DefaultTranslatableTags.
	Tags map[string]bool
	// Skip is the subtree prune list; nil means DefaultSkipTags.
	Skip map[string]bool
	// Glossary, when non-nil, is applied before Translate.
	Glossary *glossary.Glossary
	// Translate resolves each fragment. Required.
	Translate TranslateFunc
}

// Walk rewrites doc and reports what changed. Cancelling ctx stops the
// traversal between fragments and surfaces the context error.
func (w *Walker) Walk(ctx context.Context, doc *Document) (WalkStats, error) {
	var stats WalkStats
	if w.Translate == nil {
		return stats, fmt.Errorf("walker has no translate function")
	}

	tags := w.Tags
	if tags == nil {
		tags = TagSet(DefaultTranslatableTags())
	}
	skip := w.Skip
	if skip == nil {
		skip = TagSet(DefaultSkipTags())
	}

	var walkErr error
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if walkErr != nil {
			return
		}
		if err := ctx.Err(); err != nil {
			walkErr = err
			return
		}

		if n.Type == html.ElementNode {
			if skip[n.Data] {
				return
			}
			switch {
			case n.Data == "meta":
				w.rewriteMeta(ctx, n, &stats)
			case n.Data == "img":
				w.rewriteAttr(ctx, n, "alt", &stats)
			case tags[n.Data] && isSingleTextRun(n):
				w.rewriteText(ctx, n.FirstChild, &stats)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.root)
	return stats, walkErr
}

// isSingleTextRun reports whether the node's content is exactly one text
// node, the boundary that keeps nested translatable elements from being
// translated twice.
func isSingleTextRun(n *html.Node) bool {
	return n.FirstChild != nil &&
		n.FirstChild == n.LastChild &&
		n.FirstChild.Type == html.TextNode
}

// rewriteText runs the fragment pipeline on a text node.
func (w *Walker) rewriteText(ctx context.Context, text *html.Node, stats *WalkStats) {
	trimmed := strings.TrimSpace(text.Data)
	if !classify.ShouldTranslate(trimmed) {
		return
	}

	out := w.Glossary.Apply(trimmed)
	out = w.Translate(ctx, out)
	if out == trimmed {
		return
	}

	text.Data = out
	stats.Fragments++
	stats.Chars += utf8.RuneCountInString(trimmed)
}

// rewriteMeta translates the content attribute of description and keywords
// meta elements.
func (w *Walker) rewriteMeta(ctx context.Context, n *html.Node, stats *WalkStats) {
	name, ok := getAttr(n, "name")
	if !ok {
		return
	}
	switch strings.ToLower(name) {
	case "description", "keywords":
		w.rewriteAttr(ctx, n, "content", stats)
	}
}

// rewriteAttr runs the fragment pipeline on one attribute value.
func (w *Walker) rewriteAttr(ctx context.Context, n *html.Node, key string, stats *WalkStats) {
	val, ok := getAttr(n, key)
	if !ok {
		return
	}
	trimmed := strings.TrimSpace(val)
	if !classify.ShouldTranslate(trimmed) {
		return
	}

	out := w.Glossary.Apply(trimmed)
	out = w.Translate(ctx, out)
	if out == trimmed {
		return
	}

	setAttr(n, key, out)
	stats.Fragments++
	stats.Chars += utf8.RuneCountInString(trimmed)
}
