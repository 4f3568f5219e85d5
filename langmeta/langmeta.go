// Package langmeta provides language display metadata (English and
// native names) for CLI output and report headers.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Tag    language.Tag
	Name   string // English name, e.g. "Russian"
	Native string // native name, e.g. "Русский"
}

// nativeNames overrides the self-display name for languages commonly
// targeted by help translations, where the CLDR form is too generic
// (e.g. plain "中文" for zh-CN).
var nativeNames = map[string]string{
	"pt-BR": "Português (Brasil)",
	"pt-PT": "Português (Portugal)",
	"sr":    "Српски",
	"zh":    "中文",
	"zh-CN": "简体中文",
	"zh-TW": "繁體中文",
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks. Codes the
// BCP 47 tables do not know are passed through as their own name.
func Resolve(lang string) Meta {
	normalized := canonicalize(lang)
	tag, err := language.Parse(normalized)
	if err != nil {
		return Meta{Tag: language.Und, Name: lang, Native: lang}
	}

	m := Meta{Tag: tag}
	m.Name = display.English.Languages().Name(tag)
	if m.Name == "" {
		m.Name = lang
	}
	m.Native = nativeName(normalized, tag)
	return m
}

func nativeName(normalized string, tag language.Tag) string {
	if n, ok := nativeNames[normalized]; ok {
		return n
	}
	if base, _, found := strings.Cut(normalized, "-"); found {
		if n, ok := nativeNames[base]; ok {
			return n
		}
	}
	if n := display.Self.Name(tag); n != "" {
		return n
	}
	return normalized
}

// Suffix converts a language code into the form appended to output file
// names: lowercase with hyphens replaced by underscores, so zh-CN
// becomes zh_cn and guide.chm becomes guide-zh_cn.chm.
func Suffix(lang string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "-", "_"))
}
