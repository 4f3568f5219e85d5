// Package glossary implements user-supplied term substitution applied to a
// fragment before machine translation. Terms load once from a CSV or JSON
// file and are immutable afterwards.
//
// Matching is case-insensitive on the source term; the replacement keeps its
// own casing. When several terms could match the same span the order is
// governed by a MatchPolicy: FirstMatch replays the file's insertion order,
// LongestMatch prefers the longest source term.
package glossary

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ErrLoad marks a glossary file that could not be read or decoded.
// Malformed rows inside a decodable file are skipped, not fatal.
var ErrLoad = errors.New("glossary load failed")

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Entry is one substitution pair. Source is stored lowercased.
type Entry struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// MatchPolicy selects how overlapping terms are ordered during Apply.
type MatchPolicy string

const (
	// FirstMatch applies terms in insertion order. Earlier terms win on
	// overlap even when a later term is more specific.
	FirstMatch MatchPolicy = "first-match"
	// LongestMatch applies longer source terms first so multi-word terms
	// are not shadowed by their constituent words.
	LongestMatch MatchPolicy = "longest-match"
)

// ValidPolicies lists the accepted policy names for config validation.
func ValidPolicies() []string {
	return []string{string(FirstMatch), string(LongestMatch)}
}

// Glossary is an immutable substitution table.
type Glossary struct {
	entries  []Entry
	matchers []*regexp.Regexp // parallel to entries
	words    map[string][]int // constituent word -> entry indices
	policy   MatchPolicy
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// New builds a glossary from entries. Sources are lowercased; a duplicate
// source keeps its first position but takes the last target seen. Entries
// with an empty source or target are dropped.
func New(entries []Entry, policy MatchPolicy) *Glossary {
	if policy == "" {
		policy = FirstMatch
	}
	g := &Glossary{
		words:  make(map[string][]int),
		policy: policy,
	}

	index := make(map[string]int)
	for _, e := range entries {
		source := strings.ToLower(strings.TrimSpace(e.Source))
		target := strings.TrimSpace(e.Target)
		if source == "" || target == "" {
			continue
		}
		if i, ok := index[source]; ok {
			g.entries[i].Target = target
			continue
		}
		index[source] = len(g.entries)
		g.entries = append(g.entries, Entry{Source: source, Target: target})
	}

	g.matchers = make([]*regexp.Regexp, len(g.entries))
	for i, e := range g.entries {
		g.matchers[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(e.Source))
		g.indexWords(e.Source, i)
	}
	return g
}

// indexWords records the constituent words (longer than 3 characters) of a
// multi-word source so partial-term lookups can find the full entry.
func (g *Glossary) indexWords(source string, entry int) {
	fields := strings.Fields(source)
	if len(fields) < 2 {
		return
	}
	for _, w := range fields {
		if len(w) > 3 {
			g.words[w] = append(g.words[w], entry)
		}
	}
}

// Load reads a glossary file, dispatching on the extension:
// .csv expects a header row with source and target columns, .json expects
// an array of {"source": ..., "target": ...} objects. Rows missing either
// field are skipped.
func Load(path string, policy MatchPolicy) (*Glossary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}
	defer f.Close()

	var entries []Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		entries, err = readCSV(f)
	case ".json":
		entries, err = readJSON(f)
	default:
		return nil, fmt.Errorf("%w: %s: unsupported extension (want .csv or .json)", ErrLoad, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}

	return New(entries, policy), nil
}

// readCSV decodes source/target pairs from CSV. The column order follows
// the header row; a file without a recognizable header falls back to
// positional (source, target) columns.
func readCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	sourceCol, targetCol := 0, 1
	rows := records
	if cols, ok := headerColumns(records[0]); ok {
		sourceCol, targetCol = cols[0], cols[1]
		rows = records[1:]
	}

	var entries []Entry
	for _, row := range rows {
		if len(row) <= sourceCol || len(row) <= targetCol {
			continue // short row, skipped
		}
		entries = append(entries, Entry{Source: row[sourceCol], Target: row[targetCol]})
	}
	return entries, nil
}

// headerColumns detects a header row naming the source and target columns.
func headerColumns(row []string) ([2]int, bool) {
	cols := [2]int{-1, -1}
	for i, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "source":
			cols[0] = i
		case "target":
			cols[1] = i
		}
	}
	if cols[0] >= 0 && cols[1] >= 0 {
		return cols, true
	}
	return [2]int{}, false
}

// readJSON decodes an array of entries, tolerating extra fields.
func readJSON(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Application
// ---------------------------------------------------------------------------

// Apply substitutes every glossary term present in text, case-insensitively,
// replacing all occurrences. The replacement keeps its own casing. Term
// order follows the glossary's MatchPolicy.
func (g *Glossary) Apply(text string) string {
	if g == nil || len(g.entries) == 0 || text == "" {
		return text
	}
	for _, i := range g.order() {
		text = g.matchers[i].ReplaceAllLiteralString(text, g.entries[i].Target)
	}
	return text
}

// order returns entry indices in policy order.
func (g *Glossary) order() []int {
	order := make([]int, len(g.entries))
	for i := range order {
		order[i] = i
	}
	if g.policy == LongestMatch {
		sort.SliceStable(order, func(a, b int) bool {
			return len(g.entries[order[a]].Source) > len(g.entries[order[b]].Source)
		})
	}
	return order
}

// ---------------------------------------------------------------------------
// Introspection
// ---------------------------------------------------------------------------

// Len returns the number of loaded entries.
func (g *Glossary) Len() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Policy returns the active match policy.
func (g *Glossary) Policy() MatchPolicy {
	return g.policy
}

// Entries returns a copy of the entries in insertion order.
func (g *Glossary) Entries() []Entry {
	out := make([]Entry, len(g.entries))
	copy(out, g.entries)
	return out
}

// LookupWord returns the entries whose multi-word source contains the given
// word (case-insensitive, words longer than 3 characters only).
func (g *Glossary) LookupWord(word string) []Entry {
	if g == nil {
		return nil
	}
	var out []Entry
	for _, i := range g.words[strings.ToLower(word)] {
		out = append(out, g.entries[i])
	}
	return out
}

// IndexedWords returns how many distinct constituent words are indexed.
func (g *Glossary) IndexedWords() int {
	if g == nil {
		return 0
	}
	return len(g.words)
}
