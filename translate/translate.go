package translate

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/chmtools/chmloc/classify"
)

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Default limits. MaxLength guards single-shot calls, ChunkSize guards the
// chunking entry point; both count characters, not bytes.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultChunkSize  = 4500
	DefaultMaxLength  = 5000

	// shortChunkLen is the length at or below which a chunk is passed
	// through untranslated rather than sent to the engine.
	shortChunkLen = 10
)

// Options configures a Translator. Zero values fall back to the defaults
// via the effective* getters.
type Options struct {
	// Engine performs the actual provider calls. Required.
	Engine Engine
	// SourceLang and TargetLang are language codes handed to the engine.
	SourceLang string
	TargetLang string

	// MaxRetries is the number of attempts per text or chunk (default 3).
	MaxRetries int
	// RetryDelay is the linear backoff base: the wait before attempt n+1
	// is RetryDelay * n (default 2s).
	RetryDelay time.Duration
	// ChunkSize is the character threshold above which TranslateChunked
	// splits on sentence boundaries (default 4500).
	ChunkSize int
	// MaxLength is the truncation limit for single-shot calls (default 5000).
	MaxLength int

	// OnLog, when set, receives human-readable progress and failure lines.
	OnLog func(msg string)
}

func (o Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return DefaultMaxRetries
}

func (o Options) effectiveRetryDelay() time.Duration {
	if o.RetryDelay > 0 {
		return o.RetryDelay
	}
	return DefaultRetryDelay
}

func (o Options) effectiveChunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

func (o Options) effectiveMaxLength() int {
	if o.MaxLength > 0 {
		return o.MaxLength
	}
	return DefaultMaxLength
}

// ---------------------------------------------------------------------------
// Translator
// ---------------------------------------------------------------------------

// Stats is a snapshot of a Translator's counters.
type Stats struct {
	// Strings is the number of successful engine translations.
	Strings int64
	// Chars is the total character count sent for translation.
	Chars int64
	// Failures counts fragments or chunks that exhausted their retries
	// and were passed through. One per attempted unit, not per retry.
	Failures int64
}

// Translator wraps an Engine with truncation, chunking, retry and
// passthrough policies. One instance is shared by all workers of a batch;
// all methods are safe for concurrent use.
type Translator struct {
	opts Options

	strings  atomic.Int64
	chars    atomic.Int64
	failures atomic.Int64
}

// New returns a Translator over opts.
func New(opts Options) *Translator {
	return &Translator{opts: opts}
}

// Stats returns a snapshot of the counters.
func (t *Translator) Stats() Stats {
	return Stats{
		Strings:  t.strings.Load(),
		Chars:    t.chars.Load(),
		Failures: t.failures.Load(),
	}
}

// TargetLang returns the configured target language code.
func (t *Translator) TargetLang() string {
	return t.opts.TargetLang
}

func (t *Translator) logf(format string, args ...any) {
	if t.opts.OnLog != nil {
		t.opts.OnLog(fmt.Sprintf(format, args...))
	}
}

// TranslateText translates one fragment. The input is trimmed and given a
// lightweight skip check (the document walker classifies too; this guard
// keeps direct callers safe). Input longer than MaxLength is truncated
// before sending. A provider failure after all retries degrades to
// passthrough: the original text comes back and the failure counter moves
// exactly once.
func (t *Translator) TranslateText(ctx context.Context, text string) string {
	trimmed := strings.TrimSpace(text)
	if !classify.ShouldTranslate(trimmed) {
		return text
	}

	sent := truncate(trimmed, t.opts.effectiveMaxLength())
	out, err := t.translateWithRetry(ctx, sent)
	if err != nil {
		t.failures.Add(1)
		t.logf("translation failed, keeping original (%d chars): %v", utf8.RuneCountInString(sent), err)
		return text
	}

	t.strings.Add(1)
	t.chars.Add(int64(utf8.RuneCountInString(sent)))
	return out
}

// TranslateChunked translates a fragment that may exceed ChunkSize by
// splitting it on ". " sentence boundaries, translating each chunk
// independently and rejoining with single spaces. Chunks of 10 characters
// or fewer pass through untranslated. Joining with spaces does not restore
// the separators consumed by the split, so punctuation fidelity across
// chunk boundaries is deliberately lossy.
func (t *Translator) TranslateChunked(ctx context.Context, text string) string {
	trimmed := strings.TrimSpace(text)
	if !classify.ShouldTranslate(trimmed) {
		return text
	}

	chunkSize := t.opts.effectiveChunkSize()
	if utf8.RuneCountInString(trimmed) <= chunkSize {
		return t.TranslateText(ctx, text)
	}

	chunks := splitChunks(trimmed, chunkSize)
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if utf8.RuneCountInString(chunk) <= shortChunkLen {
			out = append(out, chunk)
			continue
		}
		translated, err := t.translateWithRetry(ctx, chunk)
		if err != nil {
			t.failures.Add(1)
			t.logf("chunk translation failed, keeping original: %v", err)
			out = append(out, chunk)
			continue
		}
		t.strings.Add(1)
		t.chars.Add(int64(utf8.RuneCountInString(chunk)))
		out = append(out, translated)
	}
	return strings.Join(out, " ")
}

// translateWithRetry calls the engine up to MaxRetries times. Before
// attempt n+1 it waits RetryDelay*n, abandoning the wait as soon as ctx is
// cancelled so a cancelled batch never sits out a full backoff schedule.
func (t *Translator) translateWithRetry(ctx context.Context, text string) (string, error) {
	maxRetries := t.opts.effectiveMaxRetries()
	delay := t.opts.effectiveRetryDelay()

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := t.opts.Engine.Translate(ctx, text, t.opts.SourceLang, t.opts.TargetLang)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}

		t.logf("attempt %d/%d failed, retrying in %s: %v",
			attempt, maxRetries, delay*time.Duration(attempt), err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay * time.Duration(attempt)):
		}
	}
	return "", lastErr
}

// ---------------------------------------------------------------------------
// Chunking
// ---------------------------------------------------------------------------

// splitChunks splits text into chunks of at most chunkSize characters,
// greedily packing ". "-delimited sentences. A single sentence longer than
// chunkSize becomes its own oversized chunk rather than being cut mid-word.
func splitChunks(text string, chunkSize int) []string {
	sentences := strings.Split(text, ". ")

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range sentences {
		sentenceLen := utf8.RuneCountInString(sentence)
		// +2 accounts for the ". " restored between packed sentences.
		if currentLen > 0 && currentLen+2+sentenceLen > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteString(". ")
			currentLen += 2
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// truncate cuts text to at most limit characters.
func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}
