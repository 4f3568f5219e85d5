package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// fakeEngine scripts Translate responses for Translator tests.
type fakeEngine struct {
	fn    func(ctx context.Context, text string) (string, error)
	calls int
	seen  []string
}

func (f *fakeEngine) Name() string   { return "fake" }
func (f *fakeEngine) NeedsKey() bool { return false }

func (f *fakeEngine) Translate(ctx context.Context, text, source, target string) (string, error) {
	f.calls++
	f.seen = append(f.seen, text)
	return f.fn(ctx, text)
}

func upperEngine() *fakeEngine {
	return &fakeEngine{fn: func(_ context.Context, text string) (string, error) {
		return strings.ToUpper(text), nil
	}}
}

func failingEngine() *fakeEngine {
	return &fakeEngine{fn: func(_ context.Context, _ string) (string, error) {
		return "", fmt.Errorf("%w: fake: unreachable", ErrProvider)
	}}
}

func TestNewEngine(t *testing.T) {
	if _, err := NewEngine("google", "", nil); err != nil {
		t.Fatalf("NewEngine(google) error: %v", err)
	}
	if _, err := NewEngine("deepl", "", nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("NewEngine(deepl, no key) error = %v, want ErrConfig", err)
	}
	if _, err := NewEngine("microsoft", "", nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("NewEngine(microsoft, no key) error = %v, want ErrConfig", err)
	}
	if _, err := NewEngine("deepl", "k", nil); err != nil {
		t.Fatalf("NewEngine(deepl, key) error: %v", err)
	}

	_, err := NewEngine("babelfish", "", nil)
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("NewEngine(babelfish) error = %v, want ErrConfig", err)
	}
	if !strings.Contains(err.Error(), "google") {
		t.Fatalf("NewEngine(babelfish) error %q should list valid engines", err)
	}
}

func TestTranslateText(t *testing.T) {
	engine := upperEngine()
	tr := New(Options{Engine: engine, SourceLang: "en", TargetLang: "zh-CN"})

	if got := tr.TranslateText(context.Background(), "hello world"); got != "HELLO WORLD" {
		t.Fatalf("TranslateText() = %q, want %q", got, "HELLO WORLD")
	}

	stats := tr.Stats()
	if stats.Strings != 1 {
		t.Fatalf("Stats().Strings = %d, want 1", stats.Strings)
	}
	if stats.Chars != int64(len("hello world")) {
		t.Fatalf("Stats().Chars = %d, want %d", stats.Chars, len("hello world"))
	}
	if stats.Failures != 0 {
		t.Fatalf("Stats().Failures = %d, want 0", stats.Failures)
	}
}

func TestTranslateTextSkipsNonTranslatable(t *testing.T) {
	engine := upperEngine()
	tr := New(Options{Engine: engine})

	for _, text := range []string{"https://example.com", "42", "", "/usr/bin"} {
		if got := tr.TranslateText(context.Background(), text); got != text {
			t.Fatalf("TranslateText(%q) = %q, want passthrough", text, got)
		}
	}
	if engine.calls != 0 {
		t.Fatalf("engine called %d times for skippable input, want 0", engine.calls)
	}
}

func TestTranslateTextTruncates(t *testing.T) {
	engine := upperEngine()
	tr := New(Options{Engine: engine, MaxLength: 10})

	long := strings.Repeat("abc ", 10) // 40 chars
	tr.TranslateText(context.Background(), long)

	if len(engine.seen) != 1 {
		t.Fatalf("engine saw %d texts, want 1", len(engine.seen))
	}
	if got := utf8.RuneCountInString(engine.seen[0]); got != 10 {
		t.Fatalf("engine received %d chars, want 10", got)
	}
}

func TestTranslateTextPassthroughOnFailure(t *testing.T) {
	engine := failingEngine()
	tr := New(Options{
		Engine:     engine,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})

	if got := tr.TranslateText(context.Background(), "hello world"); got != "hello world" {
		t.Fatalf("TranslateText() = %q, want original back", got)
	}
	if engine.calls != 3 {
		t.Fatalf("engine called %d times, want 3 attempts", engine.calls)
	}

	stats := tr.Stats()
	if stats.Failures != 1 {
		t.Fatalf("Stats().Failures = %d, want exactly 1 per fragment", stats.Failures)
	}
	if stats.Strings != 0 {
		t.Fatalf("Stats().Strings = %d, want 0", stats.Strings)
	}
}

func TestTranslateTextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := &fakeEngine{fn: func(_ context.Context, _ string) (string, error) {
		cancel() // fail and cancel the batch mid-flight
		return "", fmt.Errorf("%w: fake: down", ErrProvider)
	}}
	tr := New(Options{Engine: engine, MaxRetries: 3, RetryDelay: time.Hour})

	start := time.Now()
	got := tr.TranslateText(ctx, "hello world")
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancelled retry took %s, want prompt return", elapsed)
	}
	if got != "hello world" {
		t.Fatalf("TranslateText() = %q, want original back", got)
	}
	if engine.calls != 1 {
		t.Fatalf("engine called %d times after cancel, want 1", engine.calls)
	}
}

func TestTranslateChunkedSplitsNearMidpoint(t *testing.T) {
	// 20 sentences of 448 chars joined by ". " = 8998 chars. Greedy packing
	// at 4500 flushes after 10 sentences (4498 chars), so the split lands
	// on the sentence boundary nearest the midpoint.
	sentence := strings.Repeat("a", 448)
	parts := make([]string, 20)
	for i := range parts {
		parts[i] = sentence
	}
	text := strings.Join(parts, ". ")

	engine := &fakeEngine{fn: func(_ context.Context, chunk string) (string, error) {
		return fmt.Sprintf("<%d>", utf8.RuneCountInString(chunk)), nil
	}}
	tr := New(Options{Engine: engine, ChunkSize: 4500})

	got := tr.TranslateChunked(context.Background(), text)

	if engine.calls != 2 {
		t.Fatalf("engine called %d times, want 2 chunks", engine.calls)
	}
	for i, chunk := range engine.seen {
		if n := utf8.RuneCountInString(chunk); n > 4500 {
			t.Fatalf("chunk %d is %d chars, want <= 4500", i, n)
		}
		if !strings.HasSuffix(chunk, sentence) || !strings.HasPrefix(chunk, sentence) {
			t.Fatalf("chunk %d not split on a sentence boundary", i)
		}
	}
	if got != "<4498> <4498>" {
		t.Fatalf("TranslateChunked() = %q, want chunks rejoined with single space", got)
	}
}

func TestTranslateChunkedShortChunkPassthrough(t *testing.T) {
	engine := upperEngine()
	tr := New(Options{Engine: engine, ChunkSize: 20})

	got := tr.TranslateChunked(context.Background(), "abcdefghijklmnopqr. st")

	if got != "ABCDEFGHIJKLMNOPQR st" {
		t.Fatalf("TranslateChunked() = %q, want short tail untouched", got)
	}
	if engine.calls != 1 {
		t.Fatalf("engine called %d times, want 1 (short chunk skipped)", engine.calls)
	}
}

func TestTranslateChunkedSmallInputSingleShot(t *testing.T) {
	engine := upperEngine()
	tr := New(Options{Engine: engine, ChunkSize: 4500})

	if got := tr.TranslateChunked(context.Background(), "hello. world"); got != "HELLO. WORLD" {
		t.Fatalf("TranslateChunked() = %q, want single-shot result", got)
	}
	if engine.calls != 1 {
		t.Fatalf("engine called %d times, want 1", engine.calls)
	}
}

func TestSplitChunksOversizedSentence(t *testing.T) {
	text := strings.Repeat("x", 50)
	chunks := splitChunks(text, 10)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("splitChunks(unbreakable) = %#v, want the sentence kept whole", chunks)
	}
}

func TestGoogleEngine(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `[[["你好 ","Hello ",null,null,10],["世界","World",null,null,10]],null,"en"]`)
	}))
	defer srv.Close()

	engine := &GoogleEngine{BaseURL: srv.URL, Client: srv.Client()}
	got, err := engine.Translate(context.Background(), "Hello World", "en", "zh-CN")
	if err != nil {
		t.Fatalf("Translate() error: %v", err)
	}
	if got != "你好 世界" {
		t.Fatalf("Translate() = %q, want %q", got, "你好 世界")
	}
	if gotPath != "/translate_a/single" {
		t.Fatalf("request path = %q, want /translate_a/single", gotPath)
	}
	if gotQuery != "Hello World" {
		t.Fatalf("request q = %q, want %q", gotQuery, "Hello World")
	}
}

func TestGoogleEngineBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	engine := &GoogleEngine{BaseURL: srv.URL, Client: srv.Client()}
	_, err := engine.Translate(context.Background(), "Hello", "en", "zh-CN")
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("Translate() error = %v, want ErrProvider", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("Translate() error %q should carry the status code", err)
	}
}

func TestDeepLEngine(t *testing.T) {
	var gotAuth, gotTarget string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error: %v", err)
		}
		gotTarget = r.PostForm.Get("target_lang")
		fmt.Fprint(w, `{"translations":[{"detected_source_language":"EN","text":"你好"}]}`)
	}))
	defer srv.Close()

	engine := &DeepLEngine{BaseURL: srv.URL, APIKey: "sekrit", Client: srv.Client()}
	got, err := engine.Translate(context.Background(), "Hello", "en", "zh-CN")
	if err != nil {
		t.Fatalf("Translate() error: %v", err)
	}
	if got != "你好" {
		t.Fatalf("Translate() = %q, want %q", got, "你好")
	}
	if gotAuth != "DeepL-Auth-Key sekrit" {
		t.Fatalf("Authorization = %q, want DeepL-Auth-Key sekrit", gotAuth)
	}
	if gotTarget != "ZH" {
		t.Fatalf("target_lang = %q, want ZH", gotTarget)
	}
}

func TestMicrosoftEngine(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		fmt.Fprint(w, `[{"translations":[{"text":"你好","to":"zh-Hans"}]}]`)
	}))
	defer srv.Close()

	engine := &MicrosoftEngine{BaseURL: srv.URL, APIKey: "sekrit", Client: srv.Client()}
	got, err := engine.Translate(context.Background(), "Hello", "en", "zh-CN")
	if err != nil {
		t.Fatalf("Translate() error: %v", err)
	}
	if got != "你好" {
		t.Fatalf("Translate() = %q, want %q", got, "你好")
	}
	if gotKey != "sekrit" {
		t.Fatalf("Ocp-Apim-Subscription-Key = %q, want sekrit", gotKey)
	}
}

func TestDeepLLang(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"zh-CN", "ZH"},
		{"zh_CN", "ZH"},
		{"en", "EN"},
		{"en-US", "EN"},
		{"en-GB", "EN-GB"},
		{"pt-BR", "PT-BR"},
		{"fr-CA", "FR"},
	}
	for _, tc := range tests {
		if got := deeplLang(tc.in); got != tc.want {
			t.Fatalf("deeplLang(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEnginesListing(t *testing.T) {
	infos := Engines()
	if len(infos) != 3 {
		t.Fatalf("Engines() returned %d entries, want 3", len(infos))
	}
	byName := make(map[string]Info)
	for _, info := range infos {
		byName[info.Name] = info
	}
	if byName["google"].NeedsKey {
		t.Fatalf("google NeedsKey = true, want false")
	}
	if !byName["deepl"].NeedsKey || !byName["microsoft"].NeedsKey {
		t.Fatalf("deepl/microsoft should require keys: %+v", infos)
	}
}
