// Package translate provides the machine-translation backend: a small set
// of HTTP translation engines behind one interface, and a Translator that
// adds length truncation, sentence chunking, linear-backoff retries and
// passthrough degradation on provider failure.
//
// A Translator is safe for concurrent use; engines hold no per-call state
// beyond an http.Client.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ErrConfig marks an engine selection that cannot work, such as a
// key-requiring engine without an API key. Returned before any file
// processing starts.
var ErrConfig = errors.New("engine configuration error")

// ErrProvider marks a transient provider-side failure (network error,
// non-200 status, undecodable response). Callers retry and eventually
// degrade to passthrough; this error never aborts a file.
var ErrProvider = errors.New("translation provider error")

// Engine is one translation provider.
type Engine interface {
	// Name returns the engine's registry name.
	Name() string
	// NeedsKey reports whether the engine requires an API key.
	NeedsKey() bool
	// Translate translates text from source to target language.
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Info describes a registered engine for listings.
type Info struct {
	Name        string
	Description string
	NeedsKey    bool
}

// Engines returns the registered engines sorted by name.
func Engines() []Info {
	infos := []Info{
		{Name: "google", Description: "Google web translation endpoint", NeedsKey: false},
		{Name: "deepl", Description: "DeepL API (free or pro)", NeedsKey: true},
		{Name: "microsoft", Description: "Microsoft Translator API", NeedsKey: true},
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// EngineNames returns the registered engine names sorted alphabetically.
func EngineNames() []string {
	infos := Engines()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

// NewEngine constructs the named engine. Engines that require an API key
// fail with ErrConfig when key is empty, so a misconfigured run stops
// before any document is touched. A nil client gets a 30s-timeout default.
func NewEngine(name, key string, client *http.Client) (Engine, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	switch name {
	case "google":
		return &GoogleEngine{Client: client}, nil
	case "deepl":
		if key == "" {
			return nil, fmt.Errorf("%w: engine %q requires an API key", ErrConfig, name)
		}
		return &DeepLEngine{Client: client, APIKey: key}, nil
	case "microsoft":
		if key == "" {
			return nil, fmt.Errorf("%w: engine %q requires an API key", ErrConfig, name)
		}
		return &MicrosoftEngine{Client: client, APIKey: key}, nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q (valid: %s)",
			ErrConfig, name, strings.Join(EngineNames(), ", "))
	}
}

// ---------------------------------------------------------------------------
// Google
// ---------------------------------------------------------------------------

const defaultGoogleBaseURL = "https://translate.googleapis.com"

// GoogleEngine talks to the public web translation endpoint. No key needed.
type GoogleEngine struct {
	// BaseURL overrides the endpoint, mainly for tests.
	BaseURL string
	Client  *http.Client
}

func (e *GoogleEngine) Name() string   { return "google" }
func (e *GoogleEngine) NeedsKey() bool { return false }

func (e *GoogleEngine) Translate(ctx context.Context, text, source, target string) (string, error) {
	base := e.BaseURL
	if base == "" {
		base = defaultGoogleBaseURL
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		base+"/translate_a/single?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: google: %v", ErrProvider, err)
	}

	body, err := doRequest(e.Client, req, "google")
	if err != nil {
		return "", err
	}
	return parseGoogleResponse(body)
}

// parseGoogleResponse extracts the translated text from the endpoint's
// nested-array payload: [[["segment","original",...],...],...].
func parseGoogleResponse(body []byte) (string, error) {
	var payload []any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: google: decoding response: %v", ErrProvider, err)
	}
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: google: empty response", ErrProvider)
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("%w: google: unexpected response shape", ErrProvider)
	}

	var sb strings.Builder
	for _, seg := range segments {
		parts, ok := seg.([]any)
		if !ok || len(parts) == 0 {
			continue
		}
		if s, ok := parts[0].(string); ok {
			sb.WriteString(s)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: google: no translation in response", ErrProvider)
	}
	return sb.String(), nil
}

// ---------------------------------------------------------------------------
// DeepL
// ---------------------------------------------------------------------------

const defaultDeepLBaseURL = "https://api-free.deepl.com"

// DeepLEngine talks to the DeepL v2 REST API.
type DeepLEngine struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func (e *DeepLEngine) Name() string   { return "deepl" }
func (e *DeepLEngine) NeedsKey() bool { return true }

func (e *DeepLEngine) Translate(ctx context.Context, text, source, target string) (string, error) {
	base := e.BaseURL
	if base == "" {
		base = defaultDeepLBaseURL
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("source_lang", deeplLang(source))
	form.Set("target_lang", deeplLang(target))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/v2/translate", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: deepl: %v", ErrProvider, err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+e.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := doRequest(e.Client, req, "deepl")
	if err != nil {
		return "", err
	}

	var payload struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: deepl: decoding response: %v", ErrProvider, err)
	}
	if len(payload.Translations) == 0 {
		return "", fmt.Errorf("%w: deepl: no translation in response", ErrProvider)
	}
	return payload.Translations[0].Text, nil
}

// deeplLang maps a BCP-47-ish code onto DeepL's uppercase form.
// DeepL rejects region suffixes it doesn't know, so unknown regions fall
// back to the bare base language.
func deeplLang(code string) string {
	up := strings.ToUpper(strings.ReplaceAll(code, "_", "-"))
	switch up {
	case "ZH-CN", "ZH-HANS":
		return "ZH"
	case "EN-GB", "PT-BR", "PT-PT":
		return up
	}
	base, _, _ := strings.Cut(up, "-")
	return base
}

// ---------------------------------------------------------------------------
// Microsoft
// ---------------------------------------------------------------------------

const defaultMicrosoftBaseURL = "https://api.cognitive.microsofttranslator.com"

// MicrosoftEngine talks to the Microsoft Translator v3 REST API.
type MicrosoftEngine struct {
	BaseURL string
	APIKey  string
	Region  string
	Client  *http.Client
}

func (e *MicrosoftEngine) Name() string   { return "microsoft" }
func (e *MicrosoftEngine) NeedsKey() bool { return true }

func (e *MicrosoftEngine) Translate(ctx context.Context, text, source, target string) (string, error) {
	base := e.BaseURL
	if base == "" {
		base = defaultMicrosoftBaseURL
	}

	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("from", source)
	q.Set("to", target)

	reqBody, err := json.Marshal([]map[string]string{{"Text": text}})
	if err != nil {
		return "", fmt.Errorf("%w: microsoft: %v", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/translate?"+q.Encode(), bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("%w: microsoft: %v", ErrProvider, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", e.APIKey)
	if e.Region != "" {
		req.Header.Set("Ocp-Apim-Subscription-Region", e.Region)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := doRequest(e.Client, req, "microsoft")
	if err != nil {
		return "", err
	}

	var payload []struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: microsoft: decoding response: %v", ErrProvider, err)
	}
	if len(payload) == 0 || len(payload[0].Translations) == 0 {
		return "", fmt.Errorf("%w: microsoft: no translation in response", ErrProvider)
	}
	return payload[0].Translations[0].Text, nil
}

// ---------------------------------------------------------------------------
// Shared HTTP plumbing
// ---------------------------------------------------------------------------

// doRequest executes the request and returns the body on HTTP 200. Non-200
// statuses become ErrProvider with a short body snippet for diagnostics.
func doRequest(client *http.Client, req *http.Request, engine string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProvider, engine, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading response: %v", ErrProvider, engine, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d: %s",
			ErrProvider, engine, resp.StatusCode, bodySnippet(body))
	}
	return body, nil
}

// bodySnippet trims an error body down to one log-friendly line.
func bodySnippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
