// Package config loads and validates chmloc.yaml project configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chmtools/chmloc/glossary"
	"github.com/chmtools/chmloc/translate"
)

// DefaultFileName is the configuration file looked up in the working
// directory when no explicit --config path is given.
const DefaultFileName = "chmloc.yaml"

// Config mirrors the keys of chmloc.yaml. Zero values are filled in by
// Load so callers can treat every field as resolved.
type Config struct {
	TargetLang     string `yaml:"target_lang"`
	SourceLang     string `yaml:"source_lang"`
	Engine         string `yaml:"engine"`
	APIKey         string `yaml:"api_key"`
	GlossaryFile   string `yaml:"glossary_file"`
	GlossaryPolicy string `yaml:"glossary_policy"`

	MaxRetries int `yaml:"max_retries"`
	RetryDelay int `yaml:"retry_delay"` // seconds between retry waves
	ChunkSize  int `yaml:"chunk_size"`
	MaxLength  int `yaml:"max_length"`
	MaxWorkers int `yaml:"max_workers"`

	TranslatableTags []string `yaml:"translatable_tags"`
	SkipTags         []string `yaml:"skip_tags"`

	KeepWorkDirs bool `yaml:"keep_work_dirs"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	c := Config{}
	c.applyDefaults()
	return c
}

// Load reads the configuration from path. An empty path falls back to
// DefaultFileName in the working directory; if that file does not exist
// the defaults are returned without error. An explicit path that cannot
// be read is an error.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("reading config: %v", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("%s: %v", path, err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.TargetLang == "" {
		c.TargetLang = "zh-CN"
	}
	if c.SourceLang == "" {
		c.SourceLang = "en"
	}
	if c.Engine == "" {
		c.Engine = "google"
	}
	if c.GlossaryPolicy == "" {
		c.GlossaryPolicy = string(glossary.FirstMatch)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = translate.DefaultMaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = int(translate.DefaultRetryDelay / time.Second)
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = translate.DefaultChunkSize
	}
	if c.MaxLength == 0 {
		c.MaxLength = translate.DefaultMaxLength
	}
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 4
	}
}

// Validate checks field values after defaults have been applied.
func (c Config) Validate() error {
	if c.TargetLang == "" {
		return fmt.Errorf("target_lang must not be empty")
	}
	if !validEngine(c.Engine) {
		return fmt.Errorf("engine %q unknown (valid: %s)", c.Engine, strings.Join(translate.EngineNames(), ", "))
	}
	if !validPolicy(c.GlossaryPolicy) {
		return fmt.Errorf("glossary_policy %q unknown (valid: %s)", c.GlossaryPolicy, strings.Join(glossary.ValidPolicies(), ", "))
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative, got %d", c.RetryDelay)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.MaxLength < c.ChunkSize {
		return fmt.Errorf("max_length (%d) must not be smaller than chunk_size (%d)", c.MaxLength, c.ChunkSize)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", c.MaxWorkers)
	}
	return nil
}

// RetryDelayDuration converts the retry_delay seconds into a Duration.
func (c Config) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

// Policy resolves the configured glossary matching policy.
func (c Config) Policy() glossary.MatchPolicy {
	return glossary.MatchPolicy(c.GlossaryPolicy)
}

func validEngine(name string) bool {
	for _, n := range translate.EngineNames() {
		if n == name {
			return true
		}
	}
	return false
}

func validPolicy(name string) bool {
	for _, p := range glossary.ValidPolicies() {
		if p == name {
			return true
		}
	}
	return false
}
