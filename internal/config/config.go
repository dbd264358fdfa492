package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the vulnscan configuration.
type Config struct {
	Provider              string        `yaml:"provider"`
	Model                 string        `yaml:"model"`
	Format                string        `yaml:"format"`
	FailOn                string        `yaml:"failOn"`
	Concurrency           int           `yaml:"concurrency"`
	ChunkSize             int           `yaml:"chunkSize"`
	ChunkOverlap          int           `yaml:"chunkOverlap"`
	LargeFileLines        int           `yaml:"largeFileLines"`
	Retry                 RetryConfig   `yaml:"retry"`
	RequestTimeoutSeconds int           `yaml:"requestTimeoutSeconds"`
	RequestsPerMinute     int           `yaml:"requestsPerMinute"`
	MaxTokens             int           `yaml:"maxTokens"`
	Temperature           float64       `yaml:"temperature"`
	Include               []string      `yaml:"include"`
	Exclude               []string      `yaml:"exclude"`
	MaxFileBytes          int64         `yaml:"maxFileBytes"`
	RulesFile             string        `yaml:"rulesFile,omitempty"`
	LogLevel              string        `yaml:"logLevel"`
	Cache                 CacheConfig   `yaml:"cache"`
	Privacy               PrivacyConfig `yaml:"privacy"`
}

// RetryConfig controls the per-chunk retry policy.
type RetryConfig struct {
	MaxAttempts int `yaml:"maxAttempts"`
	BaseDelayMs int `yaml:"baseDelayMs"`
	MaxDelayMs  int `yaml:"maxDelayMs"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// PrivacyConfig controls redaction of reported snippets.
type PrivacyConfig struct {
	RedactSnippets bool `yaml:"redactSnippets"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:       "anthropic",
		Model:          "claude-sonnet-4-20250514",
		Format:         "json",
		FailOn:         "none",
		Concurrency:    3,
		ChunkSize:      12000,
		ChunkOverlap:   400,
		LargeFileLines: 1000,
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelayMs: 1000,
			MaxDelayMs:  5000,
		},
		RequestTimeoutSeconds: 120,
		MaxTokens:             4096,
		Temperature:           0.3,
		Include:               []string{"**/*"},
		Exclude:               []string{".git/**", "vendor/**", "node_modules/**", "**/dist/**", "**/*.min.js"},
		MaxFileBytes:          1 << 20,
		LogLevel:              "info",
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSnippets: false,
		},
	}
}

// BaseDelay returns the first retry delay ceiling.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// MaxDelay returns the cap on any single retry delay.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// TTL returns how long cached responses stay valid.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RequestTimeout returns the per-attempt inference deadline.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

var (
	validFormats = map[string]bool{"json": true, "text": true, "markdown": true, "sarif": true}
	validFailOn  = map[string]bool{"none": true, "low": true, "medium": true, "high": true, "critical": true}
)

// Validate checks the config for values the scanner cannot run with.
func (c Config) Validate() error {
	var problems []string
	if c.Provider == "" {
		problems = append(problems, "provider must be set")
	}
	if c.Concurrency < 1 {
		problems = append(problems, fmt.Sprintf("concurrency must be >= 1 (got %d)", c.Concurrency))
	}
	if c.ChunkSize < 256 {
		problems = append(problems, fmt.Sprintf("chunkSize must be >= 256 (got %d)", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 {
		problems = append(problems, fmt.Sprintf("chunkOverlap must be >= 0 (got %d)", c.ChunkOverlap))
	}
	if c.ChunkOverlap > c.ChunkSize/2 {
		problems = append(problems, fmt.Sprintf("chunkOverlap must be <= chunkSize/2 (got %d for chunkSize %d)", c.ChunkOverlap, c.ChunkSize))
	}
	if c.LargeFileLines < 1 {
		problems = append(problems, fmt.Sprintf("largeFileLines must be >= 1 (got %d)", c.LargeFileLines))
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, fmt.Sprintf("retry.maxAttempts must be >= 1 (got %d)", c.Retry.MaxAttempts))
	}
	if c.Retry.BaseDelayMs < 0 || c.Retry.MaxDelayMs < 0 {
		problems = append(problems, "retry delays must not be negative")
	}
	if c.RequestTimeoutSeconds < 0 || c.RequestsPerMinute < 0 {
		problems = append(problems, "requestTimeoutSeconds and requestsPerMinute must not be negative")
	}
	if !validFormats[c.Format] {
		problems = append(problems, fmt.Sprintf("unknown format %q", c.Format))
	}
	if !validFailOn[strings.ToLower(c.FailOn)] {
		problems = append(problems, fmt.Sprintf("unknown failOn %q", c.FailOn))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory for vulnscan.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vulnscan"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "vulnscan"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "vulnscan"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "vulnscan"), nil
	default:
		return filepath.Join(home, ".config", "vulnscan"), nil
	}
}

// ConfigPath returns the config file path. VULNSCAN_CONFIG overrides the
// platform default.
func ConfigPath() (string, error) {
	if p := os.Getenv("VULNSCAN_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile decodes the config file at path over cfg. Keys absent from the
// file keep their current values. A missing file is not an error.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// A .env file in the working directory is loaded into the environment first;
// variables already set win. The overrides map comes from CLI flags and uses
// the same keys as SetField.
func Load(overrides map[string]string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	if err := LoadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Keys lists every key accepted by SetField.
var Keys = []string{
	"provider", "model", "format", "failOn",
	"concurrency", "chunkSize", "chunkOverlap", "largeFileLines",
	"retry.maxAttempts", "retry.baseDelayMs", "retry.maxDelayMs",
	"requestTimeoutSeconds", "requestsPerMinute", "maxTokens", "temperature",
	"include", "exclude", "maxFileBytes", "rulesFile", "logLevel",
	"cache.enabled", "cache.dir", "cache.ttlSeconds",
	"privacy.redactSnippets",
}

// EnvName maps a config key to its environment variable, e.g.
// "retry.maxAttempts" -> "VULNSCAN_RETRY_MAX_ATTEMPTS".
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString("VULNSCAN_")
	for i, r := range key {
		switch {
		case r == '.':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && key[i-1] != '.' {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

func mergeEnv(cfg *Config) error {
	for _, key := range Keys {
		v, ok := os.LookupEnv(EnvName(key))
		if !ok || v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return fmt.Errorf("%s: %w", EnvName(key), err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if overrides[k] == "" {
			continue
		}
		if err := SetField(cfg, k, overrides[k]); err != nil {
			return err
		}
	}
	return nil
}

// SetField sets a single config field by key name. Returns error if key is
// unknown or the value does not parse.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = strings.ToLower(value)
	case "concurrency":
		return setInt(&cfg.Concurrency, key, value)
	case "chunkSize":
		return setInt(&cfg.ChunkSize, key, value)
	case "chunkOverlap":
		return setInt(&cfg.ChunkOverlap, key, value)
	case "largeFileLines":
		return setInt(&cfg.LargeFileLines, key, value)
	case "retry.maxAttempts":
		return setInt(&cfg.Retry.MaxAttempts, key, value)
	case "retry.baseDelayMs":
		return setInt(&cfg.Retry.BaseDelayMs, key, value)
	case "retry.maxDelayMs":
		return setInt(&cfg.Retry.MaxDelayMs, key, value)
	case "requestTimeoutSeconds":
		return setInt(&cfg.RequestTimeoutSeconds, key, value)
	case "requestsPerMinute":
		return setInt(&cfg.RequestsPerMinute, key, value)
	case "maxTokens":
		return setInt(&cfg.MaxTokens, key, value)
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("temperature must be a number: %w", err)
		}
		cfg.Temperature = f
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "maxFileBytes":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("maxFileBytes must be an integer: %w", err)
		}
		cfg.MaxFileBytes = n
	case "rulesFile":
		cfg.RulesFile = value
	case "logLevel":
		cfg.LogLevel = value
	case "cache.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache.enabled must be a boolean: %w", err)
		}
		cfg.Cache.Enabled = b
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "privacy.redactSnippets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("privacy.redactSnippets must be a boolean: %w", err)
		}
		cfg.Privacy.RedactSnippets = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
