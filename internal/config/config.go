package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hpungsan/parley/internal/analytics"
	"github.com/hpungsan/parley/internal/buffer"
	"github.com/hpungsan/parley/internal/classify"
	"github.com/hpungsan/parley/internal/session"
	"github.com/hpungsan/parley/internal/suggest"
	"github.com/hpungsan/parley/internal/transcript"
)

// RepoDirName is the per-repository config directory searched by LoadWithRepo.
const RepoDirName = ".parley"

// Config holds application configuration.
type Config struct {
	BufferCapacity int `json:"buffer_capacity,omitempty"`
	ContextWindow  int `json:"context_window,omitempty"`
	SnippetSize    int `json:"snippet_size,omitempty"`

	SentimentHistoryCap int `json:"sentiment_history_cap,omitempty"`
	DetectionHistoryCap int `json:"detection_history_cap,omitempty"`
	KeyMomentCap        int `json:"key_moment_cap,omitempty"`

	// MinSuggestionIntervalMs is the cooldown between suggestion requests.
	MinSuggestionIntervalMs int64 `json:"min_suggestion_interval_ms,omitempty"`

	ObjectionConfidenceThreshold float64 `json:"objection_confidence_threshold,omitempty"`
	BuyingSignalThreshold        float64 `json:"buying_signal_threshold,omitempty"`

	// NegativeSentimentThreshold must be below zero; zero means "use the default".
	NegativeSentimentThreshold  float64 `json:"negative_sentiment_threshold,omitempty"`
	NegativeSentimentMinSamples int     `json:"negative_sentiment_min_samples,omitempty"`

	// SpeakerMap maps raw speech-to-text speaker labels to salesperson, client or unknown.
	// Repo entries override global entries with the same key.
	SpeakerMap map[string]string `json:"speaker_map,omitempty"`

	// LexiconPath is an optional YAML file with extra classifier cues.
	LexiconPath string `json:"lexicon_path,omitempty"`

	SuggestionURL       string `json:"suggestion_url,omitempty"`
	SuggestionModel     string `json:"suggestion_model,omitempty"`
	SuggestionAPIKeyEnv string `json:"suggestion_api_key_env,omitempty"`
	SuggestionMaxTokens int    `json:"suggestion_max_tokens,omitempty"`

	// LogLevel is a logrus level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.parley/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "session", "summary".
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	policy := suggest.DefaultPolicy()
	return &Config{
		BufferCapacity:               buffer.DefaultCapacity,
		ContextWindow:                session.DefaultContextWindow,
		SnippetSize:                  session.DefaultSnippetSize,
		SentimentHistoryCap:          analytics.DefaultSentimentCap,
		DetectionHistoryCap:          analytics.DefaultDetectionCap,
		KeyMomentCap:                 analytics.DefaultKeyMomentCap,
		MinSuggestionIntervalMs:      policy.MinInterval.Milliseconds(),
		ObjectionConfidenceThreshold: policy.ObjectionThreshold,
		BuyingSignalThreshold:        policy.BuyingSignalThreshold,
		NegativeSentimentThreshold:   policy.NegativeSentimentThreshold,
		NegativeSentimentMinSamples:  policy.NegativeSentimentMinSamples,
		SuggestionURL:                suggest.DefaultEndpoint,
		SuggestionModel:              suggest.DefaultModel,
		SuggestionAPIKeyEnv:          suggest.DefaultAPIKeyEnv,
		SuggestionMaxTokens:          suggest.DefaultMaxTokens,
		LogLevel:                     "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.parley.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.parley) and repo (.parley) directories.
// Repo config is found by walking upward from startDir to find the nearest .parley/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated);
// speaker_map entries are merged with repo keys winning.
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .parley/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoDirName, "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	return &Config{
		BufferCapacity: pick(overlay.BufferCapacity, base.BufferCapacity),
		ContextWindow:  pick(overlay.ContextWindow, base.ContextWindow),
		SnippetSize:    pick(overlay.SnippetSize, base.SnippetSize),

		SentimentHistoryCap: pick(overlay.SentimentHistoryCap, base.SentimentHistoryCap),
		DetectionHistoryCap: pick(overlay.DetectionHistoryCap, base.DetectionHistoryCap),
		KeyMomentCap:        pick(overlay.KeyMomentCap, base.KeyMomentCap),

		MinSuggestionIntervalMs:      pick(overlay.MinSuggestionIntervalMs, base.MinSuggestionIntervalMs),
		ObjectionConfidenceThreshold: pick(overlay.ObjectionConfidenceThreshold, base.ObjectionConfidenceThreshold),
		BuyingSignalThreshold:        pick(overlay.BuyingSignalThreshold, base.BuyingSignalThreshold),
		NegativeSentimentThreshold:   pick(overlay.NegativeSentimentThreshold, base.NegativeSentimentThreshold),
		NegativeSentimentMinSamples:  pick(overlay.NegativeSentimentMinSamples, base.NegativeSentimentMinSamples),

		SpeakerMap:  mergeStringMap(base.SpeakerMap, overlay.SpeakerMap),
		LexiconPath: pick(overlay.LexiconPath, base.LexiconPath),

		SuggestionURL:       pick(overlay.SuggestionURL, base.SuggestionURL),
		SuggestionModel:     pick(overlay.SuggestionModel, base.SuggestionModel),
		SuggestionAPIKeyEnv: pick(overlay.SuggestionAPIKeyEnv, base.SuggestionAPIKeyEnv),
		SuggestionMaxTokens: pick(overlay.SuggestionMaxTokens, base.SuggestionMaxTokens),

		LogLevel: pick(overlay.LogLevel, base.LogLevel),

		DBMaxOpenConns: pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns: pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),

		// Booleans: overlay wins if true, else base
		AllowUnsafePaths: base.AllowUnsafePaths || overlay.AllowUnsafePaths,

		AllowedPaths:  mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths),
		DisabledTools: mergeStringSlice(base.DisabledTools, overlay.DisabledTools),
		DisabledTypes: mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes),
	}
}

// pick returns overlay if it is non-zero, else base.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// mergeStringMap copies a then b into a new map; keys are trimmed and b wins.
func mergeStringMap(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	result := make(map[string]string, len(a)+len(b))
	for _, m := range []map[string]string{a, b} {
		for k, v := range m {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			result[k] = strings.TrimSpace(v)
		}
	}
	return result
}

// SessionOptions projects the config onto session options.
func (c *Config) SessionOptions() session.Options {
	opts := session.DefaultOptions()
	opts.BufferCapacity = c.BufferCapacity
	opts.ContextWindow = c.ContextWindow
	opts.SnippetSize = c.SnippetSize
	opts.Analytics = analytics.Options{
		SentimentCap:    c.SentimentHistoryCap,
		DetectionCap:    c.DetectionHistoryCap,
		KeyMomentCap:    c.KeyMomentCap,
		KeyObjectionMin: c.ObjectionConfidenceThreshold,
	}
	opts.Policy = suggest.Policy{
		MinInterval:                 time.Duration(c.MinSuggestionIntervalMs) * time.Millisecond,
		ObjectionThreshold:          c.ObjectionConfidenceThreshold,
		BuyingSignalThreshold:       c.BuyingSignalThreshold,
		NegativeSentimentThreshold:  c.NegativeSentimentThreshold,
		NegativeSentimentMinSamples: c.NegativeSentimentMinSamples,
	}
	opts.SpeakerMap = transcript.NewSpeakerMap(c.SpeakerMap)
	return opts
}

// HTTPConfig projects the suggestion settings onto the HTTP generator config.
func (c *Config) HTTPConfig() suggest.HTTPConfig {
	return suggest.HTTPConfig{
		Endpoint:  c.SuggestionURL,
		Model:     c.SuggestionModel,
		APIKeyEnv: c.SuggestionAPIKeyEnv,
		MaxTokens: c.SuggestionMaxTokens,
	}
}

// Lexicon returns the classifier lexicon, extended from LexiconPath when set.
func (c *Config) Lexicon() (*classify.Lexicon, error) {
	return classify.LoadLexicon(c.LexiconPath)
}

// Level parses LogLevel, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
