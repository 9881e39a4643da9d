package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for Vivekabot.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Telegram TelegramConfig `json:"telegram"`
	Brain    BrainConfig    `json:"brain"`
	Art      ArtConfig      `json:"art"`
	Speech   SpeechConfig   `json:"speech"`
	Search   SearchConfig   `json:"search"`
	Store    StoreConfig    `json:"store"`
	Persona  PersonaConfig  `json:"persona"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
	LogFile  string `json:"logFile,omitempty"`
}

type TelegramConfig struct {
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

// BrainConfig configures the chat/reasoning backend (Gemini).
// Models are tried in order at startup; the first that answers a liveness
// probe serves every request for the process lifetime.
type BrainConfig struct {
	APIKey  string   `json:"apiKey"`
	APIBase string   `json:"apiBase,omitempty"`
	Models  []string `json:"models,omitempty"`
}

// ArtConfig configures the image generation backend (Replicate FLUX).
type ArtConfig struct {
	Token           string `json:"token"`
	APIBase         string `json:"apiBase,omitempty"`
	Model           string `json:"model,omitempty"`
	AspectRatio     string `json:"aspectRatio,omitempty"`
	SafetyTolerance int    `json:"safetyTolerance,omitempty"`
}

// SpeechConfig configures the text-to-speech backend (ElevenLabs).
// Both APIKey and VoiceID are required for the feature to be available.
type SpeechConfig struct {
	APIKey  string `json:"apiKey"`
	VoiceID string `json:"voiceId"`
	Model   string `json:"model,omitempty"`
}

type SearchConfig struct {
	Enabled    bool `json:"enabled"`
	MaxResults int  `json:"maxResults"`
}

// StoreConfig configures the persistence backend. An empty DBPath degrades
// the economy ledger and memory log silently.
type StoreConfig struct {
	DBPath string `json:"dbPath"`
}

type PersonaConfig struct {
	Path string `json:"path,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, fmt.Sprintf("%d", int64(n)))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.vivekabot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vivekabot"
	}
	return filepath.Join(home, ".vivekabot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Store.DBPath = ExpandPath(cfg.Store.DBPath)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Persona.Path = ExpandPath(cfg.Persona.Path)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values. A missing Telegram token
// is not a validation error here: only the gateway requires it.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	switch cfg.Telegram.ParseMode {
	case "", "Markdown", "MarkdownV2", "HTML":
		// valid
	default:
		errs = append(errs, "telegram.parseMode must be one of: Markdown, MarkdownV2, HTML")
	}

	if cfg.Search.MaxResults < 1 || cfg.Search.MaxResults > 10 {
		errs = append(errs, "search.maxResults must be between 1 and 10")
	}

	if cfg.Art.SafetyTolerance < 0 || cfg.Art.SafetyTolerance > 6 {
		errs = append(errs, "art.safetyTolerance must be between 0 and 6")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
