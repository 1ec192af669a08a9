package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviderNames lists known model provider names. Used by [Validate]
// to warn about unrecognised names without rejecting them, since the
// underlying client accepts third-party endpoints.
var ValidLLMProviderNames = []string{
	"groq", "openai", "anthropic", "gemini", "ollama", "deepseek", "mistral",
}

// ValidCalendarProviders lists supported calendar backends.
var ValidCalendarProviders = []string{"google"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// LLM
	if cfg.LLM.Name == "" {
		errs = append(errs, errors.New("llm.name is required"))
	} else {
		warnUnknownLLMProvider("llm.name", cfg.LLM.Name)
	}
	if cfg.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	for i, fb := range cfg.LLM.Fallbacks {
		prefix := fmt.Sprintf("llm.fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else {
			warnUnknownLLMProvider(prefix+".name", fb.Name)
		}
		if fb.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required", prefix))
		}
	}

	// Calendar
	if cfg.Calendar.Provider != "" && !slices.Contains(ValidCalendarProviders, cfg.Calendar.Provider) {
		errs = append(errs, fmt.Errorf("calendar.provider %q is invalid; valid values: google", cfg.Calendar.Provider))
	}
	if cfg.Calendar.Provider != "" {
		if cfg.Calendar.CredentialsFile == "" {
			errs = append(errs, errors.New("calendar.credentials_file is required when a calendar provider is configured"))
		}
		if cfg.Calendar.TokenFile == "" {
			errs = append(errs, errors.New("calendar.token_file is required when a calendar provider is configured"))
		}
	}
	if cfg.Calendar.ListLimit < 0 {
		errs = append(errs, fmt.Errorf("calendar.list_limit %d must not be negative", cfg.Calendar.ListLimit))
	}

	// Storage
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; conversations will not survive restarts")
	}

	// Assistant
	if cfg.Assistant.CycleBudget < 0 {
		errs = append(errs, fmt.Errorf("assistant.cycle_budget %d must not be negative", cfg.Assistant.CycleBudget))
	}
	if cfg.Assistant.Temperature < 0 || cfg.Assistant.Temperature > 2 {
		errs = append(errs, fmt.Errorf("assistant.temperature %.2f is out of range [0, 2]", cfg.Assistant.Temperature))
	}
	if cfg.Assistant.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("assistant.max_tokens %d must not be negative", cfg.Assistant.MaxTokens))
	}
	if cfg.Assistant.ModelTimeout < 0 {
		errs = append(errs, errors.New("assistant.model_timeout must not be negative"))
	}
	if cfg.Assistant.ToolTimeout < 0 {
		errs = append(errs, errors.New("assistant.tool_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// warnUnknownLLMProvider logs a warning if name is not in
// [ValidLLMProviderNames]. Unknown names are allowed — they may be
// third-party OpenAI-compatible endpoints.
func warnUnknownLLMProvider(field, name string) {
	if slices.Contains(ValidLLMProviderNames, name) {
		return
	}
	slog.Warn("unknown LLM provider name — may be a typo or third-party provider",
		"field", field,
		"name", name,
		"known", ValidLLMProviderNames,
	)
}
