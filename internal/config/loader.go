package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "LINKVIBEZ_"

// legacyEnv maps koanf keys to the variable names the project used before the
// LINKVIBEZ_ prefix. Earlier names win over later ones.
var legacyEnv = map[string][]string{
	"postgres.dsn":    {"DATABASE_URL"},
	"auth.jwt_secret": {"JWT_SECRET"},
	"wingman.api_key": {"GEMINI_API_KEY", "VITE_GEMINI_API_KEY"},
	"wingman.model":   {"GEMINI_MODEL"},
	"env":             {"GO_ENV"},
}

// Load builds a Config by layering defaults, optional file and env vars.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// LINKVIBEZ_WINGMAN__SCORE_MODE -> wingman.score_mode
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	applyLegacyEnv(k, &cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyLegacyEnv(k *koanf.Koanf, cfg *Config) {
	for key, names := range legacyEnv {
		if k.Exists(key) {
			continue
		}
		v := firstEnv(names...)
		if v == "" {
			continue
		}
		switch key {
		case "postgres.dsn":
			cfg.Postgres.DSN = v
		case "auth.jwt_secret":
			cfg.Auth.JWTSecret = v
		case "wingman.api_key":
			cfg.Wingman.APIKey = v
		case "wingman.model":
			cfg.Wingman.Model = v
		case "env":
			cfg.Env = v
		}
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks the invariants the rest of the service relies on.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("%w: http.addr must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("%w: auth.jwt_secret must not be empty", ErrInvalidConfig)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.token_ttl must be positive", ErrInvalidConfig)
	}
	switch c.Wingman.ScoreMode {
	case ScoreModeLabeled, ScoreModeFirstInteger:
	default:
		return fmt.Errorf("%w: wingman.score_mode %q", ErrInvalidConfig, c.Wingman.ScoreMode)
	}
	if c.S3.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: s3.max_upload_bytes must be positive", ErrInvalidConfig)
	}
	return nil
}

// GeminiAPIKey returns the configured key, falling back to the process
// environment at call time so a key exported after startup is still seen.
func (c Config) GeminiAPIKey() string {
	if c.Wingman.APIKey != "" {
		return c.Wingman.APIKey
	}
	return firstEnv(legacyEnv["wingman.api_key"]...)
}

// GeminiModel returns the model named by GEMINI_MODEL at call time, falling
// back to the configured one.
func (c Config) GeminiModel() string {
	if v := firstEnv(legacyEnv["wingman.model"]...); v != "" {
		return v
	}
	return c.Wingman.Model
}
