// Package config defines the service configuration and how it is loaded.
//
// Order of precedence (low -> high):
//  1. defaults (Default())
//  2. YAML file named by LINKVIBEZ_CONFIG
//  3. LINKVIBEZ_* environment variables (double underscore nests: LINKVIBEZ_HTTP__ADDR)
//  4. legacy variables (DATABASE_URL, JWT_SECRET, GEMINI_API_KEY, ...) for keys not set above
package config

import (
	"time"
)

// Config contains process configuration.
type Config struct {
	// Env is "development" or "production".
	Env string `koanf:"env"`

	HTTP     HTTPConfig     `koanf:"http"`
	Relay    RelayConfig    `koanf:"relay"`
	Log      LogConfig      `koanf:"log"`
	Postgres PostgresConfig `koanf:"postgres"`
	S3       S3Config       `koanf:"s3"`
	Auth     AuthConfig     `koanf:"auth"`
	Wingman  WingmanConfig  `koanf:"wingman"`
	CORS     CORSConfig     `koanf:"cors"`
}

type HTTPConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// RelayConfig configures the optional relay that keeps the AI key on the server.
type RelayConfig struct {
	Addr string `koanf:"addr"`

	// UpstreamBaseURL is the Gemini REST base, without the /models/... suffix.
	UpstreamBaseURL string        `koanf:"upstream_base_url"`
	Timeout         time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type PostgresConfig struct {
	DSN string `koanf:"dsn"`

	// NotifyChannel is the LISTEN channel fed by the messages insert trigger.
	NotifyChannel string `koanf:"notify_channel"`
}

type S3Config struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`

	// PublicBaseURL overrides the scheme://endpoint prefix of public photo URLs.
	PublicBaseURL string `koanf:"public_base_url"`

	// MaxUploadBytes caps a single photo upload.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type WingmanConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`

	// ScoreMode is "labeled" (only "Chemistry Score: N/100") or "first_integer".
	ScoreMode string        `koanf:"score_mode"`
	Timeout   time.Duration `koanf:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`

	// DefaultOrigin is echoed for requests from unknown origins.
	DefaultOrigin string `koanf:"default_origin"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Relay: RelayConfig{
			Addr:            ":5000",
			UpstreamBaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Timeout:         30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Postgres: PostgresConfig{
			DSN:           "user=admin password=password dbname=linkvibez sslmode=disable",
			NotifyChannel: "message_inserted",
		},
		S3: S3Config{
			Endpoint:       "localhost:9000",
			AccessKey:      "minio",
			SecretKey:      "minio123",
			Bucket:         "avatars",
			UseSSL:         false,
			MaxUploadBytes: 5 << 20,
		},
		Auth: AuthConfig{
			JWTSecret: "your_secret_key_please_change_in_production",
			TokenTTL:  24 * time.Hour,
		},
		Wingman: WingmanConfig{
			Model:     "gemini-2.5-flash",
			ScoreMode: ScoreModeLabeled,
			Timeout:   20 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:5173", "http://127.0.0.1:5173",
				"http://localhost:3001", "http://127.0.0.1:3001",
			},
			DefaultOrigin: "http://localhost:3001",
		},
	}
}

// Score extraction modes.
const (
	ScoreModeLabeled      = "labeled"
	ScoreModeFirstInteger = "first_integer"
)

// IsDevelopment reports whether the service runs with development conveniences.
func (c Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}
