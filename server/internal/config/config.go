package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort        = 3000
	DefaultBanner          = "Conversion and Moving Average API"
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStreamWindow    = 5
	DefaultStreamMaxWindow = 1000
	DefaultHeartbeat       = 30 * time.Second
)

// PortEnv overrides server.http_port when set.
const PortEnv = "PORT"

// Config holds the server-side configuration parsed from the `server:` section
// of config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the API, metrics and stream endpoints listen on
	// (default 3000, overridden by $PORT).
	HTTPPort int `yaml:"http_port"`

	// Banner is the plain-text body served on GET /.
	Banner string `yaml:"banner"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Auth configures API key checking on the conversion endpoints.
	Auth AuthConfig `yaml:"auth"`

	// Stream configures the WebSocket moving-average stream.
	Stream StreamConfig `yaml:"stream"`
}

// AuthConfig controls client authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	// Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header name to read the key from.
	// Defaults to "x-api-key" if empty.
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// StreamConfig controls the WebSocket stream.
type StreamConfig struct {
	// DefaultWindow is used when a client connects without ?window=.
	DefaultWindow int `yaml:"default_window"`

	// MaxWindow is the largest window a client may request.
	MaxWindow int `yaml:"max_window"`

	// Heartbeat is the interval between heartbeat broadcasts.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// Level parses LogLevel into a slog.Level. Unknown values map to Info;
// validate rejects them before this is reached.
func (s ServerConfig) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when no file is given.
// $PORT is applied, as it is by Load.
func Default() (*Config, error) {
	cfg := defaults()
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the config file at path, returning the server configuration.
// Missing fields are filled with defaults, then $PORT is applied, then the
// result is validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        DefaultHTTPPort,
			Banner:          DefaultBanner,
			LogLevel:        DefaultLogLevel,
			ShutdownTimeout: DefaultShutdownTimeout,
			Stream: StreamConfig{
				DefaultWindow: DefaultStreamWindow,
				MaxWindow:     DefaultStreamMaxWindow,
				Heartbeat:     DefaultHeartbeat,
			},
		},
	}
}

func applyEnv(cfg *Config) error {
	v := os.Getenv(PortEnv)
	if v == "" {
		return nil
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("$%s %q is not a port number", PortEnv, v)
	}
	cfg.Server.HTTPPort = port
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", s.LogLevel)
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}
	if s.Stream.MaxWindow < 2 {
		return fmt.Errorf("server.stream.max_window %d must be at least 2", s.Stream.MaxWindow)
	}
	if s.Stream.DefaultWindow < 2 || s.Stream.DefaultWindow > s.Stream.MaxWindow {
		return fmt.Errorf("server.stream.default_window %d is out of range [2, %d]",
			s.Stream.DefaultWindow, s.Stream.MaxWindow)
	}
	if s.Stream.Heartbeat <= 0 {
		return fmt.Errorf("server.stream.heartbeat must be positive")
	}
	return nil
}
