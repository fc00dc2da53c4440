package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable (VX_SERVER_PORT, ...)
const EnvPrefix = "VX"

// ConfigFileEnv names the variable that points at a YAML config file
const ConfigFileEnv = "VX_CONFIG"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Dataset   DatasetConfig   `yaml:"dataset" envconfig:"DATASET"`
	Screener  ScreenerConfig  `yaml:"screener" envconfig:"SCREENER"`
	Session   SessionConfig   `yaml:"session" envconfig:"SESSION"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" split_words:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	RequestTimeout  time.Duration `yaml:"request_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" split_words:"true"`
	Output   string `yaml:"output" split_words:"true"` // console, file or both
	FilePath string `yaml:"file_path" split_words:"true"`
}

// DatasetConfig locates the realized volatility panel
type DatasetConfig struct {
	Path       string `yaml:"path" split_words:"true"`
	Sheet      string `yaml:"sheet" split_words:"true"`
	TimeColumn string `yaml:"time_column" split_words:"true"`
}

// ScreenerConfig tunes the screener service
type ScreenerConfig struct {
	DefaultTopN int `yaml:"default_top_n" split_words:"true"`
	CacheSize   int `yaml:"cache_size" split_words:"true"` // 0 disables memoization
	SeriesTicks int `yaml:"series_ticks" split_words:"true"`
}

// SessionConfig bounds the per-client portfolio sessions
type SessionConfig struct {
	IdleTTL         time.Duration `yaml:"idle_ttl" split_words:"true"`
	MaxSessions     int           `yaml:"max_sessions" split_words:"true"`
	JanitorInterval time.Duration `yaml:"janitor_interval" split_words:"true"`
	CookieName      string        `yaml:"cookie_name" split_words:"true"`
	CookieSecure    bool          `yaml:"cookie_secure" split_words:"true"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" split_words:"true"`
	EnableCORS     bool            `yaml:"enable_cors" split_words:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" split_words:"true"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	RPS     float64 `yaml:"rps" split_words:"true"`
	Burst   int     `yaml:"burst" split_words:"true"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" split_words:"true"`
	WriteBufferSize int           `yaml:"write_buffer_size" split_words:"true"`
	PingPeriod      time.Duration `yaml:"ping_period" split_words:"true"`
	PongWait        time.Duration `yaml:"pong_wait" split_words:"true"`
}

// TelemetryConfig configures OpenTelemetry
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" split_words:"true"`
	Environment    string  `yaml:"environment" split_words:"true"`
	TraceExporter  string  `yaml:"trace_exporter" split_words:"true"`   // stdout or none
	MetricExporter string  `yaml:"metric_exporter" split_words:"true"` // prometheus or none
	SampleRatio    float64 `yaml:"sample_ratio" split_words:"true"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  20 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxHeaderBytes:  1 << 20,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/volexplorer.log",
		},
		Dataset: DatasetConfig{
			Path:       "data/vol_df.csv",
			TimeColumn: "time_id",
		},
		Screener: ScreenerConfig{
			DefaultTopN: 10,
			CacheSize:   256,
			SeriesTicks: 10,
		},
		Session: SessionConfig{
			IdleTTL:         30 * time.Minute,
			MaxSessions:     10000,
			JanitorInterval: time.Minute,
			CookieName:      "vx_session",
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "volexplorer",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// VX_CONFIG (or ./config.yaml when present), then VX_* environment variables.
func Load() (*Config, error) {
	return LoadFile(configFilePath())
}

// LoadFile is Load with an explicit YAML path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := mergeFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are set override; unset ones keep file or default values
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// configFilePath returns the YAML file to read, or "" for none
func configFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}
	for _, location := range []string{"config.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.RequestTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Output) {
	case "console":
	case "file", "both":
		if c.Logging.FilePath == "" {
			return fmt.Errorf("logging output %q requires a file path", c.Logging.Output)
		}
	default:
		return fmt.Errorf("invalid logging output %q: want console, file or both", c.Logging.Output)
	}

	if c.Dataset.Path == "" {
		return errors.New("dataset path is required")
	}
	if c.Dataset.TimeColumn == "" {
		return errors.New("dataset time column is required")
	}

	if c.Screener.DefaultTopN < 0 {
		return fmt.Errorf("screener default top n must be >= 0, got %d", c.Screener.DefaultTopN)
	}
	if c.Screener.CacheSize < 0 {
		return fmt.Errorf("screener cache size must be >= 0, got %d", c.Screener.CacheSize)
	}
	if c.Screener.SeriesTicks <= 0 {
		return fmt.Errorf("screener series ticks must be positive, got %d", c.Screener.SeriesTicks)
	}

	if c.Session.IdleTTL <= 0 {
		return errors.New("session idle ttl must be positive")
	}
	if c.Session.MaxSessions <= 0 {
		return fmt.Errorf("session max sessions must be positive, got %d", c.Session.MaxSessions)
	}
	if c.Session.JanitorInterval <= 0 {
		return errors.New("session janitor interval must be positive")
	}
	if c.Session.CookieName == "" {
		return errors.New("session cookie name is required")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return errors.New("at least one allowed origin must be specified")
	}
	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return errors.New("rate limit rps and burst must be positive")
	}

	if c.WebSocket.PingPeriod <= 0 || c.WebSocket.PongWait <= c.WebSocket.PingPeriod {
		return errors.New("websocket pong wait must exceed a positive ping period")
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}
	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1], got %v", c.Telemetry.SampleRatio)
	}

	return nil
}
