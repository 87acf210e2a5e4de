package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adeilh/go-statusd/logging"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the process configuration, read once at startup.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Delay     DelayConfig     `yaml:"delay"`
	Logging   logging.Config  `yaml:"logging"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	PublicURL       string        `yaml:"public_url"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TrustProxy reads client addresses from X-Forwarded-For.
	TrustProxy      bool          `yaml:"trust_proxy"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Window  time.Duration `yaml:"window"`
	Max     int           `yaml:"max"`
}

type DelayConfig struct {
	// MaxSleep clamps the sleep query parameter; zero leaves it unbounded.
	MaxSleep time.Duration `yaml:"max_sleep"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Window:  time.Minute,
			Max:     100,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: logging.FormatJSON,
		},
	}
}

// Load reads defaults, then the YAML file at path (if non-empty), then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PORT, HOST, PUBLIC_URL, TRUST_PROXY,
// RATE_LIMIT_WINDOW_MS, RATE_LIMIT_MAX, LOG_LEVEL and LOG_FORMAT.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT %q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("HOST"); ok {
		c.Server.Host = v
	}
	if v, ok := lookup("PUBLIC_URL"); ok && v != "" {
		c.Server.PublicURL = v
	}
	if v, ok := lookup("TRUST_PROXY"); ok && v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: TRUST_PROXY %q", ErrInvalidConfig, v)
		}
		c.Server.TrustProxy = trust
	}
	if v, ok := lookup("RATE_LIMIT_WINDOW_MS"); ok && v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RATE_LIMIT_WINDOW_MS %q", ErrInvalidConfig, v)
		}
		c.RateLimit.Window = time.Duration(ms) * time.Millisecond
	}
	if v, ok := lookup("RATE_LIMIT_MAX"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RATE_LIMIT_MAX %q", ErrInvalidConfig, v)
		}
		c.RateLimit.Max = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		c.Logging.Format = logging.ParseFormat(v)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("%w: rate limit window must be positive", ErrInvalidConfig)
		}
		if c.RateLimit.Max <= 0 {
			return fmt.Errorf("%w: rate limit max must be positive", ErrInvalidConfig)
		}
	}
	if c.Delay.MaxSleep < 0 {
		return fmt.Errorf("%w: max sleep must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Address is the listen address derived from host and port.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// BaseURL is the externally visible URL advertised in the API document.
func (c *Config) BaseURL() string {
	if c.Server.PublicURL != "" {
		return c.Server.PublicURL
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Server.Port))
}
