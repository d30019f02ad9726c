package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gaspardpetit/resumegen/internal/provider"
)

// UpstreamConfig selects and authenticates the text-generation provider.
type UpstreamConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
}

// ServerConfig holds configuration for the resumegen server.
type ServerConfig struct {
	Port              int            `yaml:"port"`
	MetricsAddr       string         `yaml:"metrics_addr"`
	APIKey            string         `yaml:"api_key"`
	RequestTimeout    time.Duration  `yaml:"request_timeout"`
	DrainTimeout      time.Duration  `yaml:"drain_timeout"`
	AllowedOrigins    []string       `yaml:"allowed_origins"`
	ConfigFile        string         `yaml:"-"`
	LogLevel          string         `yaml:"log_level"`
	LogFormat         string         `yaml:"log_format"`
	RedisAddr         string         `yaml:"redis_addr"`
	StreamContentType string         `yaml:"stream_content_type"`
	DemoDelay         time.Duration  `yaml:"demo_delay"`
	Upstream          UpstreamConfig `yaml:"upstream"`
}

// SetDefaults initializes c with built-in defaults.
func (c *ServerConfig) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 120 * time.Second
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = 5 * time.Minute
	}
	if c.StreamContentType == "" {
		c.StreamContentType = "text/event-stream"
	}
	if c.DemoDelay == 0 {
		c.DemoDelay = 50 * time.Millisecond
	}
	if c.Upstream.Provider == "" {
		c.Upstream.Provider = provider.KindGemini
	}
	if c.ConfigFile == "" {
		c.ConfigFile = DefaultConfigPath("server.yaml")
	}
}

// ApplyEnv overlays environment variables onto the current config values.
func (c *ServerConfig) ApplyEnv() {
	if v := GetEnv("CONFIG_FILE", ""); v != "" {
		c.ConfigFile = v
	}
	if v := GetEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := GetEnv("LOG_FORMAT", ""); v != "" {
		c.LogFormat = v
	}
	if v := GetEnv("PORT", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Port = n
		}
	}
	if v := GetEnv("METRICS_PORT", ""); v != "" {
		if strings.Contains(v, ":") {
			c.MetricsAddr = v
		} else {
			c.MetricsAddr = ":" + v
		}
	}
	if v := GetEnv("API_KEY", ""); v != "" {
		c.APIKey = v
	}
	if v := GetEnv("REDIS_ADDR", ""); v != "" {
		c.RedisAddr = v
	}
	if v := GetEnv("REQUEST_TIMEOUT", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestTimeout = time.Duration(f * float64(time.Second))
		}
	}
	if v := GetEnv("DRAIN_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DrainTimeout = d
		}
	}
	if v := GetEnv("ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitComma(v)
	}
	if v := GetEnv("STREAM_CONTENT_TYPE", ""); v != "" {
		c.StreamContentType = v
	}
	if v := GetEnv("DEMO_DELAY", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DemoDelay = d
		}
	}
	if v := GetEnv("UPSTREAM_PROVIDER", ""); v != "" {
		c.Upstream.Provider = v
	}
	if v := GetEnv("UPSTREAM_BASE_URL", ""); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := GetEnv("UPSTREAM_API_KEY", ""); v != "" {
		c.Upstream.APIKey = v
	}
	if v := GetEnv("UPSTREAM_MODEL", ""); v != "" {
		c.Upstream.Model = v
	}
}

// BindFlagsFromCurrent binds command line flags on fs using the current config
// values as defaults.
func (c *ServerConfig) BindFlagsFromCurrent(fs *flag.FlagSet) {
	fs.StringVar(&c.ConfigFile, "config", c.ConfigFile, "server config file path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log output format (console, json)")
	fs.IntVar(&c.Port, "port", c.Port, "HTTP listen port for the public API")
	fs.StringVar(&c.MetricsAddr, "metrics-port", c.MetricsAddr, "Prometheus metrics listen address or port; defaults to the value of --port")
	fs.StringVar(&c.APIKey, "api-key", c.APIKey, "bearer key required on /api routes; leave empty to disable auth")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "redis connection URL for server state")
	fs.StringVar(&c.StreamContentType, "stream-content-type", c.StreamContentType, "content type advertised on streamed responses")
	fs.DurationVar(&c.DemoDelay, "demo-delay", c.DemoDelay, "delay between words on the demo stream")
	fs.StringVar(&c.Upstream.Provider, "upstream-provider", c.Upstream.Provider, "upstream provider (openai, gemini)")
	fs.StringVar(&c.Upstream.BaseURL, "upstream-base-url", c.Upstream.BaseURL, "upstream base URL; empty uses the provider default")
	fs.StringVar(&c.Upstream.APIKey, "upstream-api-key", c.Upstream.APIKey, "upstream API credential")
	fs.StringVar(&c.Upstream.Model, "upstream-model", c.Upstream.Model, "upstream model name; empty uses the provider default")
	fs.Func("request-timeout", "overall upstream timeout in seconds", func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.RequestTimeout = time.Duration(f * float64(time.Second))
		return nil
	})
	fs.DurationVar(&c.DrainTimeout, "drain-timeout", c.DrainTimeout, "time to wait for in-flight requests on shutdown (-1 to wait indefinitely, 0 to exit immediately)")
	fs.Func("allowed-origins", "comma separated list of allowed CORS origins", func(v string) error {
		c.AllowedOrigins = splitComma(v)
		return nil
	})
}

func splitComma(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadFile populates the config from a YAML file.
func (c *ServerConfig) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, c)
}

// credentialFallbacks lists the provider-specific variables consulted when no
// explicit upstream key is configured.
var credentialFallbacks = map[string][]string{
	provider.KindOpenAI: {"XAI_API_KEY", "OPENAI_API_KEY"},
	provider.KindGemini: {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// Resolve fills the upstream credential from provider-specific environment
// variables when needed and validates the settings the server cannot start
// without.
func (c *ServerConfig) Resolve() error {
	c.Upstream.Provider = strings.ToLower(strings.TrimSpace(c.Upstream.Provider))
	if !provider.Supported(c.Upstream.Provider) {
		return fmt.Errorf("config: unsupported upstream provider %q", c.Upstream.Provider)
	}
	if c.Upstream.APIKey == "" {
		for _, name := range credentialFallbacks[c.Upstream.Provider] {
			if v := GetEnv(name, ""); v != "" {
				c.Upstream.APIKey = v
				break
			}
		}
	}
	switch {
	case c.MetricsAddr == "":
		c.MetricsAddr = fmt.Sprintf(":%d", c.Port)
	case !strings.Contains(c.MetricsAddr, ":"):
		c.MetricsAddr = ":" + c.MetricsAddr
	}
	var errs []error
	if c.Upstream.APIKey == "" {
		errs = append(errs, fmt.Errorf("config: upstream API key not set (UPSTREAM_API_KEY or %s)", strings.Join(credentialFallbacks[c.Upstream.Provider], ", ")))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: invalid port %d", c.Port))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("config: request timeout must be positive"))
	}
	return errors.Join(errs...)
}

// ProviderSettings converts the upstream section for the provider package.
func (c *ServerConfig) ProviderSettings() provider.Settings {
	return provider.Settings{
		Kind:    c.Upstream.Provider,
		BaseURL: c.Upstream.BaseURL,
		APIKey:  c.Upstream.APIKey,
		Model:   c.Upstream.Model,
	}
}
