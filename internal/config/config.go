package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds searchkit binary configuration (CLI and retriever stub).
type Config struct {
	Retriever RetrieverConfig `yaml:"retriever"`
	Search    SearchConfig    `yaml:"search"`
	Cache     CacheConfig     `yaml:"cache"`
	HTTP      HTTPConfig      `yaml:"http"`
	Stub      StubConfig      `yaml:"stub"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// RetrieverConfig identifies the retriever to call.
type RetrieverConfig struct {
	ProjectKey    string `yaml:"project_key"` // public slug or ret_sk_ secret key
	RetrieverSlug string `yaml:"retriever_slug"`
	BaseURL       string `yaml:"base_url"`
	MaxResults    int    `yaml:"max_results"`
}

// SearchConfig holds interactive search settings.
type SearchConfig struct {
	DebounceMS  int   `yaml:"debounce_ms"` // 0 = no delay
	CacheTTLSec int   `yaml:"cache_ttl_sec"`
	Streaming   *bool `yaml:"streaming"` // default: true
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Driver     string   `yaml:"driver"` // memory, redis (default: memory)
	Addrs      []string `yaml:"addrs"`
	Password   string   `yaml:"password"`
	MaxEntries int      `yaml:"max_entries"`
	KeyPrefix  string   `yaml:"key_prefix"`
}

// HTTPConfig holds client timeouts and stub server settings.
type HTTPConfig struct {
	RequestTimeoutSec        int `yaml:"request_timeout_sec"`
	ResponseHeaderTimeoutSec int `yaml:"response_header_timeout_sec"`
	Port                     int `yaml:"port"`
	ReadTimeoutSec           int `yaml:"read_timeout_sec"`
	WriteTimeoutSec          int `yaml:"write_timeout_sec"` // 0 = unbounded, SSE responses are long-lived
	ShutdownSec              int `yaml:"shutdown_timeout_sec"`
}

// StubConfig configures the development retriever.
type StubConfig struct {
	CorpusPath   string       `yaml:"corpus_path"`
	APIKeys      []string     `yaml:"api_keys"`
	Slugs        []string     `yaml:"slugs"` // empty = any slug is public
	StageDelayMS int          `yaml:"stage_delay_ms"`
	Answer       AnswerConfig `yaml:"answer"`
}

// AnswerConfig configures the optional generated-answer stage.
type AnswerConfig struct {
	Provider string `yaml:"provider"` // none, openai (default: none)
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Retriever.MaxResults <= 0 {
		c.Retriever.MaxResults = 10
	}
	if c.Search.CacheTTLSec <= 0 {
		c.Search.CacheTTLSec = 300
	}
	if c.Search.Streaming == nil {
		on := true
		c.Search.Streaming = &on
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "memory"
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1024
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "searchkit:results:"
	}
	if c.HTTP.RequestTimeoutSec <= 0 {
		c.HTTP.RequestTimeoutSec = 30
	}
	if c.HTTP.ResponseHeaderTimeoutSec <= 0 {
		c.HTTP.ResponseHeaderTimeoutSec = 15
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Stub.Answer.Provider == "" {
		c.Stub.Answer.Provider = "none"
	}
	if c.Stub.Answer.Model == "" {
		c.Stub.Answer.Model = "gpt-4o-mini"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Search.DebounceMS < 0 {
		return fmt.Errorf("search.debounce_ms must be >= 0, got %d", c.Search.DebounceMS)
	}
	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("cache.driver must be \"memory\" or \"redis\", got %q", c.Cache.Driver)
	}
	switch c.Stub.Answer.Provider {
	case "none":
	case "openai":
		if c.Stub.Answer.APIKey == "" {
			return fmt.Errorf("stub.answer.api_key is required for the openai provider")
		}
	default:
		return fmt.Errorf("stub.answer.provider must be \"none\" or \"openai\", got %q", c.Stub.Answer.Provider)
	}
	return nil
}

// Debounce returns the configured search debounce.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Search.DebounceMS) * time.Millisecond
}

// Streaming reports whether searches use the streaming call.
func (c *Config) Streaming() bool {
	return c.Search.Streaming == nil || *c.Search.Streaming
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
