package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"qalog/internal/domain"
)

// Config holds all configuration for qalog.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Documents DocumentsConfig `yaml:"documents"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	LogStore  LogStoreConfig  `yaml:"logstore"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"` // Bounds retrieval plus synthesis per request
	CORSOrigins        []string `yaml:"cors_origins"`
	CORSMethods        []string `yaml:"cors_methods"`
}

// DocumentsConfig selects the corpus to index.
type DocumentsConfig struct {
	Dir      string   `yaml:"dir"` // Relative paths resolve against the project dir
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// IndexConfig holds chunking and index build configuration.
type IndexConfig struct {
	ChunkSize    int `yaml:"chunk_size"`    // In characters
	ChunkOverlap int `yaml:"chunk_overlap"` // In characters, must be < chunk_size
	BatchSize    int `yaml:"batch_size"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK         int     `yaml:"top_k"`
	MinScore     float64 `yaml:"min_score"`  // Filter results below this score (0 = disabled)
	CacheSize    int     `yaml:"cache_size"` // 0 disables the query cache
	CacheTTLSecs int     `yaml:"cache_ttl_secs"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider"` // "openai", "ollama", "mock"
	Model             string  `yaml:"model"`
	APIKeyEnv         string  `yaml:"api_key_env"` // Environment variable for API key
	BaseURL           string  `yaml:"base_url"`
	Dimension         int     `yaml:"dimension"` // 0 = derive from model
	BatchSize         int     `yaml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
}

// LLMConfig holds answer synthesis configuration.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "openai", "ollama", "mock"
	Model       string  `yaml:"model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// LogStoreConfig selects the durable log store backend.
type LogStoreConfig struct {
	Driver string `yaml:"driver"` // "bolt" or "sqlite"
	Path   string `yaml:"path"`   // Empty = .qalog/logs.<ext> under the project dir
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8000",
			RequestTimeoutSecs: 120,
			CORSOrigins:        []string{"http://localhost", "http://localhost:3000", "http://localhost:8000"},
			CORSMethods:        []string{"GET", "POST", "PUT", "DELETE"},
		},
		Documents: DocumentsConfig{
			Dir:      "data",
			Includes: []string{"**/*.txt"},
			Excludes: []string{"**/.git/**", "**/.qalog/**"},
		},
		Index: IndexConfig{
			ChunkSize:    1000,
			ChunkOverlap: 0,
			BatchSize:    100,
		},
		Retrieve: RetrieveConfig{
			TopK:         4,
			CacheSize:    0,
			CacheTTLSecs: 300,
		},
		Embedding: EmbeddingConfig{
			Provider:    "openai",
			Model:       "text-embedding-3-small",
			APIKeyEnv:   "OPENAI_API_KEY",
			BatchSize:   100,
			TimeoutSecs: 60,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   256,
			Temperature: 0.7,
			TimeoutSecs: 60,
		},
		LogStore: LogStoreConfig{
			Driver: "bolt",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for qalog.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "qalog.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".qalog", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid setting wrapped in domain.ErrConfig.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Index.ChunkSize > 0, "index.chunk_size must be positive, got %d", c.Index.ChunkSize)
	check(c.Index.ChunkOverlap >= 0, "index.chunk_overlap must not be negative, got %d", c.Index.ChunkOverlap)
	check(c.Index.ChunkOverlap < c.Index.ChunkSize, "index.chunk_overlap (%d) must be smaller than index.chunk_size (%d)", c.Index.ChunkOverlap, c.Index.ChunkSize)
	check(c.Retrieve.TopK > 0, "retrieve.top_k must be positive, got %d", c.Retrieve.TopK)
	check(c.Retrieve.CacheSize >= 0, "retrieve.cache_size must not be negative")
	check(oneOf(c.Embedding.Provider, "openai", "ollama", "mock"), "unknown embedding.provider %q", c.Embedding.Provider)
	check(oneOf(c.LLM.Provider, "openai", "ollama", "mock"), "unknown llm.provider %q", c.LLM.Provider)
	check(c.LLM.MaxTokens > 0, "llm.max_tokens must be positive, got %d", c.LLM.MaxTokens)
	check(oneOf(c.LogStore.Driver, "bolt", "sqlite"), "unknown logstore.driver %q", c.LogStore.Driver)
	check(c.Server.RequestTimeoutSecs > 0, "server.request_timeout_secs must be positive")
	check(oneOf(strings.ToLower(c.Logging.Level), "debug", "info", "warn", "error"), "unknown logging.level %q", c.Logging.Level)
	check(oneOf(c.Logging.Format, "text", "json"), "unknown logging.format %q", c.Logging.Format)

	if len(problems) > 0 {
		return fmt.Errorf("%s: %w", strings.Join(problems, "; "), domain.ErrConfig)
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// DataDir returns the directory holding qalog's local state.
func DataDir(dir string) string {
	return filepath.Join(dir, ".qalog")
}

// EnsureDataDir ensures the .qalog directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(DataDir(dir), 0755)
}

// LogStorePath returns the configured log store path, or the driver's
// default file under the data dir.
func (c *Config) LogStorePath(dir string) string {
	if c.LogStore.Path != "" {
		if filepath.IsAbs(c.LogStore.Path) {
			return c.LogStore.Path
		}
		return filepath.Join(dir, c.LogStore.Path)
	}
	if c.LogStore.Driver == "sqlite" {
		return filepath.Join(DataDir(dir), "logs.sqlite")
	}
	return filepath.Join(DataDir(dir), "logs.db")
}

// DocumentsDir resolves the document directory against dir.
func (c *Config) DocumentsDir(dir string) string {
	if filepath.IsAbs(c.Documents.Dir) {
		return c.Documents.Dir
	}
	return filepath.Join(dir, c.Documents.Dir)
}
