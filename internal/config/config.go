// Package config loads the concierge configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath   = "concierge.yaml"
	DefaultEmbedURL     = "http://localhost:8000/embed"
	DefaultModel        = "all-MiniLM-L6-v2"
	DefaultImageBaseURL = "http://127.0.0.1:9000"
)

// Config holds all configuration for the concierge.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Images    ImagesConfig    `yaml:"images"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DataConfig holds the paths of the static files loaded at startup.
type DataConfig struct {
	ProductsPath string `yaml:"products_path"`
	IndexPath    string `yaml:"index_path"`
	StorePath    string `yaml:"store_path"`
	ImagesDir    string `yaml:"images_dir"`
}

// IndexConfig selects the vector index backend.
type IndexConfig struct {
	Backend string `yaml:"backend"` // flat, sqlite
	// StrictCatalogMatch refuses to start when the index was built from another catalog.
	StrictCatalogMatch *bool `yaml:"strict_catalog_match"`
}

// Strict reports whether catalog/index mismatches abort startup; defaults to true.
func (c IndexConfig) Strict() bool {
	if c.StrictCatalogMatch != nil {
		return *c.StrictCatalogMatch
	}
	return true
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // api, openai, local
	URL        string `yaml:"url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	CacheSize  int    `yaml:"cache_size"`
	BatchSize  int    `yaml:"batch_size"`
	Workers    int    `yaml:"workers"`
}

// ImagesConfig holds artifact hosting settings.
type ImagesConfig struct {
	BaseURL string `yaml:"base_url"`
	Serve   bool   `yaml:"serve"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// ServerConfig holds MCP server transport settings.
type ServerConfig struct {
	Transport string `yaml:"transport"` // stdio, http, sse
	Address   string `yaml:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, dev, prod
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns a configuration with every default applied and paths
// relative to the working directory.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	cfg.applyEnv()
	return cfg
}

// Load reads the config file at path, expands ${VAR} references, applies
// defaults and environment overrides, and validates the result. A missing
// file at the default path is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) && path == DefaultConfigPath {
			cfg := Default()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()
	cfg.applyEnv()

	configDir := filepath.Dir(path)
	cfg.Data.ProductsPath = resolvePath(cfg.Data.ProductsPath, configDir)
	cfg.Data.IndexPath = resolvePath(cfg.Data.IndexPath, configDir)
	cfg.Data.StorePath = resolvePath(cfg.Data.StorePath, configDir)
	cfg.Data.ImagesDir = resolvePath(cfg.Data.ImagesDir, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Data.ProductsPath == "" {
		c.Data.ProductsPath = filepath.Join("data", "products.json")
	}
	if c.Data.IndexPath == "" {
		c.Data.IndexPath = filepath.Join("data", "products.index")
	}
	if c.Data.StorePath == "" {
		c.Data.StorePath = filepath.Join("data", "store.json")
	}
	if c.Data.ImagesDir == "" {
		c.Data.ImagesDir = filepath.Join("data", "watches")
	}
	if c.Index.Backend == "" {
		c.Index.Backend = "flat"
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "api"
	}
	if c.Embedding.URL == "" {
		c.Embedding.URL = DefaultEmbedURL
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = DefaultModel
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Embedding.CacheSize == 0 {
		c.Embedding.CacheSize = 1024
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.Workers <= 0 {
		c.Embedding.Workers = runtime.NumCPU()
	}
	if c.Images.BaseURL == "" {
		c.Images.BaseURL = DefaultImageBaseURL
	}
	if c.Search.DefaultK == 0 {
		c.Search.DefaultK = 3
	}
	if c.Search.MaxK == 0 {
		c.Search.MaxK = 50
	}
	if c.Server.Transport == "" {
		c.Server.Transport = "stdio"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
}

// applyEnv lets the image base URL be set from the environment. The HAPPTIQ_
// name is kept for existing deployments.
func (c *Config) applyEnv() {
	for _, key := range []string{"HAPPTIQ_IMAGE_BASE_URL", "CONCIERGE_IMAGE_BASE_URL"} {
		if v := os.Getenv(key); v != "" {
			c.Images.BaseURL = v
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Index.Backend {
	case "flat", "sqlite":
	default:
		return fmt.Errorf("index.backend must be \"flat\" or \"sqlite\", got %q", c.Index.Backend)
	}
	switch c.Embedding.Provider {
	case "api", "openai", "local":
	default:
		return fmt.Errorf(
			"embedding.provider must be \"api\", \"openai\" or \"local\", got %q",
			c.Embedding.Provider,
		)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding.cache_size must not be negative, got %d", c.Embedding.CacheSize)
	}
	if c.Search.DefaultK < 0 || c.Search.MaxK < 0 {
		return fmt.Errorf("search.default_k and search.max_k must not be negative")
	}
	switch c.Server.Transport {
	case "stdio", "http", "sse":
	default:
		return fmt.Errorf("server.transport must be stdio, http or sse, got %q", c.Server.Transport)
	}
	return nil
}

// resolvePath makes relative paths relative to the config file directory.
func resolvePath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(configDir, path)
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
