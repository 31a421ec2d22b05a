package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment   string              `toml:"environment"` // "development" or "production"
	Server        ServerConfig        `toml:"server"`
	Logging       LoggingConfig       `toml:"logging"`
	Storage       StorageConfig       `toml:"storage"`
	Dataset       DatasetConfig       `toml:"dataset"`
	Embeddings    EmbeddingsConfig    `toml:"embeddings"`
	Index         IndexConfig         `toml:"index"`
	Retrieval     RetrievalConfig     `toml:"retrieval"`
	LLM           LLMConfig           `toml:"llm"`
	Ollama        OllamaConfig        `toml:"ollama"`
	Gemini        GeminiConfig        `toml:"gemini"`
	Claude        ClaudeConfig        `toml:"claude"`
	Papers        PapersConfig        `toml:"papers"`
	KnowledgeBase KnowledgeBaseConfig `toml:"knowledge_base"`
	Scraper       ScraperConfig       `toml:"scraper"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// DatasetConfig describes the perfume CSV dataset
type DatasetConfig struct {
	Path         string `toml:"path"`          // CSV file path
	ChunkSize    int    `toml:"chunk_size"`    // Rows per chunk for chunked loading
	TitleColumn  string `toml:"title_column"`  // Column holding the perfume title
	RatingColumn string `toml:"rating_column"` // Column holding the numeric rating
	TextColumn   string `toml:"text_column"`   // Column holding the combined searchable text
}

// EmbeddingsConfig configures the embedding provider
type EmbeddingsConfig struct {
	Mode        string `toml:"mode"`         // "http" or "mock"
	URL         string `toml:"url"`          // Primary embedding server endpoint
	FallbackURL string `toml:"fallback_url"` // CPU fallback endpoint, tried when the primary fails
	Model       string `toml:"model"`        // Embedding model name
	Dimension   int    `toml:"dimension"`    // Embedding dimensionality (384 for the MiniLM family)
	BatchSize   int    `toml:"batch_size"`   // Texts per encode request
	Timeout     string `toml:"timeout"`      // Request timeout as duration string
}

// IndexConfig configures the vector index
type IndexConfig struct {
	Kind         string     `toml:"kind"` // "flat", "hnsw", "ivf", or "auto"
	Path         string     `toml:"path"` // Persisted index file path
	IVFThreshold int        `toml:"ivf_threshold"` // Corpus size above which "auto" selects IVF
	HNSW         HNSWConfig `toml:"hnsw"`
	IVF          IVFConfig  `toml:"ivf"`
}

type HNSWConfig struct {
	M              int `toml:"m"`               // Max connections per node per layer
	EfConstruction int `toml:"ef_construction"` // Candidate list size during build
	EfSearch       int `toml:"ef_search"`       // Candidate list size during search
}

type IVFConfig struct {
	NList       int `toml:"nlist"`        // Number of coarse centroids
	NProbe      int `toml:"nprobe"`       // Clusters probed per search
	TrainSample int `toml:"train_sample"` // Max vectors sampled for k-means training
}

// RetrievalConfig configures the retrieval pipeline
type RetrievalConfig struct {
	DefaultK      int `toml:"default_k"`      // Neighbors returned when the caller does not specify k
	CacheCapacity int `toml:"cache_capacity"` // LRU cache entries keyed by (query, k)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderOllama uses a local Ollama server
	LLMProviderOllama LLMProvider = "ollama"
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "ollama", "gemini" or "claude"
	Model           string      `toml:"model"`            // Optional model override; its name prefix selects the provider
}

// OllamaConfig contains local Ollama generation endpoint configuration
type OllamaConfig struct {
	URL         string  `toml:"url"`         // Base URL (default: http://localhost:11434)
	Model       string  `toml:"model"`       // Model name (e.g. "llama3:latest")
	Timeout     string  `toml:"timeout"`     // Request timeout as duration string
	Temperature float32 `toml:"temperature"` // Sampling temperature
	TopP        float32 `toml:"top_p"`       // Nucleus sampling parameter
	NumPredict  int     `toml:"num_predict"` // Max tokens to generate
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// PapersConfig configures the external paper search and download pipeline
type PapersConfig struct {
	ArxivURL        string `toml:"arxiv_url"`        // arXiv Atom API endpoint
	SemanticURL     string `toml:"semantic_url"`     // Semantic Scholar API endpoint
	RateLimit       string `toml:"rate_limit"`       // Min interval between outbound requests
	DownloadTimeout string `toml:"download_timeout"` // Per-PDF download timeout
	DownloadRetries int    `toml:"download_retries"` // Attempts per PDF
	MaxPages        int    `toml:"max_pages"`        // Pages extracted per PDF
	Workers         int    `toml:"workers"`          // Parallel download/extract workers
	UserAgent       string `toml:"user_agent"`
}

// KnowledgeBaseConfig configures session knowledge base behavior
type KnowledgeBaseConfig struct {
	MaxSessions   int    `toml:"max_sessions"`    // Sessions kept by the cache sweep
	ChunkSize     int    `toml:"chunk_size"`      // Target words per chunk
	ChunkOverlap  int    `toml:"chunk_overlap"`   // Overlap words between adjacent chunks
	MinChunkWords int    `toml:"min_chunk_words"` // Chunks shorter than this are discarded
	SweepSchedule string `toml:"sweep_schedule"`  // Cron schedule for the eviction sweep
}

// ScraperConfig configures the fragrance page scraper
type ScraperConfig struct {
	UserAgent        string `toml:"user_agent"`
	RequestTimeout   string `toml:"request_timeout"`
	EnableJavaScript bool   `toml:"enable_javascript"` // Render with headless Chrome before parsing
	JavaScriptWait   string `toml:"javascript_wait"`   // Time to wait for JavaScript to settle
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Dataset: DatasetConfig{
			Path:         "./data/preprocessed_perfume_data.csv",
			ChunkSize:    10000,
			TitleColumn:  "title",
			RatingColumn: "rating",
			TextColumn:   "combined_text",
		},
		Embeddings: EmbeddingsConfig{
			Mode:      "http",
			URL:       "http://127.0.0.1:8086",
			Model:     "all-MiniLM-L6-v2",
			Dimension: 384,
			BatchSize: 64,
			Timeout:   "30s",
		},
		Index: IndexConfig{
			Kind:         "auto",
			Path:         "./data/perfume.index",
			IVFThreshold: 1000,
			HNSW: HNSWConfig{
				M:              32,
				EfConstruction: 40,
				EfSearch:       64,
			},
			IVF: IVFConfig{
				NList:       100,
				NProbe:      10,
				TrainSample: 10000,
			},
		},
		Retrieval: RetrievalConfig{
			DefaultK:      3,
			CacheCapacity: 128,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderOllama,
		},
		Ollama: OllamaConfig{
			URL:         "http://localhost:11434",
			Model:       "llama3:latest",
			Timeout:     "60s",
			Temperature: 0.7,
			TopP:        0.9,
			NumPredict:  1200,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-2.5-flash",
			Timeout:     "60s",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Papers: PapersConfig{
			ArxivURL:        "http://export.arxiv.org/api/query",
			SemanticURL:     "https://api.semanticscholar.org/graph/v1",
			RateLimit:       "1s",
			DownloadTimeout: "20s",
			DownloadRetries: 2,
			MaxPages:        20,
			Workers:         3,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		KnowledgeBase: KnowledgeBaseConfig{
			MaxSessions:   5,
			ChunkSize:     384,
			ChunkOverlap:  32,
			MinChunkWords: 50,
			SweepSchedule: "0 */30 * * * *", // Every 30 minutes
		},
		Scraper: ScraperConfig{
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout:   "30s",
			EnableJavaScript: true,
			JavaScriptWait:   "5s",
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ESSENTIA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("ESSENTIA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("ESSENTIA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if level := os.Getenv("ESSENTIA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		config.Ollama.URL = url
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ParseDuration parses a duration string from config, falling back to a
// default when empty or invalid.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
