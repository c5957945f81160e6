package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//auth - set AUTH_TOKEN in the environment for real deployments
	NoAuthBypass = true
	AuthToken    = ""

	CacheSimilarityCutoff = 0.97

	EmbeddingOutputDimensionality int32 = 1536
	SectionCollectionName               = "pdms-sections"

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//vectorDB
	QdrantHost             = "localhost"
	QdrantUseTLS           = false
	QdrantGrpcPort         = 6334
	QdrantPoolSize         = 1
	QdrantKeepAliveTimeout = 30 * time.Second

	//top k sections fed to the llm
	VectorMatchCount = 5

	ModelTemperature float32 = 0.7
	ModelContext             = "You are a product documentation assistant. Answer only from the provided context. " +
		"Name specific products, models, features and piece counts when the context mentions them. " +
		"If the information is not in the context, say so."

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	RedisAddr     = "127.0.0.1:6379"
	RedisPassword = ""

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisDocStore     = 1
	RedisMessageStore = 2

	RedisJobStoreTTL = 24 * time.Hour

	//output directory layout - stable contract for downstream tooling
	PartitionedDirName = "01_partitioned"
	ChunkedDirName     = "02_chunked"
	MarkdownDirName    = "04_markdown"
	AnnotatedDirName   = "annotated"
	WorkDirName        = "temp"
)

// Config is the process-wide configuration value. It is built once in main
// and handed to every component that needs it - no hidden globals.
type Config struct {
	Keys        Keys        `yaml:"api_keys"`
	Directories Directories `yaml:"directories"`
	Pipeline    Pipeline    `yaml:"pdf_processing"`
	Models      Models      `yaml:"models"`
	Qdrant      Qdrant      `yaml:"qdrant"`
	Redis       Redis       `yaml:"redis"`
}

type Keys struct {
	PartitionAPIKey   string `yaml:"partition_api_key"`
	PartitionEndpoint string `yaml:"partition_endpoint"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`
	GoogleAPIKey      string `yaml:"google_api_key"`
}

type Directories struct {
	InputDir  string `yaml:"input_dir"`
	OutputDir string `yaml:"output_dir"`
}

type Pipeline struct {
	Strategy            string  `yaml:"strategy"`
	ExtractImagePayload bool    `yaml:"extract_image_payload"`
	SplitConcurrency    int     `yaml:"split_concurrency"`
	ChunkingStrategy    string  `yaml:"chunking_strategy"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	ChunkMaxCharacters  int     `yaml:"chunk_max_characters"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
}

type Models struct {
	VisionModel    string `yaml:"vision_model"`
	SummaryModel   string `yaml:"summary_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	GeminiModel    string `yaml:"gemini_model"`
}

type Qdrant struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Redis struct {
	Addr string `yaml:"addr"`
}

func Default() Config {
	return Config{
		Directories: Directories{
			InputDir:  "./input",
			OutputDir: "./output",
		},
		Pipeline: Pipeline{
			Strategy:            "hi_res",
			ExtractImagePayload: true,
			SplitConcurrency:    15,
			ChunkingStrategy:    "by_title",
			SimilarityThreshold: 0.3,
			ChunkMaxCharacters:  2500,
			ChunkOverlap:        150,
		},
		Models: Models{
			VisionModel:    "gpt-4o",
			SummaryModel:   "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
			GeminiModel:    "gemini-2.5-flash",
		},
		Qdrant: Qdrant{Host: QdrantHost, Port: QdrantGrpcPort},
		Redis:  Redis{Addr: RedisAddr},
	}
}

// Load reads an optional YAML config file and applies env-var overrides on
// top of the defaults. A missing file is not an error - env vars alone are a
// valid configuration.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Keys.PartitionAPIKey, "PARTITION_API_KEY")
	setFromEnv(&cfg.Keys.PartitionEndpoint, "PARTITION_ENDPOINT")
	setFromEnv(&cfg.Keys.OpenAIAPIKey, "OPENAI_API_KEY")
	setFromEnv(&cfg.Keys.GoogleAPIKey, "GOOGLE_API_KEY")
	setFromEnv(&cfg.Directories.InputDir, "PDMS_INPUT_DIR")
	setFromEnv(&cfg.Directories.OutputDir, "PDMS_OUTPUT_DIR")
	setFromEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&cfg.Qdrant.Host, "QDRANT_HOST")
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Qdrant.Port = port
		}
	}
}

func setFromEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// Validate reports the first missing critical parameter. The pipeline cannot
// run without the partition and OpenAI credentials.
func (c Config) Validate() error {
	if c.Keys.PartitionAPIKey == "" {
		return fmt.Errorf("partition_api_key is not set")
	}
	if c.Keys.OpenAIAPIKey == "" {
		return fmt.Errorf("openai_api_key is not set")
	}
	if c.Directories.InputDir == "" || c.Directories.OutputDir == "" {
		return fmt.Errorf("input_dir and output_dir must be set")
	}
	return nil
}
