package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	JWTSecret   string           `json:"jwt_secret"`
	JWTTTLHours int              `json:"jwt_ttl_hours"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	AI          AIConfig         `json:"ai"`
	Search      SearchConfig     `json:"search"`
	Reranker    RerankerConfig   `json:"reranker"`
	FileStore   FileStoreConfig  `json:"file_store"`
	CORSOrigins []string         `json:"cors_origins"`
	Jobs        JobsConfig       `json:"jobs"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	Data           interface{} `json:"data"`
	AssessModel    string      `json:"assess_model"`
	JudgeModel     string      `json:"judge_model"`
	EmbedModel     string      `json:"embed_model"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	EmbedCacheSize int         `json:"embed_cache_size"`
	EmbedCacheTTL  int         `json:"embed_cache_ttl_minutes"`
}

type SearchConfig struct {
	Backend        string       `json:"backend"`
	CandidateLimit int          `json:"candidate_limit"`
	Qdrant         QdrantConfig `json:"qdrant"`
	EnableOpenAI   bool         `json:"enable_openai"`
}

type QdrantConfig struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Collection string `json:"collection"`
	UseTLS     bool   `json:"use_tls"`
}

type RerankerConfig struct {
	Endpoint       string `json:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	EmbedCacheCleanupSpec string `json:"embed_cache_cleanup_spec"`
	EmbedCacheMaxAgeDays  int    `json:"embed_cache_max_age_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 120
	}
	if cfg.Search.Backend == "" {
		cfg.Search.Backend = "local"
	}
	switch cfg.Search.Backend {
	case "local", "qdrant":
	case "openai":
		if !cfg.Search.EnableOpenAI {
			return nil, fmt.Errorf("search.backend openai is disabled, set search.enable_openai")
		}
	default:
		return nil, fmt.Errorf("search.backend must be local, qdrant or openai")
	}
	if cfg.Search.CandidateLimit <= 0 {
		cfg.Search.CandidateLimit = 50
	}
	if cfg.Search.Backend == "qdrant" {
		if cfg.Search.Qdrant.Host == "" {
			return nil, fmt.Errorf("search.qdrant.host is required for the qdrant backend")
		}
		if cfg.Search.Qdrant.Port == 0 {
			cfg.Search.Qdrant.Port = 6334
		}
		if cfg.Search.Qdrant.Collection == "" {
			cfg.Search.Qdrant.Collection = "chunks"
		}
	}
	if cfg.Reranker.TimeoutSeconds <= 0 {
		cfg.Reranker.TimeoutSeconds = 30
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Jobs.EmbedCacheCleanupSpec == "" {
		cfg.Jobs.EmbedCacheCleanupSpec = "0 4 * * *"
	}
	if cfg.Jobs.EmbedCacheMaxAgeDays <= 0 {
		cfg.Jobs.EmbedCacheMaxAgeDays = 30
	}
	return &cfg, nil
}
