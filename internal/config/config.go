package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	DBDsn         string           `json:"db_dsn"`
	Port          int              `json:"port"`
	JWTSecret     string           `json:"jwt_secret"`
	MigrationsDir string           `json:"migrations_dir"`
	LogConfig     logger.LogConfig `json:"log_config"`
	AI            AIConfig         `json:"ai"`
	Shop          ShopConfig       `json:"shop"`
	Sync          SyncConfig       `json:"sync"`
	Retrieval     RetrievalConfig  `json:"retrieval"`
	Snapshot      SnapshotConfig   `json:"snapshot"`
}

type AIConfig struct {
	Provider   string      `json:"provider"`
	EmbedModel string      `json:"embed_model"`
	Timeout    int         `json:"timeout"`
	CacheSize  int         `json:"cache_size"`
	Data       interface{} `json:"data"`
}

type ShopConfig struct {
	BaseURL        string  `json:"base_url"`
	RequestsPerSec float64 `json:"requests_per_sec"`
	Timeout        int     `json:"timeout"`
	PageLimit      int     `json:"page_limit"`
}

type SyncConfig struct {
	TickSpec   string `json:"tick_spec"`
	BatchSize  int    `json:"batch_size"`
	BatchPause int    `json:"batch_pause_seconds"`
}

type RetrievalConfig struct {
	ChunkMaxSize  int     `json:"chunk_max_size"`
	TopK          int     `json:"top_k"`
	MinScore      float32 `json:"min_score"`
	ContextScore  float32 `json:"context_score"`
	EmbeddingDims int     `json:"embedding_dims"`
}

type SnapshotConfig struct {
	Enable   bool        `json:"enable"`
	Type     string      `json:"type"`
	KeepDays int         `json:"keep_days"`
	Data     interface{} `json:"data"`
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
	if cfg.DBDsn == "" {
		return nil, fmt.Errorf("db_dsn is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "./migrations"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 10000
	}
	if cfg.Shop.BaseURL == "" {
		return nil, fmt.Errorf("shop.base_url is required")
	}
	if cfg.Shop.RequestsPerSec == 0 {
		cfg.Shop.RequestsPerSec = 2
	}
	if cfg.Shop.Timeout == 0 {
		cfg.Shop.Timeout = 30
	}
	if cfg.Shop.PageLimit == 0 {
		cfg.Shop.PageLimit = 250
	}
	if cfg.Sync.TickSpec == "" {
		cfg.Sync.TickSpec = "* * * * *"
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 3
	}
	if cfg.Sync.BatchPause == 0 {
		cfg.Sync.BatchPause = 2
	}
	if cfg.Retrieval.ChunkMaxSize == 0 {
		cfg.Retrieval.ChunkMaxSize = 1000
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = 0.3
	}
	if cfg.Retrieval.ContextScore == 0 {
		cfg.Retrieval.ContextScore = 0.7
	}
	if cfg.Retrieval.EmbeddingDims == 0 {
		cfg.Retrieval.EmbeddingDims = 768
	}
	if cfg.Snapshot.Enable {
		if cfg.Snapshot.Type == "" {
			cfg.Snapshot.Type = "local"
		}
		if cfg.Snapshot.KeepDays == 0 {
			cfg.Snapshot.KeepDays = 30
		}
	}
	return &cfg, nil
}
