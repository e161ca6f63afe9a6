package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"hermannm.dev/wrap"
)

type Config struct {
	BaseConfig
	ClickHouse    ClickHouse
	Elasticsearch Elasticsearch
}

type BaseConfig struct {
	IsProduction bool        `env:"PRODUCTION"`
	DB           SupportedDB `env:"DATABASE"`
	API          API
	Engine       Engine
}

type API struct {
	Port string `env:"API_PORT"`
}

type Engine struct {
	// URL of the engine update manifest. Blank disables update checks.
	UpdateManifestURL string `env:"ENGINE_UPDATE_MANIFEST_URL" envDefault:""`
	// Directory for persisted engine state and fetched artifacts. Blank keeps
	// state in memory only.
	StateDir string `env:"ENGINE_STATE_DIR" envDefault:""`
	Version  string `env:"ENGINE_VERSION" envDefault:"1.0.0"`
}

type ClickHouse struct {
	Address      string `env:"CLICKHOUSE_ADDRESS"`
	DatabaseName string `env:"CLICKHOUSE_DB_NAME"`
	Username     string `env:"CLICKHOUSE_USERNAME"`
	Password     string `env:"CLICKHOUSE_PASSWORD"`
	Debug        bool   `env:"CLICKHOUSE_DEBUG_ENABLED"`
}

type Elasticsearch struct {
	Address string `env:"ELASTICSEARCH_ADDRESS"`
	Debug   bool   `env:"ELASTICSEARCH_DEBUG_ENABLED"`
}

type SupportedDB string

const (
	DBClickHouse    SupportedDB = "clickhouse"
	DBElasticsearch SupportedDB = "elasticsearch"
	DBMemory        SupportedDB = "memory"
)

func ReadFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil {
		return Config{}, wrap.Error(err, "failed to load .env file")
	}

	parseOptions := env.Options{RequiredIfNoDef: true}

	var config Config

	if err := env.ParseWithOptions(&config.BaseConfig, parseOptions); err != nil {
		return Config{}, err
	}

	switch config.DB {
	case DBClickHouse:
		if err := env.ParseWithOptions(&config.ClickHouse, parseOptions); err != nil {
			return Config{}, err
		}
	case DBElasticsearch:
		if err := env.ParseWithOptions(&config.Elasticsearch, parseOptions); err != nil {
			return Config{}, err
		}
	case DBMemory:
		// No connection settings to read
	default:
		err := fmt.Errorf(
			"must be one of: '%s', '%s', '%s'", DBClickHouse, DBElasticsearch, DBMemory,
		)
		return Config{}, wrap.Errorf(err, "unsupported value '%s' for DATABASE in env", config.DB)
	}

	return config, nil
}
