package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"hermannm.dev/dashboard/api"
	"hermannm.dev/dashboard/config"
	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/db/clickhouse"
	"hermannm.dev/dashboard/db/elasticsearch"
	"hermannm.dev/dashboard/db/memory"
	"hermannm.dev/dashboard/engine"
	"hermannm.dev/dashboard/engine/loader"
	"hermannm.dev/dashboard/schema"
	"hermannm.dev/devlog"
	"hermannm.dev/devlog/log"
)

func main() {
	logHandler := devlog.NewHandler(os.Stdout, &devlog.Options{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(logHandler))

	conf, err := config.ReadFromEnv()
	if err != nil {
		log.ErrorCause(err, "failed to read config from env")
		os.Exit(1)
	}

	log.Infof("Connecting to %s...", conf.DB)
	store, schemas, err := connectRecordStore(conf)
	if err != nil {
		log.ErrorCause(err, "failed to initialize record store")
		os.Exit(1)
	}

	state, err := openStateStore(conf)
	if err != nil {
		log.ErrorCause(err, "failed to open engine state store")
		os.Exit(1)
	}
	defer state.Close()

	engineLoader := loader.InitLoader(
		engine.NewCore(store, schemas, conf.Engine.Version),
		engineRuntime(conf, store, schemas),
		state,
	)

	dashboardAPI := api.NewDashboardAPI(engineLoader, http.DefaultServeMux, conf.BaseConfig)

	log.Infof("Listening on port %s...", conf.API.Port)
	if err := dashboardAPI.ListenAndServe(); err != nil {
		log.ErrorCause(err, "server stopped")
		os.Exit(1)
	}
}

func connectRecordStore(conf config.Config) (db.RecordStore, schema.Provider, error) {
	switch conf.DB {
	case config.DBClickHouse:
		clickhouseDB, err := clickhouse.NewClickHouseDB(conf.ClickHouse)
		return clickhouseDB, clickhouseDB, err
	case config.DBElasticsearch:
		elasticDB, err := elasticsearch.NewElasticsearchDB(conf.Elasticsearch)
		return elasticDB, elasticDB, err
	case config.DBMemory:
		memoryDB := memory.NewMemoryDB()
		return memoryDB, memoryDB, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database '%s'", conf.DB)
	}
}

func openStateStore(conf config.Config) (*loader.StateStore, error) {
	if conf.Engine.StateDir == "" {
		return loader.OpenInMemoryStateStore()
	}
	return loader.OpenStateStore(filepath.Join(conf.Engine.StateDir, "state"))
}

func engineRuntime(
	conf config.Config,
	store db.RecordStore,
	schemas schema.Provider,
) loader.Runtime {
	if conf.Engine.StateDir == "" {
		return loader.NewBuiltinRuntime(store, schemas)
	}

	runtime, err := loader.NewPluginRuntime(
		store, schemas, filepath.Join(conf.Engine.StateDir, "artifacts"),
	)
	if err != nil {
		log.ErrorCause(err, "failed to set up plugin runtime, engine updates load as built-in")
		return loader.NewBuiltinRuntime(store, schemas)
	}
	return runtime
}
