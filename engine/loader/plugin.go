package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"plugin"

	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/engine"
	"hermannm.dev/dashboard/schema"
	"hermannm.dev/wrap"
)

// EngineConstructor is the symbol every engine plugin must export as
// 'NewEngine'.
type EngineConstructor = func(db.RecordStore, schema.Provider, string) engine.Engine

// PluginRuntime loads engine artifacts as pre-compiled Go plugins. Artifacts
// are written to a directory first since the plugin package only opens files,
// and kept there for inspection after loading.
type PluginRuntime struct {
	store   db.RecordStore
	schemas schema.Provider
	dir     string
}

func NewPluginRuntime(store db.RecordStore, schemas schema.Provider, dir string) (PluginRuntime, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return PluginRuntime{}, wrap.Errorf(err, "failed to create engine plugin directory '%s'", dir)
	}
	return PluginRuntime{store: store, schemas: schemas, dir: dir}, nil
}

func (runtime PluginRuntime) Load(version string, artifact []byte) (engine.Engine, error) {
	if len(artifact) == 0 {
		return nil, errors.New("engine artifact is empty")
	}

	path := filepath.Join(runtime.dir, fmt.Sprintf("engine-%s.so", version))
	if err := os.WriteFile(path, artifact, 0o644); err != nil {
		return nil, wrap.Errorf(err, "failed to write engine artifact to '%s'", path)
	}

	loadedPlugin, err := plugin.Open(path)
	if err != nil {
		return nil, wrap.Errorf(err, "failed to open engine plugin for version %s", version)
	}

	symbol, err := loadedPlugin.Lookup("NewEngine")
	if err != nil {
		return nil, wrap.Errorf(err, "engine plugin version %s exports no NewEngine", version)
	}

	constructor, isConstructor := symbol.(EngineConstructor)
	if !isConstructor {
		return nil, fmt.Errorf(
			"NewEngine in engine plugin version %s has wrong type %T", version, symbol,
		)
	}

	loadedEngine := constructor(runtime.store, runtime.schemas, version)
	if loadedEngine == nil {
		return nil, fmt.Errorf("NewEngine in engine plugin version %s returned nil", version)
	}
	return loadedEngine, nil
}
