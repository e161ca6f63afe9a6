package loader

import (
	"hermannm.dev/dashboard/db"
	"hermannm.dev/dashboard/engine"
	"hermannm.dev/dashboard/schema"
)

// Runtime turns a fetched engine artifact into a running engine
// implementation. Loading must not affect the engine currently serving
// requests: the loader only swaps after a successful load and validation.
type Runtime interface {
	Load(version string, artifact []byte) (engine.Engine, error)
}

// BuiltinRuntime ignores artifacts and always constructs the built-in engine
// at the requested version. Used in development and in deployments where
// engine updates only bump the version they report, not the behavior.
type BuiltinRuntime struct {
	store   db.RecordStore
	schemas schema.Provider
}

func NewBuiltinRuntime(store db.RecordStore, schemas schema.Provider) BuiltinRuntime {
	return BuiltinRuntime{store: store, schemas: schemas}
}

func (runtime BuiltinRuntime) Load(version string, artifact []byte) (engine.Engine, error) {
	return engine.NewCore(runtime.store, runtime.schemas, version), nil
}
