// Package loader manages which engine implementation serves requests. It
// resolves operation names to typed engine calls, hot-swaps engine versions
// fetched as pre-compiled artifacts, falls back to the previous version when
// the current one fails, and persists engine state across restarts.
package loader

import (
	"context"
	"fmt"
	"sync"

	"hermannm.dev/dashboard/engine"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

type Loader struct {
	mutex   sync.RWMutex
	runtime Runtime
	state   *StateStore

	current engineVersion
	// Kept loaded so fallback needs no artifact round-trip. nil until the
	// first successful update.
	previous *engineVersion
}

type engineVersion struct {
	version string
	engine  engine.Engine
}

var (
	singleton     *Loader
	singletonOnce sync.Once
)

// InitLoader creates the process-wide loader on first call, restoring a
// previously persisted engine version if one exists. Later calls return the
// existing instance unchanged: one loader owns engine state per process.
func InitLoader(builtin engine.Engine, runtime Runtime, state *StateStore) *Loader {
	singletonOnce.Do(func() {
		singleton = NewLoader(builtin, runtime, state)
	})
	return singleton
}

// NewLoader creates a loader serving the given built-in engine, restoring a
// persisted engine version from the state store if one exists.
func NewLoader(builtin engine.Engine, runtime Runtime, state *StateStore) *Loader {
	loader := &Loader{
		runtime: runtime,
		state:   state,
		current: engineVersion{version: builtin.Version(), engine: builtin},
	}

	record, err := state.GetOrCreateRecord()
	if err != nil {
		log.ErrorCause(err, "failed to read persisted engine state, starting from built-in engine")
		return loader
	}

	if len(record.Artifact) != 0 {
		if restored, err := runtime.Load(record.Version, record.Artifact); err == nil {
			loader.current = engineVersion{version: record.Version, engine: restored}
			log.Infof("restored engine version %s from persisted state", record.Version)
		} else {
			log.ErrorCause(err, fmt.Sprintf(
				"failed to restore persisted engine version %s, using built-in engine",
				record.Version,
			))
		}
	}

	if len(record.PreviousArtifact) != 0 {
		if restored, err := runtime.Load(record.PreviousVersion, record.PreviousArtifact); err == nil {
			loader.previous = &engineVersion{version: record.PreviousVersion, engine: restored}
		} else {
			log.ErrorCause(err, fmt.Sprintf(
				"failed to restore previous engine version %s", record.PreviousVersion,
			))
		}
	}

	return loader
}

// CurrentVersion returns the version of the engine currently serving requests.
func (loader *Loader) CurrentVersion() string {
	loader.mutex.RLock()
	defer loader.mutex.RUnlock()
	return loader.current.version
}

// Execute runs the named operation on the current engine. If the current
// engine fails (by error or panic) and a previous version is loaded, the
// operation is retried once on the previous version, so a bad engine update
// degrades to stale behavior instead of an outage.
func (loader *Loader) Execute(
	ctx context.Context,
	operationName string,
	params Parameters,
) (any, error) {
	operation, err := ParseOperation(operationName)
	if err != nil {
		return nil, err
	}

	loader.mutex.RLock()
	current := loader.current
	previous := loader.previous
	loader.mutex.RUnlock()

	result, err := safeRunOperation(ctx, current.engine, operation, params)
	if err == nil {
		return result, nil
	}

	if previous == nil || previous.version == current.version {
		return nil, err
	}

	log.ErrorCause(err, fmt.Sprintf(
		"operation '%v' failed on engine version %s, falling back to version %s",
		operation, current.version, previous.version,
	))

	fallbackResult, fallbackErr := safeRunOperation(ctx, previous.engine, operation, params)
	if fallbackErr != nil {
		return nil, wrap.Errors(
			fmt.Sprintf("operation '%v' failed on both current and previous engine", operation),
			err, fallbackErr,
		)
	}
	return fallbackResult, nil
}

// safeRunOperation contains panics from a loaded engine, so a broken artifact
// cannot take the process down.
func safeRunOperation(
	ctx context.Context,
	currentEngine engine.Engine,
	operation Operation,
	params Parameters,
) (result any, err error) {
	defer func() {
		if panicked := recover(); panicked != nil {
			result = nil
			err = fmt.Errorf("engine panicked during operation '%v': %v", operation, panicked)
		}
	}()

	return runOperation(ctx, currentEngine, operation, params)
}
