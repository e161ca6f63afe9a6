package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"hermannm.dev/wrap"
)

// StateStore persists engine versions and their artifacts across process
// restarts, so an updated engine survives a redeploy without re-fetching.
type StateStore struct {
	db *badger.DB
}

const engineRecordKey = "engine_state"

// Engine versions start here before any update has been applied.
const initialEngineVersion = "0.0.0"

func OpenStateStore(dir string) (*StateStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, wrap.Errorf(err, "failed to open engine state store in '%s'", dir)
	}
	return &StateStore{db: db}, nil
}

// OpenInMemoryStateStore opens a store that vanishes on close, for tests and
// ephemeral deployments.
func OpenInMemoryStateStore() (*StateStore, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, wrap.Error(err, "failed to open in-memory engine state store")
	}
	return &StateStore{db: db}, nil
}

func (store *StateStore) Close() error {
	return store.db.Close()
}

// EngineRecord is the persisted engine state: the active version with its
// artifact, the previous version kept for fallback, and a log of update
// attempts.
type EngineRecord struct {
	Version          string   `json:"version"`
	Artifact         []byte   `json:"artifact,omitempty"`
	PreviousVersion  string   `json:"previous_version,omitempty"`
	PreviousArtifact []byte   `json:"previous_artifact,omitempty"`
	UpdateLog        []string `json:"update_log,omitempty"`
}

// AppendUpdateLog adds a timestamped entry to the record's update history.
func (record *EngineRecord) AppendUpdateLog(format string, args ...any) {
	entry := time.Now().UTC().Format(time.RFC3339) + " " + fmt.Sprintf(format, args...)
	record.UpdateLog = append(record.UpdateLog, entry)
}

// GetOrCreateRecord reads the persisted engine record, creating and persisting
// a default one on first run.
func (store *StateStore) GetOrCreateRecord() (EngineRecord, error) {
	var record EngineRecord

	err := store.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(engineRecordKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			record = EngineRecord{Version: initialEngineVersion}
			serialized, err := json.Marshal(record)
			if err != nil {
				return wrap.Error(err, "failed to serialize initial engine record")
			}
			return txn.Set([]byte(engineRecordKey), serialized)
		}
		if err != nil {
			return err
		}

		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &record)
		})
	})
	if err != nil {
		return EngineRecord{}, wrap.Error(err, "failed to read engine record from state store")
	}

	return record, nil
}

func (store *StateStore) SaveRecord(record EngineRecord) error {
	serialized, err := json.Marshal(record)
	if err != nil {
		return wrap.Error(err, "failed to serialize engine record")
	}

	err = store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(engineRecordKey), serialized)
	})
	if err != nil {
		return wrap.Error(err, "failed to write engine record to state store")
	}
	return nil
}
