package datastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// File names inside a store directory. ParamsFile and ResultsFile are
// written during a run; MarkerFile lands last and atomically, so its valid
// presence is the completeness criterion.
const (
	ParamsFile  = "params.json"
	ResultsFile = "results.json"
	MarkerFile  = "meta.json"
)

// StatusComplete marks a directory whose run finished and persisted
// everything it intended to.
const StatusComplete = "complete"

// ErrIncomplete reports a store directory that cannot serve a load because
// no valid completion marker is present.
var ErrIncomplete = errors.New("datastore: directory is incomplete")

// ErrConflict reports a store directory whose persisted parameters do not
// match the tree currently resolving to it.
var ErrConflict = errors.New("datastore: directory holds conflicting parameters")

// Meta is the completion marker's content: the identity of the run that
// populated the directory.
type Meta struct {
	Status     string    `json:"status"`
	App        string    `json:"app"`
	Digest     string    `json:"digest"`
	RunID      string    `json:"run_id"`
	Version    string    `json:"version,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// WriteMeta persists the marker atomically. Callers must only invoke this
// after every other file in the store has been flushed.
func WriteMeta(s Store, m *Meta) error {
	path, err := s.Path(MarkerFile)
	if err != nil {
		return err
	}
	return WriteJSONAtomic(path, m)
}

// ReadMeta loads and validates the store's marker. Sub-stores carry their
// own marker, distinct from their owner's.
func ReadMeta(s Store) (*Meta, error) {
	path, err := s.File(MarkerFile)
	if err != nil {
		return nil, fmt.Errorf("datastore: locating marker in %s: %w", s, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no marker in %s", ErrIncomplete, s)
		}
		return nil, fmt.Errorf("datastore: reading marker in %s: %w", s, err)
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: unparsable marker in %s", ErrIncomplete, s)
	}
	return &m, nil
}

// IsComplete reports whether the store holds a finished result set: the
// marker parses, declares completion, and the parameter dump is present.
// A store left behind by a crashed or interrupted run fails this check
// and will be recomputed rather than loaded.
func IsComplete(s Store) bool {
	m, err := ReadMeta(s)
	if err != nil || m.Status != StatusComplete {
		return false
	}
	return s.Exists(ParamsFile)
}
