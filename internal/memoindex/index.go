// Package memoindex keeps an embedded catalog of completed computations.
//
// The index is advisory: the store directories on disk remain the source
// of truth for completion, and every entry here can be rebuilt from them.
// Callers are expected to tolerate an unavailable index (for example when
// another process holds the database lock) and fall back to scanning.
package memoindex

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "memo/"

// Entry records one completed computation.
type Entry struct {
	Digest     string    `json:"digest"`
	App        string    `json:"app"`
	RunID      string    `json:"run_id"`
	Dir        string    `json:"dir"`
	FinishedAt time.Time `json:"finished_at"`
}

// Index is a Badger-backed catalog keyed by parameter digest.
type Index struct {
	db *badger.DB
}

// slogAdapter bridges Badger's logger interface onto slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Errorf(format string, args ...any)   { a.logger.Error(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Warningf(format string, args ...any) { a.logger.Warn(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Infof(format string, args ...any)    { a.logger.Debug(fmt.Sprintf(format, args...)) }
func (a slogAdapter) Debugf(format string, args ...any)   { a.logger.Debug(fmt.Sprintf(format, args...)) }

// Open opens or creates the index database at path. Badger's own chatter
// is routed to logger at debug level, or silenced when logger is nil.
func Open(path string, logger *slog.Logger) (*Index, error) {
	opts := badger.DefaultOptions(path)
	if logger != nil {
		opts = opts.WithLogger(slogAdapter{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open memo index at %q: %w", path, err)
	}
	return &Index{db: db}, nil
}

// Close releases the database and its directory lock.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// Record stores or overwrites the entry for its digest.
func (ix *Index) Record(e Entry) error {
	if e.Digest == "" {
		return fmt.Errorf("record memo entry: digest is empty")
	}

	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("record memo entry %q: %w", e.Digest, err)
	}

	err = ix.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+e.Digest), value)
	})
	if err != nil {
		return fmt.Errorf("record memo entry %q: %w", e.Digest, err)
	}
	return nil
}

// Get looks up the entry for a digest. The second return value reports
// whether the digest was present.
func (ix *Index) Get(digest string) (Entry, bool, error) {
	var e Entry
	found := false

	err := ix.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + digest))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("look up memo entry %q: %w", digest, err)
	}
	return e, found, nil
}

// List returns every recorded entry in digest order.
func (ix *Index) List() ([]Entry, error) {
	var entries []Entry

	err := ix.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list memo entries: %w", err)
	}
	return entries, nil
}

// Forget removes the entry for a digest. Removing an absent digest is not
// an error; the index only mirrors what the store directories hold.
func (ix *Index) Forget(digest string) error {
	err := ix.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + digest))
	})
	if err != nil {
		return fmt.Errorf("forget memo entry %q: %w", digest, err)
	}
	return nil
}
