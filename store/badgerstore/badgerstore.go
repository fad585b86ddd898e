// Package badgerstore persists session results in an embedded Badger
// key/value database. Records are JSON encoded under "result:<key>".
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/roundtable/core"
	"github.com/hupe1980/roundtable/logging"
	"github.com/hupe1980/roundtable/store"
)

const prefix = "result:"

// Compile-time check.
var _ core.ResultStore = (*Store)(nil)

// Options configures a Store.
type Options struct {
	Logger logging.Logger
}

// Store is a Badger-backed ResultStore.
type Store struct {
	db     *badger.DB
	owned  bool
	logger logging.Logger
}

// Open opens (or creates) a database in dir.
func Open(dir string, optFns ...func(o *Options)) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dir, err)
	}
	s := NewFromDB(db, optFns...)
	s.owned = true
	return s, nil
}

// OpenInMemory opens a volatile database.
func OpenInMemory(optFns ...func(o *Options)) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open in-memory badger: %w", err)
	}
	s := NewFromDB(db, optFns...)
	s.owned = true
	return s, nil
}

// NewFromDB wraps an open database. The caller keeps ownership of db.
func NewFromDB(db *badger.DB, optFns ...func(o *Options)) *Store {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{db: db, logger: logging.OrNoOp(opts.Logger)}
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Save stores result under its key.
func (s *Store) Save(ctx context.Context, result *core.SessionResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, err := store.Prepare(result)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode result %q: %w", r.Key, err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefix+r.Key), data)
	}); err != nil {
		return "", fmt.Errorf("store result %q: %w", r.Key, err)
	}

	s.logger.Debug("result saved", "key", r.Key, "bytes", len(data))
	return r.Key, nil
}

// Get loads a stored result.
func (s *Store) Get(ctx context.Context, key string) (*core.SessionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r core.SessionResult
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &r) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("result %q: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load result %q: %w", key, err)
	}
	return &r, nil
}

// List returns every stored result, newest first.
func (s *Store) List(ctx context.Context) ([]*core.SessionResult, error) {
	var out []*core.SessionResult

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(v []byte) error {
				var r core.SessionResult
				if err := json.Unmarshal(v, &r); err != nil {
					s.logger.Warn("skipping undecodable result", "key", string(item.Key()), "error", err)
					return nil
				}
				out = append(out, &r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	store.SortNewestFirst(out)
	return out, nil
}

// Delete removes a stored result.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		k := []byte(prefix + key)
		if _, err := txn.Get(k); err != nil {
			return err
		}
		return txn.Delete(k)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("result %q: %w", key, core.ErrNotFound)
	}
	return err
}
