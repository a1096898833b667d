package local

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/askdex/internal/db"
)

// HSet stores hash fields and updates any covering bleve index.
func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	return s.HSetMulti(ctx, []db.HashSetItem{{Key: key, Fields: fields}})
}

// HSetMulti stores multiple hashes in a single badger transaction.
func (s *Store) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.badgerDB.Update(func(txn *badger.Txn) error {
		for _, item := range items {
			if err := txn.Set([]byte(item.Key), encodeFields(item.Fields)); err != nil {
				return fmt.Errorf("key %s: %w", item.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return &db.Error{Op: db.OpHSet, Err: err}
	}

	for _, item := range items {
		for _, h := range s.matchingHandles(item.Key) {
			if err := h.indexDocument(item.Key, item.Fields); err != nil {
				return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("index key %s: %w", item.Key, err)}
			}
		}
	}
	return nil
}

// HGetAll returns all fields of a hash. Missing keys yield an empty map,
// mirroring HGETALL semantics.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	var fields map[string]string

	err := s.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var derr error
			fields, derr = decodeFields(val)
			return derr
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Err: err}
	}
	return fields, nil
}

// HGetAllMulti fetches all fields for multiple hashes.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		fields, err := s.HGetAll(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("HGetAllMulti key %s: %w", key, err)
		}
		out[i] = fields
	}
	return out, nil
}

// Del deletes a key and removes it from covering indexes.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return &db.Error{Op: db.OpDel, Err: err}
	}

	for _, h := range s.matchingHandles(key) {
		if err := h.idx.Delete(key); err != nil {
			return &db.Error{Op: db.OpDel, Err: err}
		}
	}
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	err := s.badgerDB.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return true, nil
}

// Scan iterates keys matching a glob-style pattern. Only the trailing
// wildcard form ("prefix*") and exact keys are supported; that covers
// every pattern the repositories use.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	prefix, exact := pattern, true
	if strings.HasSuffix(pattern, "*") {
		prefix, exact = pattern[:len(pattern)-1], false
	}

	var keys []string
	err := s.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.IteratorOptions{Prefix: []byte(prefix)}
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, internalPrefix) {
				continue
			}
			if exact && key != pattern {
				continue
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpScan, Err: err}
	}
	return keys, nil
}
