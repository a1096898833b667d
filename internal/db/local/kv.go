package local

import (
	"context"
	"errors"
	"strconv"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/askdex/internal/db"
)

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.badgerDB.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// IncrBy increments a counter stored as a decimal string, matching the
// INCRBY wire representation so both drivers read the same bytes back.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	err := s.badgerDB.Update(func(txn *badger.Txn) error {
		var current int64
		item, err := txn.Get([]byte(key))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// counter starts at zero
		case err != nil:
			return err
		default:
			verr := item.Value(func(v []byte) error {
				parsed, perr := strconv.ParseInt(string(v), 10, 64)
				if perr != nil {
					return perr
				}
				current = parsed
				return nil
			})
			if verr != nil {
				return verr
			}
		}
		return txn.Set([]byte(key), []byte(strconv.FormatInt(current+val, 10)))
	})
	if err != nil {
		return &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return nil
}

// Expire sets TTL on an existing key by rewriting the entry. When nx=true,
// the TTL is applied only if the key has no expiry yet (EXPIRE NX).
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	err := s.badgerDB.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if nx && item.ExpiresAt() != 0 {
			return nil
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entry := badger.NewEntry([]byte(key), value).WithTTL(ttl).WithMeta(item.UserMeta())
		return txn.SetEntry(entry)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil // EXPIRE on a missing key is a no-op
	}
	if err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}
