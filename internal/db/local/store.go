// Package local implements db.Store on embedded storage: BadgerDB for
// key-value and hash data, bleve for full-text indexes, and a brute-force
// scan for vector similarity. It needs no external services, which makes
// it the driver for single-node deployments and tests.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// internalPrefix guards bookkeeping keys from user-facing Scan patterns.
const internalPrefix = "\x00idx:"

// Config holds parameters for an embedded store.
type Config struct {
	Path     string // data directory; ignored when InMemory
	InMemory bool
	Logger   *zap.Logger
}

// Store implements db.Store on BadgerDB + bleve.
type Store struct {
	badgerDB *badger.DB
	path     string
	inMemory bool
	log      *zap.Logger

	mu      sync.RWMutex
	indexes map[string]*indexHandle
}

type indexHandle struct {
	def         *db.IndexDefinition
	idx         bleve.Index
	vectorField string
}

// badgerLogger adapts zap to the badger.Logger interface.
type badgerLogger struct {
	log *zap.SugaredLogger
}

var _ badger.Logger = (*badgerLogger)(nil)

func (l *badgerLogger) Errorf(msg string, args ...any)   { l.log.Errorf(strings.TrimSpace(msg), args...) }
func (l *badgerLogger) Warningf(msg string, args ...any) { l.log.Warnf(strings.TrimSpace(msg), args...) }
func (l *badgerLogger) Infof(msg string, args ...any)    { l.log.Debugf(strings.TrimSpace(msg), args...) }
func (l *badgerLogger) Debugf(msg string, args ...any)   { l.log.Debugf(strings.TrimSpace(msg), args...) }

// NewStore opens an embedded store at cfg.Path, or fully in memory.
// Index definitions persisted by earlier runs are reopened.
func NewStore(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("path is required")
		}
		dataDir := filepath.Join(cfg.Path, "kv")
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		opts = badger.DefaultOptions(dataDir)
	}
	opts.Logger = &badgerLogger{log: log.Named("badger").Sugar()}
	opts.Compression = options.None

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &Store{
		badgerDB: bdb,
		path:     cfg.Path,
		inMemory: cfg.InMemory,
		log:      log,
		indexes:  make(map[string]*indexHandle),
	}

	if err := s.reopenIndexes(); err != nil {
		bdb.Close()
		return nil, err
	}

	return s, nil
}

// reopenIndexes restores index handles from persisted definitions.
func (s *Store) reopenIndexes() error {
	return s.badgerDB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(internalPrefix)})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var def *db.IndexDefinition
			err := it.Item().Value(func(val []byte) error {
				var derr error
				def, derr = decodeIndexDef(val)
				return derr
			})
			if err != nil {
				return fmt.Errorf("decode index definition: %w", err)
			}

			h, err := s.openHandle(def, false)
			if err != nil {
				return err
			}
			s.indexes[def.Name] = h
		}
		return nil
	})
}

// Ping checks that the store is open.
func (s *Store) Ping(_ context.Context) error {
	if s.badgerDB.IsClosed() {
		return fmt.Errorf("ping: store is closed")
	}
	return nil
}

// Close shuts down bleve indexes and the badger database.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, h := range s.indexes {
		if err := h.idx.Close(); err != nil {
			s.log.Warn("close index", zap.String("index", name), zap.Error(err))
		}
	}
	s.indexes = make(map[string]*indexHandle)

	if err := s.badgerDB.Close(); err != nil {
		s.log.Warn("close badger", zap.Error(err))
	}
}

// WaitForReady reports readiness; an embedded store is ready once opened.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// matchingHandles returns indexes whose key prefixes cover the given key.
// Callers must hold s.mu.
func (s *Store) matchingHandles(key string) []*indexHandle {
	var out []*indexHandle
	for _, h := range s.indexes {
		for _, p := range h.def.Prefixes {
			if strings.HasPrefix(key, p) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}
