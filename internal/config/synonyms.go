package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Synonyms serves a query synonym table that can be hot-reloaded from a
// YAML file. Snapshot is safe for concurrent use.
type Synonyms struct {
	table   atomic.Pointer[map[string][]string]
	watcher *fsnotify.Watcher
	log     *zap.Logger
	done    chan struct{}
}

// NewSynonyms builds a synonym source from the static table. When path
// is non-empty the file contents replace the static table and the file
// is watched for changes; a broken update keeps the previous table.
func NewSynonyms(static map[string][]string, path string, log *zap.Logger) (*Synonyms, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Synonyms{log: log, done: make(chan struct{})}

	table := static
	if table == nil {
		table = map[string][]string{}
	}
	s.table.Store(&table)

	if path == "" {
		return s, nil
	}

	loaded, err := loadSynonymsFile(path)
	if err != nil {
		return nil, err
	}
	s.table.Store(&loaded)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create synonyms watcher: %w", err)
	}
	// Watch the directory: editors and configmap mounts replace the file
	// rather than writing it in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch synonyms dir: %w", err)
	}
	s.watcher = watcher
	go s.watch(path)

	return s, nil
}

// Snapshot returns the current table. Callers must not mutate it.
func (s *Synonyms) Snapshot() map[string][]string { return *s.table.Load() }

// Close stops the file watcher.
func (s *Synonyms) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	return s.watcher.Close()
}

func (s *Synonyms) watch(path string) {
	base := filepath.Base(path)
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			loaded, err := loadSynonymsFile(path)
			if err != nil {
				s.log.Warn("synonyms reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			s.table.Store(&loaded)
			s.log.Info("synonyms reloaded", zap.String("path", path), zap.Int("terms", len(loaded)))
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("synonyms watcher error", zap.Error(err))
		}
	}
}

func loadSynonymsFile(path string) (map[string][]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read synonyms %s: %w", path, err)
	}

	var table map[string][]string
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse synonyms %s: %w", path, err)
	}
	if table == nil {
		table = map[string][]string{}
	}
	return table, nil
}
