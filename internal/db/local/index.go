package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/kailas-cloud/askdex/internal/db"
)

// CreateIndex creates a bleve index for the definition and persists it.
// Existing matching keys are backfilled so indexes created after data
// loads still cover the corpus.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexes[def.Name]; ok {
		return db.ErrIndexExists
	}

	h, err := s.openHandle(def, true)
	if err != nil {
		return err
	}

	encoded := encodeIndexDef(def)
	err = s.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(internalPrefix+def.Name), encoded)
	})
	if err != nil {
		h.idx.Close()
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	s.indexes[def.Name] = h

	if err := s.backfill(ctx, h); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex closes and removes a bleve index and its definition.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.indexes[name]
	if !ok {
		return db.ErrIndexNotFound
	}

	if err := h.idx.Close(); err != nil {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	delete(s.indexes, name)

	if !s.inMemory {
		if err := os.RemoveAll(s.indexPath(name)); err != nil {
			return &db.Error{Op: db.OpDropIndex, Err: err}
		}
	}

	err := s.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(internalPrefix + name))
	})
	if err != nil {
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists reports whether an index with the given name is registered.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexes[name]
	return ok, nil
}

// SupportsTextSearch returns true: bleve provides full-text scoring.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return true
}

func (s *Store) indexPath(name string) string {
	return filepath.Join(s.path, "idx", name)
}

// openHandle opens (or creates) the bleve index behind a definition.
func (s *Store) openHandle(def *db.IndexDefinition, create bool) (*indexHandle, error) {
	imap, vectorField, err := buildMapping(def)
	if err != nil {
		return nil, err
	}

	var idx bleve.Index
	switch {
	case s.inMemory:
		idx, err = bleve.NewMemOnly(imap)
	case create:
		idx, err = bleve.New(s.indexPath(def.Name), imap)
	default:
		idx, err = bleve.Open(s.indexPath(def.Name))
	}
	if err != nil {
		return nil, fmt.Errorf("open index %s: %w", def.Name, err)
	}

	return &indexHandle{def: def, idx: idx, vectorField: vectorField}, nil
}

// buildMapping translates an index definition into a bleve mapping.
// TAG fields use the keyword analyzer so exact TermQuery matches work.
// Vector fields stay out of bleve; KNN runs over the badger scan.
func buildMapping(def *db.IndexDefinition) (mapping.IndexMapping, string, error) {
	docMapping := mapping.NewDocumentMapping()
	vectorField := ""

	for i := range def.Fields {
		f := &def.Fields[i]
		name := f.Name
		if f.Alias != "" {
			name = f.Alias
		}

		switch f.Type {
		case db.IndexFieldText:
			fm := mapping.NewTextFieldMapping()
			docMapping.AddFieldMappingsAt(name, fm)

		case db.IndexFieldTag:
			fm := mapping.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
			docMapping.AddFieldMappingsAt(name, fm)

		case db.IndexFieldNumeric:
			fm := mapping.NewNumericFieldMapping()
			docMapping.AddFieldMappingsAt(name, fm)

		case db.IndexFieldVector:
			if vectorField != "" {
				return nil, "", fmt.Errorf("index %s: multiple vector fields", def.Name)
			}
			vectorField = name

		default:
			return nil, "", fmt.Errorf("index %s: unknown field type for %s", def.Name, name)
		}
	}

	imap := bleve.NewIndexMapping()
	imap.DefaultMapping = docMapping
	return imap, vectorField, nil
}

// backfill indexes all existing keys under the definition's prefixes.
func (s *Store) backfill(ctx context.Context, h *indexHandle) error {
	for _, prefix := range h.def.Prefixes {
		err := s.badgerDB.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				item := it.Item()
				key := string(item.Key())

				var fields map[string]string
				err := item.Value(func(val []byte) error {
					var derr error
					fields, derr = decodeFields(val)
					return derr
				})
				if err != nil {
					continue // non-hash value under the prefix
				}

				if err := h.indexDocument(key, fields); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// indexDocument feeds a hash into bleve, skipping the vector payload.
func (h *indexHandle) indexDocument(key string, fields map[string]string) error {
	doc := make(map[string]any, len(fields))
	for name, value := range fields {
		if name == h.vectorField {
			continue
		}
		if isNumericField(h.def, name) {
			if num, err := strconv.ParseFloat(value, 64); err == nil {
				doc[name] = num
				continue
			}
		}
		doc[name] = value
	}
	return h.idx.Index(key, doc)
}

func isNumericField(def *db.IndexDefinition, name string) bool {
	for i := range def.Fields {
		f := &def.Fields[i]
		fieldName := f.Name
		if f.Alias != "" {
			fieldName = f.Alias
		}
		if fieldName == name {
			return f.Type == db.IndexFieldNumeric
		}
	}
	return false
}
