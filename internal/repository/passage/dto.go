package passage

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/askdex/internal/db"
	"github.com/kailas-cloud/askdex/internal/domain"
	"github.com/kailas-cloud/askdex/internal/domain/passage"
)

const (
	indexName = domain.KeyPrefix + "passages:idx"
	keyPrefix = domain.KeyPrefix + "passage:"

	fieldContent    = "__content"
	fieldVector     = "vector"
	fieldDocumentID = "document_id"
	fieldOrdinal    = "ordinal"
)

// passageKey builds "askdex:passage:{documentID}:{ordinal}".
func passageKey(documentID string, ordinal int) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, documentID, ordinal)
}

// documentPattern matches every chunk key of one document.
func documentPattern(documentID string) string {
	return keyPrefix + documentID + ":*"
}

// entryToPassage hydrates a passage from a search hit's return fields.
func entryToPassage(entry db.SearchEntry) (passage.Passage, error) {
	return fieldsToPassage(entry.Key, entry.Fields)
}

func fieldsToPassage(key string, fields map[string]string) (passage.Passage, error) {
	documentID := fields[fieldDocumentID]
	if documentID == "" {
		return passage.Passage{}, fmt.Errorf("key %s: missing document_id", key)
	}

	// the ordinal field is authoritative; the key suffix is a fallback
	// for records written before the field existed
	ordinal, err := strconv.Atoi(fields[fieldOrdinal])
	if err != nil {
		suffix := key[strings.LastIndex(key, ":")+1:]
		ordinal, err = strconv.Atoi(suffix)
		if err != nil {
			return passage.Passage{}, fmt.Errorf("key %s: bad ordinal", key)
		}
	}

	content := fields[fieldContent]
	if content == "" {
		return passage.Passage{}, fmt.Errorf("key %s: empty content", key)
	}

	return passage.Reconstruct(key, documentID, ordinal, content), nil
}

// vectorToBytes serializes a vector as little-endian float32 bytes.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
