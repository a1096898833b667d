package local

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/kailas-cloud/askdex/internal/db"
)

// Hash values and index definitions are persisted in the MUS format:
// compact, schema-less, and cheap to decode on brute-force scans.

func encodeFields(fields map[string]string) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	size := varint.Int.Size(len(fields))
	for _, k := range keys {
		size += ord.String.Size(k) + ord.String.Size(fields[k])
	}

	bs := make([]byte, size)
	n := varint.Int.Marshal(len(fields), bs)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(fields[k], bs[n:])
	}
	return bs
}

func decodeFields(bs []byte) (map[string]string, error) {
	count, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, fmt.Errorf("decode field count: %w", err)
	}

	fields := make(map[string]string, count)
	for i := 0; i < count; i++ {
		k, m, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("decode field name [%d]: %w", i, err)
		}
		n += m

		v, m, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("decode field value %q: %w", k, err)
		}
		n += m

		fields[k] = v
	}
	return fields, nil
}

func encodeIndexDef(def *db.IndexDefinition) []byte {
	size := ord.String.Size(def.Name) +
		ord.String.Size(string(def.StorageType)) +
		varint.Int.Size(len(def.Prefixes))
	for _, p := range def.Prefixes {
		size += ord.String.Size(p)
	}
	size += varint.Int.Size(len(def.Fields))
	for i := range def.Fields {
		size += sizeIndexField(&def.Fields[i])
	}

	bs := make([]byte, size)
	n := ord.String.Marshal(def.Name, bs)
	n += ord.String.Marshal(string(def.StorageType), bs[n:])
	n += varint.Int.Marshal(len(def.Prefixes), bs[n:])
	for _, p := range def.Prefixes {
		n += ord.String.Marshal(p, bs[n:])
	}
	n += varint.Int.Marshal(len(def.Fields), bs[n:])
	for i := range def.Fields {
		n += marshalIndexField(&def.Fields[i], bs[n:])
	}
	return bs
}

func sizeIndexField(f *db.IndexField) int {
	return ord.String.Size(f.Name) +
		ord.String.Size(f.Alias) +
		varint.Int.Size(int(f.Type)) +
		ord.String.Size(f.TagSeparator) +
		ord.Bool.Size(f.TagCaseSensitive) +
		ord.String.Size(string(f.VectorAlgo)) +
		varint.Int.Size(f.VectorDim) +
		ord.String.Size(string(f.VectorDistance)) +
		varint.Int.Size(f.VectorM) +
		varint.Int.Size(f.VectorEFConstruct) +
		varint.Int.Size(f.VectorBlockSize)
}

func marshalIndexField(f *db.IndexField, bs []byte) int {
	n := ord.String.Marshal(f.Name, bs)
	n += ord.String.Marshal(f.Alias, bs[n:])
	n += varint.Int.Marshal(int(f.Type), bs[n:])
	n += ord.String.Marshal(f.TagSeparator, bs[n:])
	n += ord.Bool.Marshal(f.TagCaseSensitive, bs[n:])
	n += ord.String.Marshal(string(f.VectorAlgo), bs[n:])
	n += varint.Int.Marshal(f.VectorDim, bs[n:])
	n += ord.String.Marshal(string(f.VectorDistance), bs[n:])
	n += varint.Int.Marshal(f.VectorM, bs[n:])
	n += varint.Int.Marshal(f.VectorEFConstruct, bs[n:])
	n += varint.Int.Marshal(f.VectorBlockSize, bs[n:])
	return n
}

func decodeIndexDef(bs []byte) (*db.IndexDefinition, error) {
	def := &db.IndexDefinition{}

	name, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return nil, fmt.Errorf("decode name: %w", err)
	}
	def.Name = name

	storage, m, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("decode storage: %w", err)
	}
	n += m
	def.StorageType = db.StorageType(storage)

	prefixCount, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("decode prefix count: %w", err)
	}
	n += m
	for i := 0; i < prefixCount; i++ {
		p, m, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("decode prefix [%d]: %w", i, err)
		}
		n += m
		def.Prefixes = append(def.Prefixes, p)
	}

	fieldCount, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, fmt.Errorf("decode field count: %w", err)
	}
	n += m
	for i := 0; i < fieldCount; i++ {
		f, m, err := unmarshalIndexField(bs[n:])
		if err != nil {
			return nil, fmt.Errorf("decode field [%d]: %w", i, err)
		}
		n += m
		def.Fields = append(def.Fields, f)
	}

	return def, nil
}

func unmarshalIndexField(bs []byte) (db.IndexField, int, error) {
	var f db.IndexField

	name, n, err := ord.String.Unmarshal(bs)
	if err != nil {
		return f, 0, err
	}
	f.Name = name

	alias, m, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.Alias = alias

	typ, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.Type = db.IndexFieldType(typ)

	sep, m, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.TagSeparator = sep

	cs, m, err := ord.Bool.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.TagCaseSensitive = cs

	algo, m, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.VectorAlgo = db.VectorAlgorithm(algo)

	dim, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.VectorDim = dim

	dist, m, err := ord.String.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.VectorDistance = db.DistanceMetric(dist)

	vm, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.VectorM = vm

	ef, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.VectorEFConstruct = ef

	blk, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return f, 0, err
	}
	n += m
	f.VectorBlockSize = blk

	return f, n, nil
}

// Vectors travel as little-endian float32 bytes, same layout the Redis
// driver sends to FT.SEARCH.

func vectorFromBytes(s string) []float32 {
	if len(s)%4 != 0 {
		return nil
	}
	v := make([]float32, len(s)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32([]byte(s[i*4 : i*4+4])))
	}
	return v
}
