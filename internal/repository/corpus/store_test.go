package corpus

import (
	"context"
	"strconv"
	"testing"

	"github.com/kailas-cloud/askdex/internal/db"
)

type mockStore struct {
	counters map[string]int64
	getErr   error
}

func newMockStore() *mockStore {
	return &mockStore{counters: make(map[string]int64)}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.counters[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(strconv.FormatInt(v, 10)), nil
}

func (m *mockStore) IncrBy(_ context.Context, key string, val int64) error {
	m.counters[key] += val
	return nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	delete(m.counters, key)
	return nil
}

func TestApplyDelta_And_Stats(t *testing.T) {
	ms := newMockStore()
	s := New(ms)
	ctx := context.Background()

	if err := s.ApplyDelta(ctx, "d1", 4, 2000); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if err := s.ApplyDelta(ctx, "d2", 6, 3000); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ChunkCount != 10 {
		t.Errorf("ChunkCount = %d", stats.ChunkCount)
	}
	if stats.AvgChunkLen != 500 {
		t.Errorf("AvgChunkLen = %d", stats.AvgChunkLen)
	}

	docChunks, err := s.DocumentChunks(ctx, "d1")
	if err != nil || docChunks != 4 {
		t.Errorf("DocumentChunks = %d, %v", docChunks, err)
	}
}

func TestApplyDelta_NegativeShrinks(t *testing.T) {
	ms := newMockStore()
	s := New(ms)
	ctx := context.Background()

	if err := s.ApplyDelta(ctx, "d1", 4, 2000); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if err := s.ApplyDelta(ctx, "d1", -4, -2000); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ChunkCount != 0 || stats.AvgChunkLen != 0 {
		t.Errorf("stats = %+v, want zeroed", stats)
	}
}

func TestStats_EmptyCorpus(t *testing.T) {
	s := New(newMockStore())

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ChunkCount != 0 || stats.AvgChunkLen != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestDropDocument(t *testing.T) {
	ms := newMockStore()
	s := New(ms)
	ctx := context.Background()

	if err := s.ApplyDelta(ctx, "d1", 2, 100); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if err := s.DropDocument(ctx, "d1"); err != nil {
		t.Fatalf("DropDocument: %v", err)
	}

	n, err := s.DocumentChunks(ctx, "d1")
	if err != nil || n != 0 {
		t.Errorf("DocumentChunks after drop = %d, %v", n, err)
	}
}
