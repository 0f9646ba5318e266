package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a record does not exist for the given id and
// owner.
var ErrNotFound = errors.New("record not found")

// Record is one keyed entry in a named collection. Data carries the
// caller-chosen representation; this layer never interprets it.
type Record struct {
	ID     string         `json:"id"`
	UserID string         `json:"user_id"`
	At     time.Time      `json:"at"`
	Data   map[string]any `json:"data"`
}

// RecordStore is the generic persistence boundary used by the tool loop:
// insert a validated record, look one up by id and owner. No raw queries.
type RecordStore interface {
	Insert(ctx context.Context, collection string, rec Record) error
	Get(ctx context.Context, collection, id, userID string) (Record, error)
}

// FoodState loads the serialized food knowledge base from wherever it lives.
type FoodState interface {
	Load(ctx context.Context) ([]byte, error)
}

// TestFoodState is a simple in-memory implementation for testing.
type TestFoodState struct {
	data []byte
	err  error
}

func NewTestFoodState(data []byte) *TestFoodState {
	return &TestFoodState{data: data}
}

func NewTestFoodStateWithError() *TestFoodState {
	return &TestFoodState{err: errors.New("not found")}
}

func (t *TestFoodState) Load(ctx context.Context) ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}

// MemoryRecordStore is an in-memory RecordStore for tests and local runs.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[string][]Record // collection -> records
	err     error
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string][]Record)}
}

func NewMemoryRecordStoreWithError(err error) *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string][]Record), err: err}
}

func (m *MemoryRecordStore) Insert(ctx context.Context, collection string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records[collection] = append(m.records[collection], rec)
	return nil
}

func (m *MemoryRecordStore) Get(ctx context.Context, collection, id, userID string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Record{}, m.err
	}
	for _, r := range m.records[collection] {
		if r.ID == id && r.UserID == userID {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Count returns the number of records in a collection; test helper.
func (m *MemoryRecordStore) Count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[collection])
}
