package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordStoreInsertAndGet(t *testing.T) {
	store := NewMemoryRecordStore()
	ctx := context.Background()

	rec := Record{
		ID:     "m-1",
		UserID: "u-1",
		At:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		Data:   map[string]any{"kcal": 540.0},
	}
	require.NoError(t, store.Insert(ctx, "meals", rec))
	assert.Equal(t, 1, store.Count("meals"))

	got, err := store.Get(ctx, "meals", "m-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestMemoryRecordStoreOwnership(t *testing.T) {
	store := NewMemoryRecordStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, "meals", Record{ID: "m-1", UserID: "u-1"}))

	_, err := store.Get(ctx, "meals", "m-1", "someone-else")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "weights", "m-1", "u-1")
	assert.ErrorIs(t, err, ErrNotFound, "collections are isolated")
}

func TestMemoryRecordStoreErrorInjection(t *testing.T) {
	boom := errors.New("disk full")
	store := NewMemoryRecordStoreWithError(boom)

	err := store.Insert(context.Background(), "meals", Record{ID: "m-1"})
	assert.ErrorIs(t, err, boom)
}

func TestSQLiteRecordStore(t *testing.T) {
	dbPath := t.TempDir() + "/records.db"
	store, err := NewSQLiteRecordStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	rec := Record{
		ID:     "w-1",
		UserID: "u-1",
		At:     time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Data:   map[string]any{"weight_kg": 82.5},
	}
	require.NoError(t, store.Insert(ctx, "weights", rec))

	got, err := store.Get(ctx, "weights", "w-1", "u-1")
	require.NoError(t, err)
	assert.Equal(t, "w-1", got.ID)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, 82.5, got.Data["weight_kg"])
	assert.True(t, rec.At.Equal(got.At))

	_, err = store.Get(ctx, "weights", "w-1", "intruder")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFoodStates(t *testing.T) {
	ctx := context.Background()

	data, err := NewTestFoodState([]byte(`{"foods":[]}`)).Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"foods":[]}`, string(data))

	_, err = NewTestFoodStateWithError().Load(ctx)
	assert.Error(t, err)

	path := t.TempDir() + "/foods.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"foods":[{"name":"pizza"}]}`), 0o644))
	data, err = NewFileFoodState(path).Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pizza")
}
