package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
)

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	lastTTL time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return "", f.failGet
	}
	v, ok := f.data[key]
	if !ok {
		return "", ErrMiss
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTTL = expiration
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		return errors.New("unsupported value")
	}
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func TestSlotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := NewSlotStore(fake)

	_, err := store.Read(ctx, "beer-clicker-save")
	assert.ErrorIs(t, err, storage.ErrSlotEmpty)

	require.NoError(t, store.Write(ctx, "beer-clicker-save", []byte(`{"version":1}`)))
	assert.Contains(t, fake.data, "beer:slot:beer-clicker-save")
	assert.Zero(t, fake.lastTTL)

	got, err := store.Read(ctx, "beer-clicker-save")
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, string(got))

	require.NoError(t, store.Delete(ctx, "beer-clicker-save"))
	_, err = store.Read(ctx, "beer-clicker-save")
	assert.ErrorIs(t, err, storage.ErrSlotEmpty)
}

func TestSlotStoreReadError(t *testing.T) {
	fake := newFakeRedis()
	fake.failGet = errors.New("connection refused")

	_, err := NewSlotStore(fake).Read(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrSlotEmpty)
}
