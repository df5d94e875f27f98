package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omrishi123/tractortrack/internal/core"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWithClient(client, WithPrefix("test")), mr
}

func TestStoreRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	_, found, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	doc := core.NewAppData()
	doc.Customers = []core.Customer{{ID: "c1", Name: "Ramesh", Phone: "9876543210"}}
	require.NoError(t, s.Save(ctx, "u1", doc))
	assert.True(t, mr.Exists("test:doc:u1"))

	got, found, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ramesh", got.Customers[0].Name)
	assert.Equal(t, core.English, got.Settings.Language)
}

func TestStoreLoadCorrupt(t *testing.T) {
	s, mr := newTestStore(t)
	require.NoError(t, mr.Set("test:doc:u1", "{not json"))

	_, _, err := s.Load(context.Background(), "u1")
	assert.Error(t, err)
}

func TestStoreSubscribe(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu   sync.Mutex
		seen []core.AppData
	)
	require.NoError(t, s.Subscribe(ctx, "u1", func(d core.AppData) {
		mu.Lock()
		seen = append(seen, d)
		mu.Unlock()
	}))

	doc := core.NewAppData()
	doc.Settings.TractorName = "Swaraj"
	require.NoError(t, s.Save(context.Background(), "u2", core.NewAppData()))
	require.NoError(t, s.Save(context.Background(), "u1", doc))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Swaraj", seen[0].Settings.TractorName)
}
