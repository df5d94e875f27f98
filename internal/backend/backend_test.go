package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omrishi123/tractortrack/internal/config"
	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/store"
)

func TestTypeIsValid(t *testing.T) {
	for _, typ := range Types() {
		assert.True(t, typ.IsValid(), typ.String())
	}
	assert.False(t, Type("sheets").IsValid())
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	require.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "mongo"})
	require.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://db/tt"})
	require.NoError(t, err)
	assert.Equal(t, Postgres, cfg.Type)
	assert.Equal(t, "postgres://db/tt", cfg.DatabaseURL)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory needs nothing", Config{Type: Memory}, false},
		{"sqlite without path", Config{Type: SQLite}, true},
		{"redis without url", Config{Type: Redis}, true},
		{"postgres without url", Config{Type: Postgres}, true},
		{"postgres with url", Config{Type: Postgres, DatabaseURL: "postgres://x"}, false},
		{"unknown", Config{Type: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func roundTrip(t *testing.T, s store.DocumentStore) {
	t.Helper()
	ctx := context.Background()
	doc := core.NewAppData()
	doc.Customers = []core.Customer{{ID: "c1", Name: "Ramesh", Phone: "9876543210"}}
	require.NoError(t, s.Save(ctx, "u1", doc))

	got, found, err := s.Load(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Ramesh", got.Customers[0].Name)
}

func TestCreateMemory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seeded.json"), []byte(`{"customers":[{"id":"c9","name":"Suresh","phone":"9876543211"}]}`), 0o600))

	res, err := NewFactory(nil).Create(context.Background(), Config{Type: Memory, DataDirectory: dir})
	require.NoError(t, err)
	assert.Nil(t, res.Ready)
	assert.Nil(t, res.Cleanup)

	doc, found, err := res.Store.Load(context.Background(), "seeded")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Suresh", doc.Customers[0].Name)
	roundTrip(t, res.Store)
}

func TestCreateSQLite(t *testing.T) {
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Type:         SQLite,
		SQLiteDBPath: filepath.Join(t.TempDir(), "tt.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	require.NotNil(t, res.Ready)
	assert.NoError(t, res.Ready(context.Background()))
	roundTrip(t, res.Store)
}

func TestCreateRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	res, err := NewFactory(nil).Create(context.Background(), Config{
		Type:               Redis,
		RedisURL:           "redis://" + mr.Addr() + "/0",
		RedisChannelPrefix: "tt",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	_, ok := res.Store.(store.Subscriber)
	assert.True(t, ok, "redis store pushes remote writes")
	assert.NoError(t, res.Ready(context.Background()))
	roundTrip(t, res.Store)
	assert.True(t, mr.Exists("tt:doc:u1"))
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	_, err := NewFactory(nil).Create(context.Background(), Config{Type: SQLite})
	assert.Error(t, err)
}
