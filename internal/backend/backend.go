// Package backend builds the document store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/omrishi123/tractortrack/internal/config"
	"github.com/omrishi123/tractortrack/internal/log"
	"github.com/omrishi123/tractortrack/internal/store"
	"github.com/omrishi123/tractortrack/internal/store/memory"
	"github.com/omrishi123/tractortrack/internal/store/postgres"
	redisstore "github.com/omrishi123/tractortrack/internal/store/redis"
	"github.com/omrishi123/tractortrack/internal/store/sqlite"
)

// Type names a document store implementation.
type Type string

const (
	Memory   Type = config.BackendMemory
	SQLite   Type = config.BackendSQLite
	Redis    Type = config.BackendRedis
	Postgres Type = config.BackendPostgres
)

func (t Type) String() string { return string(t) }

// IsValid returns true if the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Redis, Postgres:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types.
func Types() []Type {
	return []Type{Memory, SQLite, Redis, Postgres}
}

// Config holds what the factory needs to open a store.
type Config struct {
	Type Type

	// Memory: directory of <userID>.json seed documents
	DataDirectory string

	SQLiteDBPath string

	RedisURL           string
	RedisChannelPrefix string

	DatabaseURL string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:               t,
		DataDirectory:      appConfig.DataDir,
		SQLiteDBPath:       appConfig.SQLiteDBPath,
		RedisURL:           appConfig.RedisURL,
		RedisChannelPrefix: appConfig.RedisChannelPrefix,
		DatabaseURL:        appConfig.DatabaseURL,
	}, nil
}

// Validate checks the fields required by the selected type.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	switch c.Type {
	case SQLite:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case Redis:
		if c.RedisURL == "" {
			return fmt.Errorf("Redis URL is required for redis backend")
		}
	case Postgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	}
	return nil
}

// Result is an opened store and its cleanup.
type Result struct {
	Store store.DocumentStore
	// Ready reports reachability for /readyz. Nil for stores without a
	// connection.
	Ready func(ctx context.Context) error
	// Cleanup may be nil.
	Cleanup func() error
}

// Factory opens the store described by a Config.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create opens the configured store.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch cfg.Type {
	case Memory:
		res = f.createMemory(cfg)
	case SQLite:
		res, err = f.createSQLite(cfg)
	case Redis:
		res, err = f.createRedis(ctx, cfg)
	case Postgres:
		res, err = f.createPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if p, ok := res.Store.(store.Pinger); ok {
		res.Ready = p.Ping
	}
	if c, ok := res.Store.(store.Closer); ok {
		res.Cleanup = c.Close
	}
	return res, nil
}

func (f *Factory) createMemory(cfg Config) *Result {
	dir := cfg.DataDirectory
	if dir == "" {
		dir = "data"
	}
	s := memory.NewFromDir(dir)
	f.logger.Info("Initialized memory backend", "data_directory", dir, "documents", len(s.Users()))
	return &Result{Store: s}
}

func (f *Factory) createSQLite(cfg Config) (*Result, error) {
	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
	return &Result{Store: repo}, nil
}

func (f *Factory) createRedis(ctx context.Context, cfg Config) (*Result, error) {
	opts := []redisstore.Option{redisstore.WithLogger(f.logger.Slog())}
	if cfg.RedisChannelPrefix != "" {
		opts = append(opts, redisstore.WithPrefix(cfg.RedisChannelPrefix))
	}
	s, err := redisstore.New(ctx, cfg.RedisURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize Redis store: %w", err)
	}
	f.logger.Info("Initialized Redis backend", "prefix", cfg.RedisChannelPrefix)
	return &Result{Store: s}, nil
}

func (f *Factory) createPostgres(ctx context.Context, cfg Config) (*Result, error) {
	repo, err := postgres.NewRepository(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialize Postgres repository: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return &Result{Store: repo}, nil
}
