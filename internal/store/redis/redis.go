// Package redis stores account documents in Redis and pushes every write
// to the other instances over pub/sub.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/omrishi123/tractortrack/internal/core"
)

const DefaultPrefix = "tractortrack"

type Store struct {
	client     *redis.Client
	ownsClient bool
	prefix     string
	logger     *slog.Logger
}

type Option func(*Store)

// WithPrefix namespaces keys and channels.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New connects to url (redis://...) and verifies the connection.
func New(ctx context.Context, url string, opts ...Option) (*Store, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	s := NewWithClient(client, opts...)
	s.ownsClient = true
	return s, nil
}

// NewWithClient wraps an existing client. The caller keeps ownership of it.
func NewWithClient(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(userID string) string     { return s.prefix + ":doc:" + userID }
func (s *Store) channel(userID string) string { return s.prefix + ":changed:" + userID }

// Load implements store.DocumentStore.
func (s *Store) Load(ctx context.Context, userID string) (core.AppData, bool, error) {
	b, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.AppData{}, false, nil
	}
	if err != nil {
		return core.AppData{}, false, fmt.Errorf("get document: %w", err)
	}
	var doc core.AppData
	if err := json.Unmarshal(b, &doc); err != nil {
		return core.AppData{}, false, fmt.Errorf("decode document: %w", err)
	}
	return doc.Normalize(), true, nil
}

// Save writes the document and publishes it in one transaction.
func (s *Store) Save(ctx context.Context, userID string, doc core.AppData) error {
	b, err := json.Marshal(doc.Normalize())
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key(userID), b, 0)
		p.Publish(ctx, s.channel(userID), b)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Subscribe implements store.Subscriber.
func (s *Store) Subscribe(ctx context.Context, userID string, fn func(core.AppData)) error {
	ps := s.client.Subscribe(ctx, s.channel(userID))
	// wait for confirmation so no publish is missed after we return
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return fmt.Errorf("subscribe %s: %w", userID, err)
	}

	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var doc core.AppData
				if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
					s.logger.Warn("Discarding undecodable document notification",
						"user_id", userID, "error", err)
					continue
				}
				fn(doc.Normalize())
			}
		}
	}()
	return nil
}

func (s *Store) Close() error {
	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

// Ping checks the connection to the Redis server.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
