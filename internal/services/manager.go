package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/omrishi123/tractortrack/internal/amqp"
	"github.com/omrishi123/tractortrack/internal/cache"
	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/log"
	"github.com/omrishi123/tractortrack/internal/store"
)

const (
	DefaultSessionCacheSize = 256
	DefaultSessionTTL       = 30 * time.Minute
	defaultCleanupInterval  = time.Minute
	notifyTimeout           = 5 * time.Second
)

var ErrManagerClosed = errors.New("session manager closed")

// ChangeNotifier tells other instances that a user's document was written.
type ChangeNotifier interface {
	PublishDocumentChanged(ctx context.Context, userID, hash string) error
}

type ManagerConfig struct {
	WriteDelay      time.Duration
	WriteTimeout    time.Duration
	CacheSize       int
	SessionTTL      time.Duration
	CleanupInterval time.Duration

	// Notifier is optional; nil disables cross-instance notifications.
	Notifier ChangeNotifier
	// OnWrite is called after every store write attempt with its outcome.
	OnWrite  func(error)
	Logger   *log.Logger
}

// Manager hands out one Session per user, loading documents on first use
// and releasing sessions that have been idle longer than the TTL.
type Manager struct {
	store    store.DocumentStore
	cfg      ManagerConfig
	logger   *log.Logger
	sessions *cache.LRUCache[*Session]
	cleaner  *cache.Manager
	loads    singleflight.Group

	mu     sync.Mutex
	closed bool
}

func NewManager(s store.DocumentStore, cfg ManagerConfig) *Manager {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultSessionCacheSize
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Nop()
	}
	m := &Manager{
		store:  s,
		cfg:    cfg,
		logger: cfg.Logger.WithComponent(log.ComponentSession),
	}
	m.sessions = cache.NewLRUCache(cfg.CacheSize, cfg.SessionTTL, cache.WithOnEvict(m.evicted))
	m.cleaner = cache.NewManager(m.logger.Slog())
	m.cleaner.Register(m.sessions)
	m.cleaner.StartCleanup(cfg.CleanupInterval)
	return m
}

// Get returns the session of userID, opening it if needed. Concurrent
// callers for the same user share one load.
func (m *Manager) Get(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, core.Invalid("userId", errors.New("required"))
	}
	if m.isClosed() {
		return nil, ErrManagerClosed
	}
	if s, ok := m.sessions.Get(userID); ok {
		return s, nil
	}

	v, err, _ := m.loads.Do(userID, func() (any, error) {
		if s, ok := m.sessions.Get(userID); ok {
			return s, nil
		}
		s, err := m.open(ctx, userID)
		if err != nil {
			return nil, err
		}
		m.sessions.Set(userID, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Peek returns the session of userID only when it is already open.
func (m *Manager) Peek(userID string) (*Session, bool) {
	return m.sessions.Get(userID)
}

func (m *Manager) open(ctx context.Context, userID string) (*Session, error) {
	doc, found, err := m.store.Load(ctx, userID)
	if err != nil {
		return nil, &core.PersistenceError{UserID: userID, Op: "load", Err: err}
	}
	if !found {
		doc = core.NewAppData()
		if err := m.store.Save(ctx, userID, doc); err != nil {
			return nil, &core.PersistenceError{UserID: userID, Op: "save", Err: err}
		}
		m.logger.Info("Created default document", log.FieldUserID, userID)
	}

	var s *Session
	c := NewCoalescer(userID, m.store, CoalescerConfig{
		Delay:   m.cfg.WriteDelay,
		Timeout: m.cfg.WriteTimeout,
		OnError: func(perr *core.PersistenceError) {
			s.recordPersistError(perr)
			m.observeWrite(perr)
		},
		OnPersisted: func(hash string) {
			s.recordPersisted()
			m.observeWrite(nil)
			m.notify(userID, hash)
		},
	})
	s = NewSession(userID, doc, c, m.logger)
	s.scheduleRepair()

	if sub, ok := m.store.(store.Subscriber); ok {
		subCtx, cancel := context.WithCancel(context.Background())
		err := sub.Subscribe(subCtx, userID, func(remote core.AppData) {
			s.ApplyRemote(remote.Partial())
		})
		if err != nil {
			cancel()
			m.logger.Warn("Store subscription failed, remote changes will not be merged",
				log.FieldUserID, userID, log.FieldError, err)
		} else {
			s.cancel = cancel
		}
	}

	m.logger.Debug("Opened session", log.FieldUserID, userID, "found", found)
	return s, nil
}

func (m *Manager) observeWrite(err error) {
	if m.cfg.OnWrite != nil {
		m.cfg.OnWrite(err)
	}
}

func (m *Manager) notify(userID, hash string) {
	if m.cfg.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := m.cfg.Notifier.PublishDocumentChanged(ctx, userID, hash); err != nil {
		m.logger.Warn("Failed to publish document change",
			log.FieldUserID, userID, log.FieldHash, hash, log.FieldError, err)
	}
}

func (m *Manager) evicted(userID string, s *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), m.writeTimeout())
	defer cancel()
	if err := s.release(ctx); err != nil {
		m.logger.Error("Failed to flush evicted session", log.FieldUserID, userID, log.FieldError, err)
		return
	}
	m.logger.Debug("Released idle session", log.FieldUserID, userID)
}

func (m *Manager) writeTimeout() time.Duration {
	if m.cfg.WriteTimeout > 0 {
		return m.cfg.WriteTimeout
	}
	return DefaultWriteTimeout
}

// Reload reads userID's document from the store and merges it into the
// open session. Users without an open session are left alone; their next
// Get loads the stored document anyway.
func (m *Manager) Reload(ctx context.Context, userID string) (bool, error) {
	s, ok := m.sessions.Get(userID)
	if !ok {
		return false, nil
	}
	doc, found, err := m.store.Load(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("reload document: %w", err)
	}
	if !found {
		return false, nil
	}
	return s.ApplyRemote(doc.Partial()), nil
}

// HandleDocumentChanged is the consumer callback for change notifications
// from other instances.
func (m *Manager) HandleDocumentChanged(ctx context.Context, msg *amqp.DocumentChangedMessage) error {
	s, ok := m.sessions.Get(msg.UserID)
	if !ok {
		return nil
	}
	if s.coalescer.IsOwnWrite(msg.Hash) {
		return nil
	}
	applied, err := m.Reload(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if applied {
		m.logger.InfoContext(ctx, "Merged document changed on another instance",
			log.FieldUserID, msg.UserID, log.FieldOrigin, msg.Origin, log.FieldOperation, log.OpReload)
	}
	return nil
}

// Size reports how many sessions are open.
func (m *Manager) Size() int { return m.sessions.Size() }

// Sweep releases expired sessions now.
func (m *Manager) Sweep() int { return m.cleaner.Sweep() }

// FlushAll writes every pending change of every open session.
func (m *Manager) FlushAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, userID := range m.sessions.Keys() {
		s, ok := m.sessions.Get(userID)
		if !ok {
			continue
		}
		g.Go(func() error { return s.Flush(ctx) })
	}
	return g.Wait()
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close flushes and closes every session. Further Gets fail.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cleaner.Stop()

	var g errgroup.Group
	for _, s := range m.sessions.Drain() {
		s := s
		g.Go(func() error { return s.Close(ctx) })
	}
	err := g.Wait()
	m.logger.Info("Session manager closed", log.FieldOperation, log.OpShutdown)
	return err
}
