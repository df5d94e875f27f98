package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/store"
)

const (
	DefaultWriteDelay   = time.Second
	DefaultWriteTimeout = 10 * time.Second

	// how many persisted hashes are remembered for echo detection
	recentWrites = 16
)

var ErrCoalescerClosed = errors.New("coalescer closed")

// CoalescerConfig tunes the write window of a Coalescer.
type CoalescerConfig struct {
	// Delay is how long the coalescer waits after the last Schedule
	// before writing (default: 1s)
	Delay time.Duration

	// Timeout bounds each store write started by the timer (default: 10s)
	Timeout time.Duration

	// OnError receives every failed write. Local state is never rolled back.
	OnError func(*core.PersistenceError)

	// OnPersisted runs after every successful write with the document hash.
	OnPersisted func(hash string)
}

// CoalescerStats counts what the coalescer did with scheduled documents.
type CoalescerStats struct {
	Scheduled int64
	Writes    int64
	Skipped   int64
	Failures  int64
}

// Coalescer collapses bursts of document changes into single writes. Each
// Schedule restarts the delay window; when the window closes the latest
// document is written, unless it equals the last one persisted.
type Coalescer struct {
	userID string
	store  store.DocumentStore
	cfg    CoalescerConfig

	mu           sync.Mutex
	pending      *core.AppData
	pendingHash  string
	timer        *time.Timer
	lastHash     string
	inflightHash string
	recent       []string
	closed       bool

	// serialises writes so they reach the store in schedule order
	flushMu sync.Mutex

	scheduled atomic.Int64
	writes    atomic.Int64
	skipped   atomic.Int64
	failures  atomic.Int64
}

func NewCoalescer(userID string, s store.DocumentStore, cfg CoalescerConfig) *Coalescer {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultWriteDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultWriteTimeout
	}
	return &Coalescer{userID: userID, store: s, cfg: cfg}
}

// Schedule queues doc for writing, replacing any document still waiting.
func (c *Coalescer) Schedule(doc core.AppData) error {
	hash, err := core.Fingerprint(doc)
	if err != nil {
		return err
	}
	snapshot := doc.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCoalescerClosed
	}
	c.scheduled.Add(1)
	c.pending = &snapshot
	c.pendingHash = hash
	if c.timer == nil {
		c.timer = time.AfterFunc(c.cfg.Delay, c.fire)
	} else {
		c.timer.Reset(c.cfg.Delay)
	}
	return nil
}

func (c *Coalescer) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	_ = c.Flush(ctx)
}

// Flush writes the pending document now, if there is one.
func (c *Coalescer) Flush(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.pending == nil {
		c.mu.Unlock()
		return nil
	}
	doc, hash := *c.pending, c.pendingHash
	c.pending, c.pendingHash = nil, ""
	if hash == c.lastHash {
		c.mu.Unlock()
		c.skipped.Add(1)
		return nil
	}
	c.inflightHash = hash
	c.mu.Unlock()

	err := c.store.Save(ctx, c.userID, doc)

	c.mu.Lock()
	c.inflightHash = ""
	if err != nil {
		// keep the document so the next Flush or Schedule retries it
		if c.pending == nil {
			c.pending, c.pendingHash = &doc, hash
		}
	} else {
		c.lastHash = hash
		c.remember(hash)
	}
	c.mu.Unlock()

	if err != nil {
		c.failures.Add(1)
		perr := &core.PersistenceError{UserID: c.userID, Op: "save", Err: err}
		if c.cfg.OnError != nil {
			c.cfg.OnError(perr)
		}
		return perr
	}
	c.writes.Add(1)
	if c.cfg.OnPersisted != nil {
		c.cfg.OnPersisted(hash)
	}
	return nil
}

// MarkPersisted records hash as the stored state and drops any pending
// document, which the stored state supersedes.
func (c *Coalescer) MarkPersisted(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastHash = hash
	c.pending, c.pendingHash = nil, ""
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coalescer) remember(hash string) {
	if len(c.recent) == recentWrites {
		c.recent = c.recent[1:]
	}
	c.recent = append(c.recent, hash)
}

// IsOwnWrite reports whether hash is a document this coalescer has written
// recently or is writing right now. Stores that echo writes back late would
// otherwise roll the session back to an older state.
func (c *Coalescer) IsOwnWrite(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hash == "" {
		return false
	}
	if hash == c.lastHash || hash == c.inflightHash {
		return true
	}
	for _, h := range c.recent {
		if h == hash {
			return true
		}
	}
	return false
}

// Pending reports whether a document is waiting to be written.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != nil
}

func (c *Coalescer) Stats() CoalescerStats {
	return CoalescerStats{
		Scheduled: c.scheduled.Load(),
		Writes:    c.writes.Load(),
		Skipped:   c.skipped.Load(),
		Failures:  c.failures.Load(),
	}
}

// Close flushes the pending document and rejects further schedules.
func (c *Coalescer) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.Flush(ctx)
}
