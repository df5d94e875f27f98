package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omrishi123/tractortrack/internal/core"
)

// fakeStore records writes and can be told to fail.
type fakeStore struct {
	mu    sync.Mutex
	docs  map[string]core.AppData
	saves []core.AppData
	loads atomic.Int64
	fail  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]core.AppData{}}
}

func (f *fakeStore) Load(_ context.Context, userID string) (core.AppData, bool, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[userID]
	if !ok {
		return core.AppData{}, false, nil
	}
	return doc.Clone(), true, nil
}

func (f *fakeStore) Save(_ context.Context, userID string, doc core.AppData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.docs[userID] = doc.Clone()
	f.saves = append(f.saves, doc.Clone())
	return nil
}

func (f *fakeStore) setFail(err error) {
	f.mu.Lock()
	f.fail = err
	f.mu.Unlock()
}

func (f *fakeStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) lastSaved() core.AppData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func docWithCustomers(names ...string) core.AppData {
	doc := core.NewAppData()
	for i, n := range names {
		doc.Customers = append(doc.Customers, core.Customer{
			ID:    string(rune('a' + i)),
			Name:  n,
			Phone: "9876543210",
		})
	}
	return doc
}

func hashOf(t *testing.T, doc core.AppData) string {
	t.Helper()
	h, err := core.Fingerprint(doc)
	require.NoError(t, err)
	return h
}

func TestCoalescerCollapsesBurst(t *testing.T) {
	fs := newFakeStore()
	c := NewCoalescer("u1", fs, CoalescerConfig{Delay: 30 * time.Millisecond})

	for _, names := range [][]string{{"Ramesh"}, {"Ramesh", "Suresh"}, {"Ramesh", "Suresh", "Mahesh"}} {
		require.NoError(t, c.Schedule(docWithCustomers(names...)))
	}

	require.Eventually(t, func() bool { return fs.saveCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, fs.lastSaved().Customers, 3)

	// nothing else arrives after the window
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, fs.saveCount())

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Scheduled)
	assert.Equal(t, int64(1), stats.Writes)
	assert.False(t, c.Pending())
}

func TestCoalescerSkipsValueEqualWrite(t *testing.T) {
	fs := newFakeStore()
	c := NewCoalescer("u1", fs, CoalescerConfig{Delay: time.Hour})

	doc := docWithCustomers("Ramesh")
	c.MarkPersisted(hashOf(t, doc))

	require.NoError(t, c.Schedule(doc.Clone()))
	require.NoError(t, c.Flush(context.Background()))

	assert.Equal(t, 0, fs.saveCount())
	assert.Equal(t, int64(1), c.Stats().Skipped)
}

func TestCoalescerFailureKeepsDocumentForRetry(t *testing.T) {
	fs := newFakeStore()
	fs.setFail(errors.New("disk full"))

	var reported []*core.PersistenceError
	var persisted []string
	c := NewCoalescer("u1", fs, CoalescerConfig{
		Delay:       time.Hour,
		OnError:     func(e *core.PersistenceError) { reported = append(reported, e) },
		OnPersisted: func(h string) { persisted = append(persisted, h) },
	})

	doc := docWithCustomers("Ramesh")
	require.NoError(t, c.Schedule(doc))

	err := c.Flush(context.Background())
	var perr *core.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "u1", perr.UserID)
	require.Len(t, reported, 1)
	assert.True(t, c.Pending())
	assert.Empty(t, persisted)

	fs.setFail(nil)
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 1, fs.saveCount())
	assert.Equal(t, []string{hashOf(t, doc)}, persisted)
	assert.Equal(t, int64(1), c.Stats().Failures)
}

func TestCoalescerNewerScheduleWinsOverFailedWrite(t *testing.T) {
	fs := newFakeStore()
	fs.setFail(errors.New("offline"))
	c := NewCoalescer("u1", fs, CoalescerConfig{Delay: time.Hour})

	require.NoError(t, c.Schedule(docWithCustomers("Ramesh")))
	require.Error(t, c.Flush(context.Background()))

	require.NoError(t, c.Schedule(docWithCustomers("Ramesh", "Suresh")))
	fs.setFail(nil)
	require.NoError(t, c.Flush(context.Background()))

	assert.Equal(t, 1, fs.saveCount())
	assert.Len(t, fs.lastSaved().Customers, 2)
}

func TestCoalescerOwnWrites(t *testing.T) {
	fs := newFakeStore()
	c := NewCoalescer("u1", fs, CoalescerConfig{Delay: time.Hour})

	first := docWithCustomers("Ramesh")
	second := docWithCustomers("Ramesh", "Suresh")
	for _, doc := range []core.AppData{first, second} {
		require.NoError(t, c.Schedule(doc))
		require.NoError(t, c.Flush(context.Background()))
	}

	assert.True(t, c.IsOwnWrite(hashOf(t, second)))
	assert.True(t, c.IsOwnWrite(hashOf(t, first)), "older writes are still recognised")
	assert.False(t, c.IsOwnWrite(hashOf(t, docWithCustomers("Mahesh"))))
	assert.False(t, c.IsOwnWrite(""))
}

func TestCoalescerMarkPersistedDropsPending(t *testing.T) {
	fs := newFakeStore()
	c := NewCoalescer("u1", fs, CoalescerConfig{Delay: 20 * time.Millisecond})

	require.NoError(t, c.Schedule(docWithCustomers("Ramesh")))
	remote := docWithCustomers("Suresh")
	c.MarkPersisted(hashOf(t, remote))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, c.Pending())
	assert.Equal(t, 0, fs.saveCount())
}

func TestCoalescerClose(t *testing.T) {
	fs := newFakeStore()
	c := NewCoalescer("u1", fs, CoalescerConfig{Delay: time.Hour})

	require.NoError(t, c.Schedule(docWithCustomers("Ramesh")))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, fs.saveCount(), "close flushes pending document")

	assert.ErrorIs(t, c.Schedule(docWithCustomers("Suresh")), ErrCoalescerClosed)
}
