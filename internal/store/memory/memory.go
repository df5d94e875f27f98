package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/omrishi123/tractortrack/internal/core"
	"github.com/omrishi123/tractortrack/internal/ledger"
)

// Store keeps documents in process memory. Every Save is fanned out to the
// subscribers of that user, including the writer's own subscription.
type Store struct {
	mu   sync.Mutex
	docs map[string][]byte
	subs map[string]map[int]func(core.AppData)
	next int
}

func New() *Store {
	return &Store{
		docs: map[string][]byte{},
		subs: map[string]map[int]func(core.AppData){},
	}
}

// NewFromDir seeds the store with every <userID>.json file found in base.
// Missing directories and unreadable files are skipped.
func NewFromDir(base string) *Store {
	s := New()
	entries, err := os.ReadDir(base)
	if err != nil {
		return s
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(base, e.Name()))
		if err != nil {
			continue
		}
		var doc core.AppData
		if json.Unmarshal(b, &doc) != nil {
			continue
		}
		doc, _ = ledger.Reconcile(doc.Normalize())
		if b, err = json.Marshal(doc); err == nil {
			s.docs[strings.TrimSuffix(e.Name(), ".json")] = b
		}
	}
	return s
}

// Load decodes a fresh copy so callers never share state with the store.
func (s *Store) Load(_ context.Context, userID string) (core.AppData, bool, error) {
	s.mu.Lock()
	b, ok := s.docs[userID]
	s.mu.Unlock()
	if !ok {
		return core.AppData{}, false, nil
	}
	var doc core.AppData
	if err := json.Unmarshal(b, &doc); err != nil {
		return core.AppData{}, false, err
	}
	return doc.Normalize(), true, nil
}

func (s *Store) Save(ctx context.Context, userID string, doc core.AppData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(doc.Normalize())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[userID] = b
	fns := make([]func(core.AppData), 0, len(s.subs[userID]))
	for _, fn := range s.subs[userID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(doc.Clone())
	}
	return nil
}

// Subscribe registers fn until ctx is cancelled. Deliveries happen
// synchronously inside Save.
func (s *Store) Subscribe(ctx context.Context, userID string, fn func(core.AppData)) error {
	s.mu.Lock()
	id := s.next
	s.next++
	if s.subs[userID] == nil {
		s.subs[userID] = map[int]func(core.AppData){}
	}
	s.subs[userID][id] = fn
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[userID], id)
		if len(s.subs[userID]) == 0 {
			delete(s.subs, userID)
		}
		s.mu.Unlock()
	}()
	return nil
}

// Users lists every user that has a stored document.
func (s *Store) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs))
	for id := range s.docs {
		out = append(out, id)
	}
	return out
}
