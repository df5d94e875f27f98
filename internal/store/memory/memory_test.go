package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/omrishi123/tractortrack/internal/core"
)

func TestStoreRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, found, err := s.Load(ctx, "u1"); err != nil || found {
		t.Fatalf("Load on empty store = found %v, err %v", found, err)
	}

	doc := core.NewAppData()
	doc.Customers = append(doc.Customers, core.Customer{ID: "c1", Name: "Ramesh", Phone: "9876543210"})
	if err := s.Save(ctx, "u1", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := s.Load(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	want, _ := core.Fingerprint(doc)
	have, _ := core.Fingerprint(got)
	if want != have {
		t.Fatalf("document changed across round trip")
	}

	// mutating the loaded copy must not leak into the store
	got.Customers[0].Name = "Changed"
	again, _, _ := s.Load(ctx, "u1")
	if again.Customers[0].Name != "Ramesh" {
		t.Fatalf("store shares state with caller")
	}
}

func TestStoreSubscribe(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	var received []core.AppData
	if err := s.Subscribe(ctx, "u1", func(d core.AppData) { received = append(received, d) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := s.Save(context.Background(), "u2", core.NewAppData()); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), "u1", core.NewAppData()); err != nil {
		t.Fatal(err)
	}
	if len(received) != 1 {
		t.Fatalf("received %d documents, want 1", len(received))
	}
	cancel()
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Save(ctx, "u1", core.NewAppData()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestNewFromDir(t *testing.T) {
	dir := t.TempDir()
	body := `{"customers":[{"id":"c1","name":"Ramesh","phone":"9876543210"}],"settings":{"tractorName":"Swaraj"}}`
	if err := os.WriteFile(filepath.Join(dir, "u1.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFromDir(dir)
	doc, found, err := s.Load(context.Background(), "u1")
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	if len(doc.Customers) != 1 || doc.Settings.TractorName != "Swaraj" {
		t.Fatalf("unexpected seed document: %+v", doc)
	}
	if doc.WorkLogs == nil || doc.Expenses == nil {
		t.Fatalf("seed document was not normalized")
	}
	if users := s.Users(); len(users) != 1 || users[0] != "u1" {
		t.Fatalf("Users() = %v", users)
	}
}

func TestNewFromDirRecomputesBalances(t *testing.T) {
	dir := t.TempDir()
	body := `{"customers":[{"id":"c1","name":"Ramesh","phone":"9876543210"}],
		"workLogs":[{"id":"w1","customerId":"c1","date":"2024-03-01","equipment":"Rotavator","hours":1,"minutes":0,
		"rate":1000,"totalCost":1000,"payments":[{"id":"p1","date":"2024-03-02","amount":400}],"balance":1000}]}`
	if err := os.WriteFile(filepath.Join(dir, "u1.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, found, err := NewFromDir(dir).Load(context.Background(), "u1")
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}
	if len(doc.WorkLogs) != 1 {
		t.Fatalf("WorkLogs = %+v", doc.WorkLogs)
	}
	if got := doc.WorkLogs[0].Balance; !got.Equal(core.MoneyFromInt(600)) {
		t.Errorf("seeded balance = %v, want 600", got)
	}
}
