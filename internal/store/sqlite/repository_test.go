package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/omrishi123/tractortrack/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "db", "tractortrack.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleDocument() core.AppData {
	doc := core.NewAppData()
	doc.Customers = []core.Customer{{ID: "c1", Name: "Ramesh", Phone: "9876543210"}}
	doc.WorkLogs = []core.WorkLog{{
		ID:         "w1",
		CustomerID: "c1",
		Date:       core.NewDate(2024, 3, 1),
		Equipment:  core.Rotavator,
		Hours:      2,
		Minutes:    30,
		Rate:       core.MoneyFromInt(1000),
		TotalCost:  core.MoneyFromInt(2500),
		Payments:   []core.Payment{{ID: "p1", Date: core.NewDate(2024, 3, 2), Amount: core.MoneyFromInt(1000)}},
		Balance:    core.MoneyFromInt(1500),
	}}
	return doc
}

func TestRepositoryLoadMissing(t *testing.T) {
	repo := newTestRepository(t)

	_, found, err := repo.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Fatal("expected no document")
	}

	if _, err := repo.Info(context.Background(), "nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Info error = %v, want ErrNotFound", err)
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	doc := sampleDocument()

	if err := repo.Save(ctx, "u1", doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, found, err := repo.Load(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("Load = found %v, err %v", found, err)
	}

	want, _ := core.Fingerprint(doc)
	have, _ := core.Fingerprint(got)
	if want != have {
		t.Fatalf("fingerprint mismatch after round trip")
	}
	if got.WorkLogs[0].Balance.String() != "1500.00" {
		t.Errorf("balance = %s, want 1500.00", got.WorkLogs[0].Balance)
	}
}

func TestRepositoryVersioning(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	doc := sampleDocument()

	steps := []struct {
		name    string
		mutate  func(*core.AppData)
		version int64
	}{
		{"first write", func(*core.AppData) {}, 1},
		{"identical write", func(*core.AppData) {}, 1},
		{"changed write", func(d *core.AppData) { d.Settings.TractorName = "Swaraj 744" }, 2},
	}
	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			step.mutate(&doc)
			if err := repo.Save(ctx, "u1", doc); err != nil {
				t.Fatalf("Save: %v", err)
			}
			info, err := repo.Info(ctx, "u1")
			if err != nil {
				t.Fatalf("Info: %v", err)
			}
			if info.Version != step.version {
				t.Errorf("version = %d, want %d", info.Version, step.version)
			}
		})
	}
}

func TestRepositoryUsersAreIsolated(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := sampleDocument()
	b := core.NewAppData()
	b.Settings.UserName = "Second"

	if err := repo.Save(ctx, "a", a); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, "b", b); err != nil {
		t.Fatal(err)
	}

	got, _, err := repo.Load(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Customers) != 0 || got.Settings.UserName != "Second" {
		t.Fatalf("unexpected document for b: %+v", got)
	}
}
