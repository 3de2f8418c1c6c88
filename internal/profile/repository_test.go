package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/vibrant/internal/infrastructure/database"
	"github.com/nerrad567/vibrant/migrations"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	all, err := migrations.All()
	if err != nil {
		t.Fatalf("migrations.All() error = %v", err)
	}
	if err := db.Migrate(ctx, all); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo := NewSQLiteRepository(db.DB)
	repo.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	return repo
}

func TestSaveAndGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Save(ctx, Profile{Output: "DP-1", Saturation: 1.5, Backend: "ctm", Source: "cli"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, "DP-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Saturation != 1.5 || got.Backend != "ctm" || got.Source != "cli" {
		t.Errorf("Get() = %+v", got)
	}
	if !got.UpdatedAt.Equal(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}
}

func TestSaveUpserts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, s := range []float64{1.5, 2.25} {
		if err := repo.Save(ctx, Profile{Output: "HDMI-0", Saturation: s, Backend: "nvidia"}); err != nil {
			t.Fatalf("Save(%v) error = %v", s, err)
		}
	}

	got, err := repo.Get(ctx, "HDMI-0")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Saturation != 2.25 {
		t.Errorf("Saturation = %v, want 2.25", got.Saturation)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List() returned %d profiles, want 1", len(all))
	}
}

func TestSaveValidation(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Save(ctx, Profile{Saturation: 1}); err == nil {
		t.Error("Save() without output expected error")
	}
	if err := repo.Save(ctx, Profile{Output: "DP-1", Saturation: 9}); err == nil {
		t.Error("Save() with out-of-range saturation expected constraint error")
	}
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Get(context.Background(), "VGA-0")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Get() error = %v, want ErrProfileNotFound", err)
	}
}

func TestListOrdered(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, name := range []string{"eDP-1", "DP-2", "DP-1"} {
		if err := repo.Save(ctx, Profile{Output: name, Saturation: 1}); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"DP-1", "DP-2", "eDP-1"}
	if len(all) != len(want) {
		t.Fatalf("List() = %+v", all)
	}
	for i, p := range all {
		if p.Output != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, p.Output, want[i])
		}
	}
}

func TestDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.Save(ctx, Profile{Output: "DP-1", Saturation: 2}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.Delete(ctx, "DP-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "DP-1"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("second Delete() error = %v, want ErrProfileNotFound", err)
	}
	if _, err := repo.Get(ctx, "DP-1"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
}
