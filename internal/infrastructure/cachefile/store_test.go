package cachefile

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func sampleDay() fixture.Day {
	return fixture.Day{
		Date: "2026-03-14",
		Fixtures: []fixture.Fixture{
			{
				Sport:    fixture.SportSoccer,
				League:   fixture.League{Name: "Premier League", Code: "eng.1"},
				StartUTC: time.Date(2026, 3, 14, 19, 30, 0, 123456789, time.UTC),
				Status:   fixture.StatusScheduled,
				Home:     fixture.Side{Name: "Arsenal", Logo: "https://cdn.example.com/arsenal.png"},
				Away:     fixture.Side{Name: "Chelsea"},
				Tier:     fixture.TierMajor,
				Source:   "espn",
			},
		},
		SourceCounts: map[string]int{"espn": 1, "sportsdb": 0},
		Notices:      []string{"sportsdb: skipped"},
		BuiltAt:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	want := sampleDay()
	if err := store.Write(ctx, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, writtenAt, ok, err := store.Read(ctx, want.Date)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if writtenAt.IsZero() {
		t.Fatal("expected write timestamp")
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestWriteReadPreservesFixtureFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	want := sampleDay()
	require.NoError(t, store.Write(ctx, want))

	got, _, ok, err := store.Read(ctx, want.Date)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Fixtures, 1)

	f := got.Fixtures[0]
	require.Equal(t, fixture.SportSoccer, f.Sport)
	require.Equal(t, "Premier League", f.League.Name)
	require.Equal(t, "eng.1", f.League.Code)
	require.True(t, f.StartUTC.Equal(want.Fixtures[0].StartUTC))
	require.Equal(t, fixture.StatusScheduled, f.Status)
	require.Equal(t, "Arsenal", f.Home.Name)
	require.Equal(t, "https://cdn.example.com/arsenal.png", f.Home.Logo)
	require.Equal(t, "Chelsea", f.Away.Name)
	require.Empty(t, f.Away.Logo)
	require.Equal(t, fixture.TierMajor, f.Tier)
	require.Equal(t, "espn", f.Source)
	require.Equal(t, want.SourceCounts, got.SourceCounts)
	require.Equal(t, want.Notices, got.Notices)
	require.True(t, got.BuiltAt.Equal(want.BuiltAt))
}

func TestReadMissingDate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, _, ok, err := store.Read(ctx, "2026-03-14")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ok {
		t.Fatal("expected miss")
	}
}

func TestReadCorruptFileTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	path := filepath.Join(dir, "2026-03-14.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	_, _, ok, err := store.Read(ctx, "2026-03-14")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ok {
		t.Fatal("corrupt file should read as a miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("corrupt file should be removed")
	}
}

func TestWriteRejectsBadDate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	day := sampleDay()
	day.Date = "../escape"
	if err := store.Write(ctx, day); err == nil {
		t.Fatal("expected error for traversal date")
	}
}

func TestWriteReplacesExisting(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := sampleDay()
	if err := store.Write(ctx, first); err != nil {
		t.Fatalf("write: %v", err)
	}

	second := first
	second.Fixtures = nil
	second.SourceCounts = map[string]int{"espn": 0}
	second.Notices = nil
	if err := store.Write(ctx, second); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, _, ok, err := store.Read(ctx, first.Date)
	if err != nil || !ok {
		t.Fatalf("read after rewrite: ok=%v err=%v", ok, err)
	}
	if len(got.Fixtures) != 0 {
		t.Fatalf("expected rewritten document, got %d fixtures", len(got.Fixtures))
	}
}

func TestDeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	dayA := sampleDay()
	dayB := sampleDay()
	dayB.Date = "2026-03-15"
	if err := store.Write(ctx, dayA); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Write(ctx, dayB); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Foreign files survive a flush.
	foreign := filepath.Join(dir, "README.md")
	if err := os.WriteFile(foreign, []byte("keep"), 0o644); err != nil {
		t.Fatalf("seed foreign file: %v", err)
	}

	if err := store.Delete(ctx, dayA.Date); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, ok, _ := store.Read(ctx, dayA.Date); ok {
		t.Fatal("deleted date should miss")
	}

	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	n, err := store.Len(ctx)
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty store after flush, got %d", n)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("foreign file should survive flush: %v", err)
	}
}

func TestDeleteMissingDateIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Delete(ctx, "2026-03-14"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}
