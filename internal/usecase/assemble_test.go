package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kixonair/kixonair/internal/config"
	"github.com/kixonair/kixonair/internal/domain/fixture"
)

var buildDate = time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

func TestBuildPrimaryOnly(t *testing.T) {
	primary := &fakeScoreboard{fixtures: []fixture.Fixture{espnFixture()}}
	fallback := &fakeEvents{}
	assembler := NewAssembler(primary, fallback, config.FallbackPrimaryEmpty, nil)

	day := assembler.Build(context.Background(), buildDate, "2026-03-14")

	if len(day.Fixtures) != 1 {
		t.Fatalf("expected 1 fixture, got %d", len(day.Fixtures))
	}
	if day.SourceCounts["espn"] != 1 || day.SourceCounts["sportsdb"] != 0 {
		t.Fatalf("unexpected source counts %v", day.SourceCounts)
	}
	if fallback.calls.Load() != 0 {
		t.Fatal("fallback must not run when primary produced fixtures")
	}
	if len(day.Notices) != 0 {
		t.Fatalf("unexpected notices %v", day.Notices)
	}
}

func TestBuildFallbackOnPrimaryEmpty(t *testing.T) {
	primary := &fakeScoreboard{}
	fallback := &fakeEvents{bySport: map[string][]fixture.Fixture{
		fixture.SportSoccer: {sportsdbFixture()},
	}}
	assembler := NewAssembler(primary, fallback, config.FallbackPrimaryEmpty, nil)

	day := assembler.Build(context.Background(), buildDate, "2026-03-14")

	if len(day.Fixtures) != 1 {
		t.Fatalf("expected fallback fixture, got %d", len(day.Fixtures))
	}
	if day.SourceCounts["sportsdb"] != 1 {
		t.Fatalf("unexpected source counts %v", day.SourceCounts)
	}
	if fallback.calls.Load() != 4 {
		t.Fatalf("expected one fallback call per sport, got %d", fallback.calls.Load())
	}
}

func TestBuildAllProvidersDown(t *testing.T) {
	primary := &fakeScoreboard{err: errors.New("espn down")}
	fallback := &fakeEvents{err: errors.New("sportsdb down")}
	assembler := NewAssembler(primary, fallback, config.FallbackPrimaryEmpty, nil)

	day := assembler.Build(context.Background(), buildDate, "2026-03-14")

	if len(day.Fixtures) != 0 {
		t.Fatalf("expected empty day, got %d fixtures", len(day.Fixtures))
	}
	if day.SourceCounts["espn"] != 0 || day.SourceCounts["sportsdb"] != 0 {
		t.Fatalf("expected zero counts, got %v", day.SourceCounts)
	}
	// One notice for the primary, one per fallback sport.
	if len(day.Notices) != 5 {
		t.Fatalf("expected 5 notices, got %v", day.Notices)
	}
	if day.Notices[0] != "espn: espn down" {
		t.Fatalf("expected primary notice first, got %q", day.Notices[0])
	}
}

func TestBuildAlwaysModeRunsBoth(t *testing.T) {
	primary := &fakeScoreboard{fixtures: []fixture.Fixture{espnFixture()}}
	fallback := &fakeEvents{bySport: map[string][]fixture.Fixture{
		fixture.SportSoccer: {sportsdbFixture()},
	}}
	assembler := NewAssembler(primary, fallback, config.FallbackAlways, nil)

	day := assembler.Build(context.Background(), buildDate, "2026-03-14")

	if fallback.calls.Load() != 4 {
		t.Fatalf("always mode must query the fallback, got %d calls", fallback.calls.Load())
	}
	if day.SourceCounts["espn"] != 1 || day.SourceCounts["sportsdb"] != 1 {
		t.Fatalf("unexpected source counts %v", day.SourceCounts)
	}
	// The overlapping fixture merges into one record.
	if len(day.Fixtures) != 1 {
		t.Fatalf("expected merged fixture, got %d", len(day.Fixtures))
	}
}
