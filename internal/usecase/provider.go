package usecase

import (
	"context"
	"time"

	"github.com/kixonair/kixonair/internal/domain/fixture"
)

// ScoreboardProvider covers every sport for a day in one call. The primary
// source implements this.
type ScoreboardProvider interface {
	Name() string
	FixturesByDate(ctx context.Context, date time.Time) ([]fixture.Fixture, error)
}

// EventsProvider fetches one sport's events for a day. The fallback source
// implements this.
type EventsProvider interface {
	Name() string
	EventsByDay(ctx context.Context, date time.Time, sport string) ([]fixture.Fixture, error)
}

// BadgeResolver looks up a team's logo URL; "" means not found.
type BadgeResolver interface {
	TeamBadge(ctx context.Context, sport, teamName string) (string, error)
}

// DayStore is the on-disk cache of built days.
type DayStore interface {
	Read(ctx context.Context, date string) (fixture.Day, time.Time, bool, error)
	Write(ctx context.Context, day fixture.Day) error
	Delete(ctx context.Context, date string) error
	Flush(ctx context.Context) error
}
