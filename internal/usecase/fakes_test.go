package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kixonair/kixonair/internal/domain/fixture"
)

type fakeScoreboard struct {
	mu       sync.Mutex
	fixtures []fixture.Fixture
	err      error
	calls    atomic.Int32
	block    chan struct{}
}

func (f *fakeScoreboard) Name() string { return "espn" }

func (f *fakeScoreboard) FixturesByDate(ctx context.Context, _ time.Time) ([]fixture.Fixture, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]fixture.Fixture, len(f.fixtures))
	copy(out, f.fixtures)
	return out, nil
}

func (f *fakeScoreboard) setFixtures(items []fixture.Fixture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixtures = items
}

type fakeEvents struct {
	mu      sync.Mutex
	bySport map[string][]fixture.Fixture
	err     error
	calls   atomic.Int32
}

func (f *fakeEvents) Name() string { return "sportsdb" }

func (f *fakeEvents) EventsByDay(_ context.Context, _ time.Time, sport string) ([]fixture.Fixture, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.bySport[sport], nil
}

type fakeBadges struct {
	mu     sync.Mutex
	badges map[string]string
	err    error
	calls  atomic.Int32
}

func (f *fakeBadges) TeamBadge(_ context.Context, sport, teamName string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.badges[fixture.TeamKey(sport, teamName)], nil
}

type fakeDayStore struct {
	mu        sync.Mutex
	days      map[string]fixture.Day
	writtenAt map[string]time.Time
	writeErr  error
	writes    atomic.Int32
}

func newFakeDayStore() *fakeDayStore {
	return &fakeDayStore{
		days:      make(map[string]fixture.Day),
		writtenAt: make(map[string]time.Time),
	}
}

func (f *fakeDayStore) Read(_ context.Context, date string) (fixture.Day, time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day, ok := f.days[date]
	if !ok {
		return fixture.Day{}, time.Time{}, false, nil
	}
	return day, f.writtenAt[date], true, nil
}

func (f *fakeDayStore) Write(_ context.Context, day fixture.Day) error {
	f.writes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.days[day.Date] = day
	f.writtenAt[day.Date] = time.Now().UTC()
	return nil
}

func (f *fakeDayStore) Delete(_ context.Context, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.days, date)
	delete(f.writtenAt, date)
	return nil
}

func (f *fakeDayStore) Flush(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.days = make(map[string]fixture.Day)
	f.writtenAt = make(map[string]time.Time)
	return nil
}

func (f *fakeDayStore) stored(date string) (fixture.Day, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	day, ok := f.days[date]
	return day, ok
}

func (f *fakeDayStore) backdate(date string, age time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writtenAt[date] = time.Now().UTC().Add(-age)
}
