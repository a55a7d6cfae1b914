package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/kixonair/kixonair/internal/config"
	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/kixonair/kixonair/internal/platform/logging"
)

var fallbackSports = []string{
	fixture.SportSoccer,
	fixture.SportNBA,
	fixture.SportNFL,
	fixture.SportNHL,
}

// Assembler fetches a day from the providers and merges the results. It
// never fails: provider errors degrade to notices and a smaller (possibly
// empty) fixture list.
type Assembler struct {
	primary      ScoreboardProvider
	fallback     EventsProvider
	fallbackMode string
	logger       *logging.Logger
}

func NewAssembler(primary ScoreboardProvider, fallback EventsProvider, fallbackMode string, logger *logging.Logger) *Assembler {
	if logger == nil {
		logger = logging.Default()
	}
	if fallbackMode == "" {
		fallbackMode = config.FallbackPrimaryEmpty
	}
	return &Assembler{
		primary:      primary,
		fallback:     fallback,
		fallbackMode: fallbackMode,
		logger:       logger,
	}
}

// Build assembles one day. dateKey is the YYYY-MM-DD form of date.
func (a *Assembler) Build(ctx context.Context, date time.Time, dateKey string) fixture.Day {
	ctx, span := startUsecaseSpan(ctx, "usecase.Assembler.Build")
	defer span.End()

	day := fixture.Day{
		Date:         dateKey,
		SourceCounts: map[string]int{a.primary.Name(): 0, a.fallback.Name(): 0},
		BuiltAt:      time.Now().UTC(),
	}

	var primaryItems, fallbackItems []fixture.Fixture
	var primaryErr error

	if a.fallbackMode == config.FallbackAlways {
		p := pool.New().WithContext(ctx)
		p.Go(func(ctx context.Context) error {
			primaryItems, primaryErr = a.primary.FixturesByDate(ctx, date)
			return nil
		})
		var fallbackNotices []string
		p.Go(func(ctx context.Context) error {
			fallbackItems, fallbackNotices = a.fetchFallback(ctx, date)
			return nil
		})
		_ = p.Wait()
		day.Notices = append(day.Notices, fallbackNotices...)
	} else {
		primaryItems, primaryErr = a.primary.FixturesByDate(ctx, date)
		if primaryErr != nil || len(primaryItems) == 0 {
			var fallbackNotices []string
			fallbackItems, fallbackNotices = a.fetchFallback(ctx, date)
			day.Notices = append(day.Notices, fallbackNotices...)
		}
	}

	if primaryErr != nil {
		a.logger.WarnContext(ctx, "primary provider failed", "provider", a.primary.Name(), "date", dateKey, "error", primaryErr)
		day.Notices = append([]string{fmt.Sprintf("%s: %v", a.primary.Name(), primaryErr)}, day.Notices...)
	}

	day.SourceCounts[a.primary.Name()] = len(primaryItems)
	day.SourceCounts[a.fallback.Name()] = len(fallbackItems)

	combined := make([]fixture.Fixture, 0, len(primaryItems)+len(fallbackItems))
	combined = append(combined, primaryItems...)
	combined = append(combined, fallbackItems...)
	day.Fixtures = MergeFixtures(combined)

	return day
}

// fetchFallback queries the fallback provider once per sport, concurrently.
// Per-sport failures become notices.
func (a *Assembler) fetchFallback(ctx context.Context, date time.Time) ([]fixture.Fixture, []string) {
	results := make([][]fixture.Fixture, len(fallbackSports))
	errs := make([]error, len(fallbackSports))

	p := pool.New().WithContext(ctx)
	for i, sport := range fallbackSports {
		p.Go(func(ctx context.Context) error {
			items, err := a.fallback.EventsByDay(ctx, date, sport)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = p.Wait()

	out := make([]fixture.Fixture, 0, 32)
	notices := make([]string, 0, len(fallbackSports))
	for i, sport := range fallbackSports {
		if errs[i] != nil {
			a.logger.WarnContext(ctx, "fallback provider failed", "provider", a.fallback.Name(), "sport", sport, "error", errs[i])
			notices = append(notices, fmt.Sprintf("%s/%s: %v", a.fallback.Name(), sport, errs[i]))
			continue
		}
		out = append(out, results[i]...)
	}
	return out, notices
}
