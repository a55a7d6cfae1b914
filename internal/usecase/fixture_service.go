package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/kixonair/kixonair/internal/platform/cache"
	"github.com/kixonair/kixonair/internal/platform/logging"
	"github.com/kixonair/kixonair/internal/platform/resilience"
)

const dateLayout = "2006-01-02"

// FixtureService serves merged day sheets through a two-tier cache: an
// in-process store in front of the disk store. Builds for the same date are
// coalesced, forced or not, through a per-date single flight.
type FixtureService struct {
	assembler *Assembler
	enricher  *Enricher
	memory    *cache.Store
	disk      DayStore

	todayTTL   time.Duration
	settledTTL time.Duration

	flight      resilience.SingleFlight
	diskHealthy atomic.Bool
	logger      *logging.Logger
	now         func() time.Time
}

type FixtureServiceConfig struct {
	Assembler       *Assembler
	Enricher        *Enricher
	Memory          *cache.Store
	Disk            DayStore
	TodayCacheTTL   time.Duration
	SettledCacheTTL time.Duration
	Logger          *logging.Logger
}

func NewFixtureService(cfg FixtureServiceConfig) *FixtureService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	todayTTL := cfg.TodayCacheTTL
	if todayTTL <= 0 {
		todayTTL = 10 * time.Minute
	}
	settledTTL := cfg.SettledCacheTTL
	if settledTTL <= 0 {
		settledTTL = 6 * time.Hour
	}

	s := &FixtureService{
		assembler:  cfg.Assembler,
		enricher:   cfg.Enricher,
		memory:     cfg.Memory,
		disk:       cfg.Disk,
		todayTTL:   todayTTL,
		settledTTL: settledTTL,
		logger:     logger,
		now:        time.Now,
	}
	s.diskHealthy.Store(s.disk != nil)
	return s
}

// ResolveDate normalizes a raw date parameter. Empty and "today" mean the
// current UTC day, "tomorrow" the next; anything else must be a real
// calendar date in YYYY-MM-DD form.
func (s *FixtureService) ResolveDate(raw string) (time.Time, string, error) {
	now := s.now().UTC()
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "today":
		day := now.Truncate(24 * time.Hour)
		return day, day.Format(dateLayout), nil
	case "tomorrow":
		day := now.Truncate(24*time.Hour).AddDate(0, 0, 1)
		return day, day.Format(dateLayout), nil
	}

	parsed, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidInput, raw)
	}
	return parsed.UTC(), parsed.UTC().Format(dateLayout), nil
}

// FixturesForDate returns the day sheet for rawDate, building it when no
// fresh cached copy exists. force bypasses cache reads but still coalesces
// with concurrent requests for the same date.
func (s *FixtureService) FixturesForDate(ctx context.Context, rawDate string, force bool) (fixture.Day, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.FixturesForDate")
	defer span.End()

	date, dateKey, err := s.ResolveDate(rawDate)
	if err != nil {
		return fixture.Day{}, err
	}
	ttl := s.ttlFor(dateKey)

	if !force {
		if cached, ok := s.memory.Get(ctx, dayCacheKey(dateKey)); ok {
			return cached.(fixture.Day), nil
		}
	}

	out, err, _ := s.flight.Do(dayCacheKey(dateKey), func() (any, error) {
		if !force {
			if cached, ok := s.memory.Get(ctx, dayCacheKey(dateKey)); ok {
				return cached.(fixture.Day), nil
			}
			if day, remaining, ok := s.readDisk(ctx, dateKey, ttl); ok {
				// Re-caching for the full window would extend the entry's
				// life past its freshness class; only the remainder is left.
				s.memory.SetWithTTL(ctx, dayCacheKey(dateKey), day, remaining)
				return day, nil
			}
		}
		return s.build(ctx, date, dateKey, ttl), nil
	})
	if err != nil {
		return fixture.Day{}, err
	}
	return out.(fixture.Day), nil
}

// readDisk returns a disk day only when it is still fresh for its TTL
// class, along with the freshness it has left.
func (s *FixtureService) readDisk(ctx context.Context, dateKey string, ttl time.Duration) (fixture.Day, time.Duration, bool) {
	if s.disk == nil || !s.diskHealthy.Load() {
		return fixture.Day{}, 0, false
	}
	day, writtenAt, ok, err := s.disk.Read(ctx, dateKey)
	if err != nil {
		s.logger.WarnContext(ctx, "disk cache read failed", "date", dateKey, "error", err)
		return fixture.Day{}, 0, false
	}
	if !ok {
		return fixture.Day{}, 0, false
	}
	age := s.now().UTC().Sub(writtenAt)
	if age >= ttl {
		return fixture.Day{}, 0, false
	}
	return day, ttl - age, true
}

func (s *FixtureService) build(ctx context.Context, date time.Time, dateKey string, ttl time.Duration) fixture.Day {
	day := s.assembler.Build(ctx, date, dateKey)
	day.Fixtures = s.enricher.Enrich(ctx, day.Fixtures)

	// Empty days are served but never persisted: a transient provider outage
	// must not shadow real fixtures for a whole TTL window.
	if len(day.Fixtures) == 0 {
		return day
	}

	s.memory.SetWithTTL(ctx, dayCacheKey(dateKey), day, ttl)
	s.writeDisk(ctx, day)
	return day
}

func (s *FixtureService) writeDisk(ctx context.Context, day fixture.Day) {
	if s.disk == nil || !s.diskHealthy.Load() {
		return
	}
	if err := s.disk.Write(ctx, day); err != nil {
		s.logger.WarnContext(ctx, "disk cache write failed, continuing memory-only", "date", day.Date, "error", err)
		s.diskHealthy.Store(false)
	}
}

// Precache force-rebuilds a date.
func (s *FixtureService) Precache(ctx context.Context, rawDate string) (fixture.Day, error) {
	return s.FixturesForDate(ctx, rawDate, true)
}

// FlushDate drops both cache tiers for one date.
func (s *FixtureService) FlushDate(ctx context.Context, rawDate string) error {
	_, dateKey, err := s.ResolveDate(rawDate)
	if err != nil {
		return err
	}
	s.memory.Delete(ctx, dayCacheKey(dateKey))
	if s.disk != nil && s.diskHealthy.Load() {
		if err := s.disk.Delete(ctx, dateKey); err != nil {
			return fmt.Errorf("flush disk cache for %s: %w", dateKey, err)
		}
	}
	return nil
}

// FlushAll drops every cached day.
func (s *FixtureService) FlushAll(ctx context.Context) error {
	s.memory.DeletePrefix(ctx, dayCachePrefix)
	if s.disk != nil && s.diskHealthy.Load() {
		if err := s.disk.Flush(ctx); err != nil {
			return fmt.Errorf("flush disk cache: %w", err)
		}
	}
	return nil
}

// ProviderProbe is one provider's health as seen by the diagnostics endpoint.
type ProviderProbe struct {
	Provider string
	OK       bool
	Count    int
	Error    string
}

// Probe exercises both providers for a date without touching any cache.
func (s *FixtureService) Probe(ctx context.Context, rawDate string) (string, []ProviderProbe, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureService.Probe")
	defer span.End()

	date, dateKey, err := s.ResolveDate(rawDate)
	if err != nil {
		return "", nil, err
	}

	probes := make([]ProviderProbe, 0, 2)

	primary := ProviderProbe{Provider: s.assembler.primary.Name()}
	if items, err := s.assembler.primary.FixturesByDate(ctx, date); err != nil {
		primary.Error = err.Error()
	} else {
		primary.OK = true
		primary.Count = len(items)
	}
	probes = append(probes, primary)

	fallback := ProviderProbe{Provider: s.assembler.fallback.Name()}
	items, notices := s.assembler.fetchFallback(ctx, date)
	if len(notices) > 0 {
		fallback.Error = strings.Join(notices, "; ")
	}
	fallback.OK = len(notices) == 0
	fallback.Count = len(items)
	probes = append(probes, fallback)

	return dateKey, probes, nil
}

// DiskHealthy reports whether disk persistence is still active.
func (s *FixtureService) DiskHealthy() bool {
	return s.diskHealthy.Load()
}

// MemoryEntries counts live in-process cache entries.
func (s *FixtureService) MemoryEntries(ctx context.Context) int {
	return s.memory.Len(ctx)
}

func (s *FixtureService) ttlFor(dateKey string) time.Duration {
	if dateKey == s.now().UTC().Format(dateLayout) {
		return s.todayTTL
	}
	return s.settledTTL
}

const dayCachePrefix = "fixtures:"

func dayCacheKey(dateKey string) string {
	return dayCachePrefix + dateKey
}
