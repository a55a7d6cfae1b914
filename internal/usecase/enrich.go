package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/kixonair/kixonair/internal/platform/cache"
	"github.com/kixonair/kixonair/internal/platform/logging"
)

// errBadgeNotFound keeps resolver misses out of the hit store; they are
// recorded in the shorter-lived negative store instead.
var errBadgeNotFound = errors.New("badge not found")

// Enricher fills missing team logos by querying the badge resolver through a
// bounded worker pool. Hits and misses are cached separately: a found badge
// is worth keeping far longer than a miss, which may be fixed upstream at
// any time.
type Enricher struct {
	resolver    BadgeResolver
	hits        *cache.Store
	misses      *cache.Store
	concurrency int
	logger      *logging.Logger
}

func NewEnricher(resolver BadgeResolver, hits, misses *cache.Store, concurrency int, logger *logging.Logger) *Enricher {
	if logger == nil {
		logger = logging.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{
		resolver:    resolver,
		hits:        hits,
		misses:      misses,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Enrich resolves logos for every team that lacks one and applies the
// results in place. Resolver failures leave fixtures untouched.
func (e *Enricher) Enrich(ctx context.Context, items []fixture.Fixture) []fixture.Fixture {
	ctx, span := startUsecaseSpan(ctx, "usecase.Enricher.Enrich")
	defer span.End()

	type lookup struct {
		sport string
		name  string
	}

	pending := make(map[string]lookup, 16)
	resolved := make(map[string]string, 16)

	collect := func(sport string, side fixture.Side) {
		if side.Logo != "" || side.Name == "" {
			return
		}
		key := fixture.TeamKey(sport, side.Name)
		if _, ok := pending[key]; ok {
			return
		}
		if cached, ok := e.hits.Get(ctx, key); ok {
			resolved[key] = cached.(string)
			return
		}
		if _, ok := e.misses.Get(ctx, key); ok {
			return
		}
		pending[key] = lookup{sport: sport, name: side.Name}
	}

	for _, item := range items {
		collect(item.Sport, item.Home)
		collect(item.Sport, item.Away)
	}

	if len(pending) > 0 {
		workerPool, err := ants.NewPool(e.concurrency)
		if err != nil {
			e.logger.ErrorContext(ctx, "create logo worker pool", "error", err)
			return applyLogos(items, resolved)
		}
		defer workerPool.Release()

		var mu sync.Mutex
		var workers sync.WaitGroup
		for key, item := range pending {
			workers.Add(1)
			task := func() {
				defer workers.Done()

				// GetOrLoad coalesces lookups for the same team across
				// concurrently building days and stores hits with the hit
				// store's TTL.
				value, err := e.hits.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
					badge, err := e.resolver.TeamBadge(ctx, item.sport, item.name)
					if err != nil {
						return nil, err
					}
					if badge == "" {
						return nil, errBadgeNotFound
					}
					return badge, nil
				})
				if errors.Is(err, errBadgeNotFound) {
					e.misses.Set(ctx, key, struct{}{})
					return
				}
				if err != nil {
					e.logger.WarnContext(ctx, "logo lookup failed", "sport", item.sport, "team", item.name, "error", err)
					return
				}
				mu.Lock()
				resolved[key] = value.(string)
				mu.Unlock()
			}
			if err := workerPool.Submit(task); err != nil {
				workers.Done()
				e.logger.WarnContext(ctx, "submit logo lookup", "error", err)
			}
		}
		workers.Wait()
	}

	return applyLogos(items, resolved)
}

func applyLogos(items []fixture.Fixture, resolved map[string]string) []fixture.Fixture {
	if len(resolved) == 0 {
		return items
	}
	for i := range items {
		if items[i].Home.Logo == "" {
			if badge, ok := resolved[fixture.TeamKey(items[i].Sport, items[i].Home.Name)]; ok {
				items[i].Home.Logo = badge
			}
		}
		if items[i].Away.Logo == "" {
			if badge, ok := resolved[fixture.TeamKey(items[i].Sport, items[i].Away.Name)]; ok {
				items[i].Away.Logo = badge
			}
		}
	}
	return items
}
