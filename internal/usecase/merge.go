package usecase

import (
	"sort"

	"github.com/kixonair/kixonair/internal/domain/fixture"
)

// MergeFixtures deduplicates fixtures across providers by merge key. When two
// records collide the richer one wins: league identity beats logos, logos
// beat a progressed status, and the first-seen record wins a full tie. The
// winner then backfills whatever the loser knew that it did not. Output is
// sorted by start time, stable, so repeated merges of the same input are
// byte-identical.
func MergeFixtures(items []fixture.Fixture) []fixture.Fixture {
	byKey := make(map[string]int, len(items))
	out := make([]fixture.Fixture, 0, len(items))

	for _, item := range items {
		if !item.Usable() {
			continue
		}
		key := item.MergeKey()
		idx, seen := byKey[key]
		if !seen {
			byKey[key] = len(out)
			out = append(out, item)
			continue
		}

		existing := out[idx]
		if richness(item) > richness(existing) {
			out[idx] = backfill(item, existing)
		} else {
			out[idx] = backfill(existing, item)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartUTC.Before(out[j].StartUTC)
	})
	return out
}

func richness(f fixture.Fixture) int {
	score := 0
	if f.League.Name != "" || f.League.Code != "" {
		score += 4
	}
	if f.Home.Logo != "" || f.Away.Logo != "" {
		score += 2
	}
	if fixture.Progressed(f.Status) {
		score++
	}
	return score
}

func backfill(winner, loser fixture.Fixture) fixture.Fixture {
	if winner.League.Name == "" {
		winner.League.Name = loser.League.Name
	}
	if winner.League.Code == "" {
		winner.League.Code = loser.League.Code
	}
	if winner.Home.Logo == "" {
		winner.Home.Logo = loser.Home.Logo
	}
	if winner.Away.Logo == "" {
		winner.Away.Logo = loser.Away.Logo
	}
	if loser.Tier > 0 && (winner.Tier == 0 || loser.Tier < winner.Tier) {
		winner.Tier = loser.Tier
	}
	if !fixture.Progressed(winner.Status) && fixture.Progressed(loser.Status) {
		winner.Status = loser.Status
	}
	return winner
}
