package fixture

import (
	"strings"
	"time"

	"github.com/valyala/bytebufferpool"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusHalf      = "HALF"
	StatusFinished  = "FINISHED"
)

const (
	SportSoccer = "Soccer"
	SportNBA    = "NBA"
	SportNFL    = "NFL"
	SportNHL    = "NHL"
)

const (
	TierMajor     = 1
	TierSecondary = 2
)

// Side is one participating team.
type Side struct {
	Name string
	Logo string
}

// League identifies the competition a fixture belongs to.
type League struct {
	Name string
	Code string
}

// Fixture represents one scheduled, live or finished event between two teams,
// normalized from whichever upstream produced it.
type Fixture struct {
	Sport    string
	League   League
	StartUTC time.Time
	Status   string
	Home     Side
	Away     Side
	Tier     int
	Source   string
}

// Day is one UTC day's merged fixture list plus build metadata. SourceCounts
// holds per-provider fixture counts before the merge; Notices records
// provider failures that degraded the build.
type Day struct {
	Date         string
	Fixtures     []Fixture
	SourceCounts map[string]int
	Notices      []string
	BuiltAt      time.Time
}

// Usable reports whether the fixture carries enough identity to merge and
// serve: both team names and a valid start time.
func (f Fixture) Usable() bool {
	return strings.TrimSpace(f.Home.Name) != "" &&
		strings.TrimSpace(f.Away.Name) != "" &&
		!f.StartUTC.IsZero()
}

// fillerNameTokens are club designation tokens dropped during
// normalization: one provider says "Arsenal", the other "Arsenal FC".
var fillerNameTokens = map[string]struct{}{
	"fc":  {},
	"afc": {},
	"cf":  {},
	"cfc": {},
	"sc":  {},
}

// NormalizeName lowercases a team name, collapses every run of
// non-alphanumeric characters to a single space and drops filler club
// tokens. Lossy on purpose: it exists to bridge spelling variance between
// providers ("Arsenal FC" vs "Arsenal").
func NormalizeName(name string) string {
	collapsed := collapseName(name)
	fields := strings.Fields(collapsed)
	kept := fields[:0]
	for _, token := range fields {
		if _, filler := fillerNameTokens[token]; !filler {
			kept = append(kept, token)
		}
	}
	// A name made entirely of filler tokens keeps its collapsed form.
	if len(kept) == 0 {
		return collapsed
	}
	return strings.Join(kept, " ")
}

func collapseName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingSpace := false
	for _, r := range strings.ToLower(name) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			if b.Len() > 0 {
				pendingSpace = true
			}
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MergeKey derives the cross-provider identity of a fixture: sport, both
// normalized team names and the start time truncated to its containing UTC
// hour. Hour bucketing absorbs minute-level disagreement between providers
// without conflating two distinct fixtures between the same clubs on the
// same day.
func (f Fixture) MergeKey() string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	_, _ = buf.WriteString(strings.ToLower(strings.TrimSpace(f.Sport)))
	_ = buf.WriteByte('|')
	_, _ = buf.WriteString(NormalizeName(f.Home.Name))
	_ = buf.WriteByte('|')
	_, _ = buf.WriteString(NormalizeName(f.Away.Name))
	_ = buf.WriteByte('|')
	_, _ = buf.WriteString(f.StartUTC.UTC().Truncate(time.Hour).Format(time.RFC3339))
	return buf.String()
}

// TeamKey identifies a team across fixtures for logo caching.
func TeamKey(sport, name string) string {
	return strings.ToLower(strings.TrimSpace(sport)) + "|" + NormalizeName(name)
}

// ForceHTTPS rewrites protocol-relative and plain-http URLs to https. Badge
// URLs arrive in all three forms depending on the provider.
func ForceHTTPS(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case rawURL == "":
		return ""
	case strings.HasPrefix(rawURL, "//"):
		return "https:" + rawURL
	case strings.HasPrefix(rawURL, "http://"):
		return "https://" + strings.TrimPrefix(rawURL, "http://")
	default:
		return rawURL
	}
}

// MapStatusToken maps a provider status vocabulary onto the canonical closed
// set. Substring rules, by precedence: half-time markers win over live,
// finality markers win over scheduled.
func MapStatusToken(raw string) string {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return StatusScheduled
	}
	switch {
	case token == "HT" || strings.Contains(token, "HALF"):
		return StatusHalf
	case token == "FT" || token == "AET" || token == "PEN" || token == "POST" ||
		strings.Contains(token, "FINISHED") || strings.Contains(token, "FINAL") ||
		strings.Contains(token, "FULL_TIME") || strings.Contains(token, "FULL TIME"):
		return StatusFinished
	case token == "LIVE" || token == "IN" || token == "1H" || token == "2H" ||
		strings.Contains(token, "IN_PLAY") || strings.Contains(token, "IN PLAY") ||
		strings.Contains(token, "PROGRESS"):
		return StatusLive
	default:
		return StatusScheduled
	}
}

// Progressed reports whether a status carries more information than SCHEDULED.
func Progressed(status string) bool {
	return status == StatusLive || status == StatusHalf || status == StatusFinished
}
