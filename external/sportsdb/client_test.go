package sportsdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/kixonair/kixonair/internal/platform/resilience"
)

const eventsBody = `{
  "events": [
    {
      "idEvent": "1",
      "strEvent": "Arsenal vs Chelsea",
      "strLeague": "Premier League",
      "strHomeTeam": "Arsenal",
      "strAwayTeam": "Chelsea",
      "strStatus": "Match Finished",
      "strTimestamp": "2026-03-14T19:30:00+00:00",
      "dateEvent": "2026-03-14",
      "strTime": "19:30:00",
      "strHomeTeamBadge": "http://cdn.tsdb.com/arsenal.png"
    },
    {
      "idEvent": "2",
      "strEvent": "Knicks at Celtics",
      "strStatus": "",
      "dateEvent": "2026-03-14",
      "strTime": "23:00:00"
    },
    {
      "idEvent": "3",
      "strEvent": "Ghost vs Phantom",
      "strStatus": "NS"
    }
  ]
}`

const teamsBody = `{
  "teams": [
    {"strTeam": "Arsenal", "strAlternate": "Arsenal FC, The Gunners", "strSport": "Soccer", "strBadge": "//cdn.tsdb.com/arsenal.png"},
    {"strTeam": "Arsenal de Sarandi", "strSport": "Soccer", "strBadge": "https://cdn.tsdb.com/sarandi.png"},
    {"strTeam": "Arsenal Tula", "strSport": "Ice Hockey", "strBadge": "https://cdn.tsdb.com/tula.png"}
  ]
}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		HTTPClient:     server.Client(),
		BaseURL:        server.URL,
		Key:            "3",
		Timeout:        2 * time.Second,
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})
}

func TestEventsByDayMapsEvents(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/eventsday.php" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("d") != "2026-03-14" {
			t.Errorf("unexpected date %q", r.URL.Query().Get("d"))
		}
		if r.URL.Query().Get("s") != "Soccer" {
			t.Errorf("unexpected sport %q", r.URL.Query().Get("s"))
		}
		_, _ = w.Write([]byte(eventsBody))
	}))

	date := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	got, err := client.EventsByDay(context.Background(), date, fixture.SportSoccer)
	if err != nil {
		t.Fatalf("events by day: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 usable events, got %d", len(got))
	}

	first := got[0]
	if first.Status != fixture.StatusFinished {
		t.Fatalf("expected FINISHED, got %q", first.Status)
	}
	if first.League.Name != "Premier League" {
		t.Fatalf("unexpected league %q", first.League.Name)
	}
	if first.Home.Logo != "https://cdn.tsdb.com/arsenal.png" {
		t.Fatalf("expected https badge, got %q", first.Home.Logo)
	}
	if !first.StartUTC.Equal(time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", first.StartUTC)
	}
	if first.Tier != fixture.TierSecondary {
		t.Fatalf("expected tier 2, got %d", first.Tier)
	}

	// "Knicks at Celtics" lists the away side first.
	second := got[1]
	if second.Home.Name != "Celtics" || second.Away.Name != "Knicks" {
		t.Fatalf("unexpected sides %+v", second)
	}
	if second.Status != fixture.StatusScheduled {
		t.Fatalf("expected SCHEDULED, got %q", second.Status)
	}
}

func TestEventsByDayUnknownSport(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent for unknown sport")
	}))

	if _, err := client.EventsByDay(context.Background(), time.Now(), "Cricket"); err == nil {
		t.Fatal("expected error for unknown sport")
	}
}

func TestEventsByDayNullEvents(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"events": null}`))
	}))

	got, err := client.EventsByDay(context.Background(), time.Now(), fixture.SportSoccer)
	if err != nil {
		t.Fatalf("events by day: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events, got %d", len(got))
	}
}

func TestTeamBadgeExactMatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/searchteams.php" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(teamsBody))
	}))

	got, err := client.TeamBadge(context.Background(), fixture.SportSoccer, "Arsenal")
	if err != nil {
		t.Fatalf("team badge: %v", err)
	}
	if got != "https://cdn.tsdb.com/arsenal.png" {
		t.Fatalf("unexpected badge %q", got)
	}
}

func TestTeamBadgeAliasMatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(teamsBody))
	}))

	got, err := client.TeamBadge(context.Background(), fixture.SportSoccer, "The Gunners")
	if err != nil {
		t.Fatalf("team badge: %v", err)
	}
	if got != "https://cdn.tsdb.com/arsenal.png" {
		t.Fatalf("expected alias match, got %q", got)
	}
}

func TestTeamBadgeSubstringMatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
  "teams": [
    {"strTeam": "Arsenal de Sarandi", "strSport": "Soccer", "strBadge": "https://cdn.tsdb.com/sarandi.png"}
  ]
}`))
	}))

	got, err := client.TeamBadge(context.Background(), fixture.SportSoccer, "Sarandi")
	if err != nil {
		t.Fatalf("team badge: %v", err)
	}
	if got != "https://cdn.tsdb.com/sarandi.png" {
		t.Fatalf("expected substring match, got %q", got)
	}
}

func TestTeamBadgeFiltersSport(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(teamsBody))
	}))

	got, err := client.TeamBadge(context.Background(), fixture.SportNHL, "Arsenal Tula")
	if err != nil {
		t.Fatalf("team badge: %v", err)
	}
	if got != "https://cdn.tsdb.com/tula.png" {
		t.Fatalf("expected hockey team badge, got %q", got)
	}
}

func TestTeamBadgeMiss(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"teams": null}`))
	}))

	got, err := client.TeamBadge(context.Background(), fixture.SportSoccer, "Nobody FC")
	if err != nil {
		t.Fatalf("team badge: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty badge on miss, got %q", got)
	}
}

func TestParseEventName(t *testing.T) {
	cases := []struct {
		in   string
		home string
		away string
	}{
		{"Arsenal vs Chelsea", "Arsenal", "Chelsea"},
		{"Knicks at Celtics", "Celtics", "Knicks"},
		{"single-name", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		home, away := parseEventName(tc.in)
		if home != tc.home || away != tc.away {
			t.Fatalf("parseEventName(%q) = (%q, %q), want (%q, %q)", tc.in, home, away, tc.home, tc.away)
		}
	}
}
