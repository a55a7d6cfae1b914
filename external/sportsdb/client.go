package sportsdb

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/kixonair/kixonair/internal/platform/logging"
	"github.com/kixonair/kixonair/internal/platform/resilience"
	"github.com/kixonair/kixonair/internal/usecase"
)

const (
	defaultBaseURL = "https://www.thesportsdb.com/api/v1/json"
	defaultKey     = "3"
)

var errSportsDBTransient = crerr.New("thesportsdb transient failure")

// TheSportsDB names sports differently from the canonical set.
var sportsDBSportNames = map[string]string{
	fixture.SportSoccer: "Soccer",
	fixture.SportNBA:    "Basketball",
	fixture.SportNFL:    "American Football",
	fixture.SportNHL:    "Ice Hockey",
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Key            string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads TheSportsDB: events-by-day as the fixtures fallback and team
// search for badge lookups.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	key            string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 12 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	key := strings.TrimSpace(cfg.Key)
	if key == "" {
		key = defaultKey
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		key:            key,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Name() string { return "sportsdb" }

// EventsByDay fetches every event of one sport for a UTC day and normalizes
// the usable ones.
func (c *Client) EventsByDay(ctx context.Context, date time.Time, sport string) ([]fixture.Fixture, error) {
	providerSport, ok := sportsDBSportNames[sport]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sport %q", usecase.ErrInvalidInput, sport)
	}

	query := map[string]string{
		"d": date.UTC().Format("2006-01-02"),
		"s": providerSport,
	}

	var envelope eventsEnvelope
	if err := c.doJSON(ctx, "/eventsday.php", query, &envelope); err != nil {
		return nil, err
	}

	out := make([]fixture.Fixture, 0, len(envelope.Events))
	for _, event := range envelope.Events {
		item, usable := mapEvent(sport, event)
		if !usable {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

// TeamBadge resolves a team's badge URL via team search. Match preference:
// exact normalized name, then the strAlternate alias list, then substring.
// Returns "" when nothing matches.
func (c *Client) TeamBadge(ctx context.Context, sport, teamName string) (string, error) {
	providerSport, ok := sportsDBSportNames[sport]
	if !ok {
		return "", fmt.Errorf("%w: unknown sport %q", usecase.ErrInvalidInput, sport)
	}
	teamName = strings.TrimSpace(teamName)
	if teamName == "" {
		return "", fmt.Errorf("%w: team name is required", usecase.ErrInvalidInput)
	}

	var envelope teamsEnvelope
	if err := c.doJSON(ctx, "/searchteams.php", map[string]string{"t": teamName}, &envelope); err != nil {
		return "", err
	}

	want := fixture.NormalizeName(teamName)
	candidates := make([]teamRecord, 0, len(envelope.Teams))
	for _, record := range envelope.Teams {
		if strings.TrimSpace(record.Sport) != "" && record.Sport != providerSport {
			continue
		}
		candidates = append(candidates, record)
	}

	for _, record := range candidates {
		if fixture.NormalizeName(record.Name) == want {
			return fixture.ForceHTTPS(record.Badge), nil
		}
	}
	for _, record := range candidates {
		for _, alias := range splitAliases(record.Alternate) {
			if fixture.NormalizeName(alias) == want {
				return fixture.ForceHTTPS(record.Badge), nil
			}
		}
	}
	for _, record := range candidates {
		name := fixture.NormalizeName(record.Name)
		if name != "" && (strings.Contains(name, want) || strings.Contains(want, name)) {
			return fixture.ForceHTTPS(record.Badge), nil
		}
	}

	return "", nil
}

func mapEvent(sport string, event eventRecord) (fixture.Fixture, bool) {
	start := parseEventTime(event)
	if start == nil {
		return fixture.Fixture{}, false
	}

	home := strings.TrimSpace(event.HomeTeam)
	away := strings.TrimSpace(event.AwayTeam)
	if home == "" || away == "" {
		home, away = parseEventName(event.Event)
	}

	out := fixture.Fixture{
		Sport:    sport,
		League:   fixture.League{Name: strings.TrimSpace(event.League)},
		StartUTC: start.UTC(),
		Status:   fixture.MapStatusToken(event.Status),
		Home:     fixture.Side{Name: home, Logo: fixture.ForceHTTPS(event.HomeBadge)},
		Away:     fixture.Side{Name: away, Logo: fixture.ForceHTTPS(event.AwayBadge)},
		Tier:     fixture.TierSecondary,
		Source:   "sportsdb",
	}
	if !out.Usable() {
		return fixture.Fixture{}, false
	}
	return out, true
}

// parseEventName splits an event title into home and away. " vs " lists home
// first; the US " at " convention lists the away side first.
func parseEventName(eventName string) (home, away string) {
	eventName = strings.TrimSpace(eventName)
	if eventName == "" {
		return "", ""
	}
	if parts := strings.SplitN(eventName, " vs ", 2); len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	if parts := strings.SplitN(eventName, " at ", 2); len(parts) == 2 {
		return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
	}
	return "", ""
}

func parseEventTime(event eventRecord) *time.Time {
	if ts := strings.TrimSpace(event.Timestamp); ts != "" {
		layouts := []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02T15:04:05",
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, ts); err == nil {
				utc := parsed.UTC()
				return &utc
			}
		}
	}

	date := strings.TrimSpace(event.Date)
	if date == "" {
		return nil
	}
	clock := strings.TrimSpace(event.Time)
	if clock == "" {
		clock = "00:00:00"
	}
	if parsed, err := time.Parse("2006-01-02 15:04:05", date+" "+clock); err == nil {
		utc := parsed.UTC()
		return &utc
	}
	if parsed, err := time.Parse("2006-01-02 15:04", date+" "+clock); err == nil {
		utc := parsed.UTC()
		return &utc
	}
	return nil
}

func splitAliases(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '/'
	})
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field != "" {
			out = append(out, field)
		}
	}
	return out
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "thesportsdb circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: events provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + "/" + c.key + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errSportsDBTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errSportsDBTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errSportsDBTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errSportsDBTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "thesportsdb request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}

type eventsEnvelope struct {
	Events []eventRecord `json:"events"`
}

type eventRecord struct {
	ID        string `json:"idEvent"`
	Event     string `json:"strEvent"`
	League    string `json:"strLeague"`
	Sport     string `json:"strSport"`
	HomeTeam  string `json:"strHomeTeam"`
	AwayTeam  string `json:"strAwayTeam"`
	HomeBadge string `json:"strHomeTeamBadge"`
	AwayBadge string `json:"strAwayTeamBadge"`
	Status    string `json:"strStatus"`
	Timestamp string `json:"strTimestamp"`
	Date      string `json:"dateEvent"`
	Time      string `json:"strTime"`
}

type teamsEnvelope struct {
	Teams []teamRecord `json:"teams"`
}

type teamRecord struct {
	Name      string `json:"strTeam"`
	Alternate string `json:"strAlternate"`
	Sport     string `json:"strSport"`
	Badge     string `json:"strBadge"`
}
