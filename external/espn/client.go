package espn

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/kixonair/kixonair/internal/platform/logging"
	"github.com/kixonair/kixonair/internal/platform/resilience"
	"github.com/kixonair/kixonair/internal/usecase"
)

const (
	defaultBaseURL = "https://site.api.espn.com/apis/site/v2/sports"

	// The scoreboard endpoints answer differently to non-browser agents.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	refererURL       = "https://www.espn.com/"

	statusHalftimeName = "STATUS_HALFTIME"
)

var errESPNTransient = crerr.New("espn transient failure")

var soccerLeagueNames = map[string]string{
	"eng.1":          "Premier League",
	"esp.1":          "La Liga",
	"ger.1":          "Bundesliga",
	"ita.1":          "Serie A",
	"fra.1":          "Ligue 1",
	"uefa.champions": "Champions League",
	"uefa.europa":    "Europa League",
}

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	SoccerSegments []string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads ESPN public scoreboards, one board per league segment.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     int
	soccerSegments []string
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

	segments := make([]string, 0, len(cfg.SoccerSegments))
	for _, seg := range cfg.SoccerSegments {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		soccerSegments: segments,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) Name() string { return "espn" }

type board struct {
	sport      string
	leagueName string
	leagueCode string
	path       string
	tier       int
}

func (c *Client) boards() []board {
	out := make([]board, 0, len(c.soccerSegments)+4)
	for _, seg := range c.soccerSegments {
		out = append(out, board{
			sport:      fixture.SportSoccer,
			leagueName: soccerLeagueNames[seg],
			leagueCode: seg,
			path:       "soccer/" + seg,
			tier:       fixture.TierMajor,
		})
	}
	// Catch-all soccer board: no league identity, lower tier. Named segments
	// win it back during the merge.
	out = append(out,
		board{sport: fixture.SportSoccer, path: "soccer/all", tier: fixture.TierSecondary},
		board{sport: fixture.SportNBA, leagueName: "NBA", leagueCode: "nba", path: "basketball/nba", tier: fixture.TierMajor},
		board{sport: fixture.SportNFL, leagueName: "NFL", leagueCode: "nfl", path: "football/nfl", tier: fixture.TierMajor},
		board{sport: fixture.SportNHL, leagueName: "NHL", leagueCode: "nhl", path: "hockey/nhl", tier: fixture.TierMajor},
	)
	return out
}

// FixturesByDate fetches every configured board concurrently for the given
// UTC day. Boards fail independently; the call errors only when every board
// fails.
func (c *Client) FixturesByDate(ctx context.Context, date time.Time) ([]fixture.Fixture, error) {
	boards := c.boards()
	results := make([][]fixture.Fixture, len(boards))
	errs := make([]error, len(boards))

	p := pool.New().WithContext(ctx)
	for i, b := range boards {
		p.Go(func(ctx context.Context) error {
			items, err := c.fetchBoard(ctx, b, date)
			if err != nil {
				errs[i] = err
				c.logger.WarnContext(ctx, "espn board fetch failed", "board", b.path, "error", err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	out := make([]fixture.Fixture, 0, 64)
	failures := 0
	for i := range boards {
		if errs[i] != nil {
			failures++
			continue
		}
		out = append(out, results[i]...)
	}
	if failures == len(boards) {
		return nil, fmt.Errorf("all espn boards failed: %w", stderrors.Join(errs...))
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].StartUTC.Before(out[j].StartUTC) })
	return out, nil
}

func (c *Client) fetchBoard(ctx context.Context, b board, date time.Time) ([]fixture.Fixture, error) {
	path := "/" + b.path + "/scoreboard"
	query := map[string]string{"dates": date.UTC().Format("20060102")}

	var envelope scoreboardEnvelope
	if err := c.doJSON(ctx, path, query, &envelope); err != nil {
		return nil, err
	}

	out := make([]fixture.Fixture, 0, len(envelope.Events))
	for _, event := range envelope.Events {
		item, ok := mapEvent(b, event)
		if !ok {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func mapEvent(b board, event scoreboardEvent) (fixture.Fixture, bool) {
	start := parseEventTime(event.Date)
	if start == nil && len(event.Competitions) > 0 {
		start = parseEventTime(event.Competitions[0].Date)
	}
	if start == nil {
		return fixture.Fixture{}, false
	}

	var home, away fixture.Side
	if len(event.Competitions) > 0 {
		for _, comp := range event.Competitions[0].Competitors {
			side := fixture.Side{
				Name: strings.TrimSpace(comp.Team.DisplayName),
				Logo: fixture.ForceHTTPS(comp.Team.logoURL()),
			}
			switch strings.ToLower(comp.HomeAway) {
			case "home":
				home = side
			case "away":
				away = side
			}
		}
	}

	out := fixture.Fixture{
		Sport:    b.sport,
		League:   fixture.League{Name: b.leagueName, Code: b.leagueCode},
		StartUTC: start.UTC(),
		Status:   mapEventStatus(event.Status),
		Home:     home,
		Away:     away,
		Tier:     b.tier,
		Source:   "espn",
	}
	if !out.Usable() {
		return fixture.Fixture{}, false
	}
	return out, true
}

func mapEventStatus(status eventStatus) string {
	name := strings.ToUpper(strings.TrimSpace(status.Type.Name))
	if name == statusHalftimeName {
		return fixture.StatusHalf
	}
	switch strings.ToLower(strings.TrimSpace(status.Type.State)) {
	case "in":
		if strings.Contains(strings.ToUpper(status.Type.Description), "HALF") {
			return fixture.StatusHalf
		}
		return fixture.StatusLive
	case "post":
		return fixture.StatusFinished
	default:
		return fixture.StatusScheduled
	}
}

func parseEventTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04Z",
		"2006-01-02T15:04:05Z",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "espn circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: scoreboard provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && stderrors.Is(reqErr, errESPNTransient) {
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
		return fmt.Errorf("decode scoreboard payload: %w", err)
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
		req.Header.Set("user-agent", browserUserAgent)
		req.Header.Set("referer", refererURL)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %v", errESPNTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errESPNTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errESPNTransient, resp.StatusCode, abbreviateBody(raw))
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
	c.logger.WarnContext(ctx, "espn request failed", "url", fullURL, "error", lastErr)
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

type scoreboardEnvelope struct {
	Events []scoreboardEvent `json:"events"`
}

type scoreboardEvent struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Competitions []competition `json:"competitions"`
	Status       eventStatus   `json:"status"`
}

type competition struct {
	Date        string       `json:"date"`
	Competitors []competitor `json:"competitors"`
}

type competitor struct {
	HomeAway string `json:"homeAway"`
	Team     team   `json:"team"`
}

type team struct {
	DisplayName string     `json:"displayName"`
	Logo        string     `json:"logo"`
	Logos       []teamLogo `json:"logos"`
}

type teamLogo struct {
	Href string `json:"href"`
}

func (t team) logoURL() string {
	if strings.TrimSpace(t.Logo) != "" {
		return t.Logo
	}
	for _, logo := range t.Logos {
		if strings.TrimSpace(logo.Href) != "" {
			return logo.Href
		}
	}
	return ""
}

type eventStatus struct {
	Type statusType `json:"type"`
}

type statusType struct {
	State       string `json:"state"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}
