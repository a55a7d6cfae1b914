package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/kixonair/kixonair/internal/usecase"
)

type Handler struct {
	fixtureService *usecase.FixtureService
	logger         *slog.Logger
	validator      *validator.Validate
}

func NewHandler(fixtureService *usecase.FixtureService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		fixtureService: fixtureService,
		logger:         logger,
		validator:      validator.New(),
	}
}

// Health stays dependency-free: no cache, no providers, no JSON encoder.
// Uptime probes hit it every few seconds.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type fixturesRequest struct {
	Date string `validate:"omitempty,datetime=2006-01-02|oneof=today tomorrow"`
}

func (h *Handler) GetFixtures(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetFixtures")
	defer span.End()

	req := fixturesRequest{Date: strings.TrimSpace(r.URL.Query().Get("date"))}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	day, err := h.fixtureService.FixturesForDate(ctx, req.Date, forceRequested(r))
	if err != nil {
		h.logger.WarnContext(ctx, "get fixtures failed", "date", req.Date, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, dayToDTO(ctx, day))
}

// GetFixturesToday and GetFixturesTomorrow keep the old path-style URLs
// working by redirecting to the canonical query form.
func (h *Handler) GetFixturesToday(w http.ResponseWriter, r *http.Request) {
	h.redirectToDate(w, r, "today")
}

func (h *Handler) GetFixturesTomorrow(w http.ResponseWriter, r *http.Request) {
	h.redirectToDate(w, r, "tomorrow")
}

func (h *Handler) redirectToDate(w http.ResponseWriter, r *http.Request, date string) {
	_, span := startSpan(r.Context(), "httpapi.Handler.redirectToDate")
	defer span.End()

	target := url.URL{Path: "/api/fixtures"}
	query := url.Values{"date": []string{date}}
	if forceRequested(r) {
		query.Set("force", "1")
	}
	target.RawQuery = query.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Probe")
	defer span.End()

	dateKey, probes, err := h.fixtureService.Probe(ctx, strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	providers := make([]providerProbeDTO, 0, len(probes))
	for _, p := range probes {
		providers = append(providers, providerProbeDTO{
			Provider: p.Provider,
			OK:       p.OK,
			Count:    p.Count,
			Error:    p.Error,
		})
	}

	writeJSON(ctx, w, http.StatusOK, probeResponseDTO{
		Date:          dateKey,
		Providers:     providers,
		DiskHealthy:   h.fixtureService.DiskHealthy(),
		MemoryEntries: h.fixtureService.MemoryEntries(ctx),
	})
}

type adminCacheRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02|oneof=today tomorrow"`
	All  bool   `json:"all"`
}

func (h *Handler) Precache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Precache")
	defer span.End()

	req, err := h.decodeAdminRequest(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	day, err := h.fixtureService.Precache(ctx, req.Date)
	if err != nil {
		h.logger.WarnContext(ctx, "precache failed", "date", req.Date, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "precache completed", "date", day.Date, "fixtures", len(day.Fixtures))
	writeJSON(ctx, w, http.StatusOK, precacheResponseDTO{
		Date:     day.Date,
		Fixtures: len(day.Fixtures),
		BuiltAt:  day.BuiltAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.FlushCache")
	defer span.End()

	req, err := h.decodeAdminRequest(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if req.All {
		if err := h.fixtureService.FlushAll(ctx); err != nil {
			h.logger.WarnContext(ctx, "flush all failed", "error", err)
			writeError(ctx, w, err)
			return
		}
		h.logger.InfoContext(ctx, "cache flushed", "scope", "all")
		writeJSON(ctx, w, http.StatusOK, flushResponseDTO{Flushed: "all"})
		return
	}

	if req.Date == "" {
		writeError(ctx, w, fmt.Errorf("%w: date or all=true is required", usecase.ErrInvalidInput))
		return
	}

	if err := h.fixtureService.FlushDate(ctx, req.Date); err != nil {
		h.logger.WarnContext(ctx, "flush date failed", "date", req.Date, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.logger.InfoContext(ctx, "cache flushed", "scope", req.Date)
	writeJSON(ctx, w, http.StatusOK, flushResponseDTO{Flushed: req.Date})
}

// decodeAdminRequest accepts the admin parameters from the query string or,
// on POST, from a strict JSON body. Query values win when both are present.
func (h *Handler) decodeAdminRequest(ctx context.Context, r *http.Request) (adminCacheRequest, error) {
	ctx, span := startSpan(ctx, "httpapi.Handler.decodeAdminRequest")
	defer span.End()

	var req adminCacheRequest
	if r.Method == http.MethodPost && r.Body != nil && r.ContentLength != 0 {
		decoder := jsoniter.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			return adminCacheRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
		}
	}

	query := r.URL.Query()
	if date := strings.TrimSpace(query.Get("date")); date != "" {
		req.Date = date
	}
	if all := strings.TrimSpace(query.Get("all")); all != "" {
		req.All = strings.EqualFold(all, "true") || all == "1"
	}

	if err := h.validateRequest(ctx, req); err != nil {
		return adminCacheRequest{}, err
	}

	return req, nil
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func forceRequested(r *http.Request) bool {
	force := strings.TrimSpace(r.URL.Query().Get("force"))
	return force == "1" || strings.EqualFold(force, "true")
}

type dayDTO struct {
	Date     string       `json:"date"`
	Fixtures []fixtureDTO `json:"fixtures"`
	Meta     metaDTO      `json:"meta"`
}

type metaDTO struct {
	SourceCounts map[string]int `json:"sourceCounts"`
	Notices      []string       `json:"notices,omitempty"`
}

type fixtureDTO struct {
	Sport    string     `json:"sport"`
	League   *leagueDTO `json:"league,omitempty"`
	StartUTC string     `json:"startUtc"`
	Status   string     `json:"status"`
	Home     sideDTO    `json:"home"`
	Away     sideDTO    `json:"away"`
	Tier     int        `json:"tier"`
	Source   string     `json:"source"`
}

type leagueDTO struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type sideDTO struct {
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
}

type providerProbeDTO struct {
	Provider string `json:"provider"`
	OK       bool   `json:"ok"`
	Count    int    `json:"count"`
	Error    string `json:"error,omitempty"`
}

type probeResponseDTO struct {
	Date          string             `json:"date"`
	Providers     []providerProbeDTO `json:"providers"`
	DiskHealthy   bool               `json:"diskHealthy"`
	MemoryEntries int                `json:"memoryEntries"`
}

type precacheResponseDTO struct {
	Date     string `json:"date"`
	Fixtures int    `json:"fixtures"`
	BuiltAt  string `json:"builtAt"`
}

type flushResponseDTO struct {
	Flushed string `json:"flushed"`
}

func dayToDTO(ctx context.Context, day fixture.Day) dayDTO {
	_, span := startSpan(ctx, "httpapi.dayToDTO")
	defer span.End()

	items := make([]fixtureDTO, 0, len(day.Fixtures))
	for _, f := range day.Fixtures {
		items = append(items, fixtureToDTO(f))
	}

	return dayDTO{
		Date:     day.Date,
		Fixtures: items,
		Meta: metaDTO{
			SourceCounts: day.SourceCounts,
			Notices:      day.Notices,
		},
	}
}

func fixtureToDTO(f fixture.Fixture) fixtureDTO {
	dto := fixtureDTO{
		Sport:    f.Sport,
		StartUTC: f.StartUTC.UTC().Format(time.RFC3339),
		Status:   f.Status,
		Home:     sideDTO{Name: f.Home.Name, Logo: f.Home.Logo},
		Away:     sideDTO{Name: f.Away.Name, Logo: f.Away.Logo},
		Tier:     f.Tier,
		Source:   f.Source,
	}
	if f.League.Name != "" || f.League.Code != "" {
		dto.League = &leagueDTO{Name: f.League.Name, Code: f.League.Code}
	}
	return dto
}
