package cachefile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/kixonair/kixonair/internal/domain/fixture"
	"github.com/kixonair/kixonair/internal/platform/logging"
)

var dateFileRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Store persists one JSON document per UTC date under a flat directory.
// Writes replace atomically via a temp file and rename, so readers never
// observe a torn document.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger *logging.Logger
}

func NewStore(dir string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %q: %w", dir, err)
	}

	return &Store{dir: dir, logger: logger}, nil
}

// Read loads the stored day for date. The second return is the write
// timestamp; ok is false when no document exists. A corrupt document is
// treated as a miss and removed.
func (s *Store) Read(ctx context.Context, date string) (fixture.Day, time.Time, bool, error) {
	if !dateFileRegex.MatchString(date) {
		return fixture.Day{}, time.Time{}, false, fmt.Errorf("invalid cache date %q", date)
	}

	path := s.pathFor(date)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fixture.Day{}, time.Time{}, false, nil
		}
		return fixture.Day{}, time.Time{}, false, fmt.Errorf("read cache file %q: %w", path, err)
	}

	var doc dayDocument
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt cache file", "path", path, "error", err)
		_ = os.Remove(path)
		return fixture.Day{}, time.Time{}, false, nil
	}

	day, err := doc.toDomain()
	if err != nil {
		s.logger.WarnContext(ctx, "discarding unreadable cache file", "path", path, "error", err)
		_ = os.Remove(path)
		return fixture.Day{}, time.Time{}, false, nil
	}

	return day, time.UnixMilli(doc.WrittenAtUnixMillis).UTC(), true, nil
}

// Write persists the day, stamping the write time.
func (s *Store) Write(ctx context.Context, day fixture.Day) error {
	if !dateFileRegex.MatchString(day.Date) {
		return fmt.Errorf("invalid cache date %q", day.Date)
	}

	doc := fromDomain(day)
	doc.WrittenAtUnixMillis = time.Now().UnixMilli()

	raw, err := sonic.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode cache document: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, day.Date+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, s.pathFor(day.Date)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cache file: %w", err)
	}

	s.logger.DebugContext(ctx, "cache file written", "date", day.Date, "fixtures", len(day.Fixtures))
	return nil
}

func (s *Store) Delete(_ context.Context, date string) error {
	if !dateFileRegex.MatchString(date) {
		return fmt.Errorf("invalid cache date %q", date)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.pathFor(date)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// Flush removes every date document, leaving foreign files alone.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list cache directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") || !dateFileRegex.MatchString(strings.TrimSuffix(name, ".json")) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("remove cache file %q: %w", name, err)
		}
		removed++
	}

	s.logger.InfoContext(ctx, "cache directory flushed", "removed", removed)
	return nil
}

// Len counts stored date documents.
func (s *Store) Len(_ context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list cache directory: %w", err)
	}

	n := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") && dateFileRegex.MatchString(strings.TrimSuffix(name, ".json")) {
			n++
		}
	}
	return n, nil
}

func (s *Store) pathFor(date string) string {
	return filepath.Join(s.dir, date+".json")
}

type dayDocument struct {
	Date                string            `json:"date"`
	WrittenAtUnixMillis int64             `json:"writtenAtUnixMillis"`
	BuiltAt             string            `json:"builtAt,omitempty"`
	Fixtures            []fixtureDocument `json:"fixtures"`
	SourceCounts        map[string]int    `json:"sourceCounts,omitempty"`
	Notices             []string          `json:"notices,omitempty"`
}

type fixtureDocument struct {
	Sport      string `json:"sport"`
	LeagueName string `json:"leagueName,omitempty"`
	LeagueCode string `json:"leagueCode,omitempty"`
	StartUTC   string `json:"startUtc"`
	Status     string `json:"status"`
	HomeName   string `json:"homeName"`
	HomeLogo   string `json:"homeLogo,omitempty"`
	AwayName   string `json:"awayName"`
	AwayLogo   string `json:"awayLogo,omitempty"`
	Tier       int    `json:"tier,omitempty"`
	Source     string `json:"source,omitempty"`
}

func fromDomain(day fixture.Day) dayDocument {
	doc := dayDocument{
		Date:         day.Date,
		SourceCounts: day.SourceCounts,
		Notices:      day.Notices,
		Fixtures:     make([]fixtureDocument, 0, len(day.Fixtures)),
	}
	if !day.BuiltAt.IsZero() {
		doc.BuiltAt = day.BuiltAt.UTC().Format(time.RFC3339Nano)
	}
	for _, item := range day.Fixtures {
		doc.Fixtures = append(doc.Fixtures, fixtureDocument{
			Sport:      item.Sport,
			LeagueName: item.League.Name,
			LeagueCode: item.League.Code,
			StartUTC:   item.StartUTC.UTC().Format(time.RFC3339Nano),
			Status:     item.Status,
			HomeName:   item.Home.Name,
			HomeLogo:   item.Home.Logo,
			AwayName:   item.Away.Name,
			AwayLogo:   item.Away.Logo,
			Tier:       item.Tier,
			Source:     item.Source,
		})
	}
	return doc
}

func (d dayDocument) toDomain() (fixture.Day, error) {
	out := fixture.Day{
		Date:         d.Date,
		SourceCounts: d.SourceCounts,
		Notices:      d.Notices,
		Fixtures:     make([]fixture.Fixture, 0, len(d.Fixtures)),
	}
	if strings.TrimSpace(d.BuiltAt) != "" {
		builtAt, err := time.Parse(time.RFC3339Nano, d.BuiltAt)
		if err != nil {
			return fixture.Day{}, fmt.Errorf("parse builtAt: %w", err)
		}
		out.BuiltAt = builtAt.UTC()
	}
	for i, item := range d.Fixtures {
		start, err := time.Parse(time.RFC3339Nano, item.StartUTC)
		if err != nil {
			return fixture.Day{}, fmt.Errorf("parse fixture %d start time: %w", i, err)
		}
		out.Fixtures = append(out.Fixtures, fixture.Fixture{
			Sport:    item.Sport,
			League:   fixture.League{Name: item.LeagueName, Code: item.LeagueCode},
			StartUTC: start.UTC(),
			Status:   item.Status,
			Home:     fixture.Side{Name: item.HomeName, Logo: item.HomeLogo},
			Away:     fixture.Side{Name: item.AwayName, Logo: item.AwayLogo},
			Tier:     item.Tier,
			Source:   item.Source,
		})
	}
	return out, nil
}
