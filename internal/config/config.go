package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kixonair/kixonair/internal/platform/logging"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// Fallback modes for the secondary fixtures provider.
const (
	FallbackPrimaryEmpty = "primary-empty"
	FallbackAlways       = "always"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string
	LogLevel           logging.Level

	AdminToken string

	CacheDir        string
	MemoryCacheTTL  time.Duration
	TodayCacheTTL   time.Duration
	SettledCacheTTL time.Duration
	RefreshInterval time.Duration

	FallbackMode string

	ESPNBaseURL               string
	ESPNTimeout               time.Duration
	ESPNMaxRetries            int
	ESPNSoccerSegments        []string
	ESPNCircuitEnabled        bool
	ESPNCircuitFailureCount   int
	ESPNCircuitOpenTimeout    time.Duration
	ESPNCircuitHalfOpenMaxReq int

	SportsDBBaseURL               string
	SportsDBKey                   string
	SportsDBTimeout               time.Duration
	SportsDBMaxRetries            int
	SportsDBCircuitEnabled        bool
	SportsDBCircuitFailureCount   int
	SportsDBCircuitOpenTimeout    time.Duration
	SportsDBCircuitHalfOpenMaxReq int

	LogoTTL           time.Duration
	LogoNegativeTTL   time.Duration
	EnrichConcurrency int

	PprofEnabled bool
	PprofAddr    string

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	UptraceEnabled bool
	UptraceDSN     string
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	memoryCacheTTL, err := time.ParseDuration(getEnv("MEMORY_CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse MEMORY_CACHE_TTL: %w", err)
	}
	if memoryCacheTTL <= 0 {
		return Config{}, fmt.Errorf("MEMORY_CACHE_TTL must be > 0")
	}
	todayCacheTTL, err := time.ParseDuration(getEnv("TODAY_CACHE_TTL", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse TODAY_CACHE_TTL: %w", err)
	}
	if todayCacheTTL <= 0 {
		return Config{}, fmt.Errorf("TODAY_CACHE_TTL must be > 0")
	}
	settledCacheTTL, err := time.ParseDuration(getEnv("SETTLED_CACHE_TTL", "6h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SETTLED_CACHE_TTL: %w", err)
	}
	if settledCacheTTL <= 0 {
		return Config{}, fmt.Errorf("SETTLED_CACHE_TTL must be > 0")
	}

	// Zero disables the background refresh loop.
	refreshInterval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "10m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_INTERVAL: %w", err)
	}
	if refreshInterval < 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL must be >= 0")
	}

	fallbackMode := strings.ToLower(strings.TrimSpace(getEnv("FALLBACK_MODE", FallbackPrimaryEmpty)))
	switch fallbackMode {
	case FallbackPrimaryEmpty, FallbackAlways:
	default:
		return Config{}, fmt.Errorf("invalid FALLBACK_MODE %q: valid values are %s, %s", fallbackMode, FallbackPrimaryEmpty, FallbackAlways)
	}

	espnTimeout, err := time.ParseDuration(getEnv("ESPN_TIMEOUT", "12s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ESPN_TIMEOUT: %w", err)
	}
	if espnTimeout <= 0 {
		return Config{}, fmt.Errorf("ESPN_TIMEOUT must be > 0")
	}
	espnMaxRetries, err := getEnvAsInt("ESPN_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse ESPN_MAX_RETRIES: %w", err)
	}
	if espnMaxRetries < 0 {
		return Config{}, fmt.Errorf("ESPN_MAX_RETRIES must be >= 0")
	}
	espnCircuitEnabled, err := strconv.ParseBool(getEnv("ESPN_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ESPN_CIRCUIT_ENABLED: %w", err)
	}
	espnCircuitFailureCount, err := getEnvAsInt("ESPN_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse ESPN_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if espnCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("ESPN_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	espnCircuitOpenTimeout, err := time.ParseDuration(getEnv("ESPN_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ESPN_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if espnCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("ESPN_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	espnCircuitHalfOpenMaxReq, err := getEnvAsInt("ESPN_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse ESPN_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if espnCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("ESPN_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	sportsDBTimeout, err := time.ParseDuration(getEnv("SPORTSDB_TIMEOUT", "12s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTSDB_TIMEOUT: %w", err)
	}
	if sportsDBTimeout <= 0 {
		return Config{}, fmt.Errorf("SPORTSDB_TIMEOUT must be > 0")
	}
	sportsDBMaxRetries, err := getEnvAsInt("SPORTSDB_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTSDB_MAX_RETRIES: %w", err)
	}
	if sportsDBMaxRetries < 0 {
		return Config{}, fmt.Errorf("SPORTSDB_MAX_RETRIES must be >= 0")
	}
	sportsDBCircuitEnabled, err := strconv.ParseBool(getEnv("SPORTSDB_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTSDB_CIRCUIT_ENABLED: %w", err)
	}
	sportsDBCircuitFailureCount, err := getEnvAsInt("SPORTSDB_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTSDB_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if sportsDBCircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("SPORTSDB_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	sportsDBCircuitOpenTimeout, err := time.ParseDuration(getEnv("SPORTSDB_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTSDB_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if sportsDBCircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("SPORTSDB_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	sportsDBCircuitHalfOpenMaxReq, err := getEnvAsInt("SPORTSDB_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse SPORTSDB_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if sportsDBCircuitHalfOpenMaxReq < 1 {
		return Config{}, fmt.Errorf("SPORTSDB_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	logoTTL, err := time.ParseDuration(getEnv("LOGO_TTL", "12h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LOGO_TTL: %w", err)
	}
	if logoTTL <= 0 {
		return Config{}, fmt.Errorf("LOGO_TTL must be > 0")
	}
	logoNegativeTTL, err := time.ParseDuration(getEnv("LOGO_NEGATIVE_TTL", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse LOGO_NEGATIVE_TTL: %w", err)
	}
	if logoNegativeTTL <= 0 {
		return Config{}, fmt.Errorf("LOGO_NEGATIVE_TTL must be > 0")
	}
	enrichConcurrency, err := getEnvAsInt("ENRICH_CONCURRENCY", 6)
	if err != nil {
		return Config{}, fmt.Errorf("parse ENRICH_CONCURRENCY: %w", err)
	}
	if enrichConcurrency < 1 {
		return Config{}, fmt.Errorf("ENRICH_CONCURRENCY must be >= 1")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "kixonair-api"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:        readTimeout,
		WriteTimeout:       writeTimeout,
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		AdminToken: strings.TrimSpace(getEnv("ADMIN_TOKEN", "")),

		CacheDir:        strings.TrimSpace(getEnv("CACHE_DIR", "./cache")),
		MemoryCacheTTL:  memoryCacheTTL,
		TodayCacheTTL:   todayCacheTTL,
		SettledCacheTTL: settledCacheTTL,
		RefreshInterval: refreshInterval,

		FallbackMode: fallbackMode,

		ESPNBaseURL:               strings.TrimSpace(getEnv("ESPN_BASE_URL", "https://site.api.espn.com/apis/site/v2/sports")),
		ESPNTimeout:               espnTimeout,
		ESPNMaxRetries:            espnMaxRetries,
		ESPNSoccerSegments:        splitCSV(getEnv("ESPN_SOCCER_SEGMENTS", "eng.1,esp.1,ger.1,ita.1,fra.1,uefa.champions,uefa.europa")),
		ESPNCircuitEnabled:        espnCircuitEnabled,
		ESPNCircuitFailureCount:   espnCircuitFailureCount,
		ESPNCircuitOpenTimeout:    espnCircuitOpenTimeout,
		ESPNCircuitHalfOpenMaxReq: espnCircuitHalfOpenMaxReq,

		SportsDBBaseURL:               strings.TrimSpace(getEnv("SPORTSDB_BASE_URL", "https://www.thesportsdb.com/api/v1/json")),
		SportsDBKey:                   strings.TrimSpace(getEnv("SPORTSDB_KEY", "3")),
		SportsDBTimeout:               sportsDBTimeout,
		SportsDBMaxRetries:            sportsDBMaxRetries,
		SportsDBCircuitEnabled:        sportsDBCircuitEnabled,
		SportsDBCircuitFailureCount:   sportsDBCircuitFailureCount,
		SportsDBCircuitOpenTimeout:    sportsDBCircuitOpenTimeout,
		SportsDBCircuitHalfOpenMaxReq: sportsDBCircuitHalfOpenMaxReq,

		LogoTTL:           logoTTL,
		LogoNegativeTTL:   logoNegativeTTL,
		EnrichConcurrency: enrichConcurrency,

		PprofEnabled: pprofEnabled,
		PprofAddr:    pprofAddr,

		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,

		UptraceEnabled: uptraceEnabled,
		UptraceDSN:     uptraceDSN,
	}

	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if cfg.CacheDir == "" {
		return Config{}, fmt.Errorf("CACHE_DIR cannot be empty")
	}
	if len(cfg.ESPNSoccerSegments) == 0 {
		return Config{}, fmt.Errorf("ESPN_SOCCER_SEGMENTS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
