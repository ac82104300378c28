package shared

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"ambulance_app/internal/app"
	"ambulance_app/internal/domain"
)

var (
	ErrInvalidNumber = errors.New("invalid number")
	ErrInvalidOrigin = errors.New("invalid warm origin")
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	OverpassURL        string
	OverpassRPS        int
	OverpassMaxRetries int

	SearchTimeout   time.Duration
	SearchRadius    int
	SearchMax       int
	SearchLang      string
	CacheTTL        time.Duration
	AverageSpeedKmh float64

	WarmWorkers int
	WarmOrigins []domain.Coordinate
}

// Load reads configuration from the environment, layered over the YAML
// file named by CONFIG_FILE when set. Environment values win. YAML keys are
// the lower-cased variable names (http_addr, search_timeout_seconds, ...).
func Load() (Config, error) {
	k := koanf.New(".")
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	l := loader{k: k}

	c := Config{
		AppEnv:      l.str("APP_ENV", "prod"),
		HTTPAddr:    l.str("HTTP_ADDR", ":8080"),
		MetricsAddr: l.str("METRICS_ADDR", ""),
		MySQLDSN:    l.str("MYSQL_DSN", "root:root@tcp(localhost:3306)/ambulance?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   l.str("REDIS_ADDR", "localhost:6379"),
		RedisPass:   l.str("REDIS_PASSWORD", ""),
		RedisDB:     l.intVal("REDIS_DB", 0),

		OverpassURL:        l.str("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassRPS:        l.intVal("OVERPASS_RPS", 2),
		OverpassMaxRetries: l.intVal("OVERPASS_MAX_RETRIES", 0),

		SearchTimeout:   time.Duration(l.intVal("SEARCH_TIMEOUT_SECONDS", 15)) * time.Second,
		SearchRadius:    l.intVal("SEARCH_RADIUS_METERS", app.DefaultRadiusMeters),
		SearchMax:       l.intVal("SEARCH_MAX_RESULTS", app.DefaultMaxResults),
		SearchLang:      l.str("SEARCH_LANG", app.DefaultLang),
		CacheTTL:        time.Duration(l.intVal("CACHE_TTL_SECONDS", 300)) * time.Second,
		AverageSpeedKmh: l.floatVal("AVERAGE_SPEED_KMH", 60),

		WarmWorkers: l.intVal("WARM_WORKERS", 4),
	}
	origins, err := ParseOrigins(l.str("WARM_ORIGINS", ""))
	if err != nil {
		l.errs = append(l.errs, err)
	}
	c.WarmOrigins = origins

	if c.WarmWorkers < 1 {
		c.WarmWorkers = 1
	}
	return c, errors.Join(l.errs...)
}

// SearchConfig projects the pipeline settings.
func (c Config) SearchConfig() app.SearchConfig {
	return app.SearchConfig{
		RadiusMeters: c.SearchRadius,
		MaxResults:   c.SearchMax,
		Timeout:      c.SearchTimeout,
		Lang:         c.SearchLang,
		CacheTTL:     c.CacheTTL,
	}
}

// ParseOrigins reads "lat,lon;lat,lon". Blank entries are skipped.
func ParseOrigins(s string) ([]domain.Coordinate, error) {
	var out []domain.Coordinate
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		ll := strings.Split(part, ",")
		if len(ll) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOrigin, part)
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(ll[0]), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(ll[1]), 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidOrigin, part)
		}
		c := domain.Coordinate{Lat: lat, Lon: lon}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidOrigin, part, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// loader resolves a key from env, then the file layer, then def, and
// collects parse errors instead of failing on the first one.
type loader struct {
	k    *koanf.Koanf
	errs []error
}

func (l *loader) raw(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return l.k.String(strings.ToLower(key))
}

func (l *loader) str(key, def string) string {
	if v := l.raw(key); v != "" {
		return v
	}
	return def
}

func (l *loader) intVal(key string, def int) int {
	v := l.raw(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, key, v))
		return def
	}
	return n
}

func (l *loader) floatVal(key string, def float64) float64 {
	v := l.raw(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, key, v))
		return def
	}
	return f
}
