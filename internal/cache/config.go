package cache

import (
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultStoragePath         = "./json.sqlite"
	DefaultMaxCacheEntries     = 100
	DefaultEvictionInterval    = 5 * time.Minute
	DefaultExpirySweepInterval = 5 * time.Second
)

// Config configures a DB. Zero values fall back to the defaults above.
type Config struct {
	// TableName selects a named table inside the storage file.
	TableName string
	// StoragePath is the database file. Its directory is created if missing.
	StoragePath string
	// CacheEnabled turns on the in-memory read cache.
	CacheEnabled bool
	// EvictOnLimit clears the cache on the eviction tick once it holds
	// MaxCacheEntries or more.
	EvictOnLimit bool
	// MaxCacheEntries is the eviction threshold. Zero means
	// DefaultMaxCacheEntries, so the threshold is never below 1.
	MaxCacheEntries int
	// EvictionInterval is the period of the eviction timer. Zero means
	// DefaultEvictionInterval.
	EvictionInterval time.Duration
	// ExpirySweepInterval is the period of the expiry sweep. Zero means
	// DefaultExpirySweepInterval.
	ExpirySweepInterval time.Duration
	// Verbose logs configuration, cache fills and evictions.
	Verbose bool
	// OnTickError is called when a background tick fails. The tick error is
	// logged either way and the timer keeps running.
	OnTickError func(task string, err error)
}

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() Config {
	return Config{
		StoragePath:         DefaultStoragePath,
		MaxCacheEntries:     DefaultMaxCacheEntries,
		EvictionInterval:    DefaultEvictionInterval,
		ExpirySweepInterval: DefaultExpirySweepInterval,
	}
}

// Validate reports out-of-range values.
func (c Config) Validate() error {
	if c.MaxCacheEntries < 0 {
		return configErrorf("maxCacheEntries must not be negative, got %d", c.MaxCacheEntries)
	}
	if c.EvictionInterval < 0 {
		return configErrorf("evictionInterval must not be negative, got %s", c.EvictionInterval)
	}
	if c.ExpirySweepInterval < 0 {
		return configErrorf("expirySweepInterval must not be negative, got %s", c.ExpirySweepInterval)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.StoragePath == "" {
		c.StoragePath = DefaultStoragePath
	}
	if c.MaxCacheEntries == 0 {
		c.MaxCacheEntries = DefaultMaxCacheEntries
	}
	if c.EvictionInterval == 0 {
		c.EvictionInterval = DefaultEvictionInterval
	}
	if c.ExpirySweepInterval == 0 {
		c.ExpirySweepInterval = DefaultExpirySweepInterval
	}
	return c
}

// ParseOptions builds a Config from loosely typed options such as a decoded
// YAML or JSON document. Both the long names and the short legacy names are
// accepted:
//
//	tableName
//	storagePath | dbPath
//	cacheEnabled | cache                       bool
//	evictOnLimit | clearCache                  bool
//	maxCacheEntries | maxCacheLimit            number
//	evictionInterval | clearCacheInterval      "30s", "5m", "2d", "1w", "1y" or milliseconds
//	expirySweepInterval | expiryInterval       same as above
//	verbose                                    bool
//
// A year in a duration string is 365 days. A value of the wrong type is a
// configuration error.
func ParseOptions(raw map[string]any) (Config, error) {
	cfg := DefaultConfig()
	for key, v := range raw {
		var err error
		switch key {
		case "tableName":
			cfg.TableName, err = optString(key, v)
		case "storagePath", "dbPath":
			cfg.StoragePath, err = optString(key, v)
		case "cacheEnabled", "cache":
			cfg.CacheEnabled, err = optBool(key, v)
		case "evictOnLimit", "clearCache":
			cfg.EvictOnLimit, err = optBool(key, v)
		case "verbose":
			cfg.Verbose, err = optBool(key, v)
		case "maxCacheEntries", "maxCacheLimit":
			cfg.MaxCacheEntries, err = optInt(key, v)
		case "evictionInterval", "clearCacheInterval":
			cfg.EvictionInterval, err = optDuration(key, v)
		case "expirySweepInterval", "expiryInterval":
			cfg.ExpirySweepInterval, err = optDuration(key, v)
		default:
			err = configErrorf("unknown option %q", key)
		}
		if err != nil {
			return Config{}, err
		}
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads options from a YAML file.
func LoadConfigFile(path string) (Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return Config{}, errors.Mark(errors.Wrapf(err, "parse config %s", path), ErrConfiguration)
	}
	return ParseOptions(raw)
}

// Environment variables read by ConfigFromEnv.
var envOptions = map[string]string{
	"QUICK_KV_TABLE":           "tableName",
	"QUICK_KV_DB":              "storagePath",
	"QUICK_KV_CACHE":           "cacheEnabled",
	"QUICK_KV_EVICT":           "evictOnLimit",
	"QUICK_KV_MAX_CACHE":       "maxCacheEntries",
	"QUICK_KV_EVICT_INTERVAL":  "evictionInterval",
	"QUICK_KV_EXPIRY_INTERVAL": "expirySweepInterval",
	"QUICK_KV_VERBOSE":         "verbose",
}

// ConfigFromEnv builds a Config from QUICK_KV_* variables. Booleans and
// numbers are parsed from their string form; a malformed value is a
// configuration error.
func ConfigFromEnv() (Config, error) {
	raw := map[string]any{}
	for env, key := range envOptions {
		s, ok := os.LookupEnv(env)
		if !ok || s == "" {
			continue
		}
		switch key {
		case "cacheEnabled", "evictOnLimit", "verbose":
			b, err := strconv.ParseBool(s)
			if err != nil {
				return Config{}, configErrorf("%s: %q is not a boolean", env, s)
			}
			raw[key] = b
		case "maxCacheEntries":
			n, err := strconv.Atoi(s)
			if err != nil {
				return Config{}, configErrorf("%s: %q is not a number", env, s)
			}
			raw[key] = n
		default:
			raw[key] = s
		}
	}
	return ParseOptions(raw)
}

func optString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", configErrorf("%s must be a string, got %T", key, v)
	}
	return s, nil
}

func optBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, configErrorf("%s must be a boolean, got %T", key, v)
	}
	return b, nil
}

func optInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, configErrorf("%s must be a whole number, got %v", key, n)
		}
		return int(n), nil
	}
	return 0, configErrorf("%s must be a number, got %T", key, v)
}

func optDuration(key string, v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := str2duration.ParseDuration(expandYears(strings.TrimSpace(d)))
		if err != nil {
			return 0, configErrorf("%s: invalid duration %q", key, d)
		}
		return parsed, nil
	case int, int64, uint64, float64:
		ms, err := optInt(key, d)
		if err != nil {
			return 0, err
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, configErrorf("%s must be a duration, got %T", key, v)
}

var yearUnit = regexp.MustCompile(`(\d+)y`)

// expandYears rewrites "<n>y" as 365 days per year, a unit str2duration
// does not know.
func expandYears(s string) string {
	return yearUnit.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(strings.TrimSuffix(m, "y"))
		if err != nil {
			return m
		}
		return strconv.Itoa(n*365) + "d"
	})
}
