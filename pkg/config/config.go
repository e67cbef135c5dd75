// Package config loads geogate settings from defaults, an optional YAML
// file, a .env file and GEOGATE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// Country is the target ISO 3166-1 alpha-2 code.
	Country string `yaml:"country" validate:"len=2,alpha"`

	Log        LogConfig        `yaml:"log"`
	Cache      CacheConfig      `yaml:"cache"`
	Resolution ResolutionConfig `yaml:"resolution"`
	Remote     RemoteConfig     `yaml:"remote"`
	Gate       GateConfig       `yaml:"gate"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

type CacheConfig struct {
	Backend  string        `yaml:"backend" validate:"oneof=memory lru file redis"`
	TTL      time.Duration `yaml:"ttl" validate:"gt=0"`
	Dir      string        `yaml:"dir" validate:"required_if=Backend file"`
	RedisURL string        `yaml:"redis_url" validate:"required_if=Backend redis"`
	LRUSize  int           `yaml:"lru_size" validate:"gte=0"`
}

type ResolutionConfig struct {
	// Order lists strategy names in precedence order. Empty means the
	// built-in default.
	Order       []string `yaml:"order" validate:"dive,oneof=edge_header private_network remote_api geolite static_range"`
	EdgeHeaders []string `yaml:"edge_headers" validate:"dive,required"`
	RangeFile   string   `yaml:"range_file"`
	GeoLiteDB   string   `yaml:"geolite_db"`
}

type RemoteConfig struct {
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	Services    []string      `yaml:"services" validate:"dive,oneof=ip-api ipapi.co ipinfo"`
	IPInfoToken string        `yaml:"ipinfo_token"`
}

type GateConfig struct {
	Listen          string        `yaml:"listen" validate:"required"`
	MainTemplate    string        `yaml:"main_template" validate:"required"`
	FakeTemplate    string        `yaml:"fake_template" validate:"required"`
	ReferrerDomains []string      `yaml:"referrer_domains" validate:"dive,required"`
	DebugPages      bool          `yaml:"debug_pages"`
	CookieTTL       time.Duration `yaml:"cookie_ttl" validate:"gt=0"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
}

// DefaultReferrerDomains are the search engine domains a visitor must come
// from.
var DefaultReferrerDomains = []string{
	"google.com",
	"google.co.th",
	"google.co.uk",
	"google.ca",
	"google.com.au",
	"google.de",
	"google.fr",
	"google.co.jp",
	"google.co.kr",
	"google.co.in",
	"google.com.br",
	"google.ru",
	"google.it",
	"google.es",
	"google.com.mx",
	"google.cn",
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Country: "TH",
		Log:     LogConfig{Level: "info"},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     24 * time.Hour,
			Dir:     "storage/cache",
		},
		Remote: RemoteConfig{
			Timeout:  2 * time.Second,
			Services: []string{"ip-api", "ipapi.co"},
		},
		Gate: GateConfig{
			Listen:          ":8080",
			MainTemplate:    "screens/main.html",
			FakeTemplate:    "screens/fake.html",
			ReferrerDomains: append([]string(nil), DefaultReferrerDomains...),
			CookieTTL:       24 * time.Hour,
		},
	}
}

// Load builds the configuration. path may be empty. A missing .env file is
// not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found. Falling back to system environment variables.")
	}
	applyEnv(&cfg)

	cfg.Country = strings.ToUpper(strings.TrimSpace(cfg.Country))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LogLevel maps the configured level onto charmbracelet/log.
func (c Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func applyEnv(cfg *Config) {
	cfg.Country = GetEnv("GEOGATE_COUNTRY", cfg.Country)
	cfg.Log.Level = GetEnv("GEOGATE_LOG_LEVEL", cfg.Log.Level)

	cfg.Cache.Backend = GetEnv("GEOGATE_CACHE_BACKEND", cfg.Cache.Backend)
	cfg.Cache.TTL = GetEnvDuration("GEOGATE_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.Dir = GetEnv("GEOGATE_CACHE_DIR", cfg.Cache.Dir)
	cfg.Cache.RedisURL = GetEnv("GEOGATE_REDIS_URL", cfg.Cache.RedisURL)
	cfg.Cache.LRUSize = GetEnvInt("GEOGATE_LRU_SIZE", cfg.Cache.LRUSize)

	cfg.Resolution.Order = GetEnvList("GEOGATE_ORDER", cfg.Resolution.Order)
	cfg.Resolution.EdgeHeaders = GetEnvList("GEOGATE_EDGE_HEADERS", cfg.Resolution.EdgeHeaders)
	cfg.Resolution.RangeFile = GetEnv("GEOGATE_RANGE_FILE", cfg.Resolution.RangeFile)
	cfg.Resolution.GeoLiteDB = GetEnv("GEOGATE_GEOLITE_DB", cfg.Resolution.GeoLiteDB)

	cfg.Remote.Timeout = GetEnvDuration("GEOGATE_REMOTE_TIMEOUT", cfg.Remote.Timeout)
	cfg.Remote.Services = GetEnvList("GEOGATE_REMOTE_SERVICES", cfg.Remote.Services)
	cfg.Remote.IPInfoToken = GetEnv("GEOGATE_IPINFO_TOKEN", cfg.Remote.IPInfoToken)

	cfg.Gate.Listen = GetEnv("GEOGATE_LISTEN", cfg.Gate.Listen)
	cfg.Gate.MainTemplate = GetEnv("GEOGATE_MAIN_TEMPLATE", cfg.Gate.MainTemplate)
	cfg.Gate.FakeTemplate = GetEnv("GEOGATE_FAKE_TEMPLATE", cfg.Gate.FakeTemplate)
	cfg.Gate.ReferrerDomains = GetEnvList("GEOGATE_REFERRER_DOMAINS", cfg.Gate.ReferrerDomains)
	cfg.Gate.DebugPages = GetEnvBool("GEOGATE_DEBUG_PAGES", cfg.Gate.DebugPages)
	cfg.Gate.CookieTTL = GetEnvDuration("GEOGATE_COOKIE_TTL", cfg.Gate.CookieTTL)
	cfg.Gate.TrustedProxies = GetEnvList("GEOGATE_TRUSTED_PROXIES", cfg.Gate.TrustedProxies)
}

func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Warn("invalid integer override", "env", key, "value", value)
	}
	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
		log.Warn("invalid boolean override", "env", key, "value", value)
	}
	return fallback
}

func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		log.Warn("invalid duration override", "env", key, "value", value)
	}
	return fallback
}

// GetEnvList reads a comma separated list. Empty elements are dropped.
func GetEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
