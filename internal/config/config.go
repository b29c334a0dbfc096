package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the API server reads at startup.
// Values come from an optional YAML file, then the environment (which wins).
type Config struct {
	Port     string `yaml:"port"`
	BaseURL  string `yaml:"base_url"`
	LogLevel string `yaml:"log_level"`
	// AllowOrigins lists the browser origins allowed by CORS.
	AllowOrigins []string `yaml:"allow_origins"`

	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Limits   RateConfig     `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	JWTSecret          string        `yaml:"jwt_secret"`
	CookieSecret       string        `yaml:"cookie_secret"`
	GitHubClientID     string        `yaml:"github_client_id"`
	GitHubClientSecret string        `yaml:"github_client_secret"`
	SessionTTL         time.Duration `yaml:"session_ttl"`
	// Notifier is "postgres" (LISTEN/NOTIFY, shared across instances) or "local".
	Notifier string `yaml:"notifier"`
}

type StorageConfig struct {
	// Driver is "fs" or "supabase".
	Driver      string `yaml:"driver"`
	Bucket      string `yaml:"bucket"`
	Dir         string `yaml:"dir"`
	SupabaseURL string `yaml:"supabase_url"`
	SupabaseKey string `yaml:"supabase_key"`
}

type CacheConfig struct {
	// Driver is "memory" or "redis".
	Driver        string        `yaml:"driver"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	Size          int           `yaml:"size"`
	TTL           time.Duration `yaml:"ttl"`
	StaleAfter    time.Duration `yaml:"stale_after"`
	VoteRefresh   time.Duration `yaml:"vote_refresh"`
}

type RateConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

const MinCookieSecretLength = 32

func Default() Config {
	return Config{
		Port:     "8080",
		BaseURL:  "http://localhost:8080",
		LogLevel: "info",
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
		},
		Auth: AuthConfig{
			SessionTTL: 7 * 24 * time.Hour,
			Notifier:   "postgres",
		},
		Storage: StorageConfig{
			Driver: "fs",
			Bucket: "post-images",
			Dir:    "./uploads",
		},
		Cache: CacheConfig{
			Driver:      "memory",
			Size:        1024,
			TTL:         10 * time.Minute,
			StaleAfter:  30 * time.Second,
			VoteRefresh: 50 * time.Second,
		},
		Limits: RateConfig{
			PerSecond: 5,
			Burst:     20,
		},
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE (if set),
// then applies environment overrides and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("error loading .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	str("PORT", &c.Port)
	str("BASE_URL", &c.BaseURL)
	str("LOG_LEVEL", &c.LogLevel)
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		c.AllowOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.AllowOrigins = append(c.AllowOrigins, origin)
			}
		}
	}

	str("DATABASE_URL", &c.Database.URL)
	str("DB_HOST", &c.Database.Host)
	str("DB_PORT", &c.Database.Port)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Name)
	str("DB_SSLMODE", &c.Database.SSLMode)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("COOKIE_SECRET", &c.Auth.CookieSecret)
	str("GITHUB_CLIENT_ID", &c.Auth.GitHubClientID)
	str("GITHUB_CLIENT_SECRET", &c.Auth.GitHubClientSecret)
	str("AUTH_NOTIFIER", &c.Auth.Notifier)
	dur("SESSION_TTL", &c.Auth.SessionTTL)

	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("STORAGE_BUCKET", &c.Storage.Bucket)
	str("STORAGE_DIR", &c.Storage.Dir)
	str("SUPABASE_URL", &c.Storage.SupabaseURL)
	str("SUPABASE_SERVICE_KEY", &c.Storage.SupabaseKey)

	str("CACHE_DRIVER", &c.Cache.Driver)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("REDIS_PASSWORD", &c.Cache.RedisPassword)
	dur("CACHE_TTL", &c.Cache.TTL)
	dur("CACHE_STALE_AFTER", &c.Cache.StaleAfter)
	dur("VOTE_REFRESH_INTERVAL", &c.Cache.VoteRefresh)
	if v, ok := lookup("CACHE_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.Size = n
		}
	}

	if v, ok := lookup("RATE_LIMIT_PER_SECOND"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Limits.PerSecond = f
		}
	}
	if v, ok := lookup("RATE_LIMIT_BURST"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Limits.Burst = n
		}
	}
}

// Validate reports the first missing or malformed setting.
func (c Config) Validate() error {
	switch {
	case c.Database.URL == "" && c.Database.Name == "":
		return errors.New("DATABASE_URL or DB_NAME is required")
	case c.Auth.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case len(c.Auth.CookieSecret) < MinCookieSecretLength:
		return fmt.Errorf("COOKIE_SECRET must be at least %d bytes", MinCookieSecretLength)
	case c.Auth.GitHubClientID == "" || c.Auth.GitHubClientSecret == "":
		return errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET are required")
	case c.Auth.Notifier != "postgres" && c.Auth.Notifier != "local":
		return fmt.Errorf("unknown auth notifier %q", c.Auth.Notifier)
	case c.Storage.Driver != "fs" && c.Storage.Driver != "supabase":
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	case c.Storage.Driver == "supabase" && (c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == ""):
		return errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase storage driver")
	case c.Cache.Driver != "memory" && c.Cache.Driver != "redis":
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	case c.Cache.Driver == "redis" && c.Cache.RedisAddr == "":
		return errors.New("REDIS_ADDR is required for the redis cache driver")
	}
	return nil
}

// DSN builds a libpq-style connection string. DATABASE_URL takes precedence.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (c Config) Addr() string {
	return "0.0.0.0:" + c.Port
}

func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
