package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatali-fataliyev/spending_insights/internal/insights"
	"github.com/subosito/gotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port           string
	AppEnv         string
	LogLevel       string
	LogDir         string
	AllowedOrigins []string
	APIPrefix      string
	ProjectName    string
	Version        string

	DBDriver string
	DBDSN    string

	RedisAddr      string
	ModelCacheSize int
	ModelCacheTTL  time.Duration

	AnalyticsConfigPath string
	Analytics           insights.Config
}

// Load reads .env when present, then the environment, then the optional
// analytics YAML file.
func Load() (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Port:                getEnv("APP_PORT", "8000"),
		AppEnv:              getEnv("APP_ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogDir:              os.Getenv("LOG_DIR"),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		APIPrefix:           strings.TrimRight(getEnv("API_PREFIX", "/api/v1"), "/"),
		ProjectName:         getEnv("PROJECT_NAME", "Spending Insights Service"),
		Version:             getEnv("VERSION", "1.0.0"),
		DBDriver:            strings.ToLower(os.Getenv("DB_DRIVER")),
		DBDSN:               os.Getenv("DB_DSN"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		AnalyticsConfigPath: os.Getenv("ANALYTICS_CONFIG"),
		Analytics:           insights.DefaultConfig(),
	}

	var problems []string

	size, err := strconv.Atoi(getEnv("MODEL_CACHE_SIZE", "128"))
	if err != nil {
		problems = append(problems, fmt.Sprintf("invalid MODEL_CACHE_SIZE: %v", err))
	}
	cfg.ModelCacheSize = size

	ttl, err := time.ParseDuration(getEnv("MODEL_CACHE_TTL", "1h"))
	if err != nil {
		problems = append(problems, fmt.Sprintf("invalid MODEL_CACHE_TTL: %v", err))
	}
	cfg.ModelCacheTTL = ttl

	if len(problems) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}

	if cfg.AnalyticsConfigPath != "" {
		analytics, err := LoadAnalytics(cfg.AnalyticsConfigPath)
		if err != nil {
			return nil, err
		}
		cfg.Analytics = analytics
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAnalytics overlays a YAML file on the default analytics thresholds.
// Keys missing from the file keep their default.
func LoadAnalytics(path string) (insights.Config, error) {
	cfg := insights.DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading analytics config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing analytics config: %w", err)
	}
	return cfg, nil
}

// Validate reports all problems at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case "":
	case "mysql", "sqlite":
		if c.DBDSN == "" {
			problems = append(problems, fmt.Sprintf("DB_DSN is required when DB_DRIVER is '%s'", c.DBDriver))
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid DB_DRIVER '%s': must be mysql or sqlite", c.DBDriver))
	}

	if c.ModelCacheSize < 0 {
		problems = append(problems, "MODEL_CACHE_SIZE must not be negative")
	}
	if c.ModelCacheTTL < 0 {
		problems = append(problems, "MODEL_CACHE_TTL must not be negative")
	}
	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		problems = append(problems, fmt.Sprintf("API_PREFIX '%s' must start with /", c.APIPrefix))
	}
	if err := c.Analytics.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
