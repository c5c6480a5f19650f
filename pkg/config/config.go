package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultDocsURL = "http://localhost:8000/docs"

type Config struct {
	Server   ServerConfig
	App      AppConfig
	Cache    CacheConfig
	Events   EventsConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type AppConfig struct {
	Name    string
	Version string
	DocsURL string
	Debug   bool
}

type CacheConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type EventsConfig struct {
	Enabled bool
	NATSURL string
	Subject string
	Stream  string
}

type MetricsConfig struct {
	Enabled bool
}

type SecurityConfig struct {
	RateLimitPerMinute int
	RateLimitBurst     int
	// Прокси, от которых принимаются X-Forwarded-For и X-Real-IP
	TrustedProxies []netip.Prefix
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration(getEnv("SERVER_SHUTDOWN_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
	}

	cacheTTL, err := parseDuration(getEnv("CACHE_DEFAULT_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_DEFAULT_TTL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	rateLimitPerMinute, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	rateLimitBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	trustedProxies, err := parseTrustedProxies(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	debug, err := getEnvBool("DEBUG", false)
	if err != nil {
		return nil, err
	}
	cacheEnabled, err := getEnvBool("CACHE_ENABLED", false)
	if err != nil {
		return nil, err
	}
	eventsEnabled, err := getEnvBool("NATS_ENABLED", false)
	if err != nil {
		return nil, err
	}
	metricsEnabled, err := getEnvBool("METRICS_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: shutdownTimeout,
		},
		App: AppConfig{
			Name:    getEnv("APP_NAME", "InfoFi Web"),
			Version: getEnv("APP_VERSION", "0.1.0"),
			DocsURL: getEnv("DOCS_URL", DefaultDocsURL),
			Debug:   debug,
		},
		Cache: CacheConfig{
			Enabled:      cacheEnabled,
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			TTL:          cacheTTL,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Events: EventsConfig{
			Enabled: eventsEnabled,
			NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),
			Subject: getEnv("NATS_LANDING_SUBJECT", "infofi.landing.viewed"),
			Stream:  getEnv("NATS_STREAM", "INFOFI_LANDING"),
		},
		Metrics: MetricsConfig{
			Enabled: metricsEnabled,
		},
		Security: SecurityConfig{
			RateLimitPerMinute: rateLimitPerMinute,
			RateLimitBurst:     rateLimitBurst,
			TrustedProxies:     trustedProxies,
		},
	}

	if cfg.Security.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", cfg.Security.RateLimitPerMinute)
	}
	if cfg.Security.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", cfg.Security.RateLimitBurst)
	}

	return cfg, nil
}

// Addr возвращает адрес Redis в формате host:port.
func (c *CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// RateLimitRPS переводит лимит в минуту в запросы в секунду.
func (c *SecurityConfig) RateLimitRPS() float64 {
	return float64(c.RateLimitPerMinute) / 60.0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}

	return parsed, nil
}

// parseTrustedProxies принимает список CIDR или IP через запятую
func parseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if strings.Contains(item, "/") {
			prefix, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
