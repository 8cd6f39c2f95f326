package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Chain      string
	Wallet     string
	Source     SourceConfig
	Report     ReportConfig
	Export     ExportConfig
	Redis      RedisConfig
	DB         DBConfig
	Server     ServerConfig
	Tracing    TracingConfig
	Log        LogConfig
	ChainsFile string
}

type SourceConfig struct {
	InputFile string
	PageSize  int
	RateRPS   float64
	RateBurst int
}

type ReportConfig struct {
	// Debug re-raises handler failures instead of degrading to the
	// fallback. Development only.
	Debug            bool
	ProgressInterval int
	CacheCapacity    int
	CacheTTL         time.Duration
}

type ExportConfig struct {
	CSVPath    string
	PostgresOn bool
}

type RedisConfig struct {
	URL string
}

type DBConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type ServerConfig struct {
	HealthPort int
}

type TracingConfig struct {
	Endpoint string
	Insecure bool
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Chain:  getEnv("CHAIN", "cosmoshub"),
		Wallet: getEnv("WALLET_ADDRESS", ""),
		Source: SourceConfig{
			InputFile: getEnv("INPUT_FILE", ""),
			PageSize:  getEnvInt("SOURCE_PAGE_SIZE", 50),
			RateRPS:   getEnvFloat("SOURCE_RATE_RPS", 4),
			RateBurst: getEnvInt("SOURCE_RATE_BURST", 2),
		},
		Report: ReportConfig{
			Debug:            getEnvBool("DEBUG", false),
			ProgressInterval: getEnvInt("PROGRESS_INTERVAL", 50),
			CacheCapacity:    getEnvInt("CURRENCY_CACHE_CAPACITY", 4096),
			CacheTTL:         time.Duration(getEnvInt("CURRENCY_CACHE_TTL_MIN", 0)) * time.Minute,
		},
		Export: ExportConfig{
			CSVPath:    getEnv("OUTPUT_CSV", ""),
			PostgresOn: getEnvBool("EXPORT_POSTGRES", false),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		DB: DBConfig{
			URL:             getEnv("DB_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		},
		Server: ServerConfig{
			HealthPort: getEnvInt("HEALTH_PORT", 8080),
		},
		Tracing: TracingConfig{
			Endpoint: getEnv("OTLP_ENDPOINT", ""),
			Insecure: getEnvBool("OTLP_INSECURE", true),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		ChainsFile: getEnv("CHAINS_CONFIG", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Wallet == "" {
		return fmt.Errorf("WALLET_ADDRESS is required")
	}
	if c.Chain == "" {
		return fmt.Errorf("CHAIN is required")
	}
	if c.Export.PostgresOn && c.DB.URL == "" {
		return fmt.Errorf("DB_URL is required when EXPORT_POSTGRES is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
