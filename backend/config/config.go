package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DataSourcePostgres = "postgres"
	DataSourceREST     = "rest"
	DataSourceMemory   = "memory"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// DataSource selects the store backing the progress core: postgres, rest or memory.
	DataSource string
	BaaSURL    string
	BaaSAPIKey string

	RedisAddr       string
	CatalogCacheTTL time.Duration
	RequestTimeout  time.Duration

	// ProgressSyncSpec is a cron spec; empty disables the periodic enrollment sync.
	ProgressSyncSpec string
	// PlayerIdleTTL is how long an untouched player state, or a confirmed
	// overlay entry, is kept in memory.
	PlayerIdleTTL time.Duration

	LogMode     string
	CORSOrigins string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		DBHost:           getEnv("DB_HOST", "localhost"),
		DBPort:           getEnv("DB_PORT", "5432"),
		DBUser:           getEnv("DB_USER", "postgres"),
		DBPassword:       getEnv("DB_PASSWORD", "postgres"),
		DBName:           getEnv("DB_NAME", "learning_platform"),
		JWTSecret:        getEnv("JWT_SECRET", "secret"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		DataSource:       strings.ToLower(getEnv("DATA_SOURCE", DataSourcePostgres)),
		BaaSURL:          strings.TrimRight(getEnv("BAAS_URL", ""), "/"),
		BaaSAPIKey:       getEnv("BAAS_API_KEY", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		ProgressSyncSpec: getEnv("PROGRESS_SYNC_SPEC", "@every 15m"),
		LogMode:          getEnv("LOG_MODE", "dev"),
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
	}

	var errs []string
	cfg.CatalogCacheTTL, err = getDuration("CATALOG_CACHE_TTL", 10*time.Minute)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		errs = append(errs, err.Error())
	}
	cfg.PlayerIdleTTL, err = getDuration("PLAYER_IDLE_TTL", 2*time.Hour)
	if err != nil {
		errs = append(errs, err.Error())
	}

	switch cfg.DataSource {
	case DataSourcePostgres, DataSourceMemory:
	case DataSourceREST:
		if cfg.BaaSURL == "" {
			errs = append(errs, "BAAS_URL is required when DATA_SOURCE=rest")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown DATA_SOURCE %q", cfg.DataSource))
	}

	if len(errs) > 0 {
		return cfg, fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// DSN returns the postgres connection string for the gorm store.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getDuration keeps the default when the value cannot be parsed and reports why.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}
