package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Admin     AdminConfig
	Catalog   CatalogConfig
	Engine    EngineConfig
	Oracle    OracleConfig
	Worker    WorkerConfig
	Downloads DownloadsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig holds the single operator account for the admin endpoints.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// CatalogConfig tunes the section-row cache shared with the collector.
type CatalogConfig struct {
	CacheTTL time.Duration
}

// EngineConfig tunes the local search strategies.
type EngineConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	TournamentSize int
}

// OracleConfig configures the generative fallback: credentials, the model
// chain, and the retry limit.
type OracleConfig struct {
	BaseURL        string
	APIKeys        []string
	Model          string
	FallbackModels []string
	MaxRetries     int
	Timeout        time.Duration
}

// WorkerConfig tunes the background request consumer.
type WorkerConfig struct {
	PollInterval time.Duration
}

// DownloadsConfig controls rendered PDF storage and signed download links.
type DownloadsConfig struct {
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admin = AdminConfig{
		Email:        v.GetString("ADMIN_EMAIL"),
		PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
	}

	cfg.Catalog = CatalogConfig{
		CacheTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), time.Hour),
	}

	cfg.Engine = EngineConfig{
		PopulationSize: v.GetInt("ENGINE_POPULATION_SIZE"),
		Generations:    v.GetInt("ENGINE_GENERATIONS"),
		MutationRate:   v.GetFloat64("ENGINE_MUTATION_RATE"),
		TournamentSize: v.GetInt("ENGINE_TOURNAMENT_SIZE"),
	}

	cfg.Oracle = OracleConfig{
		BaseURL:        v.GetString("ORACLE_BASE_URL"),
		APIKeys:        splitAndTrim(v.GetString("ORACLE_API_KEYS")),
		Model:          v.GetString("ORACLE_MODEL"),
		FallbackModels: splitAndTrim(v.GetString("ORACLE_FALLBACK_MODELS")),
		MaxRetries:     v.GetInt("ORACLE_MAX_RETRIES"),
		Timeout:        parseDuration(v.GetString("ORACLE_TIMEOUT"), 30*time.Second),
	}

	cfg.Worker = WorkerConfig{
		PollInterval: parseDuration(v.GetString("WORKER_POLL_INTERVAL"), 2*time.Second),
	}

	cfg.Downloads = DownloadsConfig{
		StorageDir:      v.GetString("DOWNLOADS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("DOWNLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DOWNLOADS_SIGNED_URL_TTL"), 30*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "schedule_api")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_EMAIL", "admin@localhost")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")

	v.SetDefault("CATALOG_CACHE_TTL", "1h")

	v.SetDefault("ENGINE_POPULATION_SIZE", 50)
	v.SetDefault("ENGINE_GENERATIONS", 100)
	v.SetDefault("ENGINE_MUTATION_RATE", 0.1)
	v.SetDefault("ENGINE_TOURNAMENT_SIZE", 3)

	v.SetDefault("ORACLE_BASE_URL", "")
	v.SetDefault("ORACLE_API_KEYS", "")
	v.SetDefault("ORACLE_MODEL", "gemini-2.5-pro")
	v.SetDefault("ORACLE_FALLBACK_MODELS", "gemini-2.5-flash-lite")
	v.SetDefault("ORACLE_MAX_RETRIES", 20)
	v.SetDefault("ORACLE_TIMEOUT", "30s")

	v.SetDefault("WORKER_POLL_INTERVAL", "2s")

	v.SetDefault("DOWNLOADS_STORAGE_DIR", "./downloads")
	v.SetDefault("DOWNLOADS_SIGNED_URL_SECRET", "dev_downloads_secret")
	v.SetDefault("DOWNLOADS_SIGNED_URL_TTL", "30m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
