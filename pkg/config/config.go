package config

import (
	"errors"
	"strconv"
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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Fees          FeesConfig
	Mail          MailConfig
	Storage       StorageConfig
	Dashboard     DashboardConfig
	Notifications NotificationsConfig
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

// FeesConfig carries the tuition pricing constants used by fee calculation.
// ProgramFees maps program IDs to a flat per-program surcharge.
type FeesConfig struct {
	PricePerUnit     float64
	MiscellaneousFee float64
	ProgramFees      map[string]float64
}

// MailConfig configures the outbound credentials/receipt mailer.
type MailConfig struct {
	Enabled     bool
	SendgridKey string
	FromEmail   string
	FromName    string
}

// StorageConfig controls enrollment document storage and signed downloads.
type StorageConfig struct {
	DocumentsDir     string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
}

// DashboardConfig governs dashboard metric caching.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// NotificationsConfig tunes the background mail dispatch queue.
type NotificationsConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
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

	cfg.Fees = FeesConfig{
		PricePerUnit:     v.GetFloat64("FEES_PRICE_PER_UNIT"),
		MiscellaneousFee: v.GetFloat64("FEES_MISCELLANEOUS"),
		ProgramFees:      parseProgramFees(v.GetString("FEES_PROGRAM_SURCHARGES")),
	}

	cfg.Mail = MailConfig{
		Enabled:     v.GetBool("MAIL_ENABLED"),
		SendgridKey: v.GetString("SENDGRID_API_KEY"),
		FromEmail:   v.GetString("MAIL_FROM_EMAIL"),
		FromName:    v.GetString("MAIL_FROM_NAME"),
	}

	maxUpload := v.GetInt64("DOCUMENTS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		DocumentsDir:     v.GetString("DOCUMENTS_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("DOCUMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("DOCUMENTS_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxUpload,
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    v.GetInt("NOTIFICATIONS_WORKERS"),
		MaxRetries: v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), 5*time.Second),
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
	v.SetDefault("DB_NAME", "registrar_portal")
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

	v.SetDefault("FEES_PRICE_PER_UNIT", 1000)
	v.SetDefault("FEES_MISCELLANEOUS", 2500)
	v.SetDefault("FEES_PROGRAM_SURCHARGES", "")

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_EMAIL", "registrar@wlc-ormoc.edu.ph")
	v.SetDefault("MAIL_FROM_NAME", "WLC Ormoc Registrar")

	v.SetDefault("DOCUMENTS_STORAGE_DIR", "./documents")
	v.SetDefault("DOCUMENTS_SIGNED_URL_SECRET", "dev_documents_secret")
	v.SetDefault("DOCUMENTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("DOCUMENTS_MAX_FILE_SIZE", 10*1024*1024)

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("NOTIFICATIONS_WORKERS", 1)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "5s")
}

// parseProgramFees parses "PROGRAM_ID:AMOUNT" pairs separated by commas.
// Malformed or negative entries are skipped.
func parseProgramFees(raw string) map[string]float64 {
	fees := make(map[string]float64)
	for _, pair := range splitAndTrim(raw) {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			continue
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || amount < 0 {
			continue
		}
		fees[strings.TrimSpace(parts[0])] = amount
	}
	return fees
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
