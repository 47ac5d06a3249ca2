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
	Waitlist  WaitlistConfig
	Messaging MessagingConfig
	Notify    NotifyConfig
	Clubs     ClubsConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig is optional. An empty URL and host leave Redis disabled, which
// turns off the channel cache and the claim rate limit.
type RedisConfig struct {
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
	Timeout  time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WaitlistConfig governs claim token issuance and the expiry sweeper.
type WaitlistConfig struct {
	TokenTTL             time.Duration
	TokenSecret          string
	PublicBaseURL        string
	ClaimSuccessRedirect string
	SweepInterval        time.Duration
}

// MessagingConfig points at the WhatsApp gateway used for broadcasts.
type MessagingConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	DefaultChannel string
	DefaultRegion  string
}

// NotifyConfig toggles background re-dispatch of failed broadcasts.
type NotifyConfig struct {
	AutoRetry     bool
	RetryAttempts int
	RetryDelay    time.Duration
}

// ClubsConfig tunes the club channel directory cache.
type ClubsConfig struct {
	ChannelCacheTTL time.Duration
}

// RateLimitConfig limits claim attempts per client.
type RateLimitConfig struct {
	ClaimPerMinute int
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		URL:          v.GetString("DATABASE_URL"),
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
		URL:      v.GetString("REDIS_URL"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		Timeout:  parseDuration(v.GetString("REDIS_TIMEOUT"), 500*time.Millisecond),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Waitlist = WaitlistConfig{
		TokenTTL:             parseDuration(v.GetString("WAITLIST_TOKEN_TTL"), 24*time.Hour),
		TokenSecret:          v.GetString("WAITLIST_TOKEN_SECRET"),
		PublicBaseURL:        strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		ClaimSuccessRedirect: v.GetString("CLAIM_SUCCESS_REDIRECT_URL"),
		SweepInterval:        parseDuration(v.GetString("WAITLIST_SWEEP_INTERVAL"), time.Hour),
	}

	cfg.Messaging = MessagingConfig{
		BaseURL:        strings.TrimRight(v.GetString("MESSAGING_BASE_URL"), "/"),
		APIKey:         v.GetString("MESSAGING_API_KEY"),
		Timeout:        parseDuration(v.GetString("MESSAGING_TIMEOUT"), 10*time.Second),
		DefaultChannel: v.GetString("MESSAGING_DEFAULT_CHANNEL"),
		DefaultRegion:  strings.ToUpper(v.GetString("MESSAGING_DEFAULT_REGION")),
	}

	cfg.Notify = NotifyConfig{
		AutoRetry:     v.GetBool("NOTIFY_AUTO_RETRY"),
		RetryAttempts: v.GetInt("NOTIFY_RETRY_ATTEMPTS"),
		RetryDelay:    parseDuration(v.GetString("NOTIFY_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Clubs = ClubsConfig{
		ChannelCacheTTL: parseDuration(v.GetString("CLUB_CHANNEL_CACHE_TTL"), 10*time.Minute),
	}

	cfg.RateLimit = RateLimitConfig{
		ClaimPerMinute: v.GetInt("CLAIM_RATE_LIMIT_PER_MINUTE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "padel_club")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TIMEOUT", "500ms")

	v.SetDefault("JWT_SECRET", DevJWTSecret)
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("WAITLIST_TOKEN_TTL", "24h")
	v.SetDefault("WAITLIST_TOKEN_SECRET", DevTokenSecret)
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("CLAIM_SUCCESS_REDIRECT_URL", "")
	v.SetDefault("WAITLIST_SWEEP_INTERVAL", "1h")

	v.SetDefault("MESSAGING_BASE_URL", "https://gate.whapi.cloud")
	v.SetDefault("MESSAGING_API_KEY", "")
	v.SetDefault("MESSAGING_TIMEOUT", "10s")
	v.SetDefault("MESSAGING_DEFAULT_CHANNEL", "")
	v.SetDefault("MESSAGING_DEFAULT_REGION", "ES")

	v.SetDefault("NOTIFY_AUTO_RETRY", false)
	v.SetDefault("NOTIFY_RETRY_ATTEMPTS", 3)
	v.SetDefault("NOTIFY_RETRY_DELAY", "30s")

	v.SetDefault("CLUB_CHANNEL_CACHE_TTL", "10m")
	v.SetDefault("CLAIM_RATE_LIMIT_PER_MINUTE", 30)
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

// viper reports a missing explicit config file as an fs error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}
