package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env string

	// RabbitMQ
	RabbitURL      string
	Prefetch       int
	ReconnectDelay time.Duration
	ShutdownWait   time.Duration

	// Upstream services
	EventServiceURL   string
	BookingServiceURL string
	AuthServiceURL    string
	SpeakerServiceURL string

	// Service-to-service auth
	JWTSecret string
	JWTTTL    time.Duration

	HTTPTimeout time.Duration

	// Email / SMTP
	EmailSender string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPTimeout  time.Duration
	SMTPInsecure bool

	// Redis (send idempotency)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	IdempotencyTTL time.Duration

	// Ops endpoint (health + metrics)
	OpsAddr string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Env = getEnvFirst([]string{"APP_ENV", "ENV"}, "dev")

	cfg.RabbitURL = strings.TrimSpace(os.Getenv("RABBIT_URL"))
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	cfg.Prefetch = getInt("RABBIT_PREFETCH", 1)
	cfg.ReconnectDelay = getDuration("RABBIT_RECONNECT_DELAY", 5*time.Second)
	cfg.ShutdownWait = getDuration("SHUTDOWN_WAIT", 10*time.Second)

	cfg.EventServiceURL = strings.TrimRight(getEnv("EVENT_SERVICE_URL", "http://localhost:8081"), "/")
	cfg.BookingServiceURL = strings.TrimRight(getEnv("BOOKING_SERVICE_URL", "http://localhost:8082"), "/")
	cfg.AuthServiceURL = strings.TrimRight(getEnv("AUTH_SERVICE_URL", "http://localhost:8080"), "/")
	cfg.SpeakerServiceURL = strings.TrimRight(getEnv("SPEAKER_SERVICE_URL", "http://localhost:8083"), "/")

	cfg.JWTSecret = strings.TrimSpace(os.Getenv("SERVICE_JWT_SECRET"))
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: SERVICE_JWT_SECRET")
	}
	cfg.JWTTTL = getDuration("SERVICE_JWT_TTL", 60*time.Second)

	cfg.HTTPTimeout = getDuration("HTTP_TIMEOUT", 10*time.Second)

	cfg.EmailSender = getEnv("EMAIL_SENDER", "fake")

	cfg.SMTPHost = getEnv("SMTP_HOST", "")
	cfg.SMTPPort = getInt("SMTP_PORT", 587)
	cfg.SMTPUsername = getEnv("SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SMTPFrom = getEnv("SMTP_FROM", cfg.SMTPUsername)
	cfg.SMTPTimeout = getDuration("SMTP_TIMEOUT", 10*time.Second)
	cfg.SMTPInsecure = getBool("SMTP_INSECURE", false)

	if cfg.EmailSender == "smtp" {
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp sender selected but missing SMTP_HOST")
		}
	}

	cfg.RedisEnabled = getBool("REDIS_ENABLED", false)
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getInt("REDIS_DB", 0)

	cfg.IdempotencyTTL = getDuration("IDEMPOTENCY_TTL", 24*time.Hour)

	cfg.OpsAddr = getEnv("OPS_ADDR", ":8091")

	// Guard: prevent the classic "REDIS_ADDR=localhost:6379 OTHER=..." parsing issue
	if strings.Contains(cfg.RedisAddr, " ") {
		return nil, fmt.Errorf("bad REDIS_ADDR (contains spaces): %q", cfg.RedisAddr)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFirst(keys []string, def string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n := def
	_, _ = fmt.Sscanf(v, "%d", &n)
	if n <= 0 {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
