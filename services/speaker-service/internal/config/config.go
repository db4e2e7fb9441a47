package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env string

	// Postgres (pgxpool DSN)
	DBDSN string

	// RabbitMQ
	RabbitURL      string
	Prefetch       int
	ReconnectDelay time.Duration
	ShutdownWait   time.Duration

	// Upstream services
	EventServiceURL string

	// Service-to-service auth
	JWTSecret string
	JWTTTL    time.Duration

	HTTPTimeout time.Duration

	// Outbox relay
	OutboxEnabled      bool
	OutboxPollInterval time.Duration

	// Ops endpoint (health + metrics)
	OpsAddr string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Env = getEnvFirst([]string{"APP_ENV", "ENV"}, "dev")

	// Prefer DATABASE_URL; fall back to assembling one from POSTGRES_* parts.
	if dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL")); dbURL != "" {
		cfg.DBDSN = dbURL
	} else {
		cfg.DBDSN = buildPostgresURL(
			getEnv("POSTGRES_ADDR", ""),
			getEnv("POSTGRES_USER", ""),
			getEnv("POSTGRES_PASSWORD", ""),
			getEnv("POSTGRES_DB", ""),
			getEnv("POSTGRES_SSLMODE", "disable"),
		)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("missing database config: provide DATABASE_URL or POSTGRES_ADDR/POSTGRES_USER/POSTGRES_DB")
	}

	cfg.RabbitURL = strings.TrimSpace(os.Getenv("RABBIT_URL"))
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}
	cfg.Prefetch = getInt("RABBIT_PREFETCH", 1)
	cfg.ReconnectDelay = getDuration("RABBIT_RECONNECT_DELAY", 5*time.Second)
	cfg.ShutdownWait = getDuration("SHUTDOWN_WAIT", 10*time.Second)

	cfg.EventServiceURL = strings.TrimRight(getEnv("EVENT_SERVICE_URL", "http://localhost:8081"), "/")

	cfg.JWTSecret = strings.TrimSpace(os.Getenv("SERVICE_JWT_SECRET"))
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: SERVICE_JWT_SECRET")
	}
	cfg.JWTTTL = getDuration("SERVICE_JWT_TTL", 60*time.Second)

	cfg.HTTPTimeout = getDuration("HTTP_TIMEOUT", 10*time.Second)

	cfg.OutboxEnabled = getBool("OUTBOX_ENABLED", true)
	cfg.OutboxPollInterval = getDuration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)

	cfg.OpsAddr = getEnv("OPS_ADDR", ":8092")

	return cfg, nil
}

// buildPostgresURL assembles a DSN from parts, escaping credentials. Returns
// empty when a critical part is missing so Load can fail with one message.
func buildPostgresURL(addr, user, pass, db, sslmode string) string {
	if strings.TrimSpace(addr) == "" || strings.TrimSpace(user) == "" || strings.TrimSpace(db) == "" {
		return ""
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   strings.TrimSpace(addr),
		Path:   "/" + strings.TrimPrefix(strings.TrimSpace(db), "/"),
	}
	if pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}

	q := url.Values{}
	if strings.TrimSpace(sslmode) != "" {
		q.Set("sslmode", strings.TrimSpace(sslmode))
	}
	u.RawQuery = q.Encode()
	return u.String()
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
