package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI       string
	PostgresURI    string
	RedisURI       string
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host           string   // Raw HOST env (e.g. https://api.glowspace.app)
	AllowedHost    string   // Hostname only for strict host check (production only)
	Environment    string   // ENV: production, development, etc.

	// Realtime gateway
	PresenceBackend   string // "memory" (single process) or "redis"
	HandshakeTimeout  time.Duration
	EventRate         float64 // inbound socket events per second
	EventBurst        int
	IdentityCacheTTL  time.Duration
	LastSeenQueueSize int
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:5000")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", ""), getEnv("FRONTEND_URL_3", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	backend := strings.ToLower(strings.TrimSpace(getEnv("PRESENCE_BACKEND", "memory")))
	if backend != "redis" {
		backend = "memory"
	}

	return &Config{
		MongoURI:          getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/glowspace")),
		PostgresURI:       getEnv("POSTGRES_URI", "postgres://localhost:5432/glowspace?sslmode=disable"),
		RedisURI:          getEnv("REDIS_URI", "redis://localhost:6379/0"),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTIssuer:         getEnv("JWT_ISSUER", "glowspace"),
		JWTTTL:            getDuration("JWT_TTL", 7*24*time.Hour),
		Host:              host,
		AllowedHost:       allowedHost,
		Environment:       env,
		Port:              getEnv("PORT", "5000"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:    allowedOrigins,
		PresenceBackend:   backend,
		HandshakeTimeout:  getDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
		EventRate:         getFloat("WS_EVENT_RATE", 20),
		EventBurst:        getInt("WS_EVENT_BURST", 40),
		IdentityCacheTTL:  getDuration("IDENTITY_CACHE_TTL", 30*time.Second),
		LastSeenQueueSize: getInt("LAST_SEEN_QUEUE", 256),
	}
}

// hostname strips scheme, path and port from a HOST value.
func hostname(host string) string {
	h := host
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return strings.TrimSpace(h)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func getFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}
