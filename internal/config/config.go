package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string

	// Empty PostgresDSN selects the in-memory store; empty RedisAddr selects
	// the in-process queue. The standalone worker binary requires both.
	PostgresDSN string
	RedisAddr   string

	QueueKey      string
	ProcessingKey string
	Workers       int

	// Default token applied to submissions that carry none.
	GitHubToken string

	// Browser origins allowed to call the API. Local dev origins are always
	// included; FRONTEND_ORIGINS appends production ones.
	FrontendOrigins []string

	// Artificial latency for the canned analyzer, useful for demos.
	AnalyzerDelay time.Duration
}

// Load reads the environment, first merging an optional .env file. A missing
// .env is not an error; the process can run on real env vars alone.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ListenAddr:      envOr("LISTEN_ADDR", ":8001"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		QueueKey:        envOr("REDIS_QUEUE_KEY", "analyze:queue"),
		ProcessingKey:   envOr("REDIS_PROCESSING_KEY", "analyze:processing"),
		Workers:         envIntOr("WORKERS", 4),
		GitHubToken:     os.Getenv("GITHUB_TOKEN"),
		FrontendOrigins: frontendOrigins(os.Getenv("FRONTEND_ORIGINS")),
		AnalyzerDelay:   time.Duration(envIntOr("ANALYZER_DELAY_MS", 0)) * time.Millisecond,
	}
}

// frontendOrigins always allows the local dev servers and appends any
// comma-separated origins from the environment.
func frontendOrigins(env string) []string {
	origins := []string{
		"http://localhost:5173",
		"http://localhost:5174",
	}
	for _, o := range strings.Split(env, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
