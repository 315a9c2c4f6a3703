package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env   string
	Port  int
	DBURL string

	// auth
	JWTSecret string
	AccessTTL time.Duration

	// transactional email provider (Brevo)
	BrevoAPIKey string
	SenderName  string
	SenderEmail string

	// certificate assets live under this root unless the event
	// carries a full http(s) URL
	AssetRoot string

	// public registration links are built against this base
	FrontendURL string

	// certificate dispatch worker pool size
	CertConcurrency int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OTLPEndpoint string
}

func Load() Config {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)
	dbURL := buildDBURL()

	return Config{
		Env:   env,
		Port:  port,
		DBURL: dbURL,

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		AccessTTL: time.Duration(getEnvInt("JWT_ACCESS_TTL_MINUTES", 60)) * time.Minute,

		BrevoAPIKey: getEnv("BREVO_API_KEY", ""),
		SenderName:  getEnv("BREVO_SENDER_NAME", "Smart Event Hub"),
		SenderEmail: getEnv("BREVO_SENDER_EMAIL", ""),

		AssetRoot:   getEnv("ASSET_ROOT", "./uploads"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		CertConcurrency: getEnvInt("CERT_CONCURRENCY", 4),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "eventhub")
	pass := getEnv("DB_PASSWORD", "eventhub")
	name := getEnv("DB_NAME", "eventhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
		}

		return num
	}
	return fallback
}
