package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	Env         string
	LogLevel    string
	LogFormat   string
	AutoMigrate bool

	DatabaseURL string
	ReplicaURL  string

	RedisHost string
	RedisPort string

	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	JWTSecret string

	TimelineTTL    time.Duration
	PostRateLimit  int64
	PostRateWindow time.Duration
}

// LoadConfig reads the process environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:     getEnv("APP_PORT", ":8080"),
		Env:         getEnv("ENV", "local"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		AutoMigrate: getBool("AUTO_MIGRATE", false),

		DatabaseURL: firstEnv("DIRECT_URL", "DATABASE_URL"),
		ReplicaURL:  getEnv("DATABASE_REPLICA_URL", ""),

		RedisHost: getEnv("REDIS_HOST", "localhost"),
		RedisPort: getEnv("REDIS_PORT", "6379"),

		KafkaBrokers: getEnv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),
		KafkaTopic:   getEnv("KAFKA_TOPIC_EVENTS", "cirqle.events"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "cirqle-api"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		TimelineTTL:    getDuration("TIMELINE_CACHE_TTL", 2*time.Minute),
		PostRateLimit:  int64(getInt("POST_RATE_LIMIT", 30)),
		PostRateWindow: getDuration("POST_RATE_WINDOW", time.Minute),
	}
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("neither DIRECT_URL nor DATABASE_URL is set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	return nil
}

func (c *Config) RedisAddr() string { return c.RedisHost + ":" + c.RedisPort }

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func getInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
