package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	JWTSecret     string
	MongoURI      string
	DBName        string
	SkipAuth      bool
	Environment   string
	AppId         string
	ConsumerURL   string // URL this node advertises to producers for callbacks
	PullSchedule  string // cron spec for the periodic pull
	RemoteTimeout int    // seconds, per remote HTTP call
	MaxDepDepth   int    // recursion bound for dependency resolution
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("DB_NAME", "docstream"),
		SkipAuth:      getEnv("SKIP_AUTH", "false") == "true",
		Environment:   getEnv("ENVIRONMENT", "development"),
		AppId:         getEnv("APP_ID", "docstream"),
		ConsumerURL:   getEnv("CONSUMER_URL", "http://localhost:8080"),
		PullSchedule:  getEnv("PULL_SCHEDULE", "@every 5m"),
		RemoteTimeout: getEnvInt("REMOTE_TIMEOUT_SECONDS", 15),
		MaxDepDepth:   getEnvInt("MAX_DEPENDENCY_DEPTH", 10),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
