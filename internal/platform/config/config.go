package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSAllowedOrigins []string

	RunnerURL       string
	RunnerAPIKey    string
	RunnerTimeout   time.Duration
	DefaultRuntime  string // runtime id used when an exercise has no language configured
	RankingCacheTTL time.Duration
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		JWTKey:             []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:             time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "user"),
		DBPassword:         getEnv("DB_PASSWORD", "password"),
		DBName:             getEnv("DB_NAME", "codequest_db"),
		DBSslMode:          getEnv("DB_SSLMODE", "disable"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		CORSAllowedOrigins: strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		RunnerURL:          getEnv("RUNNER_URL", "http://localhost:2358"),
		RunnerAPIKey:       getEnv("RUNNER_API_KEY", ""),
		RunnerTimeout:      time.Duration(getEnvAsInt("RUNNER_TIMEOUT_MS", 15000)) * time.Millisecond,
		DefaultRuntime:     getEnv("RUNNER_DEFAULT_RUNTIME_ID", "63"),
		RankingCacheTTL:    time.Duration(getEnvAsInt("RANKING_CACHE_TTL_SECONDS", 30)) * time.Second,
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
