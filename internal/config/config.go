package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App        AppConfig
	Api        ApiConfig
	Credential CredentialConfig
	Mock       MockServerConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	RedisURL    string
}

type ApiConfig struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

type CredentialConfig struct {
	Store   string // "file" | "redis" | "memory"
	File    string
	Profile string
}

type MockServerConfig struct {
	Port      string
	JwtSecret string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/client.log"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Api: ApiConfig{
			BaseURL:  getEnv("API_BASE_URL", "http://localhost:8080/api"),
			Timeout:  time.Duration(getEnvAsInt("API_TIMEOUT_SECONDS", 30)) * time.Second,
			PageSize: getEnvAsInt("PAGE_SIZE", 12),
		},
		Credential: CredentialConfig{
			Store:   getEnv("CREDENTIAL_STORE", "file"),
			File:    getEnv("CREDENTIAL_FILE", ".edulycee-session"),
			Profile: getEnv("CREDENTIAL_PROFILE", "default"),
		},
		Mock: MockServerConfig{
			Port:      getEnv("MOCK_PORT", "8080"),
			JwtSecret: getEnv("JWT_SECRET", "edulycee-dev-secret"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
