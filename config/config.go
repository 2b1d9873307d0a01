package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	cfg := &Config{}

	var err error
	if cfg.DatabaseURL, err = requiredEnv("DATABASE_URL"); err != nil {
		return nil, err
	}
	if cfg.JWTSecretKey, err = requiredEnv("JWT_SECRET_KEY"); err != nil {
		return nil, err
	}
	if cfg.R2AccountID, err = requiredEnv("R2_ACCOUNT_ID"); err != nil {
		return nil, err
	}
	if cfg.R2AccessKeyID, err = requiredEnv("R2_ACCESS_KEY_ID"); err != nil {
		return nil, err
	}
	if cfg.R2SecretAccessKey, err = requiredEnv("R2_SECRET_ACCESS_KEY"); err != nil {
		return nil, err
	}
	if cfg.R2BucketName, err = requiredEnv("R2_BUCKET_NAME"); err != nil {
		return nil, err
	}
	if cfg.R2PublicBaseURL, err = requiredEnv("R2_PUBLIC_BASE_URL"); err != nil {
		return nil, err
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}
	cfg.ServerPort = port

	return cfg, nil
}

func requiredEnv(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%s environment variable is not set", name)
	}
	return value, nil
}
