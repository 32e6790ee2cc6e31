package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	JWTSecret     string
	JWTExpires    time.Duration
	UploadDir     string
	AppEnv        string
	LogLevel      string
	KafkaAddress  string
	ESURL         string
	ESUser        string
	ESPassword    string
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		Port:          getEnv("PORT", "3000"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTExpires:    24 * time.Hour,
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		AppEnv:        getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		KafkaAddress:  os.Getenv("KAFKA_ADDRESS"),
		ESURL:         os.Getenv("ES_URL"),
		ESUser:        os.Getenv("ES_USER"),
		ESPassword:    os.Getenv("ES_PASSWORD"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	if raw := os.Getenv("JWT_EXPIRES"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_EXPIRES %q: %w", raw, err)
		}
		config.JWTExpires = d
	}

	if config.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
