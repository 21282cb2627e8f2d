package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Skotchmaster/vidstream/internal/models"
)

type Config struct {
	PORT        string
	LOG_LEVEL   string
	CORS_ORIGIN string

	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	ACCESS_TOKEN_SECRET  string
	REFRESH_TOKEN_SECRET string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration

	KAFKA_ADDRESS string

	MINIO_ENDPOINT   string
	MINIO_USER       string
	MINIO_PASSWORD   string
	MINIO_BUCKET     string
	MINIO_PUBLIC_URL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:        envDefault("PORT", "8080"),
		LOG_LEVEL:   envDefault("LOG_LEVEL", "info"),
		CORS_ORIGIN: os.Getenv("CORS_ORIGIN"),

		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		ACCESS_TOKEN_SECRET:  os.Getenv("ACCESS_TOKEN_SECRET"),
		REFRESH_TOKEN_SECRET: os.Getenv("REFRESH_TOKEN_SECRET"),
		AccessTokenTTL:       envDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshTokenTTL:      envDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		MINIO_ENDPOINT:   os.Getenv("MINIO_ENDPOINT"),
		MINIO_USER:       os.Getenv("MINIO_USER"),
		MINIO_PASSWORD:   os.Getenv("MINIO_PASSWORD"),
		MINIO_BUCKET:     os.Getenv("MINIO_BUCKET"),
		MINIO_PUBLIC_URL: os.Getenv("MINIO_PUBLIC_URL"),
	}

	return config, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Notice: cannot parse %s=%q, using default %s", key, v, def)
		return def
	}
	return d
}
