package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	DatabaseURL       string
	BaseURL           string
	JWTSecret         string
	MSClientID        string
	MSClientSecret    string
	MSTenantID        string
	EncryptionKey     string
	WatchedFolders    []string
	RenewalInterval   time.Duration
	ImportWorkerCount int
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	renewalInterval := 10 * time.Minute
	if iv := os.Getenv("RENEWAL_INTERVAL"); iv != "" {
		if parsed, err := time.ParseDuration(iv); err == nil {
			renewalInterval = parsed
		}
	}

	folders := []string{"inbox", "sentitems"}
	if raw := os.Getenv("WATCHED_FOLDERS"); raw != "" {
		folders = nil
		for _, f := range strings.Split(raw, ",") {
			if f = strings.TrimSpace(f); f != "" {
				folders = append(folders, f)
			}
		}
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", "host=localhost user=postgres dbname=crm port=5432 sslmode=disable"),
		BaseURL:           getEnv("BASE_URL", "http://localhost:8080"),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		MSClientID:        getEnv("MS_CLIENT_ID", ""),
		MSClientSecret:    getEnv("MS_CLIENT_SECRET", ""),
		MSTenantID:        getEnv("MS_TENANT_ID", "common"),
		EncryptionKey:     getEnv("ENCRYPTION_KEY", ""),
		WatchedFolders:    folders,
		RenewalInterval:   renewalInterval,
		ImportWorkerCount: 4,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
