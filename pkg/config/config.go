package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort          string
	FirebaseProject     string
	FirebaseCredentials string
	FirebaseAPIKey      string
	StorageBucket       string
	Environment         string
	DevUserID           string
	MaxUploadSizeMB     int64
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		FirebaseProject:     getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS_FILE", "./service-account.json"),
		FirebaseAPIKey:      getEnv("FIREBASE_API_KEY", ""),
		StorageBucket:       getEnv("STORAGE_BUCKET", ""),
		Environment:         getEnv("ENVIRONMENT", "development"),
		DevUserID:           getEnv("DEV_USER_ID", "dev-user-1"),
		MaxUploadSizeMB:     getEnvAsInt64("MAX_UPLOAD_SIZE_MB", 10),
	}

	return config, nil
}

// IsProduction gates the relaxed development behavior (dev identity
// fallback on the realtime handshake, dev token endpoints).
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
