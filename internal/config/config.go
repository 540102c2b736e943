package config

import (
	"os"
	"strings"
)

// DatabaseConfig returns host, port, user, password, database name
func DatabaseConfig() (string, string, string, string, string) {
	host := GetEnv("DB_HOST", "postgres")
	port := GetEnv("DB_PORT", "5432")
	user := GetEnv("DB_USER", "")
	password := GetEnv("DB_PASS", "")
	name := GetEnv("DB_NAME", "")
	return host, port, user, password, name
}

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "redis")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

func BotToken() string {
	return GetEnv("BOT_TOKEN", "")
}

// AdminIDs returns the user ids allowed to force-end any poll,
// comma-separated in ADMIN_IDS.
func AdminIDs() []string {
	raw := GetEnv("ADMIN_IDS", "")
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
