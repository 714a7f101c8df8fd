package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	apiKeyEnv   = "MONGODS_API_KEY"
	minKeyLen   = 32
	envFilename = ".env"
)

type Config struct {
	Port           int
	APIKey         string
	GrafanaURL     string
	GrafanaToken   string
	DatasourceUID  string
	DatasourceType string
	// AuditDB is the SQLite file for the query audit trail. Empty disables it.
	AuditDB            string
	AuditRetention     time.Duration
	LogDir             string
	RateLimitPerMinute int
	RateLimitBurst     int
	ForwardTimeout     time.Duration
}

func Load() (*Config, error) {
	// Try loading .env file, but don't fail if it doesn't exist
	_ = godotenv.Load(envFilename)

	key := os.Getenv(apiKeyEnv)
	if len(key) < minKeyLen {
		fmt.Printf("%s not found or too short. Generating a new secure key...\n", apiKeyEnv)
		newKey, err := generateRandomKey(minKeyLen)
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}

		if err := saveKeyToEnv(newKey); err != nil {
			fmt.Printf("Warning: Failed to save generated key to %s: %v\n", envFilename, err)
		} else {
			fmt.Printf("New %s saved to %s file.\n", apiKeyEnv, envFilename)
		}
		key = newKey
	}

	auditDB := getEnv("AUDIT_DB", "mongods.db")
	if strings.EqualFold(auditDB, "off") {
		auditDB = ""
	}

	return &Config{
		Port:               getInt("PORT", 8080),
		APIKey:             key,
		GrafanaURL:         getEnv("GRAFANA_URL", "http://localhost:3000"),
		GrafanaToken:       os.Getenv("GRAFANA_TOKEN"),
		DatasourceUID:      os.Getenv("DATASOURCE_UID"),
		DatasourceType:     getEnv("DATASOURCE_TYPE", "maikuroashi-mongodb-datasource"),
		AuditDB:            auditDB,
		AuditRetention:     getDuration("AUDIT_RETENTION", 720*time.Hour),
		LogDir:             getEnv("LOG_DIR", "logs"),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 20),
		ForwardTimeout:     getDuration("FORWARD_TIMEOUT", 30*time.Second),
	}, nil
}

func getEnv(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func getDuration(name string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(name)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func generateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	// URL-safe so the key can be pasted into a header or query string as is
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// saveKeyToEnv writes the key into .env, replacing an existing entry and
// keeping every other line.
func saveKeyToEnv(key string) error {
	env, err := godotenv.Read(envFilename)
	if os.IsNotExist(err) {
		env = map[string]string{}
	} else if err != nil {
		return err
	}
	env[apiKeyEnv] = key
	return godotenv.Write(env, envFilename)
}
