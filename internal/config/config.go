package config

import (
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	// Research backend
	BackendWSURL string // ws:// or wss:// endpoint of the research server

	// Transport
	ReconnectAttempts int           // bounded retry attempts per outage
	ReconnectDelay    time.Duration // fixed backoff between attempts

	// Local persistence
	StoragePath         string // directory holding chatdata.json and backups/
	BackupCronSpec      string // cron schedule for store backups
	BackupRetentionDays int    // backups older than this are pruned

	// Research option defaults (user-adjustable at runtime via the gateway)
	Research ResearchDefaults `yaml:"research"`

	// Server
	ServerShutdownTimeoutSeconds int

	// CORS
	CORSAllowedOrigins string

	// Logging
	LogLevel  string
	LogFormat string
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		BackendWSURL: getEnvOrDefault("KNET_BACKEND_WS", "ws://127.0.0.1:5000/research"),

		ReconnectAttempts: getEnvAsInt("RECONNECT_ATTEMPTS", 5),
		ReconnectDelay:    getEnvAsDuration("RECONNECT_DELAY", time.Second),

		StoragePath:         getEnvOrDefault("STORAGE_PATH", defaultStoragePath()),
		BackupCronSpec:      getEnvOrDefault("BACKUP_CRON", "@hourly"),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 7),

		Research: DefaultResearchOptions(),

		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 10),

		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", ""),
	}

	// Optional YAML overlay for research defaults.
	if path := os.Getenv("RESEARCH_CONFIG_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			log.Printf("Warning: cannot open research config file %s: %v", path, err)
		} else {
			defer f.Close()
			if err := LoadConfigFile(f, AppConfig); err != nil {
				log.Printf("Warning: cannot parse research config file %s: %v", path, err)
			}
		}
	}

	if err := AppConfig.Research.Validate(); err != nil {
		log.Printf("Warning: invalid research defaults, falling back: %v", err)
		AppConfig.Research = DefaultResearchOptions()
	}
}

// defaultStoragePath keeps chat data under the user's home directory, one
// profile per OS user.
func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".knet"
	}
	return home + "/.knet"
}

// LoadConfigFile overlays YAML settings on top of an existing config.
func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(config); err != nil {
		return err
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}
