package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port      string
	DataDir   string
	UploadDir string
	PublicDir string

	StoreDriver string
	DBPath      string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	SessionDir  string
	AutoConnect bool
	QRTerminal  bool
	InitTimeout time.Duration
	MaxBackoff  time.Duration

	LogLevel  string
	LogFormat string

	MaxUploadMB  int64
	DefaultDelay int
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Debug("No .env file found, using process environment")
	}

	dataDir := getEnv("DATA_DIR", "./data")

	return &Config{
		Port:      getEnv("PORT", "3000"),
		DataDir:   dataDir,
		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
		PublicDir: getEnv("PUBLIC_DIR", "./public"),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverJSON)),
		DBPath:      getEnv("DB_PATH", filepath.Join(dataDir, "whatsapp.db")),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "whatsapp_sender"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		SessionDir:  getEnv("SESSION_DIR", filepath.Join(dataDir, "whatsapp-session")),
		AutoConnect: getEnvBool("AUTO_CONNECT", true),
		QRTerminal:  getEnvBool("QR_TERMINAL", false),
		InitTimeout: getEnvDuration("INIT_TIMEOUT", 2*time.Minute),
		MaxBackoff:  getEnvDuration("MAX_BACKOFF", 2*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MaxUploadMB:  int64(getEnvInt("MAX_UPLOAD_MB", 50)),
		DefaultDelay: getEnvInt("DEFAULT_DELAY", 10),
	}
}

// MaxUploadBytes is the multipart size limit derived from MaxUploadMB.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		logrus.WithField("key", key).Warnf("Invalid boolean %q, using %v", value, fallback)
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		logrus.WithField("key", key).Warnf("Invalid integer %q, using %d", value, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		logrus.WithField("key", key).Warnf("Invalid duration %q, using %s", value, fallback)
		return fallback
	}
	return parsed
}
