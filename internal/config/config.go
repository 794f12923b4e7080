package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	// Backend connection
	ServerURL      string
	RequestTimeout time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Preview grid
	PageSize int

	// Where downloaded spreadsheets land unless -o overrides it
	DownloadDir string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		ServerURL:      getEnv("GUIDECTL_SERVER_URL", "http://localhost:8000"),
		RequestTimeout: parseDuration(getEnv("GUIDECTL_TIMEOUT", "2m")),

		LogFile:  getEnv("GUIDECTL_LOG_FILE", defaultLogFile()),
		LogLevel: parseLogLevel(getEnv("GUIDECTL_LOG_LEVEL", "INFO")),

		PageSize:    parseInt(getEnv("GUIDECTL_PAGE_SIZE", "25"), 25),
		DownloadDir: getEnv("GUIDECTL_DOWNLOAD_DIR", "."),
	}
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "/tmp/guidectl.log"
	}
	return filepath.Join(dir, "guidectl", "guidectl.log")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

func parseInt(s string, defaultVal int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
