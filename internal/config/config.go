package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr  string
	PredictURL  string
	GeoURL      string
	NoticeTTL   time.Duration
	Environment string
}

func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

// Load reads configuration from a .env file if present, falling back
// to system environment variables and built-in defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment variables")
	}

	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		PredictURL:  getEnv("PREDICT_URL", "https://saferoute-ml.onrender.com/predict"),
		GeoURL:      getEnv("GEO_URL", "https://ipapi.co/json/"),
		NoticeTTL:   time.Duration(getEnvInt("NOTICE_TTL_SECONDS", 3)) * time.Second,
		Environment: getEnv("ENVIRONMENT", "dev"),
	}
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}
