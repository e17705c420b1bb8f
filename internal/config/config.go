package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the process-level settings. Everything here comes from the
// environment (with .env support in main); mutable AI settings such as the
// active provider and rollover ratios live in the app_settings table instead
// and are re-read per operation.
type Config struct {
	Port    int
	DataDir string

	// AllowCloudFallback permits the router to fall back to cloud providers
	// when the preferred local runtime is unavailable.
	AllowCloudFallback bool

	// Workers is the number of background job workers.
	Workers int
}

// Load builds a Config from the environment.
func Load() Config {
	c := Config{
		Port:               envInt("INKD_PORT", 27600),
		DataDir:            envString("INKD_DATA_DIR", "./data"),
		AllowCloudFallback: envBool("INKD_ALLOW_CLOUD_FALLBACK", true),
		Workers:            envInt("INKD_WORKERS", 2),
	}
	return c
}

// DBPath is the sqlite database file under the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "inkd.db")
}

// ModelsPath is the optional model catalog override file.
func (c Config) ModelsPath() string {
	return filepath.Join(c.DataDir, "models.yaml")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1" || v == "yes"
}
