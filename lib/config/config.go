package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	defaultAddr    = ":8080"
	defaultDumpURL = "https://yyets.dmesg.app/dump/yyets_sqlite.zip"
	defaultDouban  = "https://www.douban.com"
)

// Config holds the runtime configuration, read from the environment with an
// optional .env file on top.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// DataDir holds the catalog database and cached images.
	DataDir string
	// DumpURL is where the staging dataset archive is downloaded from.
	DumpURL string
	// DoubanBaseURL is the metadata provider endpoint.
	DoubanBaseURL string
}

// Load reads configuration from .env (if present) and the environment.
func Load() (Config, error) {
	// A missing .env file is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := Config{
		Addr:          getEnv("RUBICK_ADDR", defaultAddr),
		DataDir:       os.Getenv("RUBICK_DATA_DIR"),
		DumpURL:       getEnv("RUBICK_DUMP_URL", defaultDumpURL),
		DoubanBaseURL: getEnv("RUBICK_DOUBAN_URL", defaultDouban),
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		cfg.DataDir = filepath.Join(home, ".rubick")
	}

	return cfg, nil
}

// DatabasePath is the catalog store file inside the data directory.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "rubick.db")
}

// ImageDir is where enrichment caches downloaded pictures.
func (c Config) ImageDir() string {
	return filepath.Join(c.DataDir, "images")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
