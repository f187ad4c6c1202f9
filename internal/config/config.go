package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment.
type Config struct {
	Port     string
	Mode     string
	LogLevel string
	APIKey   string

	CORSOrigins []string

	// BundleDir is the read-only directory shipped with the app that holds
	// *.traineddata files.
	BundleDir string
	// DataDir is app-private storage; language data lives in DataDir/tessdata.
	DataDir string

	Engine         string
	Binary         string
	Timeout        time.Duration
	MaxConcurrent  int
	MaxUploadBytes int64
}

const (
	EngineGosseract = "gosseract"
	EngineCLI       = "cli"
)

// TessdataDir is the managed language data directory.
func (c *Config) TessdataDir() string {
	return filepath.Join(c.DataDir, "tessdata")
}

// IsProduction reports whether MODE=prod.
func (c *Config) IsProduction() bool {
	return c.Mode == "prod"
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// Load reads an optional .env file and the process environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		Mode:      getEnv("MODE", "debug"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		APIKey:    os.Getenv("API_KEY"),
		BundleDir: getEnv("TESSDATA_BUNDLE_DIR", "tessdata"),
		Engine:    getEnv("OCR_ENGINE", EngineGosseract),
		Binary:    getEnv("TESSERACT_BINARY", "tesseract"),
	}

	for _, o := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	dataDir := getEnv("DATA_DIR", "")
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data dir: %w", err)
		}
		dataDir = filepath.Join(base, "ocrbridge")
	}
	cfg.DataDir = dataDir

	switch cfg.Engine {
	case EngineGosseract, EngineCLI:
	default:
		return nil, fmt.Errorf("unknown OCR_ENGINE %q", cfg.Engine)
	}

	timeout, err := time.ParseDuration(getEnv("OCR_TIMEOUT", "2m"))
	if err != nil {
		return nil, fmt.Errorf("parse OCR_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("OCR_TIMEOUT must be positive, got %s", timeout)
	}
	cfg.Timeout = timeout

	cfg.MaxConcurrent, err = strconv.Atoi(getEnv("OCR_MAX_CONCURRENT", strconv.Itoa(runtime.NumCPU())))
	if err != nil || cfg.MaxConcurrent < 1 {
		return nil, fmt.Errorf("OCR_MAX_CONCURRENT must be a positive integer")
	}

	cfg.MaxUploadBytes, err = strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", strconv.Itoa(50<<20)), 10, 64)
	if err != nil || cfg.MaxUploadBytes < 1 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be a positive integer")
	}

	return cfg, nil
}
