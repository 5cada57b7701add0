package config

import (
	"os"
	"strconv"
	"time"

	"sjsage522/cafe24worker/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Input and output locations
	InputPath     string
	OutputRoot    string
	TemplatesRoot string

	// Fetcher configuration
	ProxyURL     string
	BaseDelay    time.Duration
	Jitter       time.Duration
	FetchTimeout time.Duration
	ImageTimeout time.Duration
	BlockTime    time.Duration

	// Image processing
	DetailTemplateName string
	MaxImageWidth      int

	// Output packaging
	ZipOutputs         bool
	ZipImagesName      string
	ZipScreenshotsName string

	// Screenshot capture
	ScreenshotEnabled bool
	ScreenshotTimeout time.Duration

	// Redis configuration (run store)
	RedisAddr string
	RedisDB   int

	// Memcache configuration (fetch block cache, empty disables)
	MemcacheAddr string

	// API server
	ListenAddr string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() Config {
	return Config{
		InputPath:          getEnv("SCRAPER_INPUT_URLS", ""),
		OutputRoot:         getEnv("SCRAPER_OUTPUT_ROOT", "output"),
		TemplatesRoot:      getEnv("SCRAPER_TEMPLATES_ROOT", "templates"),
		ProxyURL:           getEnv("SCRAPER_PROXY_URL", ""),
		BaseDelay:          getEnvDuration("SCRAPER_BASE_DELAY_MS", 3000),
		Jitter:             getEnvDuration("SCRAPER_JITTER_MS", 2000),
		FetchTimeout:       getEnvDuration("SCRAPER_FETCH_TIMEOUT_MS", 30000),
		ImageTimeout:       getEnvDuration("SCRAPER_IMAGE_TIMEOUT_MS", 60000),
		BlockTime:          getEnvDuration("SCRAPER_BLOCK_MS", 60000),
		DetailTemplateName: getEnv("SCRAPER_DETAIL_TEMPLATE", "detail_header.png"),
		MaxImageWidth:      getEnvInt("SCRAPER_MAX_IMAGE_WIDTH", 1200),
		ZipOutputs:         getEnvBool("SCRAPER_ZIP_OUTPUTS", true),
		ZipImagesName:      getEnv("SCRAPER_ZIP_IMAGES_NAME", "images.zip"),
		ZipScreenshotsName: getEnv("SCRAPER_ZIP_SCREENSHOTS_NAME", "screenshots.zip"),
		ScreenshotEnabled:  getEnvBool("SCREENSHOT_ENABLED", false),
		ScreenshotTimeout:  getEnvDuration("SCREENSHOT_TIMEOUT_MS", 45000),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		MemcacheAddr:       getEnv("MEMCACHE_ADDR", ""),
		ListenAddr:         getEnv("API_LISTEN_ADDR", ":8080"),
		Environment:        getEnv("CAFE24_ENVIRONMENT", "development"),
	}
}

// Validate checks configuration values that every mode depends on
func (c *Config) Validate() error {
	if c.OutputRoot == "" {
		return errors.NewConfiguration("SCRAPER_OUTPUT_ROOT must not be empty", nil)
	}
	if c.BaseDelay < 0 || c.Jitter < 0 {
		return errors.NewConfiguration("fetch delay values must not be negative", nil)
	}
	if c.MaxImageWidth <= 0 {
		return errors.NewConfiguration("SCRAPER_MAX_IMAGE_WIDTH must be positive", nil)
	}
	return nil
}

// ValidateRunOnce checks settings required to execute a single run directly
func (c *Config) ValidateRunOnce() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.InputPath == "" {
		return errors.NewConfiguration("SCRAPER_INPUT_URLS is required", nil)
	}
	if _, err := os.Stat(c.InputPath); err != nil {
		return errors.NewConfiguration("input file does not exist", err)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration retrieves a millisecond environment variable as a duration
func getEnvDuration(key string, defaultMillis int) time.Duration {
	return time.Duration(getEnvInt(key, defaultMillis)) * time.Millisecond
}
