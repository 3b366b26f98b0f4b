package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the spray plan API.
type Config struct {
	ERPBaseURL     string
	ERPAPIKey      string
	Port           int
	BearerToken    string
	RequestTimeout time.Duration
	StockDebounce  time.Duration
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:           8080,
		RequestTimeout: 15 * time.Second,
		StockDebounce:  500 * time.Millisecond,
	}

	cfg.ERPBaseURL = os.Getenv("ERP_BASE_URL")
	if cfg.ERPBaseURL == "" {
		return cfg, errors.New("ERP_BASE_URL is required")
	}

	cfg.ERPAPIKey = os.Getenv("ERP_API_KEY")

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if timeoutStr := os.Getenv("ERP_REQUEST_TIMEOUT_SECONDS"); timeoutStr != "" {
		if secs, err := strconv.Atoi(timeoutStr); err == nil && secs > 0 {
			cfg.RequestTimeout = time.Duration(secs) * time.Second
		} else {
			return cfg, fmt.Errorf("invalid ERP_REQUEST_TIMEOUT_SECONDS: %s", timeoutStr)
		}
	}

	if debounceStr := os.Getenv("STOCK_DEBOUNCE_MS"); debounceStr != "" {
		if ms, err := strconv.Atoi(debounceStr); err == nil && ms > 0 {
			cfg.StockDebounce = time.Duration(ms) * time.Millisecond
		} else {
			return cfg, fmt.Errorf("invalid STOCK_DEBOUNCE_MS: %s", debounceStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
