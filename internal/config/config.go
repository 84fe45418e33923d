// package config loads scraper configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned when api_id, api_hash or phone_number
// are not provided via config file or environment.
var ErrMissingCredentials = errors.New(
	"missing required credentials: set TELEGRAM_API_ID, TELEGRAM_API_HASH and TELEGRAM_PHONE in .env or config.yaml")

// Config holds all resolved scraper settings.
type Config struct {
	// telegram credentials
	APIID   int
	APIHash string
	Phone   string

	// session
	SessionName string

	// output
	OutputFile string

	// ingestion
	BatchSize          int // messages per history request (api caps at 100)
	RateLimitDelayMs   int // inter-message delay during the walk
	CheckpointInterval int // records between checkpoint writes

	// resume
	ProgressFile string

	// logging
	LogLevel string
	LogFile  string
}

// fileConfig mirrors the config.yaml schema.
type fileConfig struct {
	APIID              int    `yaml:"api_id"`
	APIHash            string `yaml:"api_hash"`
	Phone              string `yaml:"phone_number"`
	SessionName        string `yaml:"session_name"`
	OutputFile         string `yaml:"output_file"`
	BatchSize          int    `yaml:"batch_size"`
	RateLimitDelay     int    `yaml:"rate_limit_delay"`
	CheckpointInterval int    `yaml:"checkpoint_interval"`
	ProgressFile       string `yaml:"progress_file"`
	LogLevel           string `yaml:"log_level"`
	LogFile            string `yaml:"log_file"`
}

// Load reads config.yaml (if present), then applies environment overrides.
// Environment variables always win over file values.
func Load(path string) (*Config, error) {
	// .env is optional, ignore load errors
	_ = godotenv.Load()

	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	cfg := &Config{
		APIID:              getEnvInt("TELEGRAM_API_ID", fc.APIID),
		APIHash:            getEnv("TELEGRAM_API_HASH", fc.APIHash),
		Phone:              getEnv("TELEGRAM_PHONE", fc.Phone),
		SessionName:        defaultStr(fc.SessionName, "telegram_session"),
		OutputFile:         defaultStr(fc.OutputFile, "messages.csv"),
		BatchSize:          defaultInt(fc.BatchSize, 100),
		RateLimitDelayMs:   defaultInt(fc.RateLimitDelay, 1),
		CheckpointInterval: defaultInt(fc.CheckpointInterval, 100),
		ProgressFile:       defaultStr(fc.ProgressFile, "progress.json"),
		LogLevel:           defaultStr(getEnv("LOG_LEVEL", fc.LogLevel), "info"),
		LogFile:            getEnv("LOG_FILE", fc.LogFile),
	}

	if cfg.APIID == 0 || cfg.APIHash == "" || cfg.Phone == "" {
		return nil, ErrMissingCredentials
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func defaultStr(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

func defaultInt(val, defaultVal int) int {
	if val > 0 {
		return val
	}
	return defaultVal
}
