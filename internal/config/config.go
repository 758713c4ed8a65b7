package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the runtime configuration for the risk gate. Everything is
// sourced from the environment so that an operator can flip settings without
// touching the binary.
type Config struct {
	Environment string
	LogDir      string
	StateDir    string

	// LiveCapitalVerified must be explicitly and affirmatively set before any
	// trade can be authorized. Absence defaults to disabled.
	LiveCapitalVerified bool

	Enforcer struct {
		RegimeEvalInterval   time.Duration
		PositionPollInterval time.Duration
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}
}

// Load reads configuration from the environment
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogDir:      getEnv("LOG_DIR", "logs"),
		StateDir:    getEnv("STATE_DIR", "state"),

		LiveCapitalVerified: getEnvBool("LIVE_CAPITAL_VERIFIED", false),
	}

	cfg.Enforcer.RegimeEvalInterval = getEnvDuration("REGIME_EVAL_INTERVAL", 5*time.Minute)
	cfg.Enforcer.PositionPollInterval = getEnvDuration("POSITION_POLL_INTERVAL", 3*time.Minute)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
