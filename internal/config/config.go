/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment   string
	HTTPBind      string
	HTTPPort      int
	MetricsBind   string
	DBBackend     DatabaseBackend
	DBDSN         string
	JWTSigningKey string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("MACHINEPARK_ENV", "development"),
		HTTPBind:      getEnv("MACHINEPARK_HTTP_BIND", "0.0.0.0"),
		HTTPPort:      getEnvInt("MACHINEPARK_HTTP_PORT", 8080),
		MetricsBind:   getEnv("MACHINEPARK_METRICS_BIND", "127.0.0.1:9000"),
		DBBackend:     DatabaseBackend(getEnv("MACHINEPARK_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:         getEnv("MACHINEPARK_DB_DSN", ""),
		JWTSigningKey: getEnv("MACHINEPARK_JWT_SIGNING_KEY", ""),

		TracingEnabled:    getEnvBool("MACHINEPARK_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("MACHINEPARK_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("MACHINEPARK_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		if cfg.DBBackend != DatabaseSQLite {
			return nil, fmt.Errorf("MACHINEPARK_DB_DSN must be provided for backend %q", cfg.DBBackend)
		}
		cfg.DBDSN = "machinepark.db"
	}

	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("MACHINEPARK_JWT_SIGNING_KEY must be provided")
	}

	if strings.EqualFold(cfg.Environment, "production") && len(cfg.JWTSigningKey) < 16 {
		return nil, fmt.Errorf("MACHINEPARK_JWT_SIGNING_KEY must be at least 16 bytes in production")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
