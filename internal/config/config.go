package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Service identity reported by the health endpoint.
const (
	ServiceName    = "orchestrator"
	ServiceVersion = "0.1.0"
)

const (
	defaultListenAddr       = ":8080"
	defaultExecutionTimeout = 10 * time.Minute

	envListenAddr       = "ORCHESTRATOR_LISTEN_ADDR"
	envDBPath           = "ORCHESTRATOR_DB_PATH"
	envLogLevel         = "ORCHESTRATOR_LOG_LEVEL"
	envWorkflowsPath    = "ORCHESTRATOR_WORKFLOWS_PATH"
	envExecutionTimeout = "ORCHESTRATOR_EXECUTION_TIMEOUT"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr string
	// DBPath selects the SQLite store when set; empty selects the in-memory store.
	DBPath   string
	LogLevel slog.Level
	// WorkflowsPath optionally points at a YAML file with extra workflow definitions.
	WorkflowsPath string
	// ExecutionTimeout is the wall-clock budget for a whole execution.
	ExecutionTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr:       defaultListenAddr,
		LogLevel:         slog.LevelInfo,
		ExecutionTimeout: defaultExecutionTimeout,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envWorkflowsPath); v != "" {
		cfg.WorkflowsPath = v
	}
	if v := os.Getenv(envExecutionTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ExecutionTimeout = d
		}
	}

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
