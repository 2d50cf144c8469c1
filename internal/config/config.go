package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the tailer and supervisor binaries.
type Config struct {
	// ClickHouse sink
	ClickHouseHost string
	ClickHousePort int
	ClickHouseDB   string

	// Shard directory layout
	BaseDir string // root of the YEAR/MONTH/DAY tree

	// Pair tailer behaviour
	PollInterval      time.Duration // sleep between poll iterations, nominal 10s
	MaxTornRetries    int           // torn-record retry budget at rollover, nominal 10
	NominalBatchSize  int64         // accumulated payload bytes that trigger a flush
	NominalBatchCount int64         // accumulated entry count that triggers a flush

	// Supervisor behaviour
	ScanInterval  time.Duration // how often the supervisor rescans the day directory
	RegistryPath  string        // bbolt db path for supervisor dispatch/backoff bookkeeping
	ShardMapPath  string        // yaml file mapping shard stems to operator metadata
	TailerBinPath string        // path to the tailer binary the supervisor spawns per shard

	CursorMirror bool // mirror cursor progress to ClickHouse for monitoring
	ReadOnly     bool // consume and log but never flush to ClickHouse

	// Observability
	LogLevel        string
	LogFile         string
	TracingEnabled  bool
	TracingEndpoint string
	TracingProtocol string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ClickHouseHost: getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort: getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "logs"),

		BaseDir: getEnv("BASE_DIR", "."),

		PollInterval:      getEnvDuration("POLL_INTERVAL", 10*time.Second),
		MaxTornRetries:    getEnvInt("MAX_TORN_RETRIES", 10),
		NominalBatchSize:  int64(getEnvInt("NOMINAL_BATCH_SIZE", 5000)),
		NominalBatchCount: int64(getEnvInt("NOMINAL_BATCH_COUNT", 5000)),

		ScanInterval:  getEnvDuration("SCAN_INTERVAL", 5*time.Second),
		RegistryPath:  getEnv("REGISTRY_PATH", "registry.db"),
		ShardMapPath:  getEnv("SHARD_MAP_PATH", "configs/shard_map.yaml"),
		TailerBinPath: getEnv("TAILER_BIN_PATH", "tailer"),

		CursorMirror: getEnvBool("CURSOR_MIRROR", false),
		ReadOnly:     getEnvBool("READ_ONLY", false),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		TracingEnabled:  getEnvBool("TRACING_ENABLED", false),
		TracingEndpoint: getEnv("TRACING_ENDPOINT", ""),
		TracingProtocol: getEnv("TRACING_PROTOCOL", "grpc"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ClickHouseHost == "" {
		return fmt.Errorf("CLICKHOUSE_HOST is required")
	}
	if c.ClickHousePort <= 0 || c.ClickHousePort > 65535 {
		return fmt.Errorf("CLICKHOUSE_PORT must be between 1 and 65535")
	}
	if c.ClickHouseDB == "" {
		return fmt.Errorf("CLICKHOUSE_DB is required")
	}
	if c.BaseDir == "" {
		return fmt.Errorf("BASE_DIR is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.MaxTornRetries < 1 {
		return fmt.Errorf("MAX_TORN_RETRIES must be at least 1")
	}
	if c.NominalBatchSize < 1 {
		return fmt.Errorf("NOMINAL_BATCH_SIZE must be at least 1")
	}
	if c.NominalBatchCount < 1 {
		return fmt.Errorf("NOMINAL_BATCH_COUNT must be at least 1")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
