package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/oceanbase/remindsense-go/pkg/intelligence"
)

// Store providers.
const (
	StoreMemory    = "memory"
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreOceanBase = "oceanbase"
)

// Config contains the complete configuration for a RemindSense client.
//
// It includes settings for:
//   - State persistence (in memory only, or written through to a database)
//   - Learning constants for the pattern store
//   - Context analysis (time zone and cache TTL)
//   - An optional LLM used to interpret feedback comments
//   - Logging, metrics and the periodic decay sweep
//
// Example:
//
//	config := core.DefaultConfig()
//	config.Store = core.StoreConfig{
//	    Provider: core.StoreSQLite,
//	    SQLite:   &core.SQLiteConfig{DBPath: "./remindsense.db"},
//	}
//	client, err := core.NewClient(config)
type Config struct {
	// Store selects where user state is kept.
	Store StoreConfig `json:"store"`

	// Learning contains the pattern learning constants.
	Learning *intelligence.Config `json:"learning,omitempty"`

	// Context contains context analysis settings.
	Context ContextConfig `json:"context"`

	// LLM enables LLM interpretation of feedback comments (optional).
	LLM *LLMConfig `json:"llm,omitempty"`

	// Logging configures the zap logger built by NewLogger.
	Logging LoggingConfig `json:"logging"`

	// Metrics configures Prometheus event counters.
	Metrics MetricsConfig `json:"metrics"`

	// Decay configures the periodic pattern decay sweep.
	Decay DecayConfig `json:"decay"`
}

// StoreConfig selects the state persistence backend.
//
// Supported providers: memory, sqlite, postgres, oceanbase. The memory
// provider keeps state for the life of the process; the others write every
// committed update through to the database.
type StoreConfig struct {
	// Provider is the store provider name.
	Provider string `json:"provider"`

	SQLite    *SQLiteConfig    `json:"sqlite,omitempty"`
	Postgres  *PostgresConfig  `json:"postgres,omitempty"`
	OceanBase *OceanBaseConfig `json:"oceanbase,omitempty"`
}

// SQLiteConfig configures the SQLite state store.
type SQLiteConfig struct {
	DBPath    string `json:"db_path"`
	TableName string `json:"table_name,omitempty"`
}

// PostgresConfig configures the PostgreSQL state store.
type PostgresConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password"`
	DBName    string `json:"db_name"`
	TableName string `json:"table_name,omitempty"`
	SSLMode   string `json:"ssl_mode,omitempty"`
}

// OceanBaseConfig configures the OceanBase state store.
type OceanBaseConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password"`
	DBName    string `json:"db_name"`
	TableName string `json:"table_name,omitempty"`
}

// ContextConfig configures context analysis.
type ContextConfig struct {
	// Timezone is the IANA zone of the users' local clock (default: Local).
	Timezone string `json:"timezone,omitempty"`

	// CacheTTLSeconds is how long a context snapshot is reused (default: 30).
	CacheTTLSeconds int `json:"cache_ttl_seconds,omitempty"`
}

// Location resolves Timezone.
func (c ContextConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// CacheTTL returns the snapshot TTL.
func (c ContextConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// LLMConfig contains configuration for the LLM that interprets feedback
// comments.
//
// Supported providers: anthropic, openai, deepseek, qwen, ollama. All but
// anthropic are reached through the OpenAI-compatible chat API; BaseURL
// defaults per provider.
type LLMConfig struct {
	// Provider is the LLM provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4o-mini", "qwen-plus").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional).
	BaseURL string `json:"base_url,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `json:"level,omitempty"`

	// Development selects zap's development encoder.
	Development bool `json:"development,omitempty"`
}

// MetricsConfig configures metrics.
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// DecayConfig configures the decay sweep.
type DecayConfig struct {
	Enabled bool `json:"enabled"`

	// Schedule is a cron expression or descriptor (default: "@hourly").
	Schedule string `json:"schedule,omitempty"`
}

// DefaultConfig returns an in-memory configuration with default learning
// constants, metrics and the hourly decay sweep enabled.
func DefaultConfig() *Config {
	return &Config{
		Store:    StoreConfig{Provider: StoreMemory},
		Learning: intelligence.DefaultConfig(),
		Context:  ContextConfig{CacheTTLSeconds: 30},
		Logging:  LoggingConfig{Level: "info"},
		Metrics:  MetricsConfig{Enabled: true},
		Decay:    DecayConfig{Enabled: true, Schedule: intelligence.DefaultSweepSchedule},
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// A .env file is located with FindEnvFile and loaded first; variables
// already set in the environment win.
//
// Environment variables:
//   - REMINDSENSE_STORE_PROVIDER: memory, sqlite, postgres or oceanbase
//   - SQLITE_PATH, SQLITE_TABLE
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_TABLE, POSTGRES_SSLMODE
//   - OCEANBASE_HOST, OCEANBASE_PORT, OCEANBASE_USER, OCEANBASE_PASSWORD,
//     OCEANBASE_DATABASE, OCEANBASE_TABLE
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - REMINDSENSE_TIMEZONE, REMINDSENSE_CONTEXT_TTL_SECONDS
//   - REMINDSENSE_LOG_LEVEL, REMINDSENSE_LOG_DEVELOPMENT
//   - REMINDSENSE_METRICS_ENABLED
//   - REMINDSENSE_DECAY_ENABLED, REMINDSENSE_DECAY_SCHEDULE
//   - REMINDSENSE_LEARNING_RATE, REMINDSENSE_PRUNE_THRESHOLD,
//     REMINDSENSE_MAX_PATTERNS, REMINDSENSE_RECENCY_HORIZON_DAYS
//
// Returns a Config instance, or an error if a numeric or boolean value
// cannot be parsed.
func LoadConfigFromEnv() (*Config, error) {
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	var err error

	cfg.Store.Provider = getEnvOrDefault("REMINDSENSE_STORE_PROVIDER", StoreMemory)
	switch cfg.Store.Provider {
	case StoreSQLite:
		cfg.Store.SQLite = &SQLiteConfig{
			DBPath:    getEnvOrDefault("SQLITE_PATH", "./remindsense.db"),
			TableName: getEnvOrDefault("SQLITE_TABLE", "user_states"),
		}
	case StorePostgres:
		pg := &PostgresConfig{
			Host:      getEnvOrDefault("POSTGRES_HOST", "localhost"),
			User:      getEnvOrDefault("POSTGRES_USER", "postgres"),
			Password:  os.Getenv("POSTGRES_PASSWORD"),
			DBName:    getEnvOrDefault("POSTGRES_DATABASE", "remindsense"),
			TableName: getEnvOrDefault("POSTGRES_TABLE", "user_states"),
			SSLMode:   getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
		if pg.Port, err = envInt("POSTGRES_PORT", 5432); err != nil {
			return nil, err
		}
		cfg.Store.Postgres = pg
	case StoreOceanBase:
		ob := &OceanBaseConfig{
			Host:      getEnvOrDefault("OCEANBASE_HOST", "127.0.0.1"),
			User:      getEnvOrDefault("OCEANBASE_USER", "root@sys"),
			Password:  os.Getenv("OCEANBASE_PASSWORD"),
			DBName:    getEnvOrDefault("OCEANBASE_DATABASE", "remindsense"),
			TableName: getEnvOrDefault("OCEANBASE_TABLE", "user_states"),
		}
		if ob.Port, err = envInt("OCEANBASE_PORT", 2881); err != nil {
			return nil, err
		}
		cfg.Store.OceanBase = ob
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		cfg.LLM = &LLMConfig{
			Provider: provider,
			APIKey:   os.Getenv("LLM_API_KEY"),
			Model:    os.Getenv("LLM_MODEL"),
			BaseURL:  os.Getenv("LLM_BASE_URL"),
		}
	}

	cfg.Context.Timezone = os.Getenv("REMINDSENSE_TIMEZONE")
	if cfg.Context.CacheTTLSeconds, err = envInt("REMINDSENSE_CONTEXT_TTL_SECONDS", 30); err != nil {
		return nil, err
	}

	cfg.Logging.Level = getEnvOrDefault("REMINDSENSE_LOG_LEVEL", "info")
	if cfg.Logging.Development, err = envBool("REMINDSENSE_LOG_DEVELOPMENT", false); err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled, err = envBool("REMINDSENSE_METRICS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.Decay.Enabled, err = envBool("REMINDSENSE_DECAY_ENABLED", true); err != nil {
		return nil, err
	}
	cfg.Decay.Schedule = getEnvOrDefault("REMINDSENSE_DECAY_SCHEDULE", intelligence.DefaultSweepSchedule)

	l := cfg.Learning
	if l.LearningRate, err = envFloat("REMINDSENSE_LEARNING_RATE", l.LearningRate); err != nil {
		return nil, err
	}
	if l.PruneThreshold, err = envFloat("REMINDSENSE_PRUNE_THRESHOLD", l.PruneThreshold); err != nil {
		return nil, err
	}
	if l.MaxPatterns, err = envInt("REMINDSENSE_MAX_PATTERNS", l.MaxPatterns); err != nil {
		return nil, err
	}
	if l.RecencyHorizonDays, err = envFloat("REMINDSENSE_RECENCY_HORIZON_DAYS", l.RecencyHorizonDays); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file. Sections missing
// from the file keep their DefaultConfig values.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewEngineError("LoadConfigFromJSON", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, NewEngineError("LoadConfigFromJSON", err)
	}

	return config, nil
}

// Validate validates the configuration.
//
// Checks that:
//   - the store provider is known and its section is present
//   - learning constants are consistent
//   - the time zone resolves
//   - the LLM provider, if any, is known
//
// Returns an error wrapping ErrInvalidConfig if validation fails.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return NewEngineError("Validate", fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig))
	}

	switch c.Store.Provider {
	case "", StoreMemory:
	case StoreSQLite:
		if c.Store.SQLite == nil || c.Store.SQLite.DBPath == "" {
			return invalid("sqlite store requires db_path")
		}
	case StorePostgres:
		if c.Store.Postgres == nil || c.Store.Postgres.Host == "" {
			return invalid("postgres store requires host")
		}
	case StoreOceanBase:
		if c.Store.OceanBase == nil || c.Store.OceanBase.Host == "" {
			return invalid("oceanbase store requires host")
		}
	default:
		return invalid("unknown store provider %q", c.Store.Provider)
	}

	if c.Learning != nil {
		if err := c.Learning.Validate(); err != nil {
			return invalid("learning: %v", err)
		}
	}
	if _, err := c.Context.Location(); err != nil {
		return invalid("timezone %q: %v", c.Context.Timezone, err)
	}
	if c.LLM != nil {
		if _, ok := llmBaseURLs[strings.ToLower(c.LLM.Provider)]; !ok {
			return invalid("unknown llm provider %q", c.LLM.Provider)
		}
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return invalid("log level: %v", err)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewEngineError("LoadConfigFromEnv", fmt.Errorf("%s: %w", key, err))
	}
	return n, nil
}

func envFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, NewEngineError("LoadConfigFromEnv", fmt.Errorf("%s: %w", key, err))
	}
	return f, nil
}

func envBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, NewEngineError("LoadConfigFromEnv", fmt.Errorf("%s: %w", key, err))
	}
	return b, nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for i := 0; i < 6; i++ {
		for _, name := range []string{".env", ".env.example"} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}
