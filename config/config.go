package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"
)

type Config struct {
	VenueConfig     VenueConfig     `json:"venue"`
	TradingConfig   TradingConfig   `json:"trading"`
	RiskConfig      RiskConfig      `json:"risk"`
	CircuitConfig   CircuitConfig   `json:"circuit_breaker"`
	RetryConfig     RetryConfig     `json:"retry"`
	RateLimitConfig RateLimitConfig `json:"rate_limit"`
	FeesConfig      FeesConfig      `json:"fees"`
	WorkerConfig    WorkerConfig    `json:"worker"`
	ServerConfig    ServerConfig    `json:"server"`
	DatabaseConfig  DatabaseConfig  `json:"database"`
	RedisConfig     RedisConfig     `json:"redis"`
	LoggingConfig   LoggingConfig   `json:"logging"`
}

// VenueConfig holds the execution venue connection settings
type VenueConfig struct {
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Timeout  int    `json:"timeout_seconds"`
	MockMode bool   `json:"mock_mode"` // Use the in-memory venue instead of HTTP
}

// TradingConfig holds the execution pipeline settings
type TradingConfig struct {
	Mode           string   `json:"mode"` // "live" or "paper"
	Symbols        []string `json:"symbols"`
	SignalInterval int      `json:"signal_interval_seconds"`
	FastPeriod     int      `json:"fast_period"`
	SlowPeriod     int      `json:"slow_period"`
	SignalTTL      int      `json:"signal_ttl_seconds"`
}

type RiskConfig struct {
	InitialCapital      float64 `json:"initial_capital"`
	MaxDrawdown         float64 `json:"max_drawdown"`          // Fraction of peak, 0.10 = 10%
	MaxPositionFraction float64 `json:"max_position_fraction"` // Fraction of capital per trade
	MinConfidence       float64 `json:"min_confidence"`
}

type CircuitConfig struct {
	FailureThreshold int `json:"failure_threshold"`
	SuccessThreshold int `json:"success_threshold"`
	TimeoutSeconds   int `json:"timeout_seconds"`
}

// RetryConfig selects a backoff preset: "default", "aggressive" or
// "conservative"
type RetryConfig struct {
	Preset string `json:"preset"`
}

type RateLimitConfig struct {
	MaxRequests   int `json:"max_requests"`
	WindowSeconds int `json:"window_seconds"`
}

type FeesConfig struct {
	BaseFee uint64 `json:"base_fee"` // Lamports
}

type WorkerConfig struct {
	IntervalSeconds  int `json:"interval_seconds"`
	CooldownAfter    int `json:"cooldown_after"`
	CooldownSeconds  int `json:"cooldown_seconds"`
	MaxBackoffSecond int `json:"max_backoff_seconds"`
}

type ServerConfig struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`
	WriteTimeout    int    `json:"write_timeout"`
	ShutdownTimeout int    `json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis settings for the pending-update journal
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"` // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"`
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with defaults
		cfg = Default()
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		VenueConfig: VenueConfig{
			BaseURL:  "http://localhost:9090",
			Timeout:  15,
			MockMode: true,
		},
		TradingConfig: TradingConfig{
			Mode:           "paper",
			Symbols:        []string{"SOL/USDC"},
			SignalInterval: 5,
			FastPeriod:     10,
			SlowPeriod:     20,
			SignalTTL:      30,
		},
		RiskConfig: RiskConfig{
			InitialCapital:      10000,
			MaxDrawdown:         0.10,
			MaxPositionFraction: 0.10,
			MinConfidence:       0.5,
		},
		CircuitConfig: CircuitConfig{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			TimeoutSeconds:   30,
		},
		RetryConfig: RetryConfig{
			Preset: "default",
		},
		RateLimitConfig: RateLimitConfig{
			MaxRequests:   10,
			WindowSeconds: 1,
		},
		FeesConfig: FeesConfig{
			BaseFee: 5000,
		},
		WorkerConfig: WorkerConfig{
			IntervalSeconds:  1,
			CooldownAfter:    5,
			CooldownSeconds:  120,
			MaxBackoffSecond: 30,
		},
		ServerConfig: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		DatabaseConfig: DatabaseConfig{
			Enabled: false,
			Host:    "localhost",
			Port:    5432,
			User:    "bot",
			SSLMode: "disable",
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	cfg.VenueConfig.BaseURL = getEnvOrDefault("VENUE_BASE_URL", cfg.VenueConfig.BaseURL)
	cfg.VenueConfig.APIKey = getEnvOrDefault("VENUE_API_KEY", cfg.VenueConfig.APIKey)
	cfg.VenueConfig.Timeout = getEnvIntOrDefault("VENUE_TIMEOUT", cfg.VenueConfig.Timeout)
	cfg.VenueConfig.MockMode = getEnvBoolOrDefault("VENUE_MOCK_MODE", cfg.VenueConfig.MockMode)

	cfg.TradingConfig.Mode = getEnvOrDefault("TRADING_MODE", cfg.TradingConfig.Mode)
	cfg.TradingConfig.SignalInterval = getEnvIntOrDefault("TRADING_SIGNAL_INTERVAL", cfg.TradingConfig.SignalInterval)

	cfg.RiskConfig.InitialCapital = getEnvFloatOrDefault("RISK_INITIAL_CAPITAL", cfg.RiskConfig.InitialCapital)
	cfg.RiskConfig.MaxDrawdown = getEnvFloatOrDefault("RISK_MAX_DRAWDOWN", cfg.RiskConfig.MaxDrawdown)
	cfg.RiskConfig.MaxPositionFraction = getEnvFloatOrDefault("RISK_MAX_POSITION_FRACTION", cfg.RiskConfig.MaxPositionFraction)
	cfg.RiskConfig.MinConfidence = getEnvFloatOrDefault("RISK_MIN_CONFIDENCE", cfg.RiskConfig.MinConfidence)

	cfg.CircuitConfig.FailureThreshold = getEnvIntOrDefault("CIRCUIT_FAILURE_THRESHOLD", cfg.CircuitConfig.FailureThreshold)
	cfg.CircuitConfig.SuccessThreshold = getEnvIntOrDefault("CIRCUIT_SUCCESS_THRESHOLD", cfg.CircuitConfig.SuccessThreshold)
	cfg.CircuitConfig.TimeoutSeconds = getEnvIntOrDefault("CIRCUIT_TIMEOUT", cfg.CircuitConfig.TimeoutSeconds)

	cfg.RetryConfig.Preset = getEnvOrDefault("RETRY_PRESET", cfg.RetryConfig.Preset)

	cfg.RateLimitConfig.MaxRequests = getEnvIntOrDefault("RATELIMIT_MAX_REQUESTS", cfg.RateLimitConfig.MaxRequests)
	cfg.RateLimitConfig.WindowSeconds = getEnvIntOrDefault("RATELIMIT_WINDOW", cfg.RateLimitConfig.WindowSeconds)

	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	cfg.DatabaseConfig.Enabled = getEnvBoolOrDefault("DB_ENABLED", cfg.DatabaseConfig.Enabled)
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
}

// CircuitTimeout returns the breaker reset timeout as a duration
func (c CircuitConfig) CircuitTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Window returns the rate limit window as a duration
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
