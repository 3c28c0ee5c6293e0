// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// EthereumConfig contains upstream source configuration
type EthereumConfig struct {
	NodeURL        string        `mapstructure:"node_url"`
	GasTrackerURL  string        `mapstructure:"gas_tracker_url"`
	TxListURL      string        `mapstructure:"tx_list_url"`
	TokenInfoURL   string        `mapstructure:"token_info_url"`
	APIKey         string        `mapstructure:"api_key"`
	PriceProviders []string      `mapstructure:"price_providers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// StorageConfig contains cursor store configuration
type StorageConfig struct {
	Type             string        `mapstructure:"type"` // sqlite, postgres
	ConnectionString string        `mapstructure:"connection_string"`
	MaxConnections   int           `mapstructure:"max_connections"`
	MaxIdleTime      time.Duration `mapstructure:"max_idle_time"`
}

// CacheConfig contains watch cache configuration
type CacheConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// PollerConfig contains activity poller configuration
type PollerConfig struct {
	GasInterval     time.Duration `mapstructure:"gas_interval"`
	WalletInterval  time.Duration `mapstructure:"wallet_interval"`
	UpdateThreshold int           `mapstructure:"update_threshold"` // gwei
}

// DispatchConfig contains notification pacing configuration
type DispatchConfig struct {
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	DelayFactor float64       `mapstructure:"delay_factor"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MediumBatch int           `mapstructure:"medium_batch"`
	LargeBatch  int           `mapstructure:"large_batch"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	Host          string        `mapstructure:"host"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	EnableMetrics bool          `mapstructure:"enable_metrics"`
	EnableHealth  bool          `mapstructure:"enable_health"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, file
	File   string `mapstructure:"file"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvPrefix("ACTIVITY_MONITOR")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Override with environment variables if present
	if nodeURL := os.Getenv("ETH_NODE_URL"); nodeURL != "" {
		config.Ethereum.NodeURL = nodeURL
	}
	if apiKey := os.Getenv("ETHERSCAN_API_KEY"); apiKey != "" {
		config.Ethereum.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Storage.ConnectionString = dbURL
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "eth-activity-monitor")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.debug", false)

	// Ethereum defaults
	viper.SetDefault("ethereum.node_url", "https://ethereum-rpc.publicnode.com")
	viper.SetDefault("ethereum.gas_tracker_url", "https://api.etherscan.io/api?module=gastracker&action=gasoracle")
	viper.SetDefault("ethereum.tx_list_url", "https://api.etherscan.io/api")
	viper.SetDefault("ethereum.token_info_url", "https://api.etherscan.io/api")
	viper.SetDefault("ethereum.price_providers", []string{
		"https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd",
	})
	viper.SetDefault("ethereum.request_timeout", "30s")

	// Storage defaults
	viper.SetDefault("storage.type", "sqlite")
	viper.SetDefault("storage.connection_string", "./data/watches.db")
	viper.SetDefault("storage.max_connections", 25)
	viper.SetDefault("storage.max_idle_time", "15m")

	// Cache defaults (periodic refresh heals out-of-band store mutations)
	viper.SetDefault("cache.refresh_interval", "15m")

	// Poller defaults: one shared gas fetch per minute, wallet scan every 15s
	viper.SetDefault("poller.gas_interval", "60s")
	viper.SetDefault("poller.wallet_interval", "15s")
	viper.SetDefault("poller.update_threshold", 5)

	// Dispatch pacing defaults
	viper.SetDefault("dispatch.base_delay", "1s")
	viper.SetDefault("dispatch.delay_factor", 0.1)
	viper.SetDefault("dispatch.max_delay", "15s")
	viper.SetDefault("dispatch.medium_batch", 50)
	viper.SetDefault("dispatch.large_batch", 100)

	// Server defaults
	viper.SetDefault("server.port", 8081)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.enable_metrics", true)
	viper.SetDefault("server.enable_health", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Ethereum.GasTrackerURL == "" {
		return fmt.Errorf("gas tracker URL is required")
	}
	if c.Ethereum.TxListURL == "" {
		return fmt.Errorf("transaction list URL is required")
	}
	if c.Storage.ConnectionString == "" {
		return fmt.Errorf("storage connection string is required")
	}
	if c.Poller.GasInterval <= 0 || c.Poller.WalletInterval <= 0 {
		return fmt.Errorf("poller intervals must be positive")
	}
	if c.Poller.UpdateThreshold < 0 {
		return fmt.Errorf("update threshold must not be negative")
	}
	if c.Cache.RefreshInterval <= 0 {
		return fmt.Errorf("cache refresh interval must be positive")
	}
	if c.Dispatch.BaseDelay <= 0 || c.Dispatch.MaxDelay < c.Dispatch.BaseDelay {
		return fmt.Errorf("dispatch delays are inconsistent")
	}
	return nil
}
