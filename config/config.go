package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Reconnect ReconnectConfig `mapstructure:"reconnect"`
	Operator  OperatorConfig  `mapstructure:"operator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StoreConfig contains key-value store connection parameters
type StoreConfig struct {
	Backend       string `mapstructure:"backend"`
	Servers       string `mapstructure:"servers"`
	Password      string `mapstructure:"password"`
	DataDir       string `mapstructure:"data_dir"`
	DialTimeoutMs int    `mapstructure:"dial_timeout_ms"`
	OpTimeoutMs   int    `mapstructure:"op_timeout_ms"`
}

// ReconnectConfig controls reconnect attempts after connection loss
type ReconnectConfig struct {
	RetryIntervalMs int `mapstructure:"retry_interval_ms"`
	MaxIntervalMs   int `mapstructure:"max_interval_ms"`
}

// OperatorConfig names the record attributes the operators read and emit
type OperatorConfig struct {
	KeyAttribute   string `mapstructure:"key_attribute"`
	ValueAttribute string `mapstructure:"value_attribute"`
	TTLAttribute   string `mapstructure:"ttl_attribute"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Prefix string `mapstructure:"prefix"`
}

// ServerList splits the comma-separated server list.
func (s StoreConfig) ServerList() []string {
	parts := strings.Split(s.Servers, ",")
	servers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			servers = append(servers, p)
		}
	}
	return servers
}

func (s StoreConfig) DialTimeout() time.Duration {
	return time.Duration(s.DialTimeoutMs) * time.Millisecond
}

func (s StoreConfig) OpTimeout() time.Duration {
	return time.Duration(s.OpTimeoutMs) * time.Millisecond
}

func (r ReconnectConfig) RetryInterval() time.Duration {
	return time.Duration(r.RetryIntervalMs) * time.Millisecond
}

func (r ReconnectConfig) MaxInterval() time.Duration {
	return time.Duration(r.MaxIntervalMs) * time.Millisecond
}

// LoadConfig loads configuration from the given key=value file and the
// environment. The file is parsed exactly once at startup; any problem
// reading or validating it is fatal.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("properties")

	// Set defaults
	setDefaults(v)

	// Read environment variables
	v.SetEnvPrefix("STREAMKV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Store defaults
	v.SetDefault("store.backend", "redis")
	v.SetDefault("store.servers", "localhost:6379")
	v.SetDefault("store.password", "")
	v.SetDefault("store.data_dir", "./data")
	v.SetDefault("store.dial_timeout_ms", 5000)
	v.SetDefault("store.op_timeout_ms", 1000)

	// Reconnect defaults
	v.SetDefault("reconnect.retry_interval_ms", 1000)
	v.SetDefault("reconnect.max_interval_ms", 30000)

	// Operator defaults
	v.SetDefault("operator.key_attribute", "key")
	v.SetDefault("operator.value_attribute", "value")
	v.SetDefault("operator.ttl_attribute", "ttl")

	// Logging defaults
	v.SetDefault("logging.prefix", "")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	switch config.Store.Backend {
	case "redis":
		if len(config.Store.ServerList()) == 0 {
			return fmt.Errorf("store.servers must list at least one host:port for the redis backend")
		}
	case "badger":
		if config.Store.DataDir == "" {
			return fmt.Errorf("store.data_dir is required for the badger backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store.backend %q (expected redis, badger or memory)", config.Store.Backend)
	}

	if config.Store.DialTimeoutMs <= 0 {
		return fmt.Errorf("store.dial_timeout_ms must be positive")
	}
	if config.Store.OpTimeoutMs <= 0 {
		return fmt.Errorf("store.op_timeout_ms must be positive")
	}

	if config.Reconnect.RetryIntervalMs <= 0 {
		return fmt.Errorf("reconnect.retry_interval_ms must be positive")
	}
	if config.Reconnect.MaxIntervalMs < config.Reconnect.RetryIntervalMs {
		return fmt.Errorf("reconnect.max_interval_ms must be >= reconnect.retry_interval_ms")
	}

	if config.Operator.KeyAttribute == "" || config.Operator.ValueAttribute == "" || config.Operator.TTLAttribute == "" {
		return fmt.Errorf("operator attribute names must not be empty")
	}

	return nil
}
