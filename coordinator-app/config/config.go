package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/compose-network/intersection-coordinator/x/bus"
	"github.com/compose-network/intersection-coordinator/x/codec"
	"github.com/compose-network/intersection-coordinator/x/coordinator"
)

// Config holds the complete application configuration
type Config struct {
	Node        NodeConfig         `mapstructure:"node"        yaml:"node"`
	Coordinator coordinator.Params `mapstructure:"coordinator" yaml:"coordinator"`
	Bus         BusConfig          `mapstructure:"bus"         yaml:"bus"`
	API         APIServerConfig    `mapstructure:"api"         yaml:"api"`
	Metrics     MetricsConfig      `mapstructure:"metrics"     yaml:"metrics"`
	Log         LogConfig          `mapstructure:"log"         yaml:"log"`
}

// NodeConfig identifies the vehicle and drives the control loop
type NodeConfig struct {
	Vehicle    string        `mapstructure:"vehicle"     yaml:"vehicle"     env:"NODE_VEHICLE"`
	TickPeriod time.Duration `mapstructure:"tick_period" yaml:"tick_period" env:"NODE_TICK_PERIOD"`
	// ParamSources are searched for *.coordinator.yaml files layered over the coordinator section.
	ParamSources []string `mapstructure:"param_sources" yaml:"param_sources"`
}

// BusConfig selects and configures the message bus
type BusConfig struct {
	Driver   string      `mapstructure:"driver"    yaml:"driver"    env:"BUS_DRIVER"`
	Codec    string      `mapstructure:"codec"     yaml:"codec"     env:"BUS_CODEC"`
	SenderID string      `mapstructure:"sender_id" yaml:"sender_id" env:"BUS_SENDER_ID"`
	Redis    RedisConfig `mapstructure:"redis"     yaml:"redis"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"           yaml:"addr"           env:"BUS_REDIS_ADDR"`
	Password      string `mapstructure:"password"       yaml:"password"       env:"BUS_REDIS_PASSWORD"`
	DB            int    `mapstructure:"db"             yaml:"db"             env:"BUS_REDIS_DB"`
	ChannelPrefix string `mapstructure:"channel_prefix" yaml:"channel_prefix"`
	ChannelSize   int    `mapstructure:"channel_size"   yaml:"channel_size"`
}

// APIServerConfig holds HTTP API server configuration
type APIServerConfig struct {
	ListenAddr        string        `mapstructure:"listen_addr"         yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"        yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"       yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        yaml:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"    yaml:"max_header_bytes"`
	EnableCORS        bool          `mapstructure:"enable_cors"         yaml:"enable_cors"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
	// ReportInterval is how often node statistics are logged. Zero disables the report.
	ReportInterval time.Duration `mapstructure:"report_interval" yaml:"report_interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// Load loads configuration from file and environment. An empty path uses defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("node.vehicle", "")
	v.SetDefault("node.tick_period", "100ms")
	v.SetDefault("node.param_sources", []string{})

	v.SetDefault("coordinator.t_min_random", coordinator.DefaultTMinRandom)
	v.SetDefault("coordinator.t_max_random", coordinator.DefaultTMaxRandom)
	v.SetDefault("coordinator.t_unknown_base", coordinator.DefaultTUnknownBase)
	v.SetDefault("coordinator.t_unknown", coordinator.DefaultTUnknown)
	v.SetDefault("coordinator.keep_calm_dwell", coordinator.DefaultKeepCalmDwell)

	v.SetDefault("bus.driver", bus.DriverMemory)
	v.SetDefault("bus.codec", codec.NameProtobuf)
	v.SetDefault("bus.sender_id", "")
	v.SetDefault("bus.redis.addr", "localhost:6379")
	v.SetDefault("bus.redis.password", "")
	v.SetDefault("bus.redis.db", 0)
	v.SetDefault("bus.redis.channel_prefix", bus.DefaultChannelPrefix)
	v.SetDefault("bus.redis.channel_size", bus.DefaultChannelSize)

	v.SetDefault("api.listen_addr", ":8090")
	v.SetDefault("api.read_header_timeout", "5s")
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "10s")
	v.SetDefault("api.idle_timeout", "60s")
	v.SetDefault("api.max_header_bytes", 65536)
	v.SetDefault("api.enable_cors", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.report_interval", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateNode(); err != nil {
		return err
	}
	if err := c.Coordinator.Validate(); err != nil {
		return err
	}
	if err := c.validateBus(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNode() error {
	if c.Node.TickPeriod <= 0 {
		return fmt.Errorf("node.tick_period must be positive, got %s", c.Node.TickPeriod)
	}
	return nil
}

func (c *Config) validateBus() error {
	switch c.Bus.Driver {
	case bus.DriverMemory:
	case bus.DriverRedis:
		if strings.TrimSpace(c.Bus.Redis.Addr) == "" {
			return fmt.Errorf("bus.redis.addr is required with the redis driver")
		}
	default:
		return fmt.Errorf("bus.driver must be %q or %q, got %q", bus.DriverMemory, bus.DriverRedis, c.Bus.Driver)
	}
	if _, ok := codec.NewRegistry().Get(c.Bus.Codec); !ok {
		return fmt.Errorf("bus.codec %q is not a known codec", c.Bus.Codec)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.ListenAddr) == "" {
		return fmt.Errorf("api.listen_addr must not be empty")
	}
	return nil
}

// BusSettings converts the bus section into the bus package configuration.
func (c *Config) BusSettings() bus.Config {
	return bus.Config{
		Driver:   c.Bus.Driver,
		SenderID: c.Bus.SenderID,
		Codec:    c.Bus.Codec,
		Redis: bus.RedisConfig{
			Addr:          c.Bus.Redis.Addr,
			Password:      c.Bus.Redis.Password,
			DB:            c.Bus.Redis.DB,
			ChannelPrefix: c.Bus.Redis.ChannelPrefix,
			ChannelSize:   c.Bus.Redis.ChannelSize,
		},
	}
}
