package bus

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/compose-network/intersection-coordinator/x/codec"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	DefaultChannelPrefix = "intersection:"
	DefaultChannelSize   = 256
)

// RedisConfig configures the Redis pub/sub driver.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// ChannelPrefix is prepended to every topic to form the Redis channel name.
	ChannelPrefix string
	ChannelSize   int
}

type Config struct {
	Driver   string
	SenderID string
	// Codec names an entry of the codec registry. Empty selects the registry default.
	Codec  string
	Redis  RedisConfig
	Logger zerolog.Logger
}

func DefaultConfig(logger zerolog.Logger) Config {
	return Config{
		Driver: DriverMemory,
		Codec:  codec.NameProtobuf,
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			ChannelPrefix: DefaultChannelPrefix,
			ChannelSize:   DefaultChannelSize,
		},
		Logger: logger,
	}
}

func (cfg *Config) apply() {
	if cfg.SenderID == "" {
		cfg.SenderID = uuid.NewString()
	}
	if cfg.Redis.ChannelSize <= 0 {
		cfg.Redis.ChannelSize = DefaultChannelSize
	}
}

func (cfg *Config) codec() (codec.Codec, error) {
	reg := codec.NewRegistry()
	if cfg.Codec == "" {
		return reg.Default(), nil
	}
	c, ok := reg.Get(cfg.Codec)
	if !ok {
		return nil, fmt.Errorf("bus: unknown codec %q (have %v)", cfg.Codec, reg.Names())
	}
	return c, nil
}

// New builds the bus selected by cfg.Driver.
func New(cfg Config) (Bus, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryBus(cfg)
	case DriverRedis:
		return NewRedisBus(cfg)
	default:
		return nil, fmt.Errorf("bus: unknown driver %q", cfg.Driver)
	}
}
