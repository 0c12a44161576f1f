package config

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`

	// Room policy. Capacity is deliberately small: the app is built
	// around a pair of peers, but nothing in the core depends on two.
	RoomCapacity int           `mapstructure:"room_capacity"`
	RoomTTL      time.Duration `mapstructure:"room_ttl"`

	// Message rate limiting per connection.
	MsgRateLimit    int           `mapstructure:"msg_rate_limit"`
	MsgRateInterval time.Duration `mapstructure:"msg_rate_interval"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("send_buffer", 32)
	v.SetDefault("room_capacity", 2)
	v.SetDefault("room_ttl", "1h")
	v.SetDefault("msg_rate_limit", 20)
	v.SetDefault("msg_rate_interval", "10s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		// Ephemeral: cookies signed with it stop verifying on restart.
		cfg.Secret = uuid.NewString()
		log.Warn().Str("module", "config").Msg("no secret configured, generated an ephemeral one")
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Room cap: %d | Room TTL: %s\n", cfg.Mode, cfg.Port, cfg.RoomCapacity, cfg.RoomTTL)
	return &cfg, nil
}
