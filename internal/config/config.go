package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	LogLevel string  `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	TCPPort  string  `yaml:"tcp-port" env:"TCP_PORT" env-default:"8765"`
	WSPort   string  `yaml:"ws-port" env:"WS_PORT" env-default:"8766"`
	HTTPPort string  `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Game     Game    `yaml:"game"`
	Storage  Storage `yaml:"storage"`
	Redis    Redis   `yaml:"redis"`
}

type Game struct {
	MaxNameLength  int           `yaml:"max-name-length" env:"MAX_NAME_LENGTH" env-default:"20"`
	MaxChatLength  int           `yaml:"max-chat-length" env:"MAX_CHAT_LENGTH" env-default:"500"`
	AutoStart      bool          `yaml:"auto-start" env:"AUTO_START"`
	MaxMessageSize uint32        `yaml:"max-message-size" env:"MAX_MESSAGE_SIZE" env-default:"1048576"`
	IdleTimeout    time.Duration `yaml:"idle-timeout" env:"IDLE_TIMEOUT" env-default:"0s"`
	SendQueueSize  int           `yaml:"send-queue-size" env:"SEND_QUEUE_SIZE" env-default:"64"`
	RecentMatches  int64         `yaml:"recent-matches" env:"RECENT_MATCHES" env-default:"50"`
}

type Storage struct {
	Backend string `yaml:"backend" env:"STORAGE_BACKEND" env-default:"memory"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads path and applies environment overrides.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects values the server cannot run with.
func (that *Config) Validate() error {
	switch that.Storage.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q", that.Storage.Backend)
	}

	if that.Game.MaxNameLength <= 0 {
		return fmt.Errorf("max-name-length must be positive, got %d", that.Game.MaxNameLength)
	}

	if that.Game.MaxChatLength <= 0 {
		return fmt.Errorf("max-chat-length must be positive, got %d", that.Game.MaxChatLength)
	}

	if that.Game.SendQueueSize <= 0 {
		return fmt.Errorf("send-queue-size must be positive, got %d", that.Game.SendQueueSize)
	}

	if that.Game.RecentMatches <= 0 {
		return fmt.Errorf("recent-matches must be positive, got %d", that.Game.RecentMatches)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
