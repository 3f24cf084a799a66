package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Warbler   WarblerConfig   `mapstructure:"warbler"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the listen address for http.Server.
func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expire time.Duration `mapstructure:"expire"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout or a file path
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// WarblerConfig 业务相关配置
type WarblerConfig struct {
	DefaultImageURL       string `mapstructure:"default_image_url"`
	DefaultHeaderImageURL string `mapstructure:"default_header_image_url"`
	BcryptCost            int    `mapstructure:"bcrypt_cost"`
	ProfileMessageLimit   int    `mapstructure:"profile_message_limit"`
	TimelineLimit         int    `mapstructure:"timeline_limit"`
	UsersPageSize         int    `mapstructure:"users_page_size"`
}

var supportedDrivers = map[string]bool{"postgres": true, "sqlite": true, "mysql": true}

// Load 读取配置：config.yaml -> .env -> WARBLER_* 环境变量
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("WARBLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "warbler.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "") // empty: in-process revocation store
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("sentry.environment", "development")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.service_name", "warbler")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("rate_limit.rps", 1.0)
	v.SetDefault("rate_limit.burst", 5)

	v.SetDefault("warbler.default_image_url", "/static/images/default-pic.png")
	v.SetDefault("warbler.default_header_image_url", "/static/images/warbler-hero.jpg")
	v.SetDefault("warbler.bcrypt_cost", 12)
	v.SetDefault("warbler.profile_message_limit", 100)
	v.SetDefault("warbler.timeline_limit", 100)
	v.SetDefault("warbler.users_page_size", 50)
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if !supportedDrivers[c.Database.Driver] {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Mode == "release" && c.JWT.Secret == "" {
		return errors.New("jwt.secret is required in release mode")
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = "warbler-dev-secret"
	}
	if c.Warbler.BcryptCost <= 0 {
		c.Warbler.BcryptCost = 12
	}
	return nil
}
