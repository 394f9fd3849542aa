package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	// Backpressure is close or drop.
	Backpressure string `mapstructure:"backpressure"`

	Devices   DevicesConfig   `mapstructure:"devices"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Theme     ThemeConfig     `mapstructure:"theme"`
	Redis     RedisConfig     `mapstructure:"redis"`

	v      *viper.Viper
	loaded bool
}

// DevicesConfig drives the local capture device. Audio and Video are one of
// available, denied or missing.
type DevicesConfig struct {
	Audio          string        `mapstructure:"audio"`
	Video          string        `mapstructure:"video"`
	AcquireDelay   time.Duration `mapstructure:"acquire_delay"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	FrameInterval  time.Duration `mapstructure:"frame_interval"`
}

type RateLimitConfig struct {
	Actions  int           `mapstructure:"actions"`
	Interval time.Duration `mapstructure:"interval"`
}

type ThemeConfig struct {
	// Store is memory or redis.
	Store string        `mapstructure:"store"`
	TTL   time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
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

	v.SetEnvPrefix("conote")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "conote-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("backpressure", "close")
	v.SetDefault("devices.audio", "available")
	v.SetDefault("devices.video", "available")
	v.SetDefault("devices.acquire_delay", "0s")
	v.SetDefault("devices.acquire_timeout", "10s")
	v.SetDefault("devices.frame_interval", "20ms")
	v.SetDefault("rate_limit.actions", 20)
	v.SetDefault("rate_limit.interval", "1s")
	v.SetDefault("theme.store", "memory")
	v.SetDefault("theme.ttl", "720h")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	loaded := true
	if err := v.ReadInConfig(); err != nil {
		loaded = false
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.loaded = loaded
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Str("theme_store", cfg.Theme.Store).
		Str("backpressure", cfg.Backpressure).
		Msg("config ready")
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// Watch reloads the config file whenever it changes on disk and passes the
// new values to fn. Only settings read at use time take effect; the port,
// the stores and the router are fixed at startup.
func (c *Config) Watch(fn func(*Config)) {
	if c.v == nil || !c.loaded {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(c.v)
		if err != nil {
			log.Error().Err(err).Str("module", "config").Msg("reload failed")
			return
		}
		log.Info().Str("module", "config").Str("file", e.Name).Msg("config reloaded")
		next.loaded = true
		fn(next)
	})
	c.v.WatchConfig()
}

// ApplyLogLevel sets the global zerolog level. Unknown levels fall back to
// info.
func ApplyLogLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return lvl
}
