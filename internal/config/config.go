package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/i474232898/weathercast/internal/store"
	"github.com/i474232898/weathercast/internal/weather"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "WEATHERCAST"

var validate = validator.New()

type AppConfig struct {
	Env      string `mapstructure:"env" validate:"oneof=local development production test"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error disabled"`

	// HTTPTimeout bounds every provider request.
	HTTPTimeout     time.Duration `mapstructure:"http_timeout" validate:"gt=0"`
	ProviderRetries int           `mapstructure:"provider_retries" validate:"gte=0,lte=5"`
	CacheLRUSize    int           `mapstructure:"cache_lru_size" validate:"gte=1"`

	// WatchInterval is the refresh period of the watch command. Shorter than
	// the cache TTL would only re-read cached responses.
	WatchInterval time.Duration `mapstructure:"watch_interval" validate:"gte=5m"`

	Storage StorageConfig `mapstructure:"storage"`
	APIKeys APIKeys       `mapstructure:"api_keys"`
}

type StorageConfig struct {
	Driver string       `mapstructure:"driver" validate:"oneof=memory sqlite redis"`
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	TLS      bool   `mapstructure:"tls"`
}

// APIKeys holds one credential per provider. Each key can also be given
// through the provider's conventional variable, e.g. OPENWEATHER_API_KEY.
type APIKeys struct {
	OpenWeather string `mapstructure:"openweather"`
	WeatherAPI  string `mapstructure:"weatherapi"`
	AccuWeather string `mapstructure:"accuweather"`
	Google      string `mapstructure:"google"`
}

// Load reads configuration from .env, the environment and an optional YAML
// file. Precedence: environment, then configPath (or ~/.config/weathercast/config.yaml), then defaults.
func Load(configPath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range map[string]string{
		"api_keys.openweather": "OPENWEATHER_API_KEY",
		"api_keys.weatherapi":  "WEATHERAPI_API_KEY",
		"api_keys.accuweather": "ACCUWEATHER_API_KEY",
		"api_keys.google":      "GOOGLE_WEATHER_API_KEY",
	} {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "weathercast"))
		}
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("log_level", "warn")
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("provider_retries", 0)
	v.SetDefault("cache_lru_size", 256)
	v.SetDefault("watch_interval", 10*time.Minute)
	v.SetDefault("storage.driver", store.DriverSQLite)
	v.SetDefault("storage.sqlite.path", defaultSQLitePath())
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.tls", false)
	v.SetDefault("api_keys.openweather", "")
	v.SetDefault("api_keys.weatherapi", "")
	v.SetDefault("api_keys.accuweather", "")
	v.SetDefault("api_keys.google", "")
}

func defaultSQLitePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "weathercast", "weathercast.db")
	}
	return "weathercast.db"
}

// Validate checks the struct tags and the storage settings.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case store.DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for sqlite driver")
		}
	case store.DriverRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for redis driver")
		}
	}
	return nil
}

// Credentials returns the configured API keys by provider.
func (c *AppConfig) Credentials() weather.Credentials {
	return weather.Credentials{
		weather.ProviderOpenWeather: c.APIKeys.OpenWeather,
		weather.ProviderWeatherAPI:  c.APIKeys.WeatherAPI,
		weather.ProviderAccuWeather: c.APIKeys.AccuWeather,
		weather.ProviderGoogle:      c.APIKeys.Google,
	}
}

// StoreOptions returns the options for store.Open, creating the SQLite
// directory when needed.
func (c *AppConfig) StoreOptions() (store.Options, error) {
	opts := store.Options{
		Driver:     c.Storage.Driver,
		SQLitePath: c.Storage.SQLite.Path,
		Redis: store.RedisConfig{
			Addr:     c.Storage.Redis.Addr,
			Password: c.Storage.Redis.Password,
			DB:       c.Storage.Redis.DB,
			UseTLS:   c.Storage.Redis.TLS,
		},
	}
	if c.Storage.Driver == store.DriverSQLite {
		dir := filepath.Dir(c.Storage.SQLite.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return opts, fmt.Errorf("creating storage directory %q: %w", dir, err)
			}
		}
	}
	return opts, nil
}

// InitializeLogging configures the global zerolog logger: console output in
// local and development environments, JSON on stderr otherwise.
func InitializeLogging(cfg *AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == "local" || cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.DefaultContextLogger = &log.Logger

	log.Debug().Str("env", cfg.Env).Str("storage", cfg.Storage.Driver).Msg("configuration loaded")
}
