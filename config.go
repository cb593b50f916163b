package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"microposts/cache"
	"microposts/database"
	"microposts/events"
	pkglog "microposts/log"
)

// Config is the configuration of the whole app. It is read from an optional
// .config.json file; MICROPOSTS_* environment variables override its values,
// e.g. MICROPOSTS_DATABASE_HOST for database.host.
type Config struct {
	Port     int             `mapstructure:"port"`
	Env      string          `mapstructure:"env"`
	Pepper   string          `mapstructure:"pepper"`
	HMACKey  string          `mapstructure:"hmac_key"`
	CSRFKey  string          `mapstructure:"csrf_key"`
	Database database.Config `mapstructure:"database"`
	Redis    cache.Config    `mapstructure:"redis"`
	Events   events.Config   `mapstructure:"events"`
	Log      pkglog.Config   `mapstructure:"log"`
}

// IsProd reports whether the app runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod"
}

// DefaultConfig returns the development setup.
func DefaultConfig() Config {
	return Config{
		Port:    1111,
		Env:     "dev",
		Pepper:  "secret-random-string",
		HMACKey: "secret-hmac-key",
		Database: database.Config{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			Name:            "microposts",
			SSLMode:         "disable",
			FilePath:        "microposts.db",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 60,
		},
		Redis: cache.Config{
			TTL: 10 * time.Minute,
		},
		Events: events.Config{
			Exchange: events.DefaultExchange,
		},
		Log: pkglog.Config{
			Level:       "debug",
			Pretty:      true,
			ServiceName: "microposts",
		},
	}
}

// LoadConfig loads a .env file and a .config.json file, if present, on top
// of DefaultConfig. With isProd set, the config file is required and the
// secrets must not be empty.
func LoadConfig(isProd bool) (Config, error) {
	// A missing .env file is fine; the variables may come from the environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName(".config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.SetEnvPrefix("MICROPOSTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if isProd {
			return Config{}, errors.New("a .config.json file is required in production")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if isProd {
		c.Env = "prod"
		if err := c.validateProd(); err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

func (c Config) validateProd() error {
	switch {
	case c.Pepper == "":
		return errors.New("config: pepper is required in production")
	case c.HMACKey == "":
		return errors.New("config: hmac_key is required in production")
	case c.CSRFKey == "":
		return errors.New("config: csrf_key is required in production")
	}
	return nil
}

// setDefaults registers every key, so that environment variables can
// override keys that are missing from the config file.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("port", d.Port)
	v.SetDefault("env", d.Env)
	v.SetDefault("pepper", d.Pepper)
	v.SetDefault("hmac_key", d.HMACKey)
	v.SetDefault("csrf_key", d.CSRFKey)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)
	v.SetDefault("database.file_path", d.Database.FilePath)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)

	v.SetDefault("redis.address", d.Redis.Address)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("events.driver", d.Events.Driver)
	v.SetDefault("events.url", d.Events.URL)
	v.SetDefault("events.exchange", d.Events.Exchange)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.service_name", d.Log.ServiceName)
}
