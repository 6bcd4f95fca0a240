package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"

	"github.com/AwareRO/ipmap/geoip"
	ipmaphttp "github.com/AwareRO/ipmap/http"
	"github.com/AwareRO/ipmap/http/middlewares"
)

type ProviderConfig struct {
	Name    string        `toml:"name" yaml:"name" env:"PROVIDER" env-default:"ip-api"`
	APIKey  string        `toml:"api_key" yaml:"api_key" env:"PROVIDER_API_KEY"`
	URL     string        `toml:"url" yaml:"url" env:"PROVIDER_URL"`
	Timeout time.Duration `toml:"timeout" yaml:"timeout" env:"HTTP_TIMEOUT" env-default:"10s"`
}

type WidgetConfig struct {
	DeviceTimeout  time.Duration `toml:"device_timeout" yaml:"device_timeout" env:"DEVICE_TIMEOUT" env-default:"10s"`
	ClockInterval  time.Duration `toml:"clock_interval" yaml:"clock_interval" env:"CLOCK_INTERVAL" env-default:"1m"`
	AllowedOrigins []string      `toml:"allowed_origins" yaml:"allowed_origins" env:"ALLOWED_ORIGINS" env-separator:","`
	// StaticPosition is "lat,lng". When set it replaces browser geolocation.
	StaticPosition string `toml:"static_position" yaml:"static_position" env:"STATIC_POSITION"`
	StaticTimezone string `toml:"static_timezone" yaml:"static_timezone" env:"STATIC_TIMEZONE"`
}

func (w WidgetConfig) HasStaticPosition() bool {
	return w.StaticPosition != ""
}

// Position parses StaticPosition.
func (w WidgetConfig) Position() (float64, float64, error) {
	parts := strings.Split(w.StaticPosition, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("incorrect static position %q", w.StaticPosition)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("incorrect static latitude %q", parts[0])
	}

	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("incorrect static longitude %q", parts[1])
	}

	return lat, lng, nil
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Pretty bool   `toml:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

type Config struct {
	HTTP     ipmaphttp.Config          `toml:"http" yaml:"http"`
	Provider ProviderConfig            `toml:"provider" yaml:"provider"`
	Widget   WidgetConfig              `toml:"widget" yaml:"widget"`
	Log      LogConfig                 `toml:"log" yaml:"log"`
	Metrics  middlewares.MetricsConfig `toml:"metrics" yaml:"metrics"`
}

// Load reads path (yaml, toml, json or env file) when given, then applies
// environment variables on top.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("incorrect port %d", c.HTTP.Port)
	}

	if _, err := geoip.NewFinder(c.Provider.Name, c.Provider.APIKey); err != nil {
		return err
	}

	if c.Widget.HasStaticPosition() {
		if _, _, err := c.Widget.Position(); err != nil {
			return err
		}
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("incorrect log level: %w", err)
	}

	return nil
}

func (c *Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}

	return level
}

// Usage describes the environment variables understood by Load.
func Usage() string {
	description, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return err.Error()
	}

	return description
}
