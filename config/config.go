// Package config holds the capture configuration and loads it using viper.
//
// Values are layered, lowest precedence first: built-in defaults, an optional
// YAML file, LXI_* environment variables (e.g. LXI_HOST, LXI_LOG_LEVEL), bound
// command-line flags, and explicit overrides such as positional arguments.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arloliu/go-lxi/imaging"
	"github.com/arloliu/go-lxi/transport"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Defaults for a Rigol DS2202E on the bench network.
const (
	DefaultFormat               = imaging.PNG
	DefaultHost                 = "192.168.44.174"
	DefaultPort                 = transport.DefaultPort
	DefaultSavePath             = "captures/"
	DefaultExpectedManufacturer = "RIGOL TECHNOLOGIES"
	DefaultExpectedModel        = "DS2202E"
	DefaultConnectTimeout       = transport.DefaultConnectTimeout
	DefaultReplyTimeout         = time.Second
	DefaultLogFile              = "lxicapture.log"
	DefaultLogLevel             = "info"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LXI"

// Config is the complete configuration of one capture.
// It is passed by value; nothing mutates it after Load.
type Config struct {
	Format               imaging.Format `mapstructure:"format"`
	Host                 string         `mapstructure:"host"`
	Port                 int            `mapstructure:"port"`
	SavePath             string         `mapstructure:"save_path"`
	ExpectedManufacturer string         `mapstructure:"expected_manufacturer"`
	ExpectedModel        string         `mapstructure:"expected_model"`
	ConnectTimeout       time.Duration  `mapstructure:"connect_timeout"`
	ReplyTimeout         time.Duration  `mapstructure:"reply_timeout"`
	// ReadyDeadline bounds each readiness wait; 0 waits indefinitely.
	ReadyDeadline time.Duration `mapstructure:"ready_deadline"`
	// Ping enables the ICMP reachability probe before connecting.
	Ping bool      `mapstructure:"ping"`
	Log  LogConfig `mapstructure:"log"`
}

// LogConfig configures the diagnostic log file.
type LogConfig struct {
	File       string `mapstructure:"file"` // empty disables the file log
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Source describes where Load reads configuration from.
type Source struct {
	// File is an optional YAML file. Empty means defaults and environment only.
	File string
	// Flags are bound to config keys by FlagKeys when present.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys, e.g. "log-level" to "log.level".
	FlagKeys map[string]string
	// Overrides take precedence over every other source.
	Overrides map[string]any
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Format:               DefaultFormat,
		Host:                 DefaultHost,
		Port:                 DefaultPort,
		SavePath:             DefaultSavePath,
		ExpectedManufacturer: DefaultExpectedManufacturer,
		ExpectedModel:        DefaultExpectedModel,
		ConnectTimeout:       DefaultConnectTimeout,
		ReplyTimeout:         DefaultReplyTimeout,
		Ping:                 true,
		Log: LogConfig{
			File:       DefaultLogFile,
			Level:      DefaultLogLevel,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads the configuration from src and validates it.
func Load(src Source) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if src.File != "" {
		v.SetConfigFile(src.File)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if src.Flags != nil {
		for name, key := range src.FlagKeys {
			f := src.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("config: bind flag %q: %w", name, err)
			}
		}
	}

	for key, val := range src.Overrides {
		v.Set(key, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	// Format names are case-insensitive on every source.
	if f, err := imaging.ParseFormat(string(cfg.Format)); err == nil {
		cfg.Format = f
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("format", string(d.Format))
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("save_path", d.SavePath)
	v.SetDefault("expected_manufacturer", d.ExpectedManufacturer)
	v.SetDefault("expected_model", d.ExpectedModel)
	v.SetDefault("connect_timeout", d.ConnectTimeout)
	v.SetDefault("reply_timeout", d.ReplyTimeout)
	v.SetDefault("ready_deadline", d.ReadyDeadline)
	v.SetDefault("ping", d.Ping)

	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
}

// Validate checks the configuration for values a capture cannot run with.
func (c Config) Validate() error {
	if _, err := imaging.ParseFormat(string(c.Format)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Endpoint().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.SavePath == "" {
		return errors.New("config: save_path must not be empty")
	}
	if c.ExpectedManufacturer == "" || c.ExpectedModel == "" {
		return errors.New("config: expected_manufacturer and expected_model must not be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("config: connect_timeout %v must be positive", c.ConnectTimeout)
	}
	if c.ReplyTimeout <= 0 {
		return fmt.Errorf("config: reply_timeout %v must be positive", c.ReplyTimeout)
	}
	if c.ReadyDeadline < 0 {
		return fmt.Errorf("config: ready_deadline %v must not be negative", c.ReadyDeadline)
	}

	return nil
}

// Endpoint returns the instrument endpoint.
func (c Config) Endpoint() transport.Endpoint {
	return transport.Endpoint{Host: c.Host, Port: c.Port}
}
