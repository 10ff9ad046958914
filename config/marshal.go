package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with durations rendered as strings, the form
// viper reads back.
type fileConfig struct {
	Format               string        `yaml:"format"`
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	SavePath             string        `yaml:"save_path"`
	ExpectedManufacturer string        `yaml:"expected_manufacturer"`
	ExpectedModel        string        `yaml:"expected_model"`
	ConnectTimeout       string        `yaml:"connect_timeout"`
	ReplyTimeout         string        `yaml:"reply_timeout"`
	ReadyDeadline        string        `yaml:"ready_deadline"`
	Ping                 bool          `yaml:"ping"`
	Log                  fileLogConfig `yaml:"log"`
}

type fileLogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Marshal renders cfg as YAML that Load accepts as a config file.
func Marshal(cfg Config) ([]byte, error) {
	fc := fileConfig{
		Format:               string(cfg.Format),
		Host:                 cfg.Host,
		Port:                 cfg.Port,
		SavePath:             cfg.SavePath,
		ExpectedManufacturer: cfg.ExpectedManufacturer,
		ExpectedModel:        cfg.ExpectedModel,
		ConnectTimeout:       cfg.ConnectTimeout.String(),
		ReplyTimeout:         cfg.ReplyTimeout.String(),
		ReadyDeadline:        cfg.ReadyDeadline.String(),
		Ping:                 cfg.Ping,
		Log: fileLogConfig{
			File:       cfg.Log.File,
			Level:      cfg.Log.Level,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		},
	}

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}

	return data, nil
}
