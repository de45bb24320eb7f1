package config

import (
	"path/filepath"
	"time"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Scheduler SchedulerConfig
	Monitor   MonitorConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir   string
	ExportDir string
}

type SchedulerConfig struct {
	Interval string
}

// IntervalDuration parses the configured scan interval, falling back to
// 30s on anything unparseable or non-positive.
func (c SchedulerConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

type MonitorConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Scheduler: SchedulerConfig{
			Interval: "30s",
		},
		Monitor: MonitorConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/perch/config.json, then applies PERCH_* environment
// overrides.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if cfg.Storage.ExportDir == "" {
		cfg.Storage.ExportDir = filepath.Join(cfg.Storage.DataDir, "exports")
	}
	return cfg, nil
}
