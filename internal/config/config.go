package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"parking-lot/internal/logging"
	"parking-lot/internal/telemetry"
)

const (
	ModeCLI    = "cli"
	ModeServer = "server"
	ModeBoth   = "both"

	EnvPrefix = "PARKING_LOT"
)

type Config struct {
	Mode        string          `mapstructure:"mode"`
	Port        string          `mapstructure:"port"`
	Prompt      string          `mapstructure:"prompt"`
	Environment string          `mapstructure:"environment"`
	Log         LogConfig       `mapstructure:"log"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	Exporter       string        `mapstructure:"exporter"`
	Endpoint       string        `mapstructure:"endpoint"`
	ExportInterval time.Duration `mapstructure:"export_interval"`
	SampleRate     float64       `mapstructure:"sample_rate"`
}

func Defaults() Config {
	return Config{
		Mode:        ModeCLI,
		Port:        "8080",
		Prompt:      "$ ",
		Environment: "development",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			ServiceName:    telemetry.DefaultServiceName,
			Exporter:       telemetry.ExporterOTLP,
			Endpoint:       telemetry.DefaultOTLPEndpoint,
			ExportInterval: telemetry.DefaultExportInterval,
			SampleRate:     1,
		},
	}
}

// SetDefaults registers defaults and environment bindings on v. Environment
// variables use the PARKING_LOT_ prefix with dots replaced by underscores;
// the standard OTEL_ variables are honoured for the telemetry section.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("mode", d.Mode)
	v.SetDefault("port", d.Port)
	v.SetDefault("prompt", d.Prompt)
	v.SetDefault("environment", d.Environment)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.exporter", d.Telemetry.Exporter)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.export_interval", d.Telemetry.ExportInterval)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("telemetry.service_name", EnvPrefix+"_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// Load reads the optional config file, then unmarshals and validates the
// merged settings. A missing file is only an error when one was named.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("parking-lot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeCLI, ModeServer, ModeBoth:
	default:
		errs = append(errs, fmt.Errorf("invalid mode %q: must be cli, server, or both", c.Mode))
	}

	if c.Mode != ModeCLI && c.Port == "" {
		errs = append(errs, errors.New("port is required in server mode"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format))
	}

	switch c.Telemetry.Exporter {
	case telemetry.ExporterOTLP:
		if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry endpoint is required for the otlp exporter"))
		}
	case telemetry.ExporterStdout:
	default:
		errs = append(errs, fmt.Errorf("invalid telemetry exporter %q: must be otlp or stdout", c.Telemetry.Exporter))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("invalid telemetry sample rate %v: must be between 0 and 1", c.Telemetry.SampleRate))
	}

	return errors.Join(errs...)
}

func (c Config) TelemetryConfig() telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    c.Telemetry.ServiceName,
		Environment:    c.Environment,
		Exporter:       c.Telemetry.Exporter,
		Endpoint:       c.Telemetry.Endpoint,
		ExportInterval: c.Telemetry.ExportInterval,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// LoggingOptions leaves OTel off; the caller turns it on once a log
// exporter is actually installed.
func (c Config) LoggingOptions() logging.Options {
	return logging.Options{
		ServiceName: c.Telemetry.ServiceName,
		Environment: c.Environment,
		Level:       c.Log.Level,
		Format:      c.Log.Format,
	}
}

// WatchLogLevel applies log.level edits in the loaded config file to
// levelVar without a restart. It reports false when no file was read.
// Other keys are read once at startup.
func WatchLogLevel(v *viper.Viper, levelVar *slog.LevelVar, logger *slog.Logger) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		level, err := logging.ParseLevel(v.GetString("log.level"))
		if err != nil {
			logger.Warn("ignoring config change", slog.String("file", e.Name), slog.String("error", err.Error()))
			return
		}
		if level == levelVar.Level() {
			return
		}
		levelVar.Set(level)
		logger.Info("log level changed", slog.String("file", e.Name), slog.String("level", level.String()))
	})
	v.WatchConfig()
	return true
}
