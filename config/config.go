package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/surfdeck/surfdeck/client"
	"github.com/surfdeck/surfdeck/errors"
	"github.com/surfdeck/surfdeck/metric"
)

// Config is the runtime configuration of a plugin process. A zero value is
// not usable; start from Default and override.
type Config struct {
	Plugin   PluginConfig   `json:"plugin" yaml:"plugin"`
	Host     HostConfig     `json:"host" yaml:"host"`
	Dispatch DispatchConfig `json:"dispatch,omitempty" yaml:"dispatch,omitempty"`
	Metrics  MetricsConfig  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Log      LogConfig      `json:"log,omitempty" yaml:"log,omitempty"`
}

// PluginConfig identifies the plugin.
type PluginConfig struct {
	ID string `json:"id" yaml:"id"`
}

// HostConfig defines how the client reaches and treats the host.
type HostConfig struct {
	Address           string        `json:"address,omitempty" yaml:"address,omitempty"`
	PollInterval      time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	AutoClose         *bool         `json:"auto_close,omitempty" yaml:"auto_close,omitempty"`
	CheckPluginID     *bool         `json:"check_plugin_id,omitempty" yaml:"check_plugin_id,omitempty"`
	StatesOnBroadcast *bool         `json:"states_on_broadcast,omitempty" yaml:"states_on_broadcast,omitempty"`
	SendRateLimit     float64       `json:"send_rate_limit,omitempty" yaml:"send_rate_limit,omitempty"`
	SendBurst         int           `json:"send_burst,omitempty" yaml:"send_burst,omitempty"`
}

// DispatchConfig sizes the handler worker pool.
type DispatchConfig struct {
	Workers   int `json:"workers,omitempty" yaml:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // text, json
}

// Default returns the configuration a plugin gets without a config file.
func Default(pluginID string) *Config {
	return &Config{
		Plugin: PluginConfig{ID: pluginID},
		Host: HostConfig{
			Address:      client.DefaultAddress,
			PollInterval: 500 * time.Millisecond,
		},
		Dispatch: DispatchConfig{
			Workers:   4,
			QueueSize: 256,
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file. The format follows the extension: .yaml
// and .yml decode as YAML, everything else as JSON. Fields left out keep
// their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapUsage(
			fmt.Errorf("%w: %v", errors.ErrMissingConfig, err),
			"Config", "Load", "read file")
	}

	cfg := Default("")
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapUsage(
				fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"Config", "Load", "decode yaml")
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapUsage(
				fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"Config", "Load", "decode json")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config for values the client would reject later.
func (c *Config) Validate() error {
	if c.Plugin.ID == "" {
		return errors.WrapUsage(
			fmt.Errorf("%w: plugin.id is required", errors.ErrInvalidConfig),
			"Config", "Validate", "plugin id check")
	}
	if c.Host.PollInterval < 0 {
		return errors.WrapUsage(
			fmt.Errorf("%w: host.poll_interval cannot be negative", errors.ErrInvalidConfig),
			"Config", "Validate", "poll interval check")
	}
	if c.Host.SendRateLimit < 0 {
		return errors.WrapUsage(
			fmt.Errorf("%w: host.send_rate_limit cannot be negative", errors.ErrInvalidConfig),
			"Config", "Validate", "rate limit check")
	}
	if c.Dispatch.Workers < 0 || c.Dispatch.QueueSize < 0 {
		return errors.WrapUsage(
			fmt.Errorf("%w: dispatch sizes cannot be negative", errors.ErrInvalidConfig),
			"Config", "Validate", "dispatch check")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapUsage(
			fmt.Errorf("%w: unknown log level %q", errors.ErrInvalidConfig, c.Log.Level),
			"Config", "Validate", "log level check")
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.WrapUsage(
			fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidConfig, c.Log.Format),
			"Config", "Validate", "log format check")
	}
	return nil
}

// Logger builds the structured logger described by the log section,
// writing to stderr so stdout stays free for command output.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch c.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// MetricsServer builds the Prometheus endpoint described by the metrics
// section, or nil when the endpoint is disabled. The caller runs Start,
// typically alongside Connect.
func (c *Config) MetricsServer(registry *metric.MetricsRegistry) *metric.Server {
	if !c.Metrics.Enabled {
		return nil
	}
	return metric.NewServer(c.Metrics.Port, c.Metrics.Path, registry)
}

// Options translates the configuration into client options. Zero-valued
// fields produce no option so the client's own defaults apply.
func (c *Config) Options() []client.ClientOption {
	var opts []client.ClientOption
	if c.Host.Address != "" {
		opts = append(opts, client.WithAddress(c.Host.Address))
	}
	if c.Host.PollInterval > 0 {
		opts = append(opts, client.WithPollInterval(c.Host.PollInterval))
	}
	if c.Host.AutoClose != nil {
		opts = append(opts, client.WithAutoClose(*c.Host.AutoClose))
	}
	if c.Host.CheckPluginID != nil {
		opts = append(opts, client.WithPluginIDCheck(*c.Host.CheckPluginID))
	}
	if c.Host.StatesOnBroadcast != nil {
		opts = append(opts, client.WithStatesOnBroadcast(*c.Host.StatesOnBroadcast))
	}
	if c.Host.SendRateLimit > 0 {
		opts = append(opts, client.WithSendRateLimit(c.Host.SendRateLimit, c.Host.SendBurst))
	}
	if c.Dispatch.Workers > 0 {
		opts = append(opts, client.WithWorkers(c.Dispatch.Workers))
	}
	if c.Dispatch.QueueSize > 0 {
		opts = append(opts, client.WithQueueSize(c.Dispatch.QueueSize))
	}
	return opts
}
