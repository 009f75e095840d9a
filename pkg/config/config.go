package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/nbsched/pkg/log"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNamespace    = "default"
	DefaultImage        = "notebookserver:1.0"
	DefaultVolumeClaim  = "hostclaim"
	DefaultQueueDriver  = "sqlite"
	DefaultQueuePath    = "/mnt/internal/queue.db"
	DefaultSettingsFile = "/mnt/internal/settings.txt"
	DefaultListenAddr   = "127.0.0.1:65432"
	DefaultIdleWindow   = 60 * time.Second
	DefaultReadTimeout  = 3 * time.Second
)

// DefaultProbeCommand prints the status file the notebook image maintains
var DefaultProbeCommand = []string{"sh", "-c", "cat /tmp/nb-status"}

// Config holds the daemon configuration
type Config struct {
	Namespace    string        `yaml:"namespace"`
	Kubeconfig   string        `yaml:"kubeconfig"` // Empty means in-cluster config
	Image        string        `yaml:"image"`
	VolumeClaim  string        `yaml:"volume_claim"`
	SettingsFile string        `yaml:"settings_file"`
	MetricsAddr  string        `yaml:"metrics_addr"` // Empty disables the HTTP server
	Queue        QueueConfig   `yaml:"queue"`
	Trigger      TriggerConfig `yaml:"trigger"`
	Probe        ProbeConfig   `yaml:"probe"`
	Log          LogConfig     `yaml:"log"`
}

// QueueConfig selects the queue backend
type QueueConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "bolt"
	Path   string `yaml:"path"`
}

// TriggerConfig configures the trigger listener
type TriggerConfig struct {
	ListenAddr string        `yaml:"listen_addr"`
	IdleWindow time.Duration `yaml:"idle_window"`
}

// ProbeConfig configures status probing
type ProbeConfig struct {
	Command     []string      `yaml:"command"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns a Config with every field set to its default
func Default() *Config {
	return &Config{
		Namespace:    DefaultNamespace,
		Image:        DefaultImage,
		VolumeClaim:  DefaultVolumeClaim,
		SettingsFile: DefaultSettingsFile,
		Queue: QueueConfig{
			Driver: DefaultQueueDriver,
			Path:   DefaultQueuePath,
		},
		Trigger: TriggerConfig{
			ListenAddr: DefaultListenAddr,
			IdleWindow: DefaultIdleWindow,
		},
		Probe: ProbeConfig{
			Command:     append([]string(nil), DefaultProbeCommand...),
			ReadTimeout: DefaultReadTimeout,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills fields an explicit empty value in the file cleared
func (c *Config) applyDefaults() {
	d := Default()
	if c.Namespace == "" {
		c.Namespace = d.Namespace
	}
	if c.Image == "" {
		c.Image = d.Image
	}
	if c.VolumeClaim == "" {
		c.VolumeClaim = d.VolumeClaim
	}
	if c.SettingsFile == "" {
		c.SettingsFile = d.SettingsFile
	}
	if c.Queue.Driver == "" {
		c.Queue.Driver = d.Queue.Driver
	}
	if c.Queue.Path == "" {
		c.Queue.Path = d.Queue.Path
	}
	if c.Trigger.ListenAddr == "" {
		c.Trigger.ListenAddr = d.Trigger.ListenAddr
	}
	if c.Trigger.IdleWindow == 0 {
		c.Trigger.IdleWindow = d.Trigger.IdleWindow
	}
	if len(c.Probe.Command) == 0 {
		c.Probe.Command = d.Probe.Command
	}
	if c.Probe.ReadTimeout == 0 {
		c.Probe.ReadTimeout = d.Probe.ReadTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate checks the configuration for values the daemon cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Queue.Driver {
	case "sqlite", "bolt":
	default:
		errs = append(errs, fmt.Errorf("unsupported queue driver %q", c.Queue.Driver))
	}
	if c.Trigger.IdleWindow < 0 {
		errs = append(errs, fmt.Errorf("trigger.idle_window must be positive, got %s", c.Trigger.IdleWindow))
	}
	if c.Probe.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("probe.read_timeout must be positive, got %s", c.Probe.ReadTimeout))
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
