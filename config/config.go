// Package config holds the service configuration and its YAML loader.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all docviewd configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Convert ConvertConfig `yaml:"convert"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig locates the on-disk artifact directories and the
// event log database.
type StorageConfig struct {
	UploadsDir    string `yaml:"uploads_dir"`
	ConvertedDir  string `yaml:"converted_dir"`
	ThumbnailsDir string `yaml:"thumbnails_dir"`
	EventsDBPath  string `yaml:"events_db_path"`

	// EventsRetentionDays bounds the event log; rows older than this are
	// deleted by a daily sweep.
	EventsRetentionDays int `yaml:"events_retention_days"`
}

// ConvertConfig bounds external tool execution.
type ConvertConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// LogConfig controls structured log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) defaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8000
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 50 << 20
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.UploadsDir == "" {
		c.Storage.UploadsDir = "uploads"
	}
	if c.Storage.ConvertedDir == "" {
		c.Storage.ConvertedDir = "converted"
	}
	if c.Storage.ThumbnailsDir == "" {
		c.Storage.ThumbnailsDir = "thumbnails"
	}
	if c.Storage.EventsDBPath == "" {
		c.Storage.EventsDBPath = "docviewd_events.db"
	}
	if c.Storage.EventsRetentionDays <= 0 {
		c.Storage.EventsRetentionDays = 90
	}
	if c.Convert.Timeout <= 0 {
		c.Convert.Timeout = 3 * time.Minute
	}
	if c.Convert.ProbeTimeout <= 0 {
		c.Convert.ProbeTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile reads a YAML config file, fills in defaults and applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.defaults()
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets DOCVIEW_* variables override the file for the few
// settings that differ between deployments.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOCVIEW_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("DOCVIEW_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("DOCVIEW_UPLOADS_DIR"); v != "" {
		c.Storage.UploadsDir = v
	}
	if v := os.Getenv("DOCVIEW_CONVERTED_DIR"); v != "" {
		c.Storage.ConvertedDir = v
	}
	if v := os.Getenv("DOCVIEW_THUMBNAILS_DIR"); v != "" {
		c.Storage.ThumbnailsDir = v
	}
	if v := os.Getenv("DOCVIEW_EVENTS_DB"); v != "" {
		c.Storage.EventsDBPath = v
	}
	if v := os.Getenv("DOCVIEW_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
