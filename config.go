package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gmllt/listboard/internal/export"
)

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	DisableChecksum bool   `yaml:"disable_checksum"`
}

type ExportConfig struct {
	// Filename may contain {list_id} and {list_title}.
	Filename string `yaml:"filename"`
	Sheet    string `yaml:"sheet"`
	// Dir keeps a copy of every export on disk when set.
	Dir string `yaml:"dir"`
}

type Config struct {
	Listen        string        `yaml:"listen"`
	StaticDir     string        `yaml:"static_dir"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Export        ExportConfig  `yaml:"export"`
	S3            S3Config      `yaml:"s3"`
}

func defaultConfig() *Config {
	cfg := &Config{
		SessionTTL:    24 * time.Hour,
		SweepInterval: time.Minute,
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills empty strings. Durations are defaulted by
// defaultConfig before decoding so an explicit zero survives.
func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.Export.Filename == "" {
		c.Export.Filename = export.DefaultFileName
	}
	if c.Export.Sheet == "" {
		c.Export.Sheet = export.DefaultSheet
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
}

func (c *Config) validate() error {
	if c.SessionTTL < 0 {
		return errors.New("session_ttl must not be negative")
	}
	if c.SweepInterval <= 0 {
		return errors.New("sweep_interval must be positive")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return errors.New("s3.bucket is required when s3 is enabled")
	}
	return nil
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg := defaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
