package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	ASR     ASRConfig     `yaml:"asr"`
	Audio   AudioConfig   `yaml:"audio"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// ASRConfig contains recognition service credentials and session tuning
type ASRConfig struct {
	AppID       string `yaml:"app_id"`
	Cluster     string `yaml:"cluster"`
	AccessToken string `yaml:"access_token"`

	URL      string `yaml:"url"`
	Language string `yaml:"language"`

	SegmentDuration int `yaml:"segment_duration"` // milliseconds
	ConnectTimeout  int `yaml:"connect_timeout"`  // seconds
	ReceiveTimeout  int `yaml:"receive_timeout"`  // seconds
	SuccessCode     int `yaml:"success_code"`
}

// AudioConfig contains the fixed audio stream parameters
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// StorageConfig contains session audio persistence configuration
type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	OutputDir string `yaml:"output_dir"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Credentials may come from the environment instead of the file.
	if config.ASR.AccessToken == "" {
		config.ASR.AccessToken = os.Getenv("ASR_ACCESS_TOKEN")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.ASR.Validate(); err != nil {
		return fmt.Errorf("asr config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	return nil
}

// Validate validates recognition configuration
func (a *ASRConfig) Validate() error {
	if a.AppID == "" {
		return fmt.Errorf("app_id cannot be empty")
	}

	if a.Cluster == "" {
		return fmt.Errorf("cluster cannot be empty")
	}

	if a.AccessToken == "" {
		return fmt.Errorf("access_token cannot be empty")
	}

	if a.URL != "" && !strings.HasPrefix(a.URL, "ws://") && !strings.HasPrefix(a.URL, "wss://") {
		return fmt.Errorf("url must use the ws or wss scheme, got '%s'", a.URL)
	}

	if a.SegmentDuration < 0 {
		return fmt.Errorf("segment_duration cannot be negative, got %d", a.SegmentDuration)
	}

	if a.ConnectTimeout < 0 {
		return fmt.Errorf("connect_timeout cannot be negative, got %d", a.ConnectTimeout)
	}

	if a.ReceiveTimeout < 0 {
		return fmt.Errorf("receive_timeout cannot be negative, got %d", a.ReceiveTimeout)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.Enabled && s.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty when storage is enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSegmentDuration returns the chunk window as a time.Duration
func (a *ASRConfig) GetSegmentDuration() time.Duration {
	return time.Duration(a.SegmentDuration) * time.Millisecond
}

// GetConnectTimeoutDuration returns the connect timeout as a time.Duration
func (a *ASRConfig) GetConnectTimeoutDuration() time.Duration {
	return time.Duration(a.ConnectTimeout) * time.Second
}

// GetReceiveTimeoutDuration returns the receive timeout as a time.Duration
func (a *ASRConfig) GetReceiveTimeoutDuration() time.Duration {
	return time.Duration(a.ReceiveTimeout) * time.Second
}
