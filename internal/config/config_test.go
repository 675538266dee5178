package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:    8080,
			Address: "0.0.0.0",
		},
		ASR: ASRConfig{
			AppID:           "test-app",
			Cluster:         "volcengine_streaming_common",
			AccessToken:     "test-token",
			URL:             "wss://openspeech.bytedance.com/api/v2/asr",
			Language:        "zh-CN",
			SegmentDuration: 15000,
			ConnectTimeout:  10,
			ReceiveTimeout:  30,
			SuccessCode:     1000,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
			BitDepth:   16,
		},
		Storage: StorageConfig{
			Enabled:   true,
			OutputDir: "./tmp/audio",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid http port",
			mutate: func(c *Config) {
				c.HTTP.Port = 70000
			},
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name: "missing app id",
			mutate: func(c *Config) {
				c.ASR.AppID = ""
			},
			expectError: true,
			errorMsg:    "app_id cannot be empty",
		},
		{
			name: "missing access token",
			mutate: func(c *Config) {
				c.ASR.AccessToken = ""
			},
			expectError: true,
			errorMsg:    "access_token cannot be empty",
		},
		{
			name: "non-websocket url",
			mutate: func(c *Config) {
				c.ASR.URL = "https://openspeech.bytedance.com/api/v2/asr"
			},
			expectError: true,
			errorMsg:    "url must use the ws or wss scheme",
		},
		{
			name: "invalid sample rate",
			mutate: func(c *Config) {
				c.Audio.SampleRate = 8000
			},
			expectError: true,
			errorMsg:    "sample_rate must be 16000 Hz",
		},
		{
			name: "invalid channels",
			mutate: func(c *Config) {
				c.Audio.Channels = 2
			},
			expectError: true,
			errorMsg:    "channels must be 1",
		},
		{
			name: "storage enabled without output dir",
			mutate: func(c *Config) {
				c.Storage.OutputDir = ""
			},
			expectError: true,
			errorMsg:    "output_dir cannot be empty",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "verbose"
			},
			expectError: true,
			errorMsg:    "level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config file",
			configYAML: `
http:
  port: 8080
  address: "0.0.0.0"
asr:
  app_id: "test-app"
  cluster: "volcengine_streaming_common"
  access_token: "test-token"
  url: "wss://openspeech.bytedance.com/api/v2/asr"
  language: "zh-CN"
  segment_duration: 15000
  connect_timeout: 10
  receive_timeout: 30
  success_code: 1000
audio:
  sample_rate: 16000
  channels: 1
  bit_depth: 16
storage:
  enabled: false
logging:
  level: "info"
  format: "json"
  output: "stdout"
`,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
http:
  port: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing credentials",
			configYAML: `
http:
  port: 8080
  address: "0.0.0.0"
audio:
  sample_rate: 16000
  channels: 1
  bit_depth: 16
logging:
  level: "info"
  format: "json"
`,
			expectError: true,
			errorMsg:    "app_id cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.configYAML), 0644); err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestConfigLoadTokenFromEnvironment(t *testing.T) {
	t.Setenv("ASR_ACCESS_TOKEN", "env-token")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
http:
  port: 8080
  address: "0.0.0.0"
asr:
  app_id: "test-app"
  cluster: "volcengine_streaming_common"
audio:
  sample_rate: 16000
  channels: 1
  bit_depth: 16
logging:
  level: "info"
  format: "json"
`
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.ASR.AccessToken != "env-token" {
		t.Errorf("Expected token from environment, got '%s'", config.ASR.AccessToken)
	}
}

func TestDurationHelpers(t *testing.T) {
	asr := ASRConfig{
		SegmentDuration: 15000,
		ConnectTimeout:  10,
		ReceiveTimeout:  30,
	}

	if asr.GetSegmentDuration() != 15*time.Second {
		t.Errorf("Expected 15 seconds, got %v", asr.GetSegmentDuration())
	}

	if asr.GetConnectTimeoutDuration() != 10*time.Second {
		t.Errorf("Expected 10 seconds, got %v", asr.GetConnectTimeoutDuration())
	}

	if asr.GetReceiveTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", asr.GetReceiveTimeoutDuration())
	}
}
