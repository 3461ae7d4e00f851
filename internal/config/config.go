// Package config loads the YAML configuration files for the frontend and
// agent binaries.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FrontendConfig controls the central server's listen addresses and TLS.
type FrontendConfig struct {
	HTTPPort    int    `yaml:"http_port"`
	BackendPort int    `yaml:"backend_port"`
	LogLevel    string `yaml:"log_level,omitempty"`
	LogFile     string `yaml:"log_file,omitempty"`
	EnableTLS   bool   `yaml:"enable_tls,omitempty"`
	CertPath    string `yaml:"cert_path,omitempty"`
	KeyPath     string `yaml:"key_path,omitempty"`
}

// AgentConfig controls one node agent's dial target and identity.
type AgentConfig struct {
	FrontendAddr string          `yaml:"frontend_addr"`
	Nickname     string          `yaml:"nickname,omitempty"`
	LogLevel     string          `yaml:"log_level,omitempty"`
	LogFile      string          `yaml:"log_file,omitempty"`
	Disks        []string        `yaml:"disks,omitempty"`
	Reconnect    ReconnectTuning `yaml:"reconnect,omitempty"`
}

func DefaultFrontendConfig() *FrontendConfig {
	return &FrontendConfig{
		HTTPPort:    5252,
		BackendPort: 5353,
		LogLevel:    "info",
	}
}

func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		FrontendAddr: "127.0.0.1:5353",
		LogLevel:     "info",
	}
}

// LoadFrontendConfig reads path into a FrontendConfig seeded with defaults.
// A missing file is not an error; the defaults are returned unchanged.
func LoadFrontendConfig(path string) (*FrontendConfig, error) {
	cfg := DefaultFrontendConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAgentConfig reads path into an AgentConfig seeded with defaults.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	cfg := DefaultAgentConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReconnectTuning lets advanced agent configs override the backoff
// constants (internal/backoff.Backoff's Base/Max/ResetWindow) without
// touching the spec.md §4.10 defaults everyone else gets. Zero fields
// fall back to those defaults.
type ReconnectTuning struct {
	Base       time.Duration `yaml:"base,omitempty"`
	Max        time.Duration `yaml:"max,omitempty"`
	ResetAfter time.Duration `yaml:"reset_after,omitempty"`
}
