// Package config encapsulates mapy configuration details. Configuration
// is stored as a yaml file in the repo directory, with environment
// variables and flags layered on top by the cmd package
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
)

const (
	// DefaultPort is the gateway listen port when nothing overrides it
	DefaultPort = 3000
	// PortEnvVar overrides the listen port
	PortEnvVar = "MAPY_PORT"
	// PathEnvVar overrides the repo (data directory) location
	PathEnvVar = "MAPY_PATH"
)

// Config encapsulates all configuration details for mapy
type Config struct {
	API  *API  `json:"api"`
	Repo *Repo `json:"repo"`
}

// API holds the gateway's HTTP settings
type API struct {
	Port int `json:"port"`
	// AllowedOrigins configures CORS. "*" permits any origin
	AllowedOrigins []string `json:"allowedorigins"`
}

// Repo points at the data directory holding the profiles document
type Repo struct {
	Path string `json:"path"`
}

// DefaultConfig gives a new default mapy configuration
func DefaultConfig() *Config {
	return &Config{
		API: &API{
			Port:           DefaultPort,
			AllowedOrigins: []string{"*"},
		},
		Repo: &Repo{
			Path: StandardRepoPath(),
		},
	}
}

// StandardRepoPath returns the data directory: $MAPY_PATH when set,
// ~/.mapy otherwise
func StandardRepoPath() string {
	if path := os.Getenv(PathEnvVar); path != "" {
		return path
	}
	home, err := homedir.Dir()
	if err != nil {
		return ".mapy"
	}
	return filepath.Join(home, ".mapy")
}

// EnvPort reads the port override from the environment, returning ok
// false when unset or unparseable
func EnvPort() (int, bool) {
	raw := os.Getenv(PortEnvVar)
	if raw == "" {
		return 0, false
	}
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return port, true
}

// ReadFromFile reads a yaml configuration file from path
func ReadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WriteToFile encodes a configuration to yaml and writes it to path
func (cfg *Config) WriteToFile(path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
