// Package config loads scarab-host's runtime settings from a .env file in
// the project root, overridable by environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

type HostConfig struct {
	Port     string
	HTTPAddr string
}

var (
	hostConfig   *HostConfig
	configLoaded bool
)

func LoadHostConfig() (*HostConfig, error) {
	if hostConfig != nil && configLoaded {
		return hostConfig, nil
	}

	cfg := &HostConfig{}

	projectRoot := findProjectRoot()
	envPath := filepath.Join(projectRoot, ".env")

	data, err := os.ReadFile(envPath)
	if err == nil {
		parseEnvFile(string(data), cfg)
	}

	if port := os.Getenv("SCARAB_PORT"); port != "" {
		cfg.Port = port
	}
	if addr := os.Getenv("SCARAB_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	hostConfig = cfg
	configLoaded = true
	return cfg, nil
}

func parseEnvFile(content string, cfg *HostConfig) {
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		switch key {
		case "SCARAB_PORT":
			cfg.Port = value
		case "SCARAB_HTTP_ADDR":
			cfg.HTTPAddr = value
		}
	}
}

func findProjectRoot() string {
	cwd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}

// GetPort returns the configured fixed serial port override, or "" to let
// the enumerator drive discovery.
func GetPort() string {
	cfg, err := LoadHostConfig()
	if err != nil {
		return ""
	}
	return cfg.Port
}

// GetHTTPAddr returns the configured debug HTTP listen address, or "" to
// disable the debug surface.
func GetHTTPAddr() string {
	cfg, err := LoadHostConfig()
	if err != nil {
		return ""
	}
	return cfg.HTTPAddr
}
