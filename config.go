package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppConfig represents the YAML configuration structure
type AppConfig struct {
	Version string        `yaml:"version"`
	General GeneralConfig `yaml:"general"`
	Auth    AuthConfig    `yaml:"auth"`
	Output  OutputConfig  `yaml:"output"`
	Filters FilterConfig  `yaml:"filters"`
}

// GeneralConfig holds general execution settings
type GeneralConfig struct {
	Timeout    int    `yaml:"timeout"`     // Timeout in seconds
	LogLevel   string `yaml:"log_level"`   // Log level: silent, normal, verbose, debug
	MaxWorkers int    `yaml:"max_workers"` // Concurrent compartment scans
	Progress   bool   `yaml:"progress"`    // Progress bar display
}

// AuthConfig holds OCI authentication settings
type AuthConfig struct {
	ConfigFile string `yaml:"config_file"` // OCI config file path (empty = ~/.oci/config)
	Profile    string `yaml:"profile"`     // Profile name within the config file
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	File string `yaml:"file"` // JSON report file path
}

// Default configuration values
func getDefaultConfig() *AppConfig {
	return &AppConfig{
		Version: "1.0",
		General: GeneralConfig{
			Timeout:    600,
			LogLevel:   "normal",
			MaxWorkers: 5,
			Progress:   true,
		},
		Auth: AuthConfig{
			ConfigFile: "",
			Profile:    "DEFAULT",
		},
		Output: OutputConfig{
			File: "exadata_data.json",
		},
		Filters: FilterConfig{
			IncludeCompartments: []string{},
			ExcludeCompartments: []string{},
		},
	}
}

// Configuration file search paths in priority order
func getConfigPaths() []string {
	paths := []string{}

	// 1. Environment variable
	if configFile := os.Getenv("OCI_EXADATA_INVENTORY_CONFIG_FILE"); configFile != "" {
		paths = append(paths, configFile)
	}

	// 2. Current directory
	paths = append(paths, "./oci-exadata-inventory.yaml")

	// 3. Home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".oci-exadata-inventory.yaml"))
	}

	// 4. System directory
	paths = append(paths, "/etc/oci-exadata-inventory.yaml")

	return paths
}

// LoadConfig loads configuration from YAML file with fallback to defaults
func LoadConfig() (*AppConfig, error) {
	config := getDefaultConfig()

	for _, path := range getConfigPaths() {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse configuration file %s: %w", path, err)
			}
			logger.Debug("Loaded configuration from %s", path)
			break // Use first found configuration file
		}
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *AppConfig) error {
	validLogLevels := []string{"silent", "normal", "verbose", "debug"}
	if !contains(validLogLevels, config.General.LogLevel) {
		return fmt.Errorf("invalid log_level '%s', must be one of: %v", config.General.LogLevel, validLogLevels)
	}

	if config.General.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %d", config.General.Timeout)
	}

	if config.General.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got: %d", config.General.MaxWorkers)
	}

	return nil
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// SaveConfig saves the current configuration to a YAML file
func SaveConfig(config *AppConfig, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// GenerateDefaultConfigFile creates a default configuration file
func GenerateDefaultConfigFile(filename string) error {
	config := getDefaultConfig()
	return SaveConfig(config, filename)
}
