// Package config manages cgx configuration and the .cgx directory
// structure. It handles loading, saving, and initializing the repository
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	CgxDir       = ".cgx"
	ConfigFile   = "config"
	DatabaseFile = "objects.db"
	GraphDir     = "graph"
)

// Config represents the cgx repository configuration.
type Config struct {
	StoreBackend string `toml:"store_backend"` // "bbolt" or "sqlite"
	path         string // path to .cgx directory
}

// FindRoot finds the .cgx directory by walking up from the current directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		cgxPath := filepath.Join(dir, CgxDir)
		if info, err := os.Stat(cgxPath); err == nil && info.IsDir() {
			return cgxPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a cgx repository (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .cgx directory.
func Load() (*Config, error) {
	cgxPath, err := FindRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(cgxPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = cgxPath
	return &cfg, nil
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Path returns the path to the .cgx directory.
func (c *Config) Path() string {
	return c.path
}

// DatabasePath returns the path to the commit store database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// GraphPath returns the path to the chain directory.
func (c *Config) GraphPath() string {
	return filepath.Join(c.path, GraphDir)
}

// Initialize creates a new .cgx directory with initial configuration.
func Initialize(backend string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cgxPath := filepath.Join(cwd, CgxDir)

	// Check if already initialized
	if _, err := os.Stat(cgxPath); err == nil {
		return nil, fmt.Errorf("cgx repository already exists")
	}

	if err := os.MkdirAll(cgxPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .cgx directory: %w", err)
	}

	graphPath := filepath.Join(cgxPath, GraphDir)
	if err := os.MkdirAll(graphPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create graph directory: %w", err)
	}

	cfg := &Config{
		StoreBackend: backend,
		path:         cgxPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(cgxPath)
		return nil, err
	}

	return cfg, nil
}
