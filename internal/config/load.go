package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	// Explicit path takes priority over the standard locations
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the animation engine cannot interpret.
func (c *Config) Validate() error {
	switch c.Animation.Interpolation {
	case "linear", "constant":
	default:
		return fmt.Errorf("animation.interpolation: unknown mode %q", c.Animation.Interpolation)
	}
	switch c.Animation.JointMode {
	case "none", "read", "control":
	default:
		return fmt.Errorf("animation.joint_mode: unknown mode %q", c.Animation.JointMode)
	}
	if c.Loader.FramesPerSecond <= 0 {
		return fmt.Errorf("loader.frames_per_second must be positive, got %v", c.Loader.FramesPerSecond)
	}
	if c.Animation.TransitionTime < 0 {
		return fmt.Errorf("animation.transition_time must not be negative, got %v", c.Animation.TransitionTime)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./skelanim.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Skelanim")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Skelanim")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "skelanim")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "skelanim")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
