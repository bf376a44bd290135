// Package config handles animation tool configuration loading and management.
package config

import "time"

// Config holds all settings.
type Config struct {
	Animation AnimationConfig `yaml:"animation"`
	Loader    LoaderConfig    `yaml:"loader"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AnimationConfig holds playback settings for a skinned mesh.
type AnimationConfig struct {
	FPS            float32       `yaml:"fps"`         // Playback speed in frames per second, negative plays backwards
	Loop           bool          `yaml:"loop"`
	StartFrame     int           `yaml:"start_frame"`
	EndFrame       int           `yaml:"end_frame"` // -1 plays to the last key
	TransitionTime time.Duration `yaml:"transition_time"`
	Interpolation  string        `yaml:"interpolation"` // linear or constant
	AnimateNormals bool          `yaml:"animate_normals"`
	JointMode      string        `yaml:"joint_mode"` // none, read or control
}

// LoaderConfig holds asset import settings.
type LoaderConfig struct {
	Animation       string  `yaml:"animation"`         // Clip name or index, empty selects the first clip
	FramesPerSecond float32 `yaml:"frames_per_second"` // Key time (seconds) to frame conversion
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Animation: AnimationConfig{
			FPS:            25,
			Loop:           true,
			StartFrame:     0,
			EndFrame:       -1,
			TransitionTime: 0,
			Interpolation:  "linear",
			AnimateNormals: true,
			JointMode:      "none",
		},
		Loader: LoaderConfig{
			Animation:       "",
			FramesPerSecond: 25,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
