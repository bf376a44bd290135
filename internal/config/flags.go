package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagFPS        = flag.Float64("fps", 0, "Playback speed in frames per second")
	flagOnce       = flag.Bool("once", false, "Play the animation once instead of looping")
	flagClip       = flag.String("clip", "", "Animation clip name or index")
	flagJointMode  = flag.String("joints", "", "Joint mode: none, read or control")
	flagTransition = flag.Duration("transition", 0, "Transition time when jumping between frames")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagFPS != 0 {
		cfg.Animation.FPS = float32(*flagFPS)
	}
	if *flagOnce {
		cfg.Animation.Loop = false
	}
	if *flagClip != "" {
		cfg.Loader.Animation = *flagClip
	}
	if *flagJointMode != "" {
		cfg.Animation.JointMode = *flagJointMode
	}
	if *flagTransition > 0 {
		cfg.Animation.TransitionTime = *flagTransition
	}
}
