package protocol

// Config represents the root configuration file of the Vigil daemon.
// Durations are strings in time.ParseDuration syntax.
type Config struct {
	Version       string              `yaml:"version" toml:"version"`
	Monitor       MonitorConfig       `yaml:"monitor" toml:"monitor"`
	Companion     CompanionConfig     `yaml:"companion" toml:"companion"`
	Control       ControlConfig       `yaml:"control" toml:"control"`
	Observability ObservabilityConfig `yaml:"observability" toml:"observability"`
}

type MonitorConfig struct {
	Triggers        []string `yaml:"triggers" toml:"triggers"`                   // Executable names, case-insensitive
	ActiveInterval  string   `yaml:"active_interval" toml:"active_interval"`     // Poll cadence while the companion runs
	IdleInterval    string   `yaml:"idle_interval" toml:"idle_interval"`         // Poll cadence while it does not
	StopGracePeriod string   `yaml:"stop_grace_period" toml:"stop_grace_period"` // Bounded wait after kill
}

type CompanionConfig struct {
	Path        string   `yaml:"path" toml:"path"`
	Args        []string `yaml:"args" toml:"args"`
	WorkingDir  string   `yaml:"working_dir" toml:"working_dir"`   // Defaults to the directory of Path
	ProcessName string   `yaml:"process_name" toml:"process_name"` // Name used for stops, defaults to base of Path
}

type ControlConfig struct {
	SocketPath string `yaml:"socket_path" toml:"socket_path"`
	LockFile   string `yaml:"lock_file" toml:"lock_file"`
}

type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
	LogFormat   string `yaml:"log_format" toml:"log_format"`
}

// Personal.AI order the ending
