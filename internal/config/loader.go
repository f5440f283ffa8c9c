package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/Vigil/pkg/consts"
	"github.com/turtacn/Vigil/pkg/errors"
	"github.com/turtacn/Vigil/pkg/protocol"
)

// LoadFile reads and decodes a config file. Files ending in .toml are decoded
// as TOML, everything else as YAML.
func LoadFile(path string) (*protocol.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "LoadFile", "cannot read "+path, err)
	}

	var cfg protocol.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "LoadFile", "cannot parse "+path, err)
	}
	return &cfg, nil
}

// SnapshotFromConfig applies defaults to the monitor and companion sections
// and builds a validated Snapshot.
func SnapshotFromConfig(cfg *protocol.Config) (*Snapshot, error) {
	active, err := parseInterval("monitor.active_interval", cfg.Monitor.ActiveInterval, consts.DefaultActiveInterval)
	if err != nil {
		return nil, err
	}
	idle, err := parseInterval("monitor.idle_interval", cfg.Monitor.IdleInterval, consts.DefaultIdleInterval)
	if err != nil {
		return nil, err
	}
	grace, err := parseInterval("monitor.stop_grace_period", cfg.Monitor.StopGracePeriod, consts.DefaultStopGracePeriod)
	if err != nil {
		return nil, err
	}

	return NewSnapshot(Options{
		Triggers:             cfg.Monitor.Triggers,
		ActiveInterval:       active,
		IdleInterval:         idle,
		CompanionPath:        cfg.Companion.Path,
		CompanionArgs:        cfg.Companion.Args,
		CompanionWorkingDir:  cfg.Companion.WorkingDir,
		CompanionProcessName: cfg.Companion.ProcessName,
		StopGracePeriod:      grace,
	})
}

// Load reads path and returns both the raw config and its snapshot.
func Load(path string) (*protocol.Config, *Snapshot, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	snap, err := SnapshotFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, snap, nil
}

// parseInterval accepts a time.ParseDuration string or a bare integer of
// milliseconds. An empty value yields def.
func parseInterval(field, value string, def time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.New(errors.ErrCodeConfigInvalid, "ParseInterval", field+" is not a duration", err)
	}
	return d, nil
}

// Personal.AI order the ending
