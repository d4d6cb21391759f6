// Package session wires configuration, the engine and runtime commands
// together: it loads a run's configuration, builds the store and its
// agents, and drives the engine's tick loop while honoring asynchronous
// pause/resume/step/stop/set_speed commands between ticks.
package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"groceria/distributions"
)

// OuterConfig is the viper-ingested envelope: {kind, def}. def's concrete
// shape is resolved by a second yaml pass once decoded, following the
// teacher's two-stage config load (viper for file discovery, yaml.v3 for
// the typed inner document).
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// ClientOverride pins a specific shopper's attributes instead of sampling
// them; any zero-value field is sampled as usual.
type ClientOverride struct {
	Patience *float64 `yaml:"patience"`
	Type     string   `yaml:"type"`
	Speed    string   `yaml:"speed"`
}

// Config is the full set of parameters a session is built from: the
// simulated day and hour, the grid dimensions, how many clients to spawn,
// the tick budget and per-tick delay, the RNG seed, and any per-client
// overrides.
type Config struct {
	Day        string           `yaml:"day"`
	Hour       int              `yaml:"hour"`
	Rows       int              `yaml:"rows"`
	Cols       int              `yaml:"cols"`
	NumClients int              `yaml:"num_clients"`
	MaxTicks   int              `yaml:"max_ticks"`
	TickDelay  float64          `yaml:"tick_delay"`
	Seed       int64            `yaml:"seed"`
	Clients    []ClientOverride `yaml:"clients"`
}

// ConfigError reports an invalid configuration value, aborting session
// startup before any engine is constructed.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("session: invalid config field %q: %s", e.Field, e.Reason)
}

var errNoConfigFile = errors.New("session: no config file path given")

// LoadConfig reads a {kind, def} YAML document from path and decodes its
// def into a Config via a viper+yaml.v3 double-unmarshal (viper resolves
// the file, yaml.v3 decodes the untyped def payload into the concrete
// struct) rather than handing viper the whole typed shape
// directly.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errNoConfigFile
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("session: reading config: %w", err)
	}

	outer := &OuterConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, fmt.Errorf("session: decoding config envelope: %w", err)
	}

	raw, err := yaml.Marshal(outer.Def)
	if err != nil {
		return nil, fmt.Errorf("session: re-marshaling config body: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("session: decoding config body: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every configuration invariant: out-of-range patience,
// unknown client type, non-positive grid dimensions, and day/hour out of
// range.
func Validate(cfg *Config) error {
	if _, ok := distributions.ParseDay(cfg.Day); !ok {
		return &ConfigError{Field: "day", Reason: "unrecognized day label: " + cfg.Day}
	}
	if cfg.Hour < 0 || cfg.Hour > 23 {
		return &ConfigError{Field: "hour", Reason: "must be in [0,23]"}
	}
	if cfg.Rows < 4 {
		return &ConfigError{Field: "rows", Reason: "must be >= 4"}
	}
	if cfg.Cols < 4 {
		return &ConfigError{Field: "cols", Reason: "must be >= 4"}
	}
	if cfg.MaxTicks <= 0 {
		return &ConfigError{Field: "max_ticks", Reason: "must be > 0"}
	}
	if cfg.NumClients < 0 {
		return &ConfigError{Field: "num_clients", Reason: "must be >= 0"}
	}
	for i, c := range cfg.Clients {
		if c.Patience != nil && (*c.Patience < 0 || *c.Patience > 1) {
			return &ConfigError{Field: fmt.Sprintf("clients[%d].patience", i), Reason: "must be in [0,1]"}
		}
		if c.Type != "" && c.Type != "solo" && c.Type != "familia" {
			return &ConfigError{Field: fmt.Sprintf("clients[%d].type", i), Reason: "must be solo or familia"}
		}
		if c.Speed != "" && c.Speed != "fast" && c.Speed != "normal" && c.Speed != "calm" {
			return &ConfigError{Field: fmt.Sprintf("clients[%d].speed", i), Reason: "must be fast, normal, or calm"}
		}
	}
	return nil
}
