// Package config handles the session configuration for locus.
//
// The configuration is read once at session setup and treated as immutable
// afterwards; the resolution and retry engines receive it by value and never
// write it back.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/locus/pkg/locator"
)

// Config represents the session configuration (locus.yaml).
type Config struct {
	// Retry/wait knobs
	SearchAttempts       int           `yaml:"searchAttempts"`       // Resolution attempts per operation
	SearchRetryTimeout   time.Duration `yaml:"searchRetryTimeout"`   // Fixed delay between attempts
	StaleRecoveryTimeout time.Duration `yaml:"staleRecoveryTimeout"` // Delay before re-walking the scope chain
	WaitTimeout          time.Duration `yaml:"waitTimeout"`          // Upper bound for positive waits
	MissingTimeout       time.Duration `yaml:"missingTimeout"`       // Upper bound when waiting for absence

	// Viewport bucket thresholds
	Breakpoints locator.Breakpoints `yaml:"breakpoints"`

	// Active backend identifier (must match Driver.Name)
	Backend string `yaml:"backend"`

	// Platform override; empty means derive from the driver/host
	Platform locator.Platform `yaml:"platform"`

	// OS override; empty means derive from the host
	OS locator.OS `yaml:"os"`

	// Log file path; empty disables file logging
	LogFile string `yaml:"logFile"`
}

// Default returns the configuration with all knobs at their defaults.
func Default() Config {
	return Config{
		SearchAttempts:       3,
		SearchRetryTimeout:   500 * time.Millisecond,
		StaleRecoveryTimeout: 500 * time.Millisecond,
		WaitTimeout:          30 * time.Second,
		MissingTimeout:       5 * time.Second,
		Breakpoints:          locator.DefaultBreakpoints(),
	}
}

// Load loads configuration from a file, filling unset knobs with defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFromDir looks for locus.yaml or locus.yml in the directory.
// No config file means defaults.
func LoadFromDir(dir string) (Config, error) {
	for _, name := range []string{"locus.yaml", "locus.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Default(), nil
}

// UnmarshalYAML decodes the config, leaving absent knobs untouched so the
// target keeps its defaults. Durations accept Go duration strings ("500ms",
// "30s") or bare integers, which are taken as milliseconds.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain struct {
		SearchAttempts       *int                 `yaml:"searchAttempts"`
		SearchRetryTimeout   *yaml.Node           `yaml:"searchRetryTimeout"`
		StaleRecoveryTimeout *yaml.Node           `yaml:"staleRecoveryTimeout"`
		WaitTimeout          *yaml.Node           `yaml:"waitTimeout"`
		MissingTimeout       *yaml.Node           `yaml:"missingTimeout"`
		Breakpoints          *locator.Breakpoints `yaml:"breakpoints"`
		Backend              *string              `yaml:"backend"`
		Platform             *locator.Platform    `yaml:"platform"`
		OS                   *locator.OS          `yaml:"os"`
		LogFile              *string              `yaml:"logFile"`
	}
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}

	if p.SearchAttempts != nil {
		c.SearchAttempts = *p.SearchAttempts
	}
	for _, d := range []struct {
		name string
		node *yaml.Node
		dst  *time.Duration
	}{
		{"searchRetryTimeout", p.SearchRetryTimeout, &c.SearchRetryTimeout},
		{"staleRecoveryTimeout", p.StaleRecoveryTimeout, &c.StaleRecoveryTimeout},
		{"waitTimeout", p.WaitTimeout, &c.WaitTimeout},
		{"missingTimeout", p.MissingTimeout, &c.MissingTimeout},
	} {
		if d.node == nil {
			continue
		}
		v, err := parseDuration(d.node.Value)
		if err != nil {
			return fmt.Errorf("config: %s: %w", d.name, err)
		}
		*d.dst = v
	}
	if p.Breakpoints != nil {
		c.Breakpoints = *p.Breakpoints
	}
	if p.Backend != nil {
		c.Backend = *p.Backend
	}
	if p.Platform != nil {
		c.Platform = *p.Platform
	}
	if p.OS != nil {
		c.OS = *p.OS
	}
	if p.LogFile != nil {
		c.LogFile = *p.LogFile
	}
	return nil
}

// MarshalYAML renders durations in their human-readable form.
func (c Config) MarshalYAML() (interface{}, error) {
	return struct {
		SearchAttempts       int                 `yaml:"searchAttempts"`
		SearchRetryTimeout   string              `yaml:"searchRetryTimeout"`
		StaleRecoveryTimeout string              `yaml:"staleRecoveryTimeout"`
		WaitTimeout          string              `yaml:"waitTimeout"`
		MissingTimeout       string              `yaml:"missingTimeout"`
		Breakpoints          locator.Breakpoints `yaml:"breakpoints"`
		Backend              string              `yaml:"backend,omitempty"`
		Platform             locator.Platform    `yaml:"platform,omitempty"`
		OS                   locator.OS          `yaml:"os,omitempty"`
		LogFile              string              `yaml:"logFile,omitempty"`
	}{
		SearchAttempts:       c.SearchAttempts,
		SearchRetryTimeout:   c.SearchRetryTimeout.String(),
		StaleRecoveryTimeout: c.StaleRecoveryTimeout.String(),
		WaitTimeout:          c.WaitTimeout.String(),
		MissingTimeout:       c.MissingTimeout.String(),
		Breakpoints:          c.Breakpoints,
		Backend:              c.Backend,
		Platform:             c.Platform,
		OS:                   c.OS,
		LogFile:              c.LogFile,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}

// Validate checks knob sanity.
func (c Config) Validate() error {
	if c.SearchAttempts < 1 {
		return fmt.Errorf("config: searchAttempts must be at least 1, got %d", c.SearchAttempts)
	}
	if c.SearchRetryTimeout < 0 || c.StaleRecoveryTimeout < 0 {
		return fmt.Errorf("config: retry timeouts must not be negative")
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("config: waitTimeout must be positive, got %s", c.WaitTimeout)
	}
	if c.MissingTimeout <= 0 {
		return fmt.Errorf("config: missingTimeout must be positive, got %s", c.MissingTimeout)
	}
	bp := c.Breakpoints
	if !(bp.SM < bp.MD && bp.MD < bp.LG && bp.LG < bp.XL && bp.XL < bp.XXL) {
		return fmt.Errorf("config: breakpoints must be strictly increasing")
	}
	return nil
}
