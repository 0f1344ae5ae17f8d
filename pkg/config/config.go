// Package config loads alignverts settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultEvalTimeout   = 5 * time.Second
	DefaultMeshCells     = 32
	DefaultWeldTolerance = 1e-5
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds the tunable settings of the scripting host and the edit
// session.
type Config struct {
	// EvalTimeout bounds a single script evaluation.
	EvalTimeout time.Duration `yaml:"eval_timeout"`
	// MeshCells is the marching-cubes resolution for primitives.
	MeshCells int `yaml:"mesh_cells"`
	// WeldTolerance is the distance under which tessellated corners are
	// merged into one edit-mesh vertex.
	WeldTolerance float64 `yaml:"weld_tolerance"`
	// ReportCancellations attaches a message to cancelled operators.
	ReportCancellations bool `yaml:"report_cancellations"`
	// RejectStaleReferences cancels alignments whose references were picked
	// before vertices were renumbered (deleted).
	RejectStaleReferences bool `yaml:"reject_stale_references"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		EvalTimeout:           DefaultEvalTimeout,
		MeshCells:             DefaultMeshCells,
		WeldTolerance:         DefaultWeldTolerance,
		ReportCancellations:   true,
		RejectStaleReferences: true,
	}
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, so omitted keys keep their default
// value, and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal serializes cfg to YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate checks that every field is in range.
func (c *Config) Validate() error {
	var errs []error
	if c.EvalTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: eval_timeout must be positive, got %s", ErrInvalid, c.EvalTimeout))
	}
	if c.MeshCells <= 0 {
		errs = append(errs, fmt.Errorf("%w: mesh_cells must be positive, got %d", ErrInvalid, c.MeshCells))
	}
	if c.WeldTolerance <= 0 {
		errs = append(errs, fmt.Errorf("%w: weld_tolerance must be positive, got %g", ErrInvalid, c.WeldTolerance))
	}
	return errors.Join(errs...)
}
