// Package config loads the redaction policy and publishes immutable rule
// snapshots for the pipeline.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/gate"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/redact"
	"github.com/cgtqwmwkhp-rgb/quality-governance-platform-sub010/internal/registry"
)

// EnvPath names the environment variable consulted when no --config flag
// is given.
const EnvPath = "QGP_CONFIG"

//go:embed default.yaml
var defaultYAML []byte

// Config is the operator-facing policy.
type Config struct {
	PublicPIIPolicy           redact.PublicPIIPolicy `yaml:"public_pii_policy"`
	InternalRedactionRequired bool                   `yaml:"internal_redaction_required"`
	RoleLabels                map[string]string      `yaml:"role_labels"`
	LogLevel                  string                 `yaml:"log_level"`
	ArchivePath               string                 `yaml:"archive_path"`
}

// Policy returns the redaction policy the config describes.
func (c Config) Policy() redact.Policy {
	labels := make(map[string]string, len(c.RoleLabels))
	for k, v := range c.RoleLabels {
		labels[k] = v
	}
	return redact.Policy{
		PublicPII:                 c.PublicPIIPolicy,
		InternalRedactionRequired: c.InternalRedactionRequired,
		RoleLabels:                labels,
	}
}

// Default returns the embedded defaults.
func Default() Config {
	c, err := decode(defaultYAML, Config{})
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return c
}

// Path resolves the config file to load: the flag value if set, otherwise
// $QGP_CONFIG. An empty result means defaults only.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(EnvPath)
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse expands ${VAR} references in data and decodes it over the
// defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))
	return decode([]byte(expanded), Default())
}

func decode(data []byte, base Config) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	c := base
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config YAML: %w", err)
	}
	return c, nil
}

// Snapshot is one validated, immutable set of rules and policy. Requests
// hold the snapshot they started with for their whole run.
type Snapshot struct {
	Config   Config
	Registry *registry.Registry
	Gate     *gate.Gate
	Redactor *redact.Engine
}

// Build compiles the rule registry (with its severity tables), the section
// gate and the redaction engine for c. Any failure is a configuration
// error.
func Build(c Config) (*Snapshot, error) {
	reg, err := registry.New()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	g, err := gate.New()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	eng, err := redact.New(c.Policy())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &Snapshot{Config: c, Registry: reg, Gate: g, Redactor: eng}, nil
}

// Store publishes the current snapshot. Readers never block; Reload swaps
// in a new snapshot only after it has been fully built.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

// NewStore returns a store holding s.
func NewStore(s *Snapshot) *Store {
	st := &Store{}
	st.cur.Store(s)
	return st
}

// Open loads the config at path and builds the first snapshot.
func Open(path string) (*Store, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	s, err := Build(c)
	if err != nil {
		return nil, err
	}
	return NewStore(s), nil
}

// Current returns the snapshot in effect.
func (s *Store) Current() *Snapshot {
	return s.cur.Load()
}

// Reload builds a snapshot for c and swaps it in. On error the current
// snapshot stays in effect.
func (s *Store) Reload(c Config) error {
	next, err := Build(c)
	if err != nil {
		return err
	}
	s.cur.Store(next)
	return nil
}
