// Package heapconf loads and validates the YAML configuration for the
// generational heap: tier sizing, diagnostic switches, and the optional
// debug HTTP listener.
package heapconf

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	bytesize "github.com/inhies/go-bytesize"
	yaml "gopkg.in/yaml.v2"

	"github.com/orizon-lang/genheap/internal/genheap"
)

// CurrentVersion is the config schema version this build writes.
const CurrentVersion = "1.0.0"

// versionConstraint accepts any 1.x schema.
const versionConstraint = ">=1.0.0 <2.0.0"

// GenerationSettings sizes one tier. Sizes are human-readable byte
// quantities ("1MB", "512KB").
type GenerationSettings struct {
	Name        string `yaml:"name"`
	Level       int    `yaml:"level"`
	InitialSize string `yaml:"initial_size"`
	MaxSize     string `yaml:"max_size"`
}

// DebugSettings carries the diagnostic switches.
type DebugSettings struct {
	ZapUnusedHeap         bool   `yaml:"zap_unused_heap"`
	ForcePromotionFailure bool   `yaml:"force_promotion_failure"`
	HTTPAddr              string `yaml:"http_addr"`
}

// Config is the root configuration document.
type Config struct {
	Version     string               `yaml:"version"`
	Generations []GenerationSettings `yaml:"generations"`
	Debug       DebugSettings        `yaml:"debug"`
}

// Default returns the built-in two-tier configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Generations: []GenerationSettings{
			{Name: "young", Level: genheap.YoungLevel, InitialSize: "1MB", MaxSize: "4MB"},
			{Name: "old", Level: genheap.OldLevel, InitialSize: "4MB", MaxSize: "16MB"},
		},
	}
}

// Parse decodes and validates a configuration document. A missing
// version field is read as the current schema version.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("heapconf: parse: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	v, err := semver.NewVersion(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("heapconf: bad version %q: %w", cfg.Version, err)
	}
	c, err := semver.NewConstraint(versionConstraint)
	if err != nil {
		return nil, err
	}
	if !c.Check(v) {
		return nil, fmt.Errorf("%w: config version %s outside %s",
			genheap.ErrConfigUnsupported, cfg.Version, versionConstraint)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("heapconf: read %s: %w", path, err)
	}
	return Parse(data)
}

// Validate checks structural constraints: at least one tier, tier
// levels contiguous from zero, and sizes that parse and nest.
func (c *Config) Validate() error {
	if len(c.Generations) == 0 {
		return fmt.Errorf("heapconf: no generations configured")
	}
	for i, gs := range c.Generations {
		if gs.Level != i {
			return fmt.Errorf("heapconf: generation %q has level %d, want %d", gs.Name, gs.Level, i)
		}
		initial, err := bytesize.Parse(gs.InitialSize)
		if err != nil {
			return fmt.Errorf("heapconf: generation %q initial_size: %w", gs.Name, err)
		}
		max, err := bytesize.Parse(gs.MaxSize)
		if err != nil {
			return fmt.Errorf("heapconf: generation %q max_size: %w", gs.Name, err)
		}
		if initial == 0 {
			return fmt.Errorf("heapconf: generation %q initial_size must be positive", gs.Name)
		}
		if initial > max {
			return fmt.Errorf("heapconf: generation %q initial_size %s exceeds max_size %s",
				gs.Name, gs.InitialSize, gs.MaxSize)
		}
	}
	return nil
}

// GenerationSpecs converts the configured tiers into sizing specs.
func (c *Config) GenerationSpecs() ([]genheap.GenerationSpec, error) {
	specs := make([]genheap.GenerationSpec, 0, len(c.Generations))
	for _, gs := range c.Generations {
		initial, err := bytesize.Parse(gs.InitialSize)
		if err != nil {
			return nil, fmt.Errorf("heapconf: generation %q initial_size: %w", gs.Name, err)
		}
		max, err := bytesize.Parse(gs.MaxSize)
		if err != nil {
			return nil, fmt.Errorf("heapconf: generation %q max_size: %w", gs.Name, err)
		}
		specs = append(specs, genheap.GenerationSpec{
			Name:        gs.Name,
			Level:       gs.Level,
			InitialSize: uintptr(initial),
			MaxSize:     uintptr(max),
		})
	}
	return specs, nil
}

// DebugFlags converts the debug section into the core's flag set.
func (c *Config) DebugFlags() genheap.DebugFlags {
	return genheap.DebugFlags{
		ZapUnusedHeap:         c.Debug.ZapUnusedHeap,
		ForcePromotionFailure: c.Debug.ForcePromotionFailure,
	}
}
