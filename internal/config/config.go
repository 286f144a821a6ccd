package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/quantfall/conviction/internal/domain/factors"
	"github.com/quantfall/conviction/internal/domain/gamma"
	"github.com/quantfall/conviction/internal/domain/portfolio"
)

// NormalizationConfig tunes the per-factor normalizer.
type NormalizationConfig struct {
	OutlierSigma float64 `yaml:"outlier_sigma" default:"2.0" validate:"gt=0,lte=5"`
	FloorValue   float64 `yaml:"floor_value" default:"0.1" validate:"gte=0,lt=1"`
}

// HistoryConfig bounds the per-instrument history buffers.
type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries" default:"50" validate:"gte=2,lte=10000"`
}

// Config is the full tunable surface the core consumes. It never produces
// configuration; the surrounding layer loads and hands it in.
type Config struct {
	Weights       map[string]float64  `yaml:"weights"`
	Normalization NormalizationConfig `yaml:"normalization"`
	Portfolio     portfolio.Config    `yaml:"portfolio"`
	History       HistoryConfig       `yaml:"history"`
	Gamma         gamma.Config        `yaml:"gamma"`
	Workers       int                 `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
}

var validate = validator.New()

// Default returns the production configuration.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// Struct tags are compile-time constants; this cannot fail on the
		// shipped struct.
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	cfg.Weights = factors.DefaultWeights()
	return cfg
}

// Load reads a YAML config file, applies defaults for unset fields, and
// validates. A missing weights section falls back to the production vector.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Weights) == 0 {
		cfg.Weights = factors.DefaultWeights()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and the weight-sum invariant.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := factors.Weights(c.Weights).Validate(); err != nil {
		return fmt.Errorf("config weights: %w", err)
	}
	return nil
}

// Manager holds the effective configuration and rejects invalid updates,
// keeping the previous valid config in effect. Configuration errors are
// reported, never fatal.
type Manager struct {
	mu      sync.RWMutex
	current *Config
}

// NewManager starts with the given config, or the defaults when nil or
// invalid.
func NewManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = Default()
	} else if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("initial config invalid, using defaults")
		cfg = Default()
	}
	return &Manager{current: cfg}
}

// Current returns the effective configuration.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Update swaps in a new configuration after validation. On failure the
// previous configuration is retained and the error returned as a warning to
// the caller.
func (m *Manager) Update(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config rejected, previous retained")
	}
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("config update rejected, previous retained")
		return fmt.Errorf("config update rejected: %w", err)
	}
	m.mu.Lock()
	m.current = cfg
	m.mu.Unlock()
	log.Info().Msg("configuration updated")
	return nil
}
