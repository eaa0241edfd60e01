package builder

import (
	"fmt"

	"github.com/checkrun-dev/engine/pkg/models"
)

// RunConfigBuilder builds a RunConfig fluently.
type RunConfigBuilder struct {
	cfg        *models.RunConfig
	checks     map[string]*CheckBuilder
	checkOrder []string
	err        error
}

// RunConfigOption configures a RunConfigBuilder.
type RunConfigOption func(*RunConfigBuilder) error

// NewRunConfig creates a new run config builder at the given version.
func NewRunConfig(version string, opts ...RunConfigOption) *RunConfigBuilder {
	b := &RunConfigBuilder{
		cfg: &models.RunConfig{
			Version:         version,
			Checks:          make(map[string]*models.CheckDefinition),
			RoutingMaxLoops: 10,
			Env:             make(map[string]string),
		},
		checks: make(map[string]*CheckBuilder),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			b.err = err
			return b
		}
	}
	return b
}

// WithMaxParallelism sets the run-wide concurrency cap.
func WithMaxParallelism(n int) RunConfigOption {
	return func(b *RunConfigBuilder) error {
		if n < 0 {
			return fmt.Errorf("max parallelism cannot be negative")
		}
		b.cfg.MaxParallelism = n
		return nil
	}
}

// WithFailFast stops scheduling new waves once any check fails fatally.
func WithFailFast() RunConfigOption {
	return func(b *RunConfigBuilder) error {
		b.cfg.FailFast = true
		return nil
	}
}

// WithRoutingMaxLoops caps how many times goto routing may re-enter the
// same check before the run aborts with a routing-loop error.
func WithRoutingMaxLoops(n int) RunConfigOption {
	return func(b *RunConfigBuilder) error {
		if n <= 0 {
			return fmt.Errorf("routing max loops must be > 0")
		}
		b.cfg.RoutingMaxLoops = n
		return nil
	}
}

// WithEnv sets a run-level environment variable visible to every check's
// expressions.
func WithEnv(key, value string) RunConfigOption {
	return func(b *RunConfigBuilder) error {
		if key == "" {
			return fmt.Errorf("env key cannot be empty")
		}
		b.cfg.Env[key] = value
		return nil
	}
}

// AddCheck adds a check to the run.
func (b *RunConfigBuilder) AddCheck(cb *CheckBuilder) *RunConfigBuilder {
	if b.err != nil {
		return b
	}
	if cb == nil {
		b.err = fmt.Errorf("check builder cannot be nil")
		return b
	}
	if cb.id == "" {
		b.err = fmt.Errorf("check must have an ID")
		return b
	}
	if _, exists := b.checks[cb.id]; exists {
		b.err = fmt.Errorf("duplicate check ID: %s", cb.id)
		return b
	}
	b.checks[cb.id] = cb
	b.checkOrder = append(b.checkOrder, cb.id)
	return b
}

// Build validates and constructs the final RunConfig.
func (b *RunConfigBuilder) Build() (*models.RunConfig, error) {
	if b.err != nil {
		return nil, b.err
	}

	for _, id := range b.checkOrder {
		def, err := b.checks[id].Build()
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", id, err)
		}
		b.cfg.Checks[id] = def
	}

	if err := b.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return b.cfg, nil
}

// MustBuild builds and panics on error. Useful for examples and tests.
func (b *RunConfigBuilder) MustBuild() *models.RunConfig {
	cfg, err := b.Build()
	if err != nil {
		panic(err)
	}
	return cfg
}
