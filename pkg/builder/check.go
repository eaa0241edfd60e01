package builder

import (
	"fmt"

	"github.com/checkrun-dev/engine/pkg/models"
)

// CheckBuilder builds a single CheckDefinition.
type CheckBuilder struct {
	id              string
	checkType       string
	dependsOn       []string
	ifExpr          string
	forEach         bool
	onFail          *RoutingBuilder
	onSuccess       *RoutingBuilder
	onFinish        *RoutingBuilder
	sessionProvider string
	tags            []string
	config          map[string]any
	err             error
}

// CheckOption configures a CheckBuilder.
type CheckOption func(*CheckBuilder) error

// NewCheck creates a new check builder of the given provider type.
func NewCheck(id, checkType string, opts ...CheckOption) *CheckBuilder {
	cb := &CheckBuilder{
		id:        id,
		checkType: checkType,
		config:    make(map[string]any),
	}
	for _, opt := range opts {
		if err := opt(cb); err != nil {
			cb.err = err
			return cb
		}
	}
	return cb
}

// Build constructs the final CheckDefinition.
func (cb *CheckBuilder) Build() (*models.CheckDefinition, error) {
	if cb.err != nil {
		return nil, cb.err
	}

	def := &models.CheckDefinition{
		ID:              cb.id,
		Type:            cb.checkType,
		DependsOn:       cb.dependsOn,
		If:              cb.ifExpr,
		ForEach:         cb.forEach,
		SessionProvider: cb.sessionProvider,
		Tags:            cb.tags,
		Config:          cb.config,
	}

	if cb.onFail != nil {
		rb, err := cb.onFail.Build()
		if err != nil {
			return nil, fmt.Errorf("check %s: on_fail: %w", cb.id, err)
		}
		def.OnFail = rb
	}
	if cb.onSuccess != nil {
		rb, err := cb.onSuccess.Build()
		if err != nil {
			return nil, fmt.Errorf("check %s: on_success: %w", cb.id, err)
		}
		def.OnSuccess = rb
	}
	if cb.onFinish != nil {
		rb, err := cb.onFinish.Build()
		if err != nil {
			return nil, fmt.Errorf("check %s: on_finish: %w", cb.id, err)
		}
		def.OnFinish = rb
	}

	return def, nil
}

// WithDependsOn sets the check's dependency list.
func WithDependsOn(ids ...string) CheckOption {
	return func(cb *CheckBuilder) error {
		cb.dependsOn = append(cb.dependsOn, ids...)
		return nil
	}
}

// WithIf sets the check's gating expression.
func WithIf(expr string) CheckOption {
	return func(cb *CheckBuilder) error {
		cb.ifExpr = expr
		return nil
	}
}

// WithForEach marks the check as a fan-out check whose config is evaluated
// once per emitted item.
func WithForEach() CheckOption {
	return func(cb *CheckBuilder) error {
		cb.forEach = true
		return nil
	}
}

// WithOnFail attaches a failure routing block.
func WithOnFail(rb *RoutingBuilder) CheckOption {
	return func(cb *CheckBuilder) error {
		cb.onFail = rb
		return nil
	}
}

// WithOnSuccess attaches a success routing block.
func WithOnSuccess(rb *RoutingBuilder) CheckOption {
	return func(cb *CheckBuilder) error {
		cb.onSuccess = rb
		return nil
	}
}

// WithOnFinish attaches a routing block run on either outcome.
func WithOnFinish(rb *RoutingBuilder) CheckOption {
	return func(cb *CheckBuilder) error {
		cb.onFinish = rb
		return nil
	}
}

// WithSessionProvider pins the check to a named long-lived session.
func WithSessionProvider(name string) CheckOption {
	return func(cb *CheckBuilder) error {
		cb.sessionProvider = name
		return nil
	}
}

// WithTags sets the check's tags.
func WithTags(tags ...string) CheckOption {
	return func(cb *CheckBuilder) error {
		cb.tags = tags
		return nil
	}
}

// WithConfig sets the raw provider config map. Escape hatch for provider
// options this package has no dedicated constructor for.
func WithConfig(config map[string]any) CheckOption {
	return func(cb *CheckBuilder) error {
		for k, v := range config {
			cb.config[k] = v
		}
		return nil
	}
}

// WithConfigValue sets a single provider config key.
func WithConfigValue(key string, value any) CheckOption {
	return func(cb *CheckBuilder) error {
		if key == "" {
			return fmt.Errorf("config key cannot be empty")
		}
		cb.config[key] = value
		return nil
	}
}
