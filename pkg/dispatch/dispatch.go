// Package dispatch resolves a check's provider by type and invokes it with
// a bounded, cancellable context, grounded on spec.md §4.8 and on the
// teacher's executor.Manager / NodeExecutor lookup-by-type pattern
// (pkg/engine/node_executor.go).
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/checkrun-dev/engine/pkg/journal"
	"github.com/checkrun-dev/engine/pkg/models"
)

// ExecContext is the read-only, per-invocation context handed to a
// Provider. Providers may not mutate engine state; the journal view is for
// reads only (spec.md §6).
type ExecContext struct {
	Context     context.Context
	Timeout     time.Duration
	CheckID     string
	Scope       models.Scope
	Journal     *journal.View
	HumanPrompt func(message string) (string, error)
}

// Provider executes one check type. Implementations normalize their own
// failures into a CheckResult fatal issue rather than returning a Go error
// for anything but catastrophic, non-recoverable setup problems.
type Provider interface {
	// Type returns the check type tag this provider handles (e.g. "command",
	// "http", "ai").
	Type() string
	// Execute runs checkCfg against the resolved dependency results.
	Execute(checkCfg *models.CheckDefinition, prInfo *models.PRInfo, deps map[string]*models.CheckResult, execCtx *ExecContext) *models.CheckResult
}

// Registry maps check type tags to the Provider that implements them.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty provider Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p, keyed by p.Type(). A later call for the same type
// replaces the earlier provider — useful for tests that stub a single type.
func (r *Registry) Register(p Provider) {
	r.providers[p.Type()] = p
}

// Lookup returns the provider registered for typeTag, if any.
func (r *Registry) Lookup(typeTag string) (Provider, bool) {
	p, ok := r.providers[typeTag]
	return p, ok
}

// Dispatcher invokes providers by check type, enforcing the per-check
// timeout and normalizing panics/missing-provider conditions into fatal
// CheckResults rather than propagating errors out of Invoke.
type Dispatcher struct {
	registry *Registry
}

// New creates a Dispatcher bound to registry.
func New(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Invoke looks up the provider for check.Type, applies execCtx.Timeout as a
// deadline, and runs it. A missing provider, an expired deadline, or a
// recovered panic all normalize to a fatal CheckResult carrying a
// provider-prefixed rule id (spec.md §4.8, §7).
func (d *Dispatcher) Invoke(check *models.CheckDefinition, prInfo *models.PRInfo, deps map[string]*models.CheckResult, execCtx *ExecContext) *models.CheckResult {
	provider, ok := d.registry.Lookup(check.Type)
	if !ok {
		return models.WithFatal(fmt.Sprintf("%s/execution_error", check.Type), "no provider registered for check type %q", check.Type)
	}

	ctx := execCtx.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if execCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, execCtx.Timeout)
		defer cancel()
	}
	scoped := *execCtx
	scoped.Context = ctx

	type outcome struct {
		result *models.CheckResult
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{result: models.WithFatal(fmt.Sprintf("%s/execution_error", check.Type), "provider panicked: %v", r)}
			}
		}()
		done <- outcome{result: provider.Execute(check, prInfo, deps, &scoped)}
	}()

	select {
	case <-ctx.Done():
		return models.WithFatal(fmt.Sprintf("%s/timeout", check.Type), "check %q exceeded its timeout", check.ID)
	case out := <-done:
		return out.result
	}
}
