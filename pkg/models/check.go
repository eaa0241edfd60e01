package models

// CheckDefinition is an immutable, caller-validated description of one unit
// of work in a run. The engine treats Config as opaque — it is handed to
// whichever Provider resolves check.Type.
type CheckDefinition struct {
	ID              string
	Type            string
	DependsOn       []string
	If              string
	ForEach         bool
	OnFail          *RoutingBlock
	OnSuccess       *RoutingBlock
	OnFinish        *RoutingBlock
	SessionProvider string
	Tags            []string
	Config          map[string]any
}

// BackoffMode selects how retry delay grows between attempts.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffExponential BackoffMode = "exponential"
)

// RetrySpec configures the retry outcome of a RoutingBlock.
type RetrySpec struct {
	Max     int
	Backoff BackoffSpec
}

// BackoffSpec configures the delay curve used between retry attempts.
type BackoffSpec struct {
	Mode    BackoffMode
	DelayMs int
}

// RoutingBlock declares what happens after a check completes: retry the
// check, run sibling checks, or jump back to an ancestor. Run/Goto targets
// may instead be computed dynamically via RunExpr/GotoExpr.
type RoutingBlock struct {
	Retry     *RetrySpec
	Run       []string
	RunExpr   string
	Goto      string
	GotoExpr  string
	GotoEvent string
}

// HasAnyAction reports whether this routing block declares any transition.
func (r *RoutingBlock) HasAnyAction() bool {
	if r == nil {
		return false
	}
	return r.Retry != nil || len(r.Run) > 0 || r.RunExpr != "" || r.Goto != "" || r.GotoExpr != ""
}

// RunConfig is the validated configuration object the engine consumes for a
// single run. Parsing raw YAML/JSON into a RunConfig is explicitly a caller
// concern (spec.md §1); Validate only enforces the structural invariants
// the engine itself relies on to not misbehave.
type RunConfig struct {
	Version        string
	Checks         map[string]*CheckDefinition
	MaxParallelism int
	FailFast       bool
	RoutingMaxLoops int
	Env            map[string]string
}

// Validate enforces referential integrity the resolver and router depend
// on: every dependsOn/run/goto target must name a declared check.
func (c *RunConfig) Validate() error {
	for id, def := range c.Checks {
		if def.ID != "" && def.ID != id {
			return NewEngineError(RuleGraphUnknownDep, "check id mismatch: map key %q vs definition id %q", id, def.ID)
		}
		for _, dep := range def.DependsOn {
			if _, ok := c.Checks[dep]; !ok {
				return NewEngineError(RuleGraphUnknownDep, "check %q depends on unknown check %q", id, dep)
			}
		}
		for _, rb := range []*RoutingBlock{def.OnFail, def.OnSuccess, def.OnFinish} {
			if rb == nil {
				continue
			}
			for _, runID := range rb.Run {
				if _, ok := c.Checks[runID]; !ok {
					return NewEngineError(RuleGraphUnknownDep, "check %q routes to unknown check %q", id, runID)
				}
			}
			if rb.Goto != "" {
				if _, ok := c.Checks[rb.Goto]; !ok {
					return NewEngineError(RuleGraphUnknownDep, "check %q goto targets unknown check %q", id, rb.Goto)
				}
			}
		}
	}
	return nil
}
