package builder

import (
	"fmt"

	"github.com/checkrun-dev/engine/pkg/models"
)

// RoutingBuilder builds a RoutingBlock attached to a check's on_fail,
// on_success, or on_finish slot.
type RoutingBuilder struct {
	retry     *models.RetrySpec
	run       []string
	runExpr   string
	gotoID    string
	gotoExpr  string
	gotoEvent string
	err       error
}

// RoutingOption configures a RoutingBuilder.
type RoutingOption func(*RoutingBuilder) error

// NewRouting creates a new routing block builder.
func NewRouting(opts ...RoutingOption) *RoutingBuilder {
	rb := &RoutingBuilder{}
	for _, opt := range opts {
		if err := opt(rb); err != nil {
			rb.err = err
			return rb
		}
	}
	return rb
}

// Build constructs the final RoutingBlock.
func (rb *RoutingBuilder) Build() (*models.RoutingBlock, error) {
	if rb.err != nil {
		return nil, rb.err
	}
	block := &models.RoutingBlock{
		Retry:     rb.retry,
		Run:       rb.run,
		RunExpr:   rb.runExpr,
		Goto:      rb.gotoID,
		GotoExpr:  rb.gotoExpr,
		GotoEvent: rb.gotoEvent,
	}
	if !block.HasAnyAction() {
		return nil, fmt.Errorf("routing block declares no action")
	}
	return block, nil
}

// Retry configures a fixed-delay retry with max attempts.
func Retry(max, delayMs int) RoutingOption {
	return func(rb *RoutingBuilder) error {
		if max <= 0 {
			return fmt.Errorf("retry max must be > 0")
		}
		rb.retry = &models.RetrySpec{
			Max:     max,
			Backoff: models.BackoffSpec{Mode: models.BackoffFixed, DelayMs: delayMs},
		}
		return nil
	}
}

// RetryExponential configures an exponential-backoff retry with max
// attempts, starting from delayMs.
func RetryExponential(max, delayMs int) RoutingOption {
	return func(rb *RoutingBuilder) error {
		if max <= 0 {
			return fmt.Errorf("retry max must be > 0")
		}
		rb.retry = &models.RetrySpec{
			Max:     max,
			Backoff: models.BackoffSpec{Mode: models.BackoffExponential, DelayMs: delayMs},
		}
		return nil
	}
}

// Run adds sibling checks to run after this transition fires.
func Run(ids ...string) RoutingOption {
	return func(rb *RoutingBuilder) error {
		rb.run = append(rb.run, ids...)
		return nil
	}
}

// RunExpr sets an expression that dynamically computes the check ids to run.
func RunExpr(expr string) RoutingOption {
	return func(rb *RoutingBuilder) error {
		if expr == "" {
			return fmt.Errorf("run expression cannot be empty")
		}
		rb.runExpr = expr
		return nil
	}
}

// Goto jumps back to an ancestor check, re-executing it and every check
// downstream of it.
func Goto(id string) RoutingOption {
	return func(rb *RoutingBuilder) error {
		if id == "" {
			return fmt.Errorf("goto target cannot be empty")
		}
		rb.gotoID = id
		return nil
	}
}

// GotoExpr sets an expression that dynamically computes the goto target.
func GotoExpr(expr string) RoutingOption {
	return func(rb *RoutingBuilder) error {
		if expr == "" {
			return fmt.Errorf("goto expression cannot be empty")
		}
		rb.gotoExpr = expr
		return nil
	}
}

// GotoEvent names the event that should accompany a goto transition, for
// observers distinguishing a routed re-run from the check's first run.
func GotoEvent(event string) RoutingOption {
	return func(rb *RoutingBuilder) error {
		rb.gotoEvent = event
		return nil
	}
}
