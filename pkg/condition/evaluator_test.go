package condition

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newTestEvaluator() *Evaluator {
	return New(zerolog.Nop(), 0)
}

func TestEvaluate_EmptyExpressionIsTrue(t *testing.T) {
	e := newTestEvaluator()
	assert.True(t, e.Evaluate(context.Background(), "", Env{}))
}

func TestEvaluate_BranchComparison(t *testing.T) {
	e := newTestEvaluator()
	env := Env{Branch: "main"}
	assert.True(t, e.Evaluate(context.Background(), `branch == "main"`, env))
	assert.False(t, e.Evaluate(context.Background(), `branch == "dev"`, env))
}

func TestEvaluate_OutputsLookup(t *testing.T) {
	e := newTestEvaluator()
	env := Env{Outputs: map[string]any{"lint": map[string]any{"score": 9}}}
	assert.True(t, e.Evaluate(context.Background(), `outputs.lint.score > 5`, env))
}

func TestEvaluate_FilesChangedContains(t *testing.T) {
	e := newTestEvaluator()
	env := Env{FilesChanged: []string{"go.mod", "pkg/engine/engine.go"}}
	assert.True(t, e.Evaluate(context.Background(), `"go.mod" in filesChanged`, env))
}

func TestEvaluate_CompileErrorFailsSecure(t *testing.T) {
	e := newTestEvaluator()
	assert.False(t, e.Evaluate(context.Background(), `outputs.(((`, Env{}))
}

func TestEvaluate_NonBoolResultFailsSecure(t *testing.T) {
	e := newTestEvaluator()
	assert.False(t, e.Evaluate(context.Background(), `1 + 1`, Env{}))
}

func TestEvaluate_UndefinedDependencyFailsSecure(t *testing.T) {
	e := newTestEvaluator()
	assert.False(t, e.Evaluate(context.Background(), `outputs.never_ran.score > 5`, Env{Outputs: map[string]any{}}))
}

// TestEvaluate_ConcurrentSameEvaluator mirrors how a wave dispatches every
// check in a level through one shared Evaluator (pkg/engine/schedule.go's
// runBounded): many goroutines hitting compile/cache at once on a mix of
// shared and distinct expressions. Run with -race, this catches a
// concurrent map read/write on Evaluator.cache.
func TestEvaluate_ConcurrentSameEvaluator(t *testing.T) {
	e := newTestEvaluator()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			shared := `branch == "main"`
			distinct := fmt.Sprintf(`outputs.check%d.score > 0`, i%5)
			e.Evaluate(context.Background(), shared, Env{Branch: "main"})
			e.Evaluate(context.Background(), distinct, Env{Outputs: map[string]any{
				fmt.Sprintf("check%d", i%5): map[string]any{"score": 1},
			}})
		}()
	}
	wg.Wait()
}

func TestEvaluate_SizeCapRejectsHugeExpression(t *testing.T) {
	e := newTestEvaluator()
	huge := `"` + strings.Repeat("a", maxExpressionLen+10) + `" == "x"`
	assert.False(t, e.Evaluate(context.Background(), huge, Env{}))
}

func TestEvaluate_WallTimeCapTrips(t *testing.T) {
	e := New(zerolog.Nop(), time.Nanosecond)
	assert.False(t, e.Evaluate(context.Background(), `branch == "main"`, Env{Branch: "main"}))
}

func TestEvaluate_ProgramCacheReused(t *testing.T) {
	e := newTestEvaluator()
	const expr = `branch == "main"`
	e.Evaluate(context.Background(), expr, Env{Branch: "main"})
	_, cached := e.cache[expr]
	assert.True(t, cached)
}
