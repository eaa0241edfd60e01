package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/checkrun-dev/engine/pkg/journal"
	"github.com/checkrun-dev/engine/pkg/models"
)

func TestBuild_AllDepsResolved(t *testing.T) {
	j := journal.New()
	root := models.Root()
	j.Append("a", root, &models.CheckResult{Output: "a-out"}, 0)
	j.Append("b", root, &models.CheckResult{Output: "b-out"}, 0)

	view := j.View(j.Snapshot(), root)
	res := Build(view, "c", root, []string{"a", "b"})

	assert.False(t, res.Skip)
	assert.Equal(t, "a-out", res.Results["a"].Output)
	assert.Equal(t, "b-out", res.Results["b"].Output)
}

func TestBuild_MissingDependencySkips(t *testing.T) {
	j := journal.New()
	root := models.Root()
	view := j.View(j.Snapshot(), root)

	res := Build(view, "c", root, []string{"never-ran"})
	assert.True(t, res.Skip)
	assert.Equal(t, "never-ran", res.FailedDependency)
}

func TestBuild_FatalDependencySkips(t *testing.T) {
	j := journal.New()
	root := models.Root()
	j.Append("a", root, models.WithFatal("command/execution_error", "boom"), 0)

	view := j.View(j.Snapshot(), root)
	res := Build(view, "b", root, []string{"a"})
	assert.True(t, res.Skip)
	assert.Equal(t, "a", res.FailedDependency)
}

// TestBuildZipped_OutOfRangeDoesNotSkip covers the unequal-length forEach
// zip case: a dependent zipped across two parents of different lengths
// must still run for the iterations past the shorter parent's end, seeing
// undefined for that parent rather than being skipped outright.
func TestBuildZipped_OutOfRangeDoesNotSkip(t *testing.T) {
	j := journal.New()
	root := models.Root()
	j.Append("long-parent", root, &models.CheckResult{Output: "item-3"}, 0)

	view := j.View(j.Snapshot(), root)
	res := BuildZipped(view, "dependent", root, []string{"long-parent", "short-parent"}, map[string]bool{"short-parent": true})

	assert.False(t, res.Skip)
	assert.Equal(t, "item-3", res.Results["long-parent"].Output)
	_, ok := res.Results["short-parent"]
	assert.False(t, ok, "out-of-range dependency must be absent from Results, not skip the check")
}
