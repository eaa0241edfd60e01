package foreach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkrun-dev/engine/pkg/models"
)

func TestZipScopes_SingleParent(t *testing.T) {
	iterations := ZipScopes(models.Root(), []ParentSpec{{CheckID: "root", Length: 3}})
	require.Len(t, iterations, 3)
	for i, it := range iterations {
		assert.Equal(t, i, it.Index)
		assert.Empty(t, it.OutOfRange)
		assert.True(t, it.Scope.Equal(models.Root().Extend("root", i)))
	}
}

func TestZipScopes_UnequalLengthUsesLongerParent(t *testing.T) {
	iterations := ZipScopes(models.Root(), []ParentSpec{
		{CheckID: "a", Length: 3},
		{CheckID: "b", Length: 1},
	})
	require.Len(t, iterations, 3)

	assert.Empty(t, iterations[0].OutOfRange)
	assert.True(t, iterations[1].OutOfRange["b"])
	assert.True(t, iterations[2].OutOfRange["b"])
	assert.False(t, iterations[1].OutOfRange["a"])
}

func TestAggregate_OrdersOutputsByIndex(t *testing.T) {
	agg := Aggregate([]*models.CheckResult{
		{Output: "first"},
		{Output: "second"},
	})
	assert.True(t, agg.IsForEach)
	assert.Equal(t, []any{"first", "second"}, agg.Output)
}

func TestFinishTracker_ElidedUntilProduced(t *testing.T) {
	tr := NewFinishTracker()
	assert.False(t, tr.ShouldFireOnFinish("root"))
	tr.MarkProduced("root")
	assert.True(t, tr.ShouldFireOnFinish("root"))
}
