package dispatch

import (
	"context"
	"time"

	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/checkrun-dev/engine/pkg/models"
)

type stubProvider struct {
	typeTag string
	delay   time.Duration
	result  *models.CheckResult
}

func (s *stubProvider) Type() string { return s.typeTag }
func (s *stubProvider) Execute(check *models.CheckDefinition, pr *models.PRInfo, deps map[string]*models.CheckResult, execCtx *ExecContext) *models.CheckResult {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-execCtx.Context.Done():
		}
	}
	return s.result
}

func TestInvoke_HappyPath(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubProvider{typeTag: "log", result: &models.CheckResult{Output: "ok"}})
	d := New(reg)

	res := d.Invoke(&models.CheckDefinition{ID: "a", Type: "log"}, &models.PRInfo{}, nil, &ExecContext{Context: context.Background()})
	assert.Equal(t, "ok", res.Output)
}

func TestInvoke_UnknownProviderIsFatal(t *testing.T) {
	reg := NewRegistry()
	d := New(reg)

	res := d.Invoke(&models.CheckDefinition{ID: "a", Type: "ghost"}, &models.PRInfo{}, nil, &ExecContext{Context: context.Background()})
	require.True(t, res.HasFatalIssue())
	assert.Equal(t, "ghost/execution_error", res.Issues[0].RuleID)
}

func TestInvoke_TimeoutIsFatal(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubProvider{typeTag: "slow", delay: 50 * time.Millisecond, result: &models.CheckResult{Output: "too-late"}})
	d := New(reg)

	res := d.Invoke(&models.CheckDefinition{ID: "a", Type: "slow"}, &models.PRInfo{}, nil, &ExecContext{
		Context: context.Background(),
		Timeout: time.Millisecond,
	})
	require.True(t, res.HasFatalIssue())
	assert.Equal(t, "slow/timeout", res.Issues[0].RuleID)
}

func TestInvoke_PanicIsFatal(t *testing.T) {
	reg := NewRegistry()
	reg.Register(panicProvider{})
	d := New(reg)

	res := d.Invoke(&models.CheckDefinition{ID: "a", Type: "boom"}, &models.PRInfo{}, nil, &ExecContext{Context: context.Background()})
	require.True(t, res.HasFatalIssue())
	assert.Equal(t, "boom/execution_error", res.Issues[0].RuleID)
}

type panicProvider struct{}

func (panicProvider) Type() string { return "boom" }
func (panicProvider) Execute(*models.CheckDefinition, *models.PRInfo, map[string]*models.CheckResult, *ExecContext) *models.CheckResult {
	panic("provider exploded")
}
