package providers

import (
	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/models"
	pconfig "github.com/checkrun-dev/engine/pkg/providers/config"
)

// HumanInputProvider pauses a check on execCtx.HumanPrompt, blocking
// until the embedding application supplies an answer (or the check's
// own timeout fires, via dispatch.Dispatcher's ctx deadline). A check
// type with no real teacher precedent in this domain — grounded only on
// dispatch.ExecContext.HumanPrompt's own doc comment, which names this as
// the field's intended consumer.
type HumanInputProvider struct{}

func NewHumanInputProvider() *HumanInputProvider { return &HumanInputProvider{} }

func (p *HumanInputProvider) Type() string { return "human-input" }

func (p *HumanInputProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, _ map[string]*models.CheckResult, execCtx *dispatch.ExecContext) *models.CheckResult {
	if execCtx.HumanPrompt == nil {
		return fatal(check.Type, "no human-input handler configured for this run")
	}
	message := pconfig.StringDefault(check.Config, "message", "input required for "+check.ID)

	answer, err := execCtx.HumanPrompt(message)
	if err != nil {
		return fatal(check.Type, "human input failed: %s", err)
	}
	return &models.CheckResult{Output: answer}
}
