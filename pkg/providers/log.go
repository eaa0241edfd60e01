package providers

import (
	"github.com/rs/zerolog"

	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/models"
	pconfig "github.com/checkrun-dev/engine/pkg/providers/config"
)

// LogProvider emits a structured log line through the engine's own
// logger and reports its dependency outputs back as its output — useful
// for checks whose only job is surfacing a value in run logs. Grounded
// on the teacher's ConsoleLogger level/message shape
// (internal/infrastructure/monitoring/console_logger.go), reworked onto
// zerolog (the library the rest of this module's logging already uses)
// instead of the teacher's log.Logger wrapper.
type LogProvider struct {
	log zerolog.Logger
}

func NewLogProvider(log zerolog.Logger) *LogProvider {
	return &LogProvider{log: log}
}

func (p *LogProvider) Type() string { return "log" }

func (p *LogProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, deps map[string]*models.CheckResult, execCtx *dispatch.ExecContext) *models.CheckResult {
	message := pconfig.StringDefault(check.Config, "message", check.ID)
	level := pconfig.StringDefault(check.Config, "level", "info")

	outputs := make(map[string]any, len(deps))
	for id, res := range deps {
		outputs[id] = res.Output
	}

	event := p.log.Info()
	switch level {
	case "debug":
		event = p.log.Debug()
	case "warn":
		event = p.log.Warn()
	case "error":
		event = p.log.Error()
	}
	event.Str("check_id", check.ID).Str("scope", execCtx.Scope.Key()).Interface("outputs", outputs).Msg(message)

	return &models.CheckResult{Output: outputs}
}
