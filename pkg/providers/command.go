package providers

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/models"
	pconfig "github.com/checkrun-dev/engine/pkg/providers/config"
)

// CommandProvider runs a check as a whitelisted shell command. Grounded on
// the ShellPlugin pattern (orchestrator/plugins.go): command whitelist,
// captured stdout/stderr, process killed on context cancellation.
type CommandProvider struct {
	allowed map[string]bool
}

// NewCommandProvider creates a CommandProvider restricted to allowed.
// A nil/empty allowed list permits any command — callers embedding this
// engine in an untrusted config source should always pass a whitelist.
func NewCommandProvider(allowed []string) *CommandProvider {
	set := make(map[string]bool, len(allowed))
	for _, c := range allowed {
		set[c] = true
	}
	return &CommandProvider{allowed: set}
}

func (p *CommandProvider) Type() string { return "command" }

func (p *CommandProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, _ map[string]*models.CheckResult, execCtx *dispatch.ExecContext) *models.CheckResult {
	line, err := pconfig.String(check.Config, "run")
	if err != nil {
		return fatal(check.Type, "%s", err)
	}
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return fatal(check.Type, "empty command")
	}

	if len(p.allowed) > 0 && !p.allowed[parts[0]] {
		return fatal(check.Type, "command not allowed: %s", parts[0])
	}

	cmd := exec.CommandContext(execCtx.Context, parts[0], parts[1:]...)
	cmd.Dir = pconfig.StringDefault(check.Config, "workdir", "")
	for k, v := range pconfig.Map(check.Config, "env") {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return fatal(check.Type, "command failed: %s", err)
		}
	}

	output := map[string]any{
		"stdout":    stdout.String(),
		"stderr":    stderr.String(),
		"exit_code": exitCode,
	}

	failOnNonZero := pconfig.BoolDefault(check.Config, "fail_on_nonzero_exit", true)
	if exitCode != 0 && failOnNonZero {
		res := fatal(check.Type, "command exited %d", exitCode)
		res.Output = output
		return res
	}
	return &models.CheckResult{Output: output}
}
