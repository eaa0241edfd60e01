package providers

import (
	"encoding/json"

	"github.com/expr-lang/expr"
	"github.com/itchyny/gojq"

	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/models"
	pconfig "github.com/checkrun-dev/engine/pkg/providers/config"
)

// ScriptProvider transforms its dependency outputs with an expr-lang
// expression or a gojq filter, grounded on the teacher's TransformExecutor
// (pkg/executor/builtin/transform.go) "expression"/"jq" modes — the
// "template"/"passthrough" modes aren't useful to this engine (no template
// resolution stage between checks), so only expression/jq are carried.
type ScriptProvider struct{}

func NewScriptProvider() *ScriptProvider { return &ScriptProvider{} }

func (p *ScriptProvider) Type() string { return "script" }

func (p *ScriptProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, deps map[string]*models.CheckResult, _ *dispatch.ExecContext) *models.CheckResult {
	outputs := make(map[string]any, len(deps))
	for id, res := range deps {
		outputs[id] = res.Output
	}
	env := map[string]any{"outputs": outputs}

	switch pconfig.StringDefault(check.Config, "type", "expression") {
	case "jq":
		filterStr, err := pconfig.String(check.Config, "filter")
		if err != nil {
			return fatal(check.Type, "%s", err)
		}
		query, err := gojq.Parse(filterStr)
		if err != nil {
			return fatal(check.Type, "parse jq filter: %s", err)
		}
		raw, err := json.Marshal(env)
		if err != nil {
			return fatal(check.Type, "marshal input: %s", err)
		}
		var input any
		if err := json.Unmarshal(raw, &input); err != nil {
			return fatal(check.Type, "unmarshal input: %s", err)
		}
		iter := query.Run(input)
		v, ok := iter.Next()
		if !ok {
			return fatal(check.Type, "jq filter produced no output")
		}
		if err, ok := v.(error); ok {
			return fatal(check.Type, "jq filter error: %s", err)
		}
		return &models.CheckResult{Output: v}

	default:
		exprStr, err := pconfig.String(check.Config, "expression")
		if err != nil {
			return fatal(check.Type, "%s", err)
		}
		program, err := expr.Compile(exprStr, expr.Env(env))
		if err != nil {
			return fatal(check.Type, "compile expression: %s", err)
		}
		output, err := expr.Run(program, env)
		if err != nil {
			return fatal(check.Type, "run expression: %s", err)
		}
		return &models.CheckResult{Output: output}
	}
}
