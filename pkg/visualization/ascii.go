package visualization

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/checkrun-dev/engine/pkg/graph"
	"github.com/checkrun-dev/engine/pkg/models"
)

// ASCIIRenderer renders a resolved plan as an ASCII tree, one branch per
// wave, grounded on the teacher's ASCIIRenderer
// (pkg/visualization/ascii.go) — reworked from a node/edge graph onto
// pkg/graph.Graph's wave-leveled check ids, since this domain's dependency
// graph has no single root and its parallelism unit is the wave, not a
// DAG branch.
type ASCIIRenderer struct{}

// NewASCIIRenderer creates a new ASCII renderer.
func NewASCIIRenderer() *ASCIIRenderer {
	return &ASCIIRenderer{}
}

// Format returns the format identifier.
func (r *ASCIIRenderer) Format() string {
	return "ascii"
}

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorWhite  = "\033[37m"
)

const (
	branchChar     = "├── "
	lastBranchChar = "└── "
	verticalChar   = "│   "
	emptyChar      = "    "
)

// Render converts g's waves into an ASCII tree, one top-level branch per
// wave and one leaf per check in that wave.
func (r *ASCIIRenderer) Render(cfg *models.RunConfig, g *graph.Graph, opts *RenderOptions) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("run config is nil")
	}
	if g == nil {
		return "", fmt.Errorf("graph is nil")
	}
	if opts == nil {
		opts = DefaultRenderOptions()
	}
	if opts.UseColor {
		opts.UseColor = isTerminal()
	}

	var sb strings.Builder
	title := fmt.Sprintf("run %s (%d checks, %d waves)", cfg.Version, len(g.Nodes), len(g.Waves))
	sb.WriteString(r.colorize(title, colorCyan, opts.UseColor))
	sb.WriteString("\n\n")

	for wi, wave := range g.Waves {
		isLastWave := wi == len(g.Waves)-1
		waveLabel := fmt.Sprintf("wave %d", wi)
		if isLastWave {
			sb.WriteString(lastBranchChar)
		} else {
			sb.WriteString(branchChar)
		}
		sb.WriteString(r.colorize(waveLabel, colorCyan, opts.UseColor))
		sb.WriteString("\n")

		wavePrefix := verticalChar
		if isLastWave {
			wavePrefix = emptyChar
		}

		ids := append([]string(nil), wave...)
		sort.Strings(ids)
		for ci, id := range ids {
			isLastCheck := ci == len(ids)-1
			def := cfg.Checks[id]
			r.renderCheck(&sb, def, g.Nodes[id], wavePrefix, isLastCheck, opts)
		}
	}

	return sb.String(), nil
}

func (r *ASCIIRenderer) renderCheck(sb *strings.Builder, def *models.CheckDefinition, node *graph.Node, prefix string, isLast bool, opts *RenderOptions) {
	sb.WriteString(prefix)
	if isLast {
		sb.WriteString(lastBranchChar)
	} else {
		sb.WriteString(branchChar)
	}
	sb.WriteString(r.formatCheck(def, opts))
	sb.WriteString("\n")

	childPrefix := prefix
	if isLast {
		childPrefix += emptyChar
	} else {
		childPrefix += verticalChar
	}

	if opts.ShowDependencies && node != nil && len(node.Dependencies) > 0 {
		deps := append([]string(nil), node.Dependencies...)
		sort.Strings(deps)
		sb.WriteString(childPrefix)
		sb.WriteString(r.colorize("│ depends on: "+strings.Join(deps, ", "), colorWhite, opts.UseColor))
		sb.WriteString("\n")
	}

	if !opts.CompactMode && opts.ShowConfig {
		if configStr := r.extractCheckConfig(def); configStr != "" {
			sb.WriteString(childPrefix)
			sb.WriteString(r.colorize("│ "+configStr, colorWhite, opts.UseColor))
			sb.WriteString("\n")
		}
	}
}

func (r *ASCIIRenderer) formatCheck(def *models.CheckDefinition, opts *RenderOptions) string {
	if def == nil {
		return r.colorize("(unknown check)", colorYellow, opts.UseColor)
	}
	if opts.CompactMode {
		return fmt.Sprintf("%s %s",
			r.colorize(def.ID, colorGreen, opts.UseColor),
			r.colorize("("+def.Type+")", colorYellow, opts.UseColor))
	}

	parts := []string{r.colorize("["+def.ID+"]", colorGreen, opts.UseColor)}
	if def.If != "" {
		parts = append(parts, "if: "+def.If)
	}
	parts = append(parts, r.colorize("("+def.Type+")", colorYellow, opts.UseColor))
	return strings.Join(parts, " ")
}

// extractCheckConfig extracts a one-line summary of a check's provider
// config, one case per pkg/providers reference provider.
func (r *ASCIIRenderer) extractCheckConfig(def *models.CheckDefinition) string {
	cfg := def.Config
	switch def.Type {
	case "http":
		method, _ := cfg["method"].(string)
		url, _ := cfg["url"].(string)
		if method != "" && url != "" {
			return method + " " + url
		}
		return url
	case "command":
		run, _ := cfg["run"].(string)
		return run
	case "script":
		scriptType, _ := cfg["type"].(string)
		if scriptType == "jq" {
			filter, _ := cfg["filter"].(string)
			return "jq: " + filter
		}
		expr, _ := cfg["expression"].(string)
		return "expr: " + expr
	case "ai":
		model, _ := cfg["model"].(string)
		return "model: " + model
	case "mcp":
		tool, _ := cfg["tool"].(string)
		return "tool: " + tool
	case "log":
		message, _ := cfg["message"].(string)
		return message
	case "memory":
		op, _ := cfg["op"].(string)
		key, _ := cfg["key"].(string)
		return op + " " + key
	case "human-input":
		message, _ := cfg["message"].(string)
		return message
	}
	return ""
}

func (r *ASCIIRenderer) colorize(text, color string, enabled bool) string {
	if !enabled {
		return text
	}
	return color + text + colorReset
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
