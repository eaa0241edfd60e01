package visualization

import (
	"fmt"
	"os"

	"github.com/checkrun-dev/engine/pkg/graph"
	"github.com/checkrun-dev/engine/pkg/models"
)

// RenderPlan is a convenience function to render cfg's resolved plan in
// the given format. Only "ascii" is currently supported — this engine has
// no documentation-facing diagram consumer equivalent to the teacher's
// Mermaid/GitHub rendering target, so that renderer wasn't carried over.
// If opts is nil, default options are used.
func RenderPlan(cfg *models.RunConfig, g *graph.Graph, format string, opts *RenderOptions) (string, error) {
	if opts == nil {
		opts = DefaultRenderOptions()
	}

	var renderer Renderer
	switch format {
	case "ascii":
		renderer = NewASCIIRenderer()
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: ascii)", format)
	}

	return renderer.Render(cfg, g, opts)
}

// PrintPlan prints a plan diagram to stdout in the given format.
func PrintPlan(cfg *models.RunConfig, g *graph.Graph, format string, opts *RenderOptions) error {
	diagram, err := RenderPlan(cfg, g, format, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, diagram)
	return nil
}

// SavePlanToFile saves a plan diagram to a file.
func SavePlanToFile(cfg *models.RunConfig, g *graph.Graph, format, filename string, opts *RenderOptions) error {
	diagram, err := RenderPlan(cfg, g, format, opts)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(diagram), 0644)
}
