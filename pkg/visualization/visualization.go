// Package visualization renders a resolved run plan (pkg/graph.Graph) as an
// ASCII tree for console output.
//
// Example usage:
//
//	renderer := visualization.NewASCIIRenderer()
//	opts := visualization.DefaultRenderOptions()
//	diagram, err := renderer.Render(cfg, graph, opts)
package visualization

import (
	"github.com/checkrun-dev/engine/pkg/graph"
	"github.com/checkrun-dev/engine/pkg/models"
)

// Renderer is the interface for rendering a resolved plan in a given
// format.
type Renderer interface {
	// Render converts cfg's checks, leveled into g's waves, into the
	// target format.
	Render(cfg *models.RunConfig, g *graph.Graph, opts *RenderOptions) (string, error)

	// Format returns the format identifier (e.g. "ascii").
	Format() string
}

// RenderOptions configures how a plan is rendered.
type RenderOptions struct {
	// ShowConfig controls whether a check's provider config is displayed.
	ShowConfig bool

	// ShowDependencies controls whether a check's DependsOn list is shown.
	ShowDependencies bool

	// UseColor enables ANSI color codes.
	UseColor bool

	// CompactMode renders each check as id and type only and hides its
	// config line; the dependency line still follows ShowDependencies.
	CompactMode bool
}

// DefaultRenderOptions returns the default rendering options.
func DefaultRenderOptions() *RenderOptions {
	return &RenderOptions{
		ShowConfig:       true,
		ShowDependencies: true,
		UseColor:         true, // auto-detected based on TTY
		CompactMode:      false,
	}
}
