package visualization

import (
	"strings"
	"testing"

	"github.com/checkrun-dev/engine/pkg/graph"
	"github.com/checkrun-dev/engine/pkg/models"
)

func testConfig() *models.RunConfig {
	return &models.RunConfig{
		Version: "1",
		Checks: map[string]*models.CheckDefinition{
			"fetch": {ID: "fetch", Type: "http", Config: map[string]any{"method": "GET", "url": "/api/test"}},
			"transform": {
				ID: "transform", Type: "script", DependsOn: []string{"fetch"},
				Config: map[string]any{"type": "expression", "expression": "outputs.fetch"},
			},
		},
	}
}

func TestASCIIRenderer_Format(t *testing.T) {
	renderer := NewASCIIRenderer()
	if got := renderer.Format(); got != "ascii" {
		t.Errorf("Format() = %v, want ascii", got)
	}
}

func TestASCIIRenderer_Render(t *testing.T) {
	cfg := testConfig()
	g, err := graph.Build(cfg.Checks, []string{"fetch", "transform"})
	if err != nil {
		t.Fatalf("graph.Build failed: %v", err)
	}

	out, err := (&ASCIIRenderer{}).Render(cfg, g, &RenderOptions{CompactMode: true})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	for _, want := range []string{"wave 0", "wave 1", "fetch (http)", "transform (script)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() output missing expected substring %q:\n%s", want, out)
		}
	}
}

func TestASCIIRenderer_RenderShowsDependencies(t *testing.T) {
	cfg := testConfig()
	g, err := graph.Build(cfg.Checks, []string{"fetch", "transform"})
	if err != nil {
		t.Fatalf("graph.Build failed: %v", err)
	}

	out, err := (&ASCIIRenderer{}).Render(cfg, g, &RenderOptions{CompactMode: true, ShowDependencies: true})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(out, "depends on: fetch") {
		t.Errorf("Render() output missing dependency annotation:\n%s", out)
	}
}

func TestASCIIRenderer_NilInputs(t *testing.T) {
	renderer := NewASCIIRenderer()

	if _, err := renderer.Render(nil, &graph.Graph{}, nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := renderer.Render(testConfig(), nil, nil); err == nil {
		t.Error("expected error for nil graph")
	}
}

func TestASCIIRenderer_ExtractCheckConfig(t *testing.T) {
	renderer := NewASCIIRenderer()

	tests := []struct {
		name string
		def  *models.CheckDefinition
		want string
	}{
		{
			name: "http",
			def:  &models.CheckDefinition{Type: "http", Config: map[string]any{"method": "POST", "url": "https://api.example.com/users"}},
			want: "POST https://api.example.com/users",
		},
		{
			name: "ai",
			def:  &models.CheckDefinition{Type: "ai", Config: map[string]any{"model": "gpt-4"}},
			want: "model: gpt-4",
		},
		{
			name: "script expression",
			def:  &models.CheckDefinition{Type: "script", Config: map[string]any{"type": "expression", "expression": "1 + 1"}},
			want: "expr: 1 + 1",
		},
		{
			name: "no config",
			def:  &models.CheckDefinition{Type: "memory", Config: map[string]any{}},
			want: " ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderer.extractCheckConfig(tt.def)
			if got != tt.want {
				t.Errorf("extractCheckConfig() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestASCIIRenderer_Colorize(t *testing.T) {
	renderer := NewASCIIRenderer()

	if got := renderer.colorize("test", colorGreen, true); got != colorGreen+"test"+colorReset {
		t.Errorf("colorize() with color enabled = %q", got)
	}
	if got := renderer.colorize("test", colorGreen, false); got != "test" {
		t.Errorf("colorize() with color disabled = %q", got)
	}
}
