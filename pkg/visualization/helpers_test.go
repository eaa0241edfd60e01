package visualization

import (
	"os"
	"strings"
	"testing"

	"github.com/checkrun-dev/engine/pkg/graph"
)

func TestRenderPlan_ASCII(t *testing.T) {
	cfg := testConfig()
	g, err := graph.Build(cfg.Checks, []string{"fetch", "transform"})
	if err != nil {
		t.Fatalf("graph.Build failed: %v", err)
	}

	diagram, err := RenderPlan(cfg, g, "ascii", nil)
	if err != nil {
		t.Fatalf("RenderPlan failed: %v", err)
	}
	if !strings.Contains(diagram, "fetch") {
		t.Error("expected diagram to contain check id")
	}
}

func TestRenderPlan_UnsupportedFormat(t *testing.T) {
	cfg := testConfig()
	g, err := graph.Build(cfg.Checks, []string{"fetch", "transform"})
	if err != nil {
		t.Fatalf("graph.Build failed: %v", err)
	}

	_, err = RenderPlan(cfg, g, "mermaid", nil)
	if err == nil {
		t.Error("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestPrintPlan(t *testing.T) {
	cfg := testConfig()
	g, err := graph.Build(cfg.Checks, []string{"fetch", "transform"})
	if err != nil {
		t.Fatalf("graph.Build failed: %v", err)
	}

	if err := PrintPlan(cfg, g, "ascii", nil); err != nil {
		t.Errorf("PrintPlan failed: %v", err)
	}
}

func TestSavePlanToFile(t *testing.T) {
	cfg := testConfig()
	g, err := graph.Build(cfg.Checks, []string{"fetch", "transform"})
	if err != nil {
		t.Fatalf("graph.Build failed: %v", err)
	}

	tmpfile := "/tmp/test_plan.txt"
	defer os.Remove(tmpfile)

	if err := SavePlanToFile(cfg, g, "ascii", tmpfile, nil); err != nil {
		t.Fatalf("SavePlanToFile failed: %v", err)
	}

	content, err := os.ReadFile(tmpfile)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	if !strings.Contains(string(content), "fetch") {
		t.Error("saved file doesn't contain check id")
	}
}
