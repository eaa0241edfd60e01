package providers

import (
	"sync"

	"github.com/checkrun-dev/engine/pkg/dispatch"
	"github.com/checkrun-dev/engine/pkg/models"
	pconfig "github.com/checkrun-dev/engine/pkg/providers/config"
)

// MemoryProvider is an in-process key-value store: "set" writes
// config["value"] under config["key"] and reports it back as output;
// "get" reads it back. Exists mainly for demos and tests that need a
// check type with state across scopes without standing up real storage —
// grounded on the general store-then-read shape of the teacher's
// FileStorageExecutor (pkg/executor/builtin/file_storage.go), simplified
// to pure in-memory since this provider has no durability goal.
type MemoryProvider struct {
	mu    sync.Mutex
	store map[string]any
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{store: map[string]any{}}
}

func (p *MemoryProvider) Type() string { return "memory" }

func (p *MemoryProvider) Execute(check *models.CheckDefinition, _ *models.PRInfo, _ map[string]*models.CheckResult, _ *dispatch.ExecContext) *models.CheckResult {
	key, err := pconfig.String(check.Config, "key")
	if err != nil {
		return fatal(check.Type, "%s", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch pconfig.StringDefault(check.Config, "op", "get") {
	case "set":
		p.store[key] = check.Config["value"]
		return &models.CheckResult{Output: p.store[key]}
	case "get":
		val, ok := p.store[key]
		if !ok {
			return fatal(check.Type, "no value stored for key %q", key)
		}
		return &models.CheckResult{Output: val}
	default:
		return fatal(check.Type, "unknown op %q (want get or set)", check.Config["op"])
	}
}
