package dispatcher

import (
	"strings"

	"textbook-qa-be/internal/pkg/logger"
	"textbook-qa-be/pkg/llm"
	"textbook-qa-be/pkg/llm/factory"
)

// BuildFunc constructs the provider for one priority entry.
type BuildFunc func(provider, model string) (llm.LLMProvider, error)

// Plan maps branches to backend lists. It is immutable after NewPlan.
type Plan struct {
	defaults []Backend
	branches map[string][]Backend
}

// NewPlan resolves "provider:model" entries. Entries that fail to parse or
// build are skipped with a warning so one missing key does not disable the rest.
func NewPlan(defaults []string, perBranch map[string][]string, build BuildFunc, log logger.ILogger) *Plan {
	built := make(map[string]Backend)
	resolve := func(entries []string) []Backend {
		out := make([]Backend, 0, len(entries))
		for _, entry := range entries {
			if b, ok := built[entry]; ok {
				out = append(out, b)
				continue
			}
			name, model, err := factory.ParseEntry(entry)
			if err == nil {
				var p llm.LLMProvider
				if p, err = build(name, model); err == nil {
					b := Backend{Name: name, Model: model, Provider: p}
					built[entry] = b
					out = append(out, b)
					continue
				}
			}
			log.Warn(module, "Skipping model priority entry", map[string]interface{}{"entry": entry, "error": err.Error()})
		}
		return out
	}

	p := &Plan{defaults: resolve(defaults), branches: make(map[string][]Backend, len(perBranch))}
	for branch, entries := range perBranch {
		if list := resolve(entries); len(list) > 0 {
			p.branches[strings.ToLower(strings.TrimSpace(branch))] = list
		}
	}
	return p
}

// For returns the backends for branch, or the default list.
func (p *Plan) For(branch string) []Backend {
	if list, ok := p.branches[strings.ToLower(strings.TrimSpace(branch))]; ok {
		return list
	}
	return p.defaults
}
