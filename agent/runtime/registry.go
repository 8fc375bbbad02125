package runtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	contractx "github.com/tanpawarit/ai-suite-runtime/agent/contract"
)

// DefaultAliases maps historical agent names onto agent ids.
var DefaultAliases = map[string]contractx.AgentID{
	"imel": contractx.AgentTriage,
	"kall": contractx.AgentResolution,
}

type Registry struct {
	mu       sync.RWMutex
	adapters map[contractx.AgentID]Adapter
	aliases  map[string]contractx.AgentID
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: map[contractx.AgentID]Adapter{},
		aliases:  map[string]contractx.AgentID{},
	}
	for alias, id := range DefaultAliases {
		r.aliases[alias] = id
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter, aliases ...string) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.ID()] = a
	for _, alias := range aliases {
		if alias = strings.ToLower(strings.TrimSpace(alias)); alias != "" {
			r.aliases[alias] = a.ID()
		}
	}
}

// Lookup resolves an agent id or alias.
func (r *Registry) Lookup(agentID string) (Adapter, error) {
	key := strings.ToLower(strings.TrimSpace(agentID))

	r.mu.RLock()
	defer r.mu.RUnlock()
	id := contractx.AgentID(key)
	if aliased, ok := r.aliases[key]; ok {
		id = aliased
	}
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownAgent, agentID)
	}
	return a, nil
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}
