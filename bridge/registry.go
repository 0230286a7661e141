package bridge

import (
	"github.com/Zeeeepa/AgentFlow/internal/collection"
	"github.com/Zeeeepa/AgentFlow/schema"
)

// registry caches the tool descriptors discovered from the server. The whole
// set is replaced on every reconnect; stale entries never survive.
type registry struct {
	snapshot *collection.Snapshot[string, schema.Tool]
}

func newRegistry() *registry {
	return &registry{snapshot: collection.NewSnapshot[string, schema.Tool]()}
}

// List returns the current snapshot, empty if discovery never ran.
func (r *registry) List() []schema.Tool {
	return r.snapshot.Values()
}

// Resolve looks a descriptor up by name.
func (r *registry) Resolve(name string) (schema.Tool, bool) {
	return r.snapshot.Lookup(name)
}

// Replace installs a freshly discovered descriptor set atomically.
func (r *registry) Replace(tools []schema.Tool) {
	r.snapshot.Replace(tools, func(t schema.Tool) string { return t.Name })
}

func (r *registry) Len() int {
	return r.snapshot.Len()
}

// Names lists the known tool names, used in not-found diagnostics.
func (r *registry) Names() []string {
	tools := r.snapshot.Values()
	ret := make([]string, 0, len(tools))
	for i := range tools {
		ret = append(ret, tools[i].Name)
	}
	return ret
}
