package kernel

import (
	"github.com/hupe1980/agentkernel/tool"
)

// ToolRef selects a tool for a kernel's active set. The set of reference
// kinds is closed: a registry-backed name lookup or a direct instance.
//
// When Options.Select is empty the whole registry is active; otherwise only
// the referenced tools are offered to the model and dispatchable. A name
// that resolves to nothing is dropped with a warning log so a stale
// selection cannot fail a run.
type ToolRef interface{ isToolRef() }

type nameRef struct{ name string }

func (nameRef) isToolRef() {}

// ByName references a tool registered in the kernel's registry. Resolution
// happens per turn, so late registrations are picked up.
func ByName(name string) ToolRef {
	return nameRef{name: name}
}

type directRef struct{ t tool.Tool }

func (directRef) isToolRef() {}

// Direct references a tool instance without requiring registration.
func Direct(t tool.Tool) ToolRef {
	return directRef{t: t}
}

// activeTools resolves the kernel's tool selection into an ordered list and
// a dispatch lookup map. Unresolved name references are dropped.
func (k *Kernel) activeTools() ([]tool.Tool, map[string]tool.Tool) {
	var active []tool.Tool

	if len(k.opts.Select) == 0 {
		active = k.registry.List()
	} else {
		for _, ref := range k.opts.Select {
			switch r := ref.(type) {
			case nameRef:
				t, ok := k.registry.Get(r.name)
				if !ok {
					k.logger.Warn("kernel.tool.unresolved", "tool", r.name)
					continue
				}

				active = append(active, t)
			case directRef:
				if r.t != nil {
					active = append(active, r.t)
				}
			}
		}
	}

	byName := make(map[string]tool.Tool, len(active))
	for _, t := range active {
		byName[t.Name()] = t
	}

	return active, byName
}
