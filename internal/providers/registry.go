package providers

import (
	"sort"
)

// Definition captures the metadata required to register an upstream builder.
type Definition struct {
	Name         string
	Description  string
	Capabilities []string
	Builder      Builder
}

var defaultDefinitions = map[string]Definition{}

// RegisterDefinition stores a definition so New can resolve builders by name.
func RegisterDefinition(def Definition) {
	if def.Builder == nil {
		panic("providers: definition builder required")
	}
	if def.Name == "" {
		panic("providers: definition name required")
	}
	if def.Description == "" {
		def.Description = def.Name
	}
	if len(def.Capabilities) > 0 {
		caps := make([]string, len(def.Capabilities))
		copy(caps, def.Capabilities)
		sort.Strings(caps)
		def.Capabilities = caps
	}
	defaultDefinitions[def.Name] = def
}

// DefaultDefinitions returns the registered definitions sorted by name.
func DefaultDefinitions() []Definition {
	defs := make([]Definition, 0, len(defaultDefinitions))
	for _, def := range defaultDefinitions {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}
