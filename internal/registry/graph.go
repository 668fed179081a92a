package registry

import (
	"sort"

	"github.com/griffnb/core-typegen/internal/domain"
)

// Graph snapshots the definitions discovered so far into an immutable graph.
// Nested definitions are attached to their enclosing definition, deepest
// enclosing names first and then by name. Top-level definitions keep their
// discovery order. A nested definition whose enclosing type was never defined
// stays at the top level.
func (s *Service) Graph() *domain.Graph {
	clones := make(map[string]*domain.TypeDef, len(s.order))
	for _, def := range s.order {
		clone := def.Clone()
		clone.Nested = nil
		clones[def.Name.String()] = clone
	}

	nested := make([]*domain.TypeDef, 0, len(s.order))
	for _, def := range s.order {
		if def.Name.Depth() > 1 {
			nested = append(nested, clones[def.Name.String()])
		}
	}
	sort.SliceStable(nested, func(i, j int) bool {
		if nested[i].Name.Depth() != nested[j].Name.Depth() {
			return nested[i].Name.Depth() > nested[j].Name.Depth()
		}
		return nested[i].Name.String() < nested[j].Name.String()
	})

	attached := make(map[string]bool, len(nested))
	for _, def := range nested {
		enclosing, _ := def.Name.Enclosing()
		parent, ok := clones[enclosing.String()]
		if !ok {
			continue
		}
		parent.Nested = append(parent.Nested, def)
		attached[def.Name.String()] = true
	}

	top := make([]*domain.TypeDef, 0, len(s.order))
	for _, def := range s.order {
		key := def.Name.String()
		if !attached[key] {
			top = append(top, clones[key])
		}
	}

	return domain.NewGraph(s.types, top)
}
