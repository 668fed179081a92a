package domain

// Graph is the resolved type definition graph handed to emitters.
// It is built once by the registry and never mutated afterwards.
type Graph struct {
	types       *TypeTable
	definitions []*TypeDef
	byName      map[string]*TypeDef
	byRef       map[TypeRef]*TypeDef
}

// NewGraph wraps top-level definitions (with nested definitions attached) into a graph.
func NewGraph(types *TypeTable, definitions []*TypeDef) *Graph {
	g := &Graph{
		types:       types,
		definitions: definitions,
		byName:      make(map[string]*TypeDef),
		byRef:       make(map[TypeRef]*TypeDef),
	}
	_ = g.Walk(func(def *TypeDef) error {
		g.byName[def.Name.String()] = def
		g.byRef[def.Ref] = def
		return nil
	})
	return g
}

// Types returns the type table the graph's references point into.
func (g *Graph) Types() *TypeTable {
	return g.types
}

// Definitions returns the top-level definitions in discovery order.
func (g *Graph) Definitions() []*TypeDef {
	return append([]*TypeDef(nil), g.definitions...)
}

// Lookup finds a definition, nested or not, by qualified name.
func (g *Graph) Lookup(name string) (*TypeDef, bool) {
	def, ok := g.byName[name]
	return def, ok
}

// Definition finds the definition a named reference points at.
func (g *Graph) Definition(ref TypeRef) (*TypeDef, bool) {
	def, ok := g.byRef[ref]
	return def, ok
}

// Len returns the number of definitions including nested ones.
func (g *Graph) Len() int {
	return len(g.byName)
}

// Walk visits every definition in pre-order.
func (g *Graph) Walk(fn func(*TypeDef) error) error {
	var walk func(defs []*TypeDef) error
	walk = func(defs []*TypeDef) error {
		for _, def := range defs {
			if err := fn(def); err != nil {
				return err
			}
			if err := walk(def.Nested); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(g.definitions)
}

// ExportedProperty is the serializable form of a PropertyDef.
type ExportedProperty struct {
	Name                  string       `json:"name"`
	WireName              string       `json:"wireName"`
	Type                  string       `json:"type"`
	Optional              bool         `json:"optional,omitempty"`
	Default               any          `json:"default,omitempty"`
	Constraints           *Constraints `json:"constraints,omitempty"`
	ExternalDiscriminator string       `json:"externalDiscriminator,omitempty"`
}

// ExportedSubtype is the serializable form of a SubtypeDef.
type ExportedSubtype struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ExportedDiscriminator is the serializable form of a DiscriminatorDef.
type ExportedDiscriminator struct {
	Role     string            `json:"role"`
	Property string            `json:"property"`
	Type     string            `json:"type,omitempty"`
	Value    string            `json:"value,omitempty"`
	External bool              `json:"external,omitempty"`
	Subtypes []ExportedSubtype `json:"subtypes,omitempty"`
}

// ExportedDefinition is the serializable form of a TypeDef.
type ExportedDefinition struct {
	Name          string                 `json:"name"`
	Kind          string                 `json:"kind"`
	Location      string                 `json:"location,omitempty"`
	Super         string                 `json:"super,omitempty"`
	Abstract      bool                   `json:"abstract,omitempty"`
	Open          bool                   `json:"open,omitempty"`
	Properties    []ExportedProperty     `json:"properties,omitempty"`
	Inherited     []ExportedProperty     `json:"inherited,omitempty"`
	Discriminator *ExportedDiscriminator `json:"discriminator,omitempty"`
	Cases         []EnumCase             `json:"cases,omitempty"`
	Patch         string                 `json:"patch,omitempty"`
	Nested        []ExportedDefinition   `json:"nested,omitempty"`
}

// Export renders the graph with type references spelled out, ready for encoding.
func (g *Graph) Export() []ExportedDefinition {
	out := make([]ExportedDefinition, 0, len(g.definitions))
	for _, def := range g.definitions {
		out = append(out, g.export(def))
	}
	return out
}

func (g *Graph) export(def *TypeDef) ExportedDefinition {
	e := ExportedDefinition{
		Name:       def.Name.String(),
		Kind:       def.Kind.String(),
		Super:      g.types.String(def.Super),
		Abstract:   def.Abstract,
		Open:       def.Open,
		Properties: g.exportProperties(def.Properties),
		Inherited:  g.exportProperties(def.Inherited),
		Cases:      def.Cases,
		Patch:      g.types.String(def.Patch),
	}
	if def.Location.File != "" {
		e.Location = def.Location.String()
	}
	if d := def.Discriminator; d != nil {
		ed := &ExportedDiscriminator{
			Role:     d.Role.String(),
			Property: d.Property,
			Type:     g.types.String(d.Type),
			Value:    d.Value,
			External: d.External,
		}
		for _, st := range d.Subtypes {
			ed.Subtypes = append(ed.Subtypes, ExportedSubtype{Type: g.types.String(st.Type), Value: st.Value})
		}
		e.Discriminator = ed
	}
	for _, n := range def.Nested {
		e.Nested = append(e.Nested, g.export(n))
	}
	return e
}

func (g *Graph) exportProperties(props []PropertyDef) []ExportedProperty {
	if len(props) == 0 {
		return nil
	}
	out := make([]ExportedProperty, 0, len(props))
	for _, p := range props {
		out = append(out, ExportedProperty{
			Name:                  p.Name,
			WireName:              p.WireName,
			Type:                  g.types.String(p.Type),
			Optional:              p.Optional,
			Default:               p.Default,
			Constraints:           p.Constraints,
			ExternalDiscriminator: p.ExternalDiscriminator,
		})
	}
	return out
}
