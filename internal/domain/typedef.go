package domain

// DefKind is the kind of a generated definition.
type DefKind int

const (
	DefClass DefKind = iota + 1
	DefInterface
	DefEnum
	DefPatch
)

func (k DefKind) String() string {
	switch k {
	case DefClass:
		return "class"
	case DefInterface:
		return "interface"
	case DefEnum:
		return "enum"
	case DefPatch:
		return "patch"
	}
	return "unknown"
}

// DiscriminatorRole is the part a definition plays in a polymorphic hierarchy.
type DiscriminatorRole int

const (
	// RoleRoot owns the discriminator property and leaves it abstract.
	RoleRoot DiscriminatorRole = iota + 1
	// RoleLeaf overrides the discriminator with a concrete value.
	RoleLeaf
)

func (r DiscriminatorRole) String() string {
	switch r {
	case RoleRoot:
		return "root"
	case RoleLeaf:
		return "leaf"
	}
	return "none"
}

// SubtypeDef pairs a subtype with its discriminator value.
type SubtypeDef struct {
	Type  TypeRef
	Value string
}

// DiscriminatorDef describes the discriminator of a definition.
type DiscriminatorDef struct {
	Role DiscriminatorRole
	// Property is the wire name of the discriminator property.
	Property   string
	Identifier string
	Type       TypeRef
	// Value is set for leaves.
	Value string
	// External marks roots whose value travels outside the object.
	External bool
	// Subtypes is set for roots, in inheriting order.
	Subtypes []SubtypeDef
}

// EnumCase is one enum constant.
type EnumCase struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PropertyDef is a property of a generated definition.
type PropertyDef struct {
	Name                  string
	WireName              string
	Type                  TypeRef
	Optional              bool
	Default               any
	Constraints           *Constraints
	ExternalDiscriminator string
}

// TypeDef is one generated type.
type TypeDef struct {
	Name     QualifiedName
	Kind     DefKind
	Ref      TypeRef
	ShapeID  ShapeID
	Location Location

	Super    TypeRef
	Abstract bool
	Open     bool

	Properties []PropertyDef
	Inherited  []PropertyDef

	Discriminator *DiscriminatorDef
	Cases         []EnumCase
	Patch         TypeRef

	Nested []*TypeDef
}

// Clone deep copies the definition, including nested definitions.
func (d *TypeDef) Clone() *TypeDef {
	if d == nil {
		return nil
	}
	c := *d
	c.Name = NewQualifiedName(d.Name.Package, d.Name.Names...)
	c.Properties = clonePropertyDefs(d.Properties)
	c.Inherited = clonePropertyDefs(d.Inherited)
	if d.Discriminator != nil {
		disc := *d.Discriminator
		disc.Subtypes = append([]SubtypeDef(nil), d.Discriminator.Subtypes...)
		c.Discriminator = &disc
	}
	c.Cases = append([]EnumCase(nil), d.Cases...)
	c.Nested = nil
	for _, n := range d.Nested {
		c.Nested = append(c.Nested, n.Clone())
	}
	return &c
}

func clonePropertyDefs(in []PropertyDef) []PropertyDef {
	if in == nil {
		return nil
	}
	out := make([]PropertyDef, len(in))
	for i, p := range in {
		out[i] = p
		if p.Constraints != nil {
			constraints := *p.Constraints
			out[i].Constraints = &constraints
		}
	}
	return out
}
