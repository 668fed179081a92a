// Package domain contains the core types shared across the typegen application.
// The input side is the shape graph produced by a document parser; the output
// side is the type table and the immutable type definition graph.
package domain

import "fmt"

// ShapeID is the arena handle of a shape. Zero is never assigned.
type ShapeID int

// Kind classifies a shape.
type Kind int

const (
	// KindAny is an unconstrained shape. Aggregations are encoded as KindAny with AllOf.
	KindAny Kind = iota
	// KindScalar is a primitive value, or an enum when Values is set.
	KindScalar
	// KindArray is a sequence of Items.
	KindArray
	// KindNode is an object with properties.
	KindNode
	// KindUnion is a union of AnyOf branches.
	KindUnion
	// KindFile is a binary payload.
	KindFile
	// KindNil is the null value.
	KindNil
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindNode:
		return "node"
	case KindUnion:
		return "union"
	case KindFile:
		return "file"
	case KindNil:
		return "nil"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Constraints holds validation metadata declared on a shape.
type Constraints struct {
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Minimum   *float64 `json:"minimum,omitempty"`
	Maximum   *float64 `json:"maximum,omitempty"`
	MinItems  *int     `json:"minItems,omitempty"`
	MaxItems  *int     `json:"maxItems,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (c Constraints) IsEmpty() bool {
	return c.MinLength == nil && c.MaxLength == nil && c.Pattern == "" &&
		c.Minimum == nil && c.Maximum == nil && c.MinItems == nil && c.MaxItems == nil
}

// MappingEntry is one row of a discriminator mapping table.
type MappingEntry struct {
	Value string
	Ref   string
}

// Shape is a node of the parsed schema graph. Shapes are created by the
// document parser and are read-only to everything else.
type Shape struct {
	ID       ShapeID
	Kind     Kind
	Name     string
	Declared bool
	Document *Document
	Location Location

	// Link marks a pure reference to another shape.
	Link     *Shape
	Inherits []*Shape
	AllOf    []*Shape

	Properties           []*Property
	Closed               bool
	AdditionalProperties *Shape

	Discriminator        string
	DiscriminatorValue   string
	DiscriminatorMapping []MappingEntry

	DataType    string
	Format      string
	Values      []string
	Constraints Constraints

	Items       *Shape
	UniqueItems bool

	AnyOf []*Shape

	Annotations Annotations
}

// IsEnum reports whether the shape is a scalar with an enumerated value set.
func (s *Shape) IsEnum() bool {
	return s.Kind == KindScalar && len(s.Values) > 0
}

// Property finds an own property by name.
func (s *Shape) Property(name string) *Property {
	for _, p := range s.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// String renders the shape for diagnostics.
func (s *Shape) String() string {
	if s == nil {
		return "<nil shape>"
	}
	if s.Name != "" {
		return fmt.Sprintf("%s#%d(%s)", s.Kind, s.ID, s.Name)
	}
	return fmt.Sprintf("%s#%d", s.Kind, s.ID)
}

// Property is a declared property of a node shape.
type Property struct {
	Name     string
	Range    *Shape
	Required bool
	Default  any
	Location Location
}

// Arena owns every shape of a generation run and hands out stable integer ids.
type Arena struct {
	shapes []*Shape
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{shapes: []*Shape{nil}}
}

// Add assigns the next id to shape and stores it.
func (a *Arena) Add(shape *Shape) *Shape {
	shape.ID = ShapeID(len(a.shapes))
	a.shapes = append(a.shapes, shape)
	return shape
}

// Get returns the shape for id, or nil.
func (a *Arena) Get(id ShapeID) *Shape {
	if id <= 0 || int(id) >= len(a.shapes) {
		return nil
	}
	return a.shapes[id]
}

// Len returns the number of shapes in the arena.
func (a *Arena) Len() int {
	return len(a.shapes) - 1
}
