// Package index builds the shape graph index: inheritance in both directions,
// declared property order, and the reference map that folds links and soft
// links into their targets. An Index is built once and never changes.
package index

import (
	"github.com/griffnb/core-typegen/internal/domain"
)

// Index is the lookup structure over one document set.
type Index struct {
	refs          map[domain.ShapeID]*domain.Shape
	inherited     map[domain.ShapeID]*domain.Shape
	inheriting    map[domain.ShapeID][]*domain.Shape
	propertyOrder map[domain.ShapeID][]string
	shapes        []*domain.Shape
	documents     []*domain.Document
}

// HasInherited reports whether shape has a super shape.
func (i *Index) HasInherited(shape *domain.Shape) bool {
	_, ok := i.inherited[i.Dereference(shape).ID]
	return ok
}

// HasInheriting reports whether any shape inherits from shape.
func (i *Index) HasInheriting(shape *domain.Shape) bool {
	return len(i.inheriting[i.Dereference(shape).ID]) > 0
}

// SuperShapeID returns the id of the dereferenced super shape.
func (i *Index) SuperShapeID(shape *domain.Shape) (domain.ShapeID, bool) {
	super, ok := i.inherited[i.Dereference(shape).ID]
	if !ok {
		return 0, false
	}
	return super.ID, true
}

// SuperShape returns the dereferenced super shape, or nil.
func (i *Index) SuperShape(shape *domain.Shape) *domain.Shape {
	return i.inherited[i.Dereference(shape).ID]
}

// InheritingIDs returns the ids of the direct subtypes of shape in discovery order.
func (i *Index) InheritingIDs(shape *domain.Shape) []domain.ShapeID {
	subs := i.inheriting[i.Dereference(shape).ID]
	ids := make([]domain.ShapeID, 0, len(subs))
	for _, s := range subs {
		ids = append(ids, s.ID)
	}
	return ids
}

// InheritingShapes returns the direct subtypes of shape in discovery order.
func (i *Index) InheritingShapes(shape *domain.Shape) []*domain.Shape {
	return append([]*domain.Shape(nil), i.inheriting[i.Dereference(shape).ID]...)
}

// DeclaredPropertyOrder returns the own property names of shape in source order.
func (i *Index) DeclaredPropertyOrder(shape *domain.Shape) []string {
	return append([]string(nil), i.propertyOrder[i.Dereference(shape).ID]...)
}

// Dereference follows links and soft links to the canonical shape.
func (i *Index) Dereference(shape *domain.Shape) *domain.Shape {
	if shape == nil {
		return nil
	}
	if target, ok := i.refs[shape.ID]; ok {
		return target
	}
	if shape.Link == nil && !IsSoftLink(shape) {
		return shape
	}
	target, err := follow(shape)
	if err != nil {
		return shape
	}
	return target
}

// Shapes returns every indexed (canonical) shape in visit order.
func (i *Index) Shapes() []*domain.Shape {
	return append([]*domain.Shape(nil), i.shapes...)
}

// Documents returns every indexed document in visit order.
func (i *Index) Documents() []*domain.Document {
	return append([]*domain.Document(nil), i.documents...)
}

// IsSoftLink reports whether shape is an anonymous alias of its single parent:
// no name, one inheritance target and nothing of its own.
func IsSoftLink(shape *domain.Shape) bool {
	return shape.Name == "" &&
		!shape.Declared &&
		len(shape.Inherits) == 1 &&
		len(shape.AllOf) == 0 &&
		len(shape.Properties) == 0 &&
		len(shape.Values) == 0 &&
		shape.Discriminator == "" &&
		shape.DiscriminatorValue == "" &&
		len(shape.Annotations) == 0
}

// Aggregation splits an aggregation shape into its super link and its node branch.
func Aggregation(shape *domain.Shape) (super *domain.Shape, node *domain.Shape, ok bool) {
	if len(shape.AllOf) != 2 {
		return nil, nil, false
	}
	a, b := shape.AllOf[0], shape.AllOf[1]
	if a == nil || b == nil {
		return nil, nil, false
	}
	if a.Link != nil && b.Link == nil && b.Kind == domain.KindNode {
		return a, b, true
	}
	if b.Link != nil && a.Link == nil && a.Kind == domain.KindNode {
		return b, a, true
	}
	return nil, nil, false
}

// follow walks link and soft-link chains, failing on cycles.
func follow(shape *domain.Shape) (*domain.Shape, error) {
	seen := make(map[domain.ShapeID]bool)
	current := shape
	for {
		if seen[current.ID] {
			return nil, &domain.ShapeKindError{
				ShapeID:  shape.ID,
				Kind:     shape.Kind,
				Location: shape.Location,
				Reason:   "reference cycle",
			}
		}
		seen[current.ID] = true

		switch {
		case current.Link != nil:
			current = current.Link
		case IsSoftLink(current):
			current = current.Inherits[0]
		default:
			return current, nil
		}
	}
}

// Container returns the shape that holds the own properties of shape:
// the node branch of an aggregation, or the shape itself.
func Container(shape *domain.Shape) *domain.Shape {
	if _, node, ok := Aggregation(shape); ok {
		return node
	}
	return shape
}
