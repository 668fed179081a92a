// Package discriminator finds the discriminator property of polymorphic
// hierarchies and the value each subtype is tagged with on the wire.
package discriminator

import (
	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/index"
	"github.com/griffnb/core-typegen/internal/resolution"
)

// Resolver answers discriminator questions for one resolution context.
type Resolver struct {
	ctx *resolution.Context
}

// New creates a resolver.
func New(ctx *resolution.Context) *Resolver {
	return &Resolver{ctx: ctx}
}

// declared returns the discriminator property declared directly on shape.
// For aggregations the node branch counts.
func declared(shape *domain.Shape) string {
	if shape.Discriminator != "" {
		return shape.Discriminator
	}
	return index.Container(shape).Discriminator
}

func declaredValue(shape *domain.Shape) string {
	if shape.DiscriminatorValue != "" {
		return shape.DiscriminatorValue
	}
	return index.Container(shape).DiscriminatorValue
}

func declaredMapping(shape *domain.Shape) []domain.MappingEntry {
	if len(shape.DiscriminatorMapping) > 0 {
		return shape.DiscriminatorMapping
	}
	return index.Container(shape).DiscriminatorMapping
}

// PropertyName returns the discriminator property declared nearest to shape,
// looking at shape first and then up its ancestors, together with the shape
// that declares it. It returns "" and nil outside a discriminated hierarchy.
func (r *Resolver) PropertyName(shape *domain.Shape) (string, *domain.Shape) {
	current := r.ctx.Index().Dereference(shape)
	seen := make(map[domain.ShapeID]bool)
	for current != nil && !seen[current.ID] {
		seen[current.ID] = true
		if name := declared(current); name != "" {
			return name, current
		}
		current = r.ctx.FindSuperShape(current)
	}
	return "", nil
}

// IsRoot reports whether shape itself declares the discriminator property.
func (r *Resolver) IsRoot(shape *domain.Shape) bool {
	return declared(r.ctx.Index().Dereference(shape)) != ""
}

// Value returns the discriminator value of subtype within the hierarchy rooted at root.
// An explicit value on subtype wins, then the root's mapping table, then the
// subtype's declared name.
func (r *Resolver) Value(subtype, root *domain.Shape) (string, error) {
	subtype = r.ctx.Index().Dereference(subtype)

	if value := declaredValue(subtype); value != "" {
		return value, nil
	}

	if root != nil {
		value, ok, err := r.mapped(subtype, r.ctx.Index().Dereference(root))
		if err != nil {
			return "", err
		}
		if ok {
			return value, nil
		}
	}

	if subtype.Name == "" {
		return "", &domain.ShapeKindError{
			ShapeID:  subtype.ID,
			Kind:     subtype.Kind,
			Location: subtype.Location,
			Reason:   "discriminated subtype has neither a name nor a discriminator value",
		}
	}
	return subtype.Name, nil
}

func (r *Resolver) mapped(subtype, root *domain.Shape) (string, bool, error) {
	for _, entry := range declaredMapping(root) {
		target, _, err := r.ctx.ResolveRef(entry.Ref, root)
		if err != nil {
			return "", false, err
		}
		if r.ctx.Index().Dereference(target).ID == subtype.ID {
			return entry.Value, true, nil
		}
	}
	return "", false, nil
}

// Subtypes returns every direct and indirect subtype of root in discovery order,
// each paired with its discriminator value.
func (r *Resolver) Subtypes(root *domain.Shape) ([]*domain.Shape, []string, error) {
	var (
		shapes []*domain.Shape
		values []string
	)
	seen := make(map[domain.ShapeID]bool)

	var walk func(parent *domain.Shape) error
	walk = func(parent *domain.Shape) error {
		for _, sub := range r.ctx.FindInheritingShapes(parent) {
			if seen[sub.ID] {
				continue
			}
			seen[sub.ID] = true

			value, err := r.Value(sub, root)
			if err != nil {
				return err
			}
			shapes = append(shapes, sub)
			values = append(values, value)

			if err := walk(sub); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(r.ctx.Index().Dereference(root)); err != nil {
		return nil, nil, err
	}
	return shapes, values, nil
}

// ExternalProperty validates an externalDiscriminator annotation found on the
// range of a property of object. The range must be an object and the named
// property must exist on object, declared or inherited.
func (r *Resolver) ExternalProperty(object, rng *domain.Shape, value any) (string, error) {
	name, _ := value.(string)
	location := rng.Location
	if location.File == "" {
		location = object.Location
	}

	if name == "" {
		return "", &domain.AnnotationError{
			Annotation: domain.AnnotationExternalDiscriminator,
			Value:      value,
			Location:   location,
			Reason:     "must name a property",
		}
	}

	target := r.ctx.Index().Dereference(rng)
	if target.Kind != domain.KindNode && index.Container(target).Kind != domain.KindNode {
		return "", &domain.AnnotationError{
			Annotation: domain.AnnotationExternalDiscriminator,
			Value:      value,
			Location:   location,
			Reason:     "externally discriminated types must be objects",
		}
	}

	for _, p := range r.ctx.FindAllProperties(object) {
		if p.Name == name {
			return name, nil
		}
	}
	return "", &domain.AnnotationError{
		Annotation: domain.AnnotationExternalDiscriminator,
		Value:      value,
		Location:   object.Location,
		Reason:     "external discriminator '" + name + "' not found in object",
	}
}
