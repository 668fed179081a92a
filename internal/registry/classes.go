// Package registry - class, enum and patch definitions.
package registry

import (
	"errors"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/naming"
)

// patchName is the local name of the patch record nested in a patchable class.
const patchName = "Patch"

const patchCollisionHint = "rename the inline 'patch' property or drop the patchable annotation"

// name resolves the qualified name of a defining shape. done is set when resolving
// the name already defined shape, which happens when a nested annotation's
// enclosing type refers back to it.
func (s *Service) name(shape *domain.Shape, ctx naming.Context) (name domain.QualifiedName, done domain.TypeRef, err error) {
	resolved, err := s.naming.NameOf(shape, ctx, s)
	if err != nil {
		return domain.QualifiedName{}, domain.NoType, err
	}
	if ref, ok := s.resolved[shape.ID]; ok {
		return domain.QualifiedName{}, ref, nil
	}
	if err := s.claim(resolved.Qualified, shape); err != nil {
		return domain.QualifiedName{}, domain.NoType, err
	}
	return resolved.Qualified, domain.NoType, nil
}

func (s *Service) defineEnum(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	name, done, err := s.name(shape, ctx)
	if err != nil || done != domain.NoType {
		return done, err
	}

	ref := s.types.Named(name)
	s.resolved[shape.ID] = ref

	def := &domain.TypeDef{
		Name:     name,
		Kind:     domain.DefEnum,
		Ref:      ref,
		ShapeID:  shape.ID,
		Location: shape.Location,
	}
	for i, caseName := range naming.EnumCaseNames(shape.Values) {
		def.Cases = append(def.Cases, domain.EnumCase{Name: caseName, Value: shape.Values[i]})
	}
	s.register(def)

	return ref, nil
}

// defineClass builds the definition of shape. super is the dereferenced super shape
// and container holds the own properties (the node branch for aggregations).
func (s *Service) defineClass(shape, super, container *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	name, done, err := s.name(shape, ctx)
	if err != nil || done != domain.NoType {
		return done, err
	}

	ref := s.types.Named(name)
	s.resolved[shape.ID] = ref

	def := &domain.TypeDef{
		Name:     name,
		Kind:     domain.DefInterface,
		Ref:      ref,
		ShapeID:  shape.ID,
		Location: shape.Location,
	}
	if s.opts.ImplementModel {
		def.Kind = domain.DefClass
	}
	s.register(def)

	var inherited []*domain.Property
	if super != nil {
		def.Super, err = s.ResolveTypeReference(super, naming.Context{})
		if err != nil {
			return domain.NoType, err
		}
		inherited = s.ctx.FindAllProperties(super)
	}
	declared := s.declaredProperties(shape, container)
	inherited = overridden(inherited, declared)
	inheriting := s.ctx.FindInheritingShapes(shape)

	discName, root := s.disc.PropertyName(shape)
	if discName != "" {
		if err := s.discriminate(def, shape, root, discName, inherited, declared); err != nil {
			return domain.NoType, err
		}
		inherited = without(inherited, discName)
		declared = without(declared, discName)
	}

	for _, p := range inherited {
		prop, err := s.property(name, shape, p, false)
		if err != nil {
			return domain.NoType, err
		}
		def.Inherited = append(def.Inherited, prop)
	}
	for _, p := range declared {
		prop, err := s.property(name, shape, p, true)
		if err != nil {
			return domain.NoType, err
		}
		def.Properties = append(def.Properties, prop)
	}

	def.Open = s.opts.ImplementModel && len(inheriting) > 0 && !def.Abstract

	if shape.Annotations.Bool(domain.AnnotationPatchable, s.opts.Mode) {
		if err := s.definePatch(def, shape, container); err != nil {
			return domain.NoType, err
		}
	}

	for _, sub := range inheriting {
		if _, err := s.ResolveTypeReference(sub, naming.Context{}); err != nil {
			return domain.NoType, err
		}
	}

	if def.Discriminator != nil && def.Discriminator.Role == domain.RoleRoot {
		if err := s.subtypes(def, shape); err != nil {
			return domain.NoType, err
		}
	}

	return ref, nil
}

// declaredProperties returns the own properties of shape in declared order.
func (s *Service) declaredProperties(shape, container *domain.Shape) []*domain.Property {
	order := s.idx.DeclaredPropertyOrder(shape)
	if len(order) == 0 {
		return container.Properties
	}
	props := make([]*domain.Property, 0, len(order))
	for _, name := range order {
		if p := container.Property(name); p != nil {
			props = append(props, p)
		}
	}
	return props
}

func (s *Service) discriminate(
	def *domain.TypeDef,
	shape, root *domain.Shape,
	property string,
	inherited, declared []*domain.Property,
) error {
	var found *domain.Property
	for _, p := range append(append([]*domain.Property(nil), inherited...), declared...) {
		if p.Name == property {
			found = p
		}
	}
	if found == nil {
		return unsupported(shape, "discriminator property '"+property+"' not found")
	}

	typ, err := s.ResolveTypeReference(found.Range, naming.ForProperty(def.Name, found.Name))
	if err != nil {
		return err
	}

	disc := &domain.DiscriminatorDef{
		Property:   property,
		Identifier: s.naming.Identifier(property),
		Type:       typ,
	}

	if root.ID == shape.ID {
		disc.Role = domain.RoleRoot
		disc.External = shape.Annotations.Bool(domain.AnnotationExternallyDiscriminated, s.opts.Mode)
		def.Abstract = s.opts.ImplementModel
	} else {
		disc.Role = domain.RoleLeaf
		disc.Value, err = s.disc.Value(shape, root)
		if err != nil {
			return err
		}
	}

	def.Discriminator = disc
	return nil
}

func (s *Service) subtypes(def *domain.TypeDef, root *domain.Shape) error {
	shapes, values, err := s.disc.Subtypes(root)
	if err != nil {
		return err
	}
	for i, sub := range shapes {
		ref, err := s.ResolveTypeReference(sub, naming.Context{})
		if err != nil {
			return err
		}
		def.Discriminator.Subtypes = append(def.Discriminator.Subtypes, domain.SubtypeDef{Type: ref, Value: values[i]})
	}
	return nil
}

// property resolves one property of the class named owner. External
// discriminators are only validated on own properties.
func (s *Service) property(owner domain.QualifiedName, object *domain.Shape, p *domain.Property, own bool) (domain.PropertyDef, error) {
	typ, err := s.ResolveTypeReference(p.Range, naming.ForProperty(owner, p.Name))
	if err != nil {
		return domain.PropertyDef{}, err
	}

	prop := domain.PropertyDef{
		Name:     s.naming.Identifier(p.Name),
		WireName: p.Name,
		Type:     typ,
		Optional: !p.Required,
		Default:  p.Default,
	}
	if prop.Optional {
		prop.Type = s.types.Optional(typ)
	}

	if s.opts.ValidationConstraints {
		prop.Constraints = s.constraints(p.Range)
	}

	if own && p.Range != nil {
		if value, ok := p.Range.Annotations.Lookup(domain.AnnotationExternalDiscriminator, s.opts.Mode); ok {
			prop.ExternalDiscriminator, err = s.disc.ExternalProperty(object, p.Range, value)
			if err != nil {
				return domain.PropertyDef{}, err
			}
		}
	}

	return prop, nil
}

// constraints picks the validation metadata that applies to the kind of rng.
func (s *Service) constraints(rng *domain.Shape) *domain.Constraints {
	if rng == nil {
		return nil
	}
	shape := s.idx.Dereference(rng)
	declared := shape.Constraints

	var c domain.Constraints
	switch {
	case shape.Kind == domain.KindArray:
		c.MinItems = declared.MinItems
		c.MaxItems = declared.MaxItems
	case shape.Kind == domain.KindScalar && shape.DataType == domain.STRING:
		c.MinLength = declared.MinLength
		c.MaxLength = declared.MaxLength
		if declared.Pattern != ".*" {
			c.Pattern = declared.Pattern
		}
	case shape.Kind == domain.KindScalar && (shape.DataType == domain.INTEGER || shape.DataType == domain.NUMBER):
		c.Minimum = declared.Minimum
		c.Maximum = declared.Maximum
	}

	if c.IsEmpty() {
		return nil
	}
	return &c
}

// definePatch adds the patch record of a patchable class. Every own property
// becomes an optional field keyed by its wire name.
func (s *Service) definePatch(def *domain.TypeDef, shape, container *domain.Shape) error {
	name := def.Name.Nested(patchName)
	if err := s.claim(name, shape); err != nil {
		var collision *domain.CollisionError
		if errors.As(err, &collision) {
			collision.Hint = patchCollisionHint
		}
		return err
	}

	patch := &domain.TypeDef{
		Name:     name,
		Kind:     domain.DefPatch,
		Ref:      s.types.Named(name),
		ShapeID:  shape.ID,
		Location: shape.Location,
	}
	for _, p := range s.declaredProperties(shape, container) {
		typ, err := s.ResolveTypeReference(p.Range, naming.ForProperty(def.Name, p.Name))
		if err != nil {
			return err
		}
		patch.Properties = append(patch.Properties, domain.PropertyDef{
			Name:     s.naming.Identifier(p.Name),
			WireName: p.Name,
			Type:     typ,
			Optional: true,
		})
	}

	def.Patch = patch.Ref
	s.register(patch)
	return nil
}

func without(props []*domain.Property, name string) []*domain.Property {
	out := make([]*domain.Property, 0, len(props))
	for _, p := range props {
		if p.Name != name {
			out = append(out, p)
		}
	}
	return out
}

// overridden drops the inherited properties a subtype redeclares.
func overridden(inherited, declared []*domain.Property) []*domain.Property {
	own := make(map[string]bool, len(declared))
	for _, p := range declared {
		own[p.Name] = true
	}
	out := make([]*domain.Property, 0, len(inherited))
	for _, p := range inherited {
		if !own[p.Name] {
			out = append(out, p)
		}
	}
	return out
}
