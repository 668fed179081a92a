// Package registry - classification of scalar, array, union and object shapes.
package registry

import (
	"fmt"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/index"
	"github.com/griffnb/core-typegen/internal/naming"
)

func (s *Service) scalar(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	if shape.IsEnum() {
		return s.defineEnum(shape, ctx)
	}

	prim, ok := domain.PrimitiveFor(shape.DataType, shape.Format)
	if !ok {
		return domain.NoType, unsupported(shape, fmt.Sprintf("scalar data type '%s' is unsupported", shape.DataType))
	}
	return s.types.Primitive(prim), nil
}

func (s *Service) array(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	elem, err := s.ResolveTypeReference(shape.Items, ctx)
	if err != nil {
		return domain.NoType, err
	}
	if shape.UniqueItems {
		return s.types.Set(elem), nil
	}
	return s.types.List(elem), nil
}

// union collapses a nil pair to an optional and resolves anything else to the
// nearest common ancestor of its branches.
func (s *Service) union(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	var (
		nils   int
		others []*domain.Shape
	)
	for _, branch := range shape.AnyOf {
		if s.idx.Dereference(branch).Kind == domain.KindNil {
			nils++
			continue
		}
		others = append(others, branch)
	}

	switch {
	case len(others) == 0 && nils > 0:
		return s.types.Unit(), nil
	case len(others) == 1 && nils > 0:
		elem, err := s.ResolveTypeReference(others[0], ctx)
		if err != nil {
			return domain.NoType, err
		}
		return s.types.Optional(elem), nil
	}

	return s.nearestCommonAncestor(shape.AnyOf)
}

// nearestCommonAncestor resolves every branch, builds its class chain from the root
// down, and returns the last element of the longest prefix all chains share.
// A branch that is not a class, or chains sharing nothing, yield Any.
func (s *Service) nearestCommonAncestor(branches []*domain.Shape) (domain.TypeRef, error) {
	var common []domain.TypeRef
	for i, branch := range branches {
		chain, ok, err := s.classChain(branch)
		if err != nil {
			return domain.NoType, err
		}
		if !ok {
			return s.types.Any(), nil
		}

		if i == 0 {
			common = chain
			continue
		}

		n := 0
		for n < len(common) && n < len(chain) && common[n] == chain[n] {
			n++
		}
		common = common[:n]
	}

	if len(common) == 0 {
		return s.types.Any(), nil
	}
	return common[len(common)-1], nil
}

func (s *Service) classChain(branch *domain.Shape) ([]domain.TypeRef, bool, error) {
	ancestors := s.ctx.Ancestors(branch)
	chain := make([]domain.TypeRef, 0, len(ancestors))
	for _, ancestor := range ancestors {
		ref, err := s.ResolveTypeReference(ancestor, naming.Context{})
		if err != nil {
			return nil, false, err
		}
		def, ok := s.defs[ref]
		if !ok || (def.Kind != domain.DefClass && def.Kind != domain.DefInterface) {
			return nil, false, nil
		}
		chain = append(chain, ref)
	}
	return chain, len(chain) > 0, nil
}

func (s *Service) node(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	if len(shape.Properties) == 0 && len(shape.Inherits) == 1 && s.passThrough(shape) {
		return s.ResolveTypeReference(shape.Inherits[0], ctx)
	}

	if len(shape.Properties) == 0 && len(shape.Inherits) == 0 && !shape.Closed && shape.Discriminator == "" {
		return s.freeform(shape, ctx)
	}

	return s.defineClass(shape, s.idx.SuperShape(shape), shape, ctx)
}

// passThrough reports whether an empty subtype can stand for its parent.
func (s *Service) passThrough(shape *domain.Shape) bool {
	if s.idx.HasInheriting(shape) {
		return false
	}
	if name, _ := s.disc.PropertyName(shape); name != "" {
		return false
	}
	return shape.DiscriminatorValue == "" &&
		!shape.Annotations.Bool(domain.AnnotationPatchable, s.opts.Mode)
}

// freeform resolves an open object without properties to a string keyed map.
func (s *Service) freeform(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	key := s.types.Primitive(domain.PrimString)

	values := shape.AdditionalProperties
	if values == nil {
		return s.types.Map(key, s.types.Any()), nil
	}

	var (
		value domain.TypeRef
		err   error
	)
	if target := s.idx.Dereference(values); target.Kind == domain.KindUnion {
		value, err = s.nearestCommonAncestor(target.AnyOf)
	} else {
		value, err = s.ResolveTypeReference(values, ctx)
	}
	if err != nil {
		return domain.NoType, err
	}
	return s.types.Map(key, value), nil
}

func (s *Service) any(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	if len(shape.AllOf) == 0 {
		return s.types.Any(), nil
	}

	super, node, ok := index.Aggregation(shape)
	if !ok {
		return domain.NoType, unsupported(shape, "aggregation must combine exactly one reference and one object")
	}
	return s.defineClass(shape, s.idx.Dereference(super), node, ctx)
}
