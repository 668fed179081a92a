// Package registry resolves shapes into type references and collects the
// type definitions they produce. A Service belongs to one generation run: it
// memoizes every resolved shape and is not safe for concurrent use.
package registry

import (
	"github.com/griffnb/core-typegen/internal/discriminator"
	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/index"
	"github.com/griffnb/core-typegen/internal/naming"
	"github.com/griffnb/core-typegen/internal/resolution"
)

const collisionHint = "add a goModelPackage annotation to one of the declarations"

// Options configures a registry.
type Options struct {
	Mode                  domain.GenerationMode
	ImplementModel        bool
	ValidationConstraints bool
	DefaultModelPackage   string
	DefaultServicePackage string
	// TypeOverrides maps declared shape names to fully qualified Go types.
	// An empty value resolves the shape to the Any type.
	TypeOverrides map[string]string
}

type owner struct {
	shape    domain.ShapeID
	location domain.Location
}

// Service manages the type table and the definitions discovered while resolving.
type Service struct {
	ctx    *resolution.Context
	idx    *index.Index
	opts   Options
	naming *naming.Strategy
	disc   *discriminator.Resolver
	types  *domain.TypeTable

	resolved map[domain.ShapeID]domain.TypeRef
	owners   map[string]owner
	defs     map[domain.TypeRef]*domain.TypeDef
	order    []*domain.TypeDef

	debug Debugger
}

// New creates a registry over a resolution context.
func New(ctx *resolution.Context, opts Options) *Service {
	if opts.Mode == "" {
		opts.Mode = domain.ModeClient
	}
	return &Service{
		ctx:  ctx,
		idx:  ctx.Index(),
		opts: opts,
		naming: naming.New(naming.Options{
			Mode:                  opts.Mode,
			DefaultModelPackage:   opts.DefaultModelPackage,
			DefaultServicePackage: opts.DefaultServicePackage,
			TypeOverrides:         opts.TypeOverrides,
		}),
		disc:     discriminator.New(ctx),
		types:    domain.NewTypeTable(),
		resolved: make(map[domain.ShapeID]domain.TypeRef),
		owners:   make(map[string]owner),
		defs:     make(map[domain.TypeRef]*domain.TypeDef),
		debug:    noOpDebugger{},
	}
}

// SetDebugger sets the debugger.
func (s *Service) SetDebugger(debug Debugger) {
	if debug == nil {
		debug = noOpDebugger{}
	}
	s.debug = debug
}

// Types returns the type table every reference points into.
func (s *Service) Types() *domain.TypeTable {
	return s.types
}

// Naming returns the naming strategy of the run.
func (s *Service) Naming() *naming.Strategy {
	return s.naming
}

// Options returns the registry options with defaults applied.
func (s *Service) Options() Options {
	return s.opts
}

// Definition returns the definition a named reference stands for.
func (s *Service) Definition(ref domain.TypeRef) (*domain.TypeDef, bool) {
	def, ok := s.defs[ref]
	return def, ok
}

// Resolved returns the reference shape was resolved to so far. It never resolves.
func (s *Service) Resolved(shape *domain.Shape) (domain.TypeRef, bool) {
	if shape == nil {
		return domain.NoType, false
	}
	ref, ok := s.resolved[s.idx.Dereference(shape).ID]
	return ref, ok
}

// ResolveTypeReference returns the type reference of shape. Results are memoized
// on the dereferenced shape, so later calls return the first reference whatever
// their naming context.
func (s *Service) ResolveTypeReference(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	if shape == nil {
		return s.types.Any(), nil
	}

	canonical := s.idx.Dereference(shape)
	if ref, ok := s.resolved[canonical.ID]; ok {
		return ref, nil
	}

	ref, err := s.classify(canonical, ctx)
	if err != nil {
		return domain.NoType, err
	}

	if existing, ok := s.resolved[canonical.ID]; ok {
		return existing, nil
	}
	s.resolved[canonical.ID] = ref
	return ref, nil
}

// ResolveEnclosing resolves the enclosing type named by a nested annotation on source.
func (s *Service) ResolveEnclosing(ref string, source *domain.Shape) (domain.QualifiedName, error) {
	target, _, err := s.ctx.ResolveRef(ref, source)
	if err != nil {
		return domain.QualifiedName{}, err
	}

	typeRef, err := s.ResolveTypeReference(target, naming.Context{})
	if err != nil {
		return domain.QualifiedName{}, err
	}

	info := s.types.Info(typeRef)
	if info.Kind != domain.RefNamed {
		return domain.QualifiedName{}, &domain.AnnotationError{
			Annotation: domain.AnnotationNested,
			Value:      ref,
			Location:   source.Location,
			Reason:     "enclosing type does not define a type",
		}
	}
	return info.Name, nil
}

// classify dispatches on the kind of a canonical shape.
func (s *Service) classify(shape *domain.Shape, ctx naming.Context) (domain.TypeRef, error) {
	if name, ok := s.naming.Override(shape); ok {
		if name.Skip {
			return s.types.Any(), nil
		}
		return s.types.External(name.Qualified), nil
	}

	switch shape.Kind {
	case domain.KindScalar:
		return s.scalar(shape, ctx)
	case domain.KindArray:
		return s.array(shape, ctx)
	case domain.KindUnion:
		return s.union(shape, ctx)
	case domain.KindNode:
		return s.node(shape, ctx)
	case domain.KindAny:
		return s.any(shape, ctx)
	case domain.KindFile:
		return s.types.Primitive(domain.PrimBytes), nil
	case domain.KindNil:
		return s.types.Unit(), nil
	}

	return domain.NoType, unsupported(shape, "shape kind is not supported")
}

// claim records shape as the owner of name, failing when another shape owns it.
func (s *Service) claim(name domain.QualifiedName, shape *domain.Shape) error {
	key := name.String()
	if existing, ok := s.owners[key]; ok {
		if existing.shape != shape.ID {
			return &domain.CollisionError{
				Name:   key,
				First:  existing.location,
				Second: shape.Location,
				Hint:   collisionHint,
			}
		}
		return nil
	}
	s.owners[key] = owner{shape: shape.ID, location: shape.Location}
	return nil
}

// register adds a definition in discovery order.
func (s *Service) register(def *domain.TypeDef) {
	s.defs[def.Ref] = def
	s.order = append(s.order, def)
	s.debug.Printf("registry: defined %s %s", def.Kind, def.Name)
}

func unsupported(shape *domain.Shape, reason string) error {
	return &domain.ShapeKindError{
		ShapeID:  shape.ID,
		Kind:     shape.Kind,
		Location: shape.Location,
		Reason:   reason,
	}
}
