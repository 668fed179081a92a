// Package naming computes qualified names and identifiers for generated types.
// It never resolves collisions: the registry decides whether a name is taken.
package naming

import (
	"fmt"
	"path"
	"strings"

	"github.com/griffnb/core-typegen/internal/domain"
)

// Options configures a Strategy.
type Options struct {
	Mode                  domain.GenerationMode
	DefaultModelPackage   string
	DefaultServicePackage string
	// TypeOverrides maps declared shape names to fully qualified types.
	// An empty value replaces the type with the top type.
	TypeOverrides map[string]string
}

// Context carries where a shape is being referenced from.
type Context struct {
	Operation string
	// Parameter is the parameter or property name the shape is the range of.
	Parameter string
	Enclosing *domain.QualifiedName
	Suggested *domain.QualifiedName
}

// ForProperty returns the context of a property range declared in enclosing.
func ForProperty(enclosing domain.QualifiedName, property string) Context {
	return Context{Parameter: property, Enclosing: &enclosing}
}

// ForOperation returns the context of an operation parameter, body or response.
func ForOperation(operation, parameter string) Context {
	return Context{Operation: operation, Parameter: parameter}
}

// Name is the outcome of NameOf.
type Name struct {
	Qualified domain.QualifiedName
	// External marks a type override: the name is used as is and nothing is generated.
	External bool
	// Skip marks a type overridden to the top type.
	Skip bool
}

// EnclosingResolver resolves the type named by a "nested" annotation.
type EnclosingResolver interface {
	ResolveEnclosing(ref string, source *domain.Shape) (domain.QualifiedName, error)
}

// Strategy names shapes. Synthesized names draw from counters, so a Strategy
// belongs to exactly one generation run.
type Strategy struct {
	opts      Options
	anonymous int
	methods   int
}

// New creates a strategy.
func New(opts Options) *Strategy {
	if opts.Mode == "" {
		opts.Mode = domain.ModeClient
	}
	return &Strategy{opts: opts}
}

// Mode returns the generation mode annotations are looked up for.
func (s *Strategy) Mode() domain.GenerationMode {
	return s.opts.Mode
}

// NameOf applies, highest first: a type override, a nested annotation, the declared
// name, then a name synthesized from ctx.
func (s *Strategy) NameOf(shape *domain.Shape, ctx Context, enclosing EnclosingResolver) (Name, error) {
	if name, ok := s.Override(shape); ok {
		return name, nil
	}

	if value, ok := shape.Annotations.Lookup(domain.AnnotationNested, s.opts.Mode); ok {
		qualified, err := s.nested(shape, value, enclosing)
		if err != nil {
			return Name{}, err
		}
		return Name{Qualified: qualified}, nil
	}

	if shape.Name != "" {
		return Name{Qualified: domain.NewQualifiedName(s.PackageOf(shape), ToUpperCamelCase(shape.Name))}, nil
	}

	return Name{Qualified: s.synthesize(shape, ctx)}, nil
}

// Override reports a goType annotation or a global type override for shape.
// Overridden shapes are never generated.
func (s *Strategy) Override(shape *domain.Shape) (Name, bool) {
	if target, ok := shape.Annotations.String(domain.AnnotationGoType, s.opts.Mode); ok && target != "" {
		pkg, local := SplitQualified(target)
		return Name{Qualified: domain.NewQualifiedName(pkg, local), External: true}, true
	}
	if shape.Name == "" || s.opts.TypeOverrides == nil {
		return Name{}, false
	}
	target, ok := s.opts.TypeOverrides[shape.Name]
	if !ok {
		return Name{}, false
	}
	if target == "" {
		return Name{External: true, Skip: true}, true
	}
	pkg, local := SplitQualified(target)
	return Name{Qualified: domain.NewQualifiedName(pkg, local), External: true}, true
}

func (s *Strategy) nested(shape *domain.Shape, value any, enclosing EnclosingResolver) (domain.QualifiedName, error) {
	nesting, _ := value.(map[string]any)
	enclosedIn, _ := nesting["enclosedIn"].(string)
	local, _ := nesting["name"].(string)
	if enclosedIn == "" || local == "" {
		return domain.QualifiedName{}, &domain.AnnotationError{
			Annotation: domain.AnnotationNested,
			Value:      value,
			Location:   shape.Location,
			Reason:     "requires both 'enclosedIn' and 'name'",
		}
	}
	if enclosing == nil {
		return domain.QualifiedName{}, &domain.AnnotationError{
			Annotation: domain.AnnotationNested,
			Value:      value,
			Location:   shape.Location,
			Reason:     "enclosing types cannot be resolved here",
		}
	}

	outer, err := enclosing.ResolveEnclosing(enclosedIn, shape)
	if err != nil {
		return domain.QualifiedName{}, err
	}
	return outer.Nested(ToUpperCamelCase(local)), nil
}

func (s *Strategy) synthesize(shape *domain.Shape, ctx Context) domain.QualifiedName {
	if ctx.Suggested != nil {
		return *ctx.Suggested
	}
	if ctx.Enclosing != nil && ctx.Parameter != "" {
		return ctx.Enclosing.Nested(ToUpperCamelCase(ctx.Parameter))
	}

	local := ToUpperCamelCase(ctx.Operation) + ToUpperCamelCase(ctx.Parameter)
	if local != "" && shape.IsEnum() {
		local += "Enum"
	}
	if local == "" {
		s.anonymous++
		local = fmt.Sprintf("Anonymous%d", s.anonymous)
	}
	return domain.NewQualifiedName(s.PackageOf(shape), local)
}

// PackageOf resolves the package of shape: shape override, then the declaring
// document's override, then the default model package.
func (s *Strategy) PackageOf(shape *domain.Shape) string {
	if pkg, ok := shape.Annotations.String(domain.AnnotationGoModelPackage, s.opts.Mode); ok && pkg != "" {
		return pkg
	}
	if shape.Document != nil {
		if pkg, ok := shape.Document.Annotations.String(domain.AnnotationGoModelPackage, s.opts.Mode); ok && pkg != "" {
			return pkg
		}
	}
	return s.ModelPackage()
}

// ModelPackage is the default package for generated models.
func (s *Strategy) ModelPackage() string {
	if s.opts.DefaultModelPackage != "" {
		return s.opts.DefaultModelPackage
	}
	return path.Join("api", string(s.opts.Mode), "model")
}

// ServicePackage is the default package for generated services.
func (s *Strategy) ServicePackage() string {
	if s.opts.DefaultServicePackage != "" {
		return s.opts.DefaultServicePackage
	}
	return path.Join("api", string(s.opts.Mode), "service")
}

// Identifier converts a wire name into a property identifier.
func (s *Strategy) Identifier(wireName string) string {
	id := ToLowerCamelCase(wireName)
	if id == "" {
		return "value"
	}
	return id
}

// MethodName names an operation, falling back to Method<N> for unnamed ones.
func (s *Strategy) MethodName(op *domain.Operation) string {
	if name := ToUpperCamelCase(op.Name); name != "" {
		return name
	}
	s.methods++
	return fmt.Sprintf("Method%d", s.methods)
}

// SplitQualified splits "example.com/pkg.Type" into its package path and type name.
// The split happens at the last dot after the last slash.
func SplitQualified(fullPath string) (pkg string, name string) {
	lastSlash := strings.LastIndex(fullPath, "/")
	dot := strings.LastIndex(fullPath, ".")
	if dot <= lastSlash {
		return "", fullPath
	}
	return fullPath[:dot], fullPath[dot+1:]
}
