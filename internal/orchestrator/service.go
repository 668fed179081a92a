// Package orchestrator coordinates one generation run.
// It indexes the loaded documents, resolves every operation through the type
// registry, and returns an immutable Result. Declared shapes are resolved as
// operations reach them unless Config.IncludeDeclarations asks for all of them.
package orchestrator

import (
	"fmt"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/index"
	"github.com/griffnb/core-typegen/internal/naming"
	"github.com/griffnb/core-typegen/internal/registry"
	"github.com/griffnb/core-typegen/internal/resolution"
)

// DefaultServiceGroup names the service of operations without a serviceGroup annotation.
const DefaultServiceGroup = "API"

// Service runs the resolution pipeline.
type Service struct {
	config *Config
}

// Config holds orchestrator configuration options.
type Config struct {
	Mode                  domain.GenerationMode
	ImplementModel        bool
	ValidationConstraints bool
	ModelPackage          string
	ServicePackage        string
	Overrides             map[string]string
	// IncludeDeclarations resolves every declared shape, reached or not.
	IncludeDeclarations bool
	Debug               Debugger
}

// Debugger is the interface for debug logging.
type Debugger interface {
	Printf(format string, v ...interface{})
}

type noOpDebugger struct{}

func (noOpDebugger) Printf(string, ...interface{}) {}

// New creates a new orchestrator service with the given configuration.
func New(config *Config) *Service {
	if config == nil {
		config = &Config{}
	}

	// Apply defaults for zero values
	if config.Mode == "" {
		config.Mode = domain.ModeClient
	}
	if config.Overrides == nil {
		config.Overrides = make(map[string]string)
	}
	if config.Debug == nil {
		config.Debug = noOpDebugger{}
	}

	return &Service{config: config}
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Resolve builds the type definition graph and the service definitions of docs.
// Nothing in docs is modified.
func (s *Service) Resolve(docs []*domain.Document) (*Result, error) {
	debug := s.config.Debug
	if !s.config.Mode.Valid() {
		return nil, fmt.Errorf("unknown generation mode %q", s.config.Mode)
	}

	// Step 1: Index the shape graph
	debug.Printf("Orchestrator: Step 1 - Indexing %d documents", len(docs))
	idx, err := index.Build(docs...)
	if err != nil {
		return nil, fmt.Errorf("failed to index documents: %w", err)
	}
	debug.Printf("Orchestrator: Indexed %d shapes", len(idx.Shapes()))

	// Step 2: Resolution context
	debug.Printf("Orchestrator: Step 2 - Building resolution context")
	ctx := resolution.New(idx, docs...)
	reg := registry.New(ctx, registry.Options{
		Mode:                  s.config.Mode,
		ImplementModel:        s.config.ImplementModel,
		ValidationConstraints: s.config.ValidationConstraints,
		DefaultModelPackage:   s.config.ModelPackage,
		DefaultServicePackage: s.config.ServicePackage,
		TypeOverrides:         s.config.Overrides,
	})
	reg.SetDebugger(debug)

	// Step 3: Declarations, in declaration order
	if s.config.IncludeDeclarations {
		debug.Printf("Orchestrator: Step 3 - Resolving declarations of %d units", len(ctx.Units()))
		for _, unit := range ctx.Units() {
			for _, decl := range unit.Declarations {
				if _, err := reg.ResolveTypeReference(decl, naming.Context{}); err != nil {
					return nil, fmt.Errorf("failed to resolve %s: %w", decl.Name, err)
				}
			}
		}
	}

	// Step 4: Operations
	debug.Printf("Orchestrator: Step 4 - Resolving operations")
	services, err := s.resolveOperations(ctx, reg)
	if err != nil {
		return nil, err
	}

	// Step 5: Freeze
	debug.Printf("Orchestrator: Step 5 - Building definition graph")
	graph := reg.Graph()
	debug.Printf("Orchestrator: Resolved %d definitions, %d services", graph.Len(), len(services))

	return &Result{
		Mode:       s.config.Mode,
		Graph:      graph,
		Services:   services,
		Referenced: CollectReferencedShapes(ctx.Units(), resolvedName(reg)),
	}, nil
}

// resolvedName keys a referenced shape by the qualified name it resolved to.
func resolvedName(reg *registry.Service) ShapeKey {
	return func(shape *domain.Shape) (string, bool) {
		ref, ok := reg.Resolved(shape)
		if !ok {
			return "", false
		}
		info := reg.Types().Info(ref)
		if info.Kind != domain.RefNamed && info.Kind != domain.RefExternal {
			return "", false
		}
		return info.Name.String(), true
	}
}

func (s *Service) resolveOperations(ctx *resolution.Context, reg *registry.Service) ([]*ServiceDef, error) {
	strategy := reg.Naming()

	var services []*ServiceDef
	byGroup := make(map[string]*ServiceDef)

	for _, unit := range ctx.Units() {
		for _, endpoint := range unit.Endpoints {
			for _, op := range endpoint.Operations {
				method, err := s.resolveOperation(reg, op)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve %s %s: %w", op.Method, op.Path, err)
				}

				group := serviceGroup(op, unit, strategy.Mode())
				svc, ok := byGroup[group]
				if !ok {
					svc = &ServiceDef{
						Name:    naming.ToUpperCamelCase(group),
						Package: strategy.ServicePackage(),
					}
					byGroup[group] = svc
					services = append(services, svc)
				}
				svc.Methods = append(svc.Methods, method)
			}
		}
	}

	return services, nil
}

func (s *Service) resolveOperation(reg *registry.Service, op *domain.Operation) (MethodDef, error) {
	strategy := reg.Naming()
	name := strategy.MethodName(op)

	method := MethodDef{
		Name:       name,
		HTTPMethod: op.Method,
		Path:       op.Path,
		Location:   op.Location,
		Result:     reg.Types().Unit(),
	}

	for _, param := range op.Parameters {
		ref, err := reg.ResolveTypeReference(param.Schema, naming.ForOperation(name, param.Name))
		if err != nil {
			return MethodDef{}, err
		}
		def := ParamDef{
			Name:     strategy.Identifier(param.Name),
			WireName: param.Name,
			Kind:     param.Kind,
			Type:     ref,
			Optional: !param.Required,
		}
		if param.Kind == domain.ParamBody {
			body := def
			method.Body = &body
			continue
		}
		method.Params = append(method.Params, def)
	}

	if resp := successResponse(op); resp != nil {
		ref, err := reg.ResolveTypeReference(resp.Schema, naming.ForOperation(name, "Response"))
		if err != nil {
			return MethodDef{}, err
		}
		method.Result = ref
	}

	return method, nil
}

// successResponse returns the first 2xx response carrying a schema.
func successResponse(op *domain.Operation) *domain.Response {
	for _, resp := range op.Responses {
		if resp.Status >= 200 && resp.Status < 300 && resp.Schema != nil {
			return resp
		}
	}
	return nil
}

func serviceGroup(op *domain.Operation, unit *domain.Document, mode domain.GenerationMode) string {
	if group, ok := op.Annotations.String(domain.AnnotationServiceGroup, mode); ok && group != "" {
		return group
	}
	if group, ok := unit.Annotations.String(domain.AnnotationServiceGroup, mode); ok && group != "" {
		return group
	}
	return DefaultServiceGroup
}
