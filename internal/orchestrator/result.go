package orchestrator

import (
	"github.com/griffnb/core-typegen/internal/domain"
)

// Result is the frozen outcome of a resolution run.
type Result struct {
	Mode     domain.GenerationMode
	Graph    *domain.Graph
	Services []*ServiceDef
	// Referenced maps declared shape names used by operations to the first
	// operation that reached them.
	Referenced map[string]string
}

// Types returns the type table every reference of the result points into.
func (r *Result) Types() *domain.TypeTable {
	return r.Graph.Types()
}

// ServiceDef groups the operations of one serviceGroup.
type ServiceDef struct {
	Name    string
	Package string
	Methods []MethodDef
}

// MethodDef is one operation of a service.
type MethodDef struct {
	Name       string
	HTTPMethod string
	Path       string
	Params     []ParamDef
	Body       *ParamDef
	// Result is Unit when the operation returns nothing.
	Result   domain.TypeRef
	Location domain.Location
}

// ParamDef is a non-body parameter, or the body of a method.
type ParamDef struct {
	Name     string
	WireName string
	Kind     domain.ParamKind
	Type     domain.TypeRef
	Optional bool
}
