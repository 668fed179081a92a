// Package emit walks a resolved generation result and feeds it to an output
// target. The driver decides the order of the walk; targets decide the syntax.
package emit

import (
	"sort"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/orchestrator"
)

// Target receives the resolved graph one package at a time. Targets must not
// modify anything they are handed.
type Target interface {
	Begin(pkg string) error
	Definition(def *domain.TypeDef) error
	ServiceBegin(svc *orchestrator.ServiceDef) error
	MethodBegin(method *orchestrator.MethodDef) error
	Parameter(kind domain.ParamKind, param orchestrator.ParamDef) error
	ReturnType(ref domain.TypeRef) error
	MethodEnd(method *orchestrator.MethodDef) error
	ServiceEnd(svc *orchestrator.ServiceDef) error
	// Finish returns the rendered files keyed by relative path.
	Finish() (map[string][]byte, error)
}

// Debugger interface for logging
type Debugger interface {
	Printf(format string, v ...interface{})
}

type noOpDebugger struct{}

func (noOpDebugger) Printf(string, ...interface{}) {}

// Driver feeds a Result to a Target.
type Driver struct {
	debug Debugger
}

// NewDriver creates a driver. A nil debugger discards debug output.
func NewDriver(debug Debugger) *Driver {
	if debug == nil {
		debug = noOpDebugger{}
	}
	return &Driver{debug: debug}
}

// Run walks result package by package, packages sorted by path. Within a
// package, definitions come in discovery order followed by services in order.
func (d *Driver) Run(result *orchestrator.Result, target Target) (map[string][]byte, error) {
	defs := make(map[string][]*domain.TypeDef)
	services := make(map[string][]*orchestrator.ServiceDef)

	for _, def := range result.Graph.Definitions() {
		defs[def.Name.Package] = append(defs[def.Name.Package], def)
	}
	for _, svc := range result.Services {
		services[svc.Package] = append(services[svc.Package], svc)
	}

	pkgs := make([]string, 0, len(defs)+len(services))
	for pkg := range defs {
		pkgs = append(pkgs, pkg)
	}
	for pkg := range services {
		if _, ok := defs[pkg]; !ok {
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Strings(pkgs)

	for _, pkg := range pkgs {
		d.debug.Printf("emit: package %s (%d definitions, %d services)", pkg, len(defs[pkg]), len(services[pkg]))
		if err := target.Begin(pkg); err != nil {
			return nil, err
		}
		for _, def := range defs[pkg] {
			if err := target.Definition(def); err != nil {
				return nil, err
			}
		}
		for _, svc := range services[pkg] {
			if err := d.service(svc, target); err != nil {
				return nil, err
			}
		}
	}

	return target.Finish()
}

func (d *Driver) service(svc *orchestrator.ServiceDef, target Target) error {
	if err := target.ServiceBegin(svc); err != nil {
		return err
	}
	for i := range svc.Methods {
		method := &svc.Methods[i]
		if err := target.MethodBegin(method); err != nil {
			return err
		}
		for _, param := range method.Params {
			if err := target.Parameter(param.Kind, param); err != nil {
				return err
			}
		}
		if method.Body != nil {
			if err := target.Parameter(domain.ParamBody, *method.Body); err != nil {
				return err
			}
		}
		if err := target.ReturnType(method.Result); err != nil {
			return err
		}
		if err := target.MethodEnd(method); err != nil {
			return err
		}
	}
	return target.ServiceEnd(svc)
}
