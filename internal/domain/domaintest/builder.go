// Package domaintest builds shape graphs for tests.
package domaintest

import (
	"github.com/griffnb/core-typegen/internal/domain"
)

// Builder creates shapes inside one document, all sharing one arena.
type Builder struct {
	Arena *domain.Arena
	Doc   *domain.Document
	line  *int
}

// New creates a builder for a fresh arena and a document at location.
func New(location string) *Builder {
	line := 0
	return &Builder{
		Arena: domain.NewArena(),
		Doc:   &domain.Document{Location: location},
		line:  &line,
	}
}

// Document starts a new document sharing the builder's arena.
func (b *Builder) Document(location string) *Builder {
	return &Builder{
		Arena: b.Arena,
		Doc:   &domain.Document{Location: location},
		line:  b.line,
	}
}

func (b *Builder) add(shape *domain.Shape) *domain.Shape {
	*b.line++
	shape.Document = b.Doc
	shape.Location = domain.Location{File: b.Doc.Location, Line: *b.line, Column: 3}
	return b.Arena.Add(shape)
}

// Declare marks shape as a named declaration of the document.
func (b *Builder) Declare(name string, shape *domain.Shape) *domain.Shape {
	shape.Name = name
	shape.Declared = true
	b.Doc.Declarations = append(b.Doc.Declarations, shape)
	return shape
}

// Object creates an anonymous node shape.
func (b *Builder) Object(props ...*domain.Property) *domain.Shape {
	return b.add(&domain.Shape{Kind: domain.KindNode, DataType: domain.OBJECT, Properties: props})
}

// Inherit creates an anonymous node shape inheriting parent.
func (b *Builder) Inherit(parent *domain.Shape, props ...*domain.Property) *domain.Shape {
	s := b.Object(props...)
	s.Inherits = []*domain.Shape{parent}
	return s
}

// Aggregate creates an aggregation of a reference to parent and an inline object.
func (b *Builder) Aggregate(parent *domain.Shape, props ...*domain.Property) *domain.Shape {
	return b.add(&domain.Shape{
		Kind:  domain.KindAny,
		AllOf: []*domain.Shape{b.Ref(parent), b.Object(props...)},
	})
}

// Scalar creates a scalar shape.
func (b *Builder) Scalar(dataType, format string) *domain.Shape {
	return b.add(&domain.Shape{Kind: domain.KindScalar, DataType: dataType, Format: format})
}

// String creates a string scalar.
func (b *Builder) String() *domain.Shape {
	return b.Scalar(domain.STRING, "")
}

// Int creates an integer scalar with format.
func (b *Builder) Int(format string) *domain.Shape {
	return b.Scalar(domain.INTEGER, format)
}

// Enum creates a string enum scalar.
func (b *Builder) Enum(values ...string) *domain.Shape {
	s := b.String()
	s.Values = values
	return s
}

// Array creates an array of items.
func (b *Builder) Array(items *domain.Shape, unique bool) *domain.Shape {
	return b.add(&domain.Shape{Kind: domain.KindArray, DataType: domain.ARRAY, Items: items, UniqueItems: unique})
}

// Union creates a union of branches.
func (b *Builder) Union(branches ...*domain.Shape) *domain.Shape {
	return b.add(&domain.Shape{Kind: domain.KindUnion, AnyOf: branches})
}

// Nil creates a nil shape.
func (b *Builder) Nil() *domain.Shape {
	return b.add(&domain.Shape{Kind: domain.KindNil, DataType: domain.NULL})
}

// File creates a file shape.
func (b *Builder) File() *domain.Shape {
	return b.add(&domain.Shape{Kind: domain.KindFile, DataType: domain.FILE})
}

// Any creates an unconstrained shape.
func (b *Builder) Any() *domain.Shape {
	return b.add(&domain.Shape{Kind: domain.KindAny})
}

// Ref creates a link to target.
func (b *Builder) Ref(target *domain.Shape) *domain.Shape {
	return b.add(&domain.Shape{Kind: target.Kind, Link: target})
}

// Annotate appends an annotation to shape.
func Annotate(shape *domain.Shape, name string, value any) *domain.Shape {
	shape.Annotations = append(shape.Annotations, domain.Annotation{Name: name, Value: value})
	return shape
}

// Req creates a required property.
func Req(name string, rng *domain.Shape) *domain.Property {
	return &domain.Property{Name: name, Range: rng, Required: true}
}

// Opt creates an optional property.
func Opt(name string, rng *domain.Shape) *domain.Property {
	return &domain.Property{Name: name, Range: rng}
}

// Operation adds an operation on path to the document.
func (b *Builder) Operation(method, path, name string, params []*domain.Parameter, responses ...*domain.Response) *domain.Operation {
	op := &domain.Operation{
		Name:       name,
		Method:     method,
		Path:       path,
		Parameters: params,
		Responses:  responses,
		Location:   domain.Location{File: b.Doc.Location, Line: *b.line + 1},
	}
	*b.line++
	for _, ep := range b.Doc.Endpoints {
		if ep.Path == path {
			ep.Operations = append(ep.Operations, op)
			return op
		}
	}
	b.Doc.Endpoints = append(b.Doc.Endpoints, &domain.Endpoint{Path: path, Operations: []*domain.Operation{op}})
	return op
}
