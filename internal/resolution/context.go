// Package resolution resolves named references across documents and walks
// inheritance chains on top of the shape graph index.
package resolution

import (
	"strings"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/index"
)

var refPrefixes = []string{"#/definitions/", "#/components/schemas/"}

// Context answers reference and hierarchy questions for one document set.
type Context struct {
	index *index.Index
	roots []*domain.Document
	units []*domain.Document
}

// New creates a context over the units reachable from roots.
// Units are ordered dependencies first, each root last.
func New(idx *index.Index, roots ...*domain.Document) *Context {
	c := &Context{index: idx, roots: roots}
	seen := make(map[*domain.Document]bool)
	for _, root := range roots {
		c.collect(root, seen)
	}
	return c
}

func (c *Context) collect(doc *domain.Document, seen map[*domain.Document]bool) {
	if doc == nil || seen[doc] {
		return
	}
	seen[doc] = true
	for _, ref := range doc.References {
		c.collect(ref, seen)
	}
	for _, use := range doc.Uses {
		c.collect(use.Document, seen)
	}
	c.units = append(c.units, doc)
}

// Index returns the underlying shape graph index.
func (c *Context) Index() *index.Index {
	return c.index
}

// Units returns every document known to the context.
func (c *Context) Units() []*domain.Document {
	return append([]*domain.Document(nil), c.units...)
}

// ResolveRef resolves name as seen from source. An unresolved name is a ReferenceError
// carrying the literal reference and the location of source.
func (c *Context) ResolveRef(name string, source *domain.Shape) (*domain.Shape, *domain.Document, error) {
	shape, doc, ok := c.LookupRef(name, source)
	if !ok {
		var loc domain.Location
		if source != nil {
			loc = source.Location
		}
		return nil, nil, &domain.ReferenceError{Ref: name, Location: loc}
	}
	return shape, doc, nil
}

// LookupRef is ResolveRef without the error. Names are either unqualified, resolved in the
// declaring document, or "alias.Name", resolved in the library bound to alias. When the
// declaring document does not know the name, the document importing it is consulted.
func (c *Context) LookupRef(name string, source *domain.Shape) (*domain.Shape, *domain.Document, bool) {
	name = normalizeRef(name)
	unit := c.FindDeclaringUnit(source)
	if unit == nil {
		return nil, nil, false
	}

	if shape, doc := resolveIn(unit, name); shape != nil {
		return shape, doc, true
	}

	if importing := c.FindImportingUnit(unit); importing != nil {
		if shape, doc := resolveIn(importing, name); shape != nil {
			return shape, doc, true
		}
	}

	return nil, nil, false
}

func resolveIn(doc *domain.Document, name string) (*domain.Shape, *domain.Document) {
	if dot := strings.Index(name, "."); dot > 0 {
		if lib := doc.Library(name[:dot]); lib != nil {
			if shape := lib.Declaration(name[dot+1:]); shape != nil {
				return shape, lib
			}
			return nil, nil
		}
	}
	if shape := doc.Declaration(name); shape != nil {
		return shape, doc
	}
	return nil, nil
}

func normalizeRef(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range refPrefixes {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

// FindDeclaringUnit returns the document that declares source, defaulting to the first root.
func (c *Context) FindDeclaringUnit(source *domain.Shape) *domain.Document {
	if source != nil && source.Document != nil {
		return source.Document
	}
	if len(c.roots) > 0 {
		return c.roots[0]
	}
	return nil
}

// FindImportingUnit returns the first known document that references unit as a fragment.
func (c *Context) FindImportingUnit(unit *domain.Document) *domain.Document {
	for _, candidate := range c.units {
		for _, ref := range candidate.References {
			if ref == unit {
				return candidate
			}
		}
	}
	return nil
}

// FindSuperShape returns the dereferenced direct super shape, or nil.
func (c *Context) FindSuperShape(shape *domain.Shape) *domain.Shape {
	return c.index.SuperShape(shape)
}

// FindRootShape walks to the top of the inheritance chain of shape.
func (c *Context) FindRootShape(shape *domain.Shape) *domain.Shape {
	current := c.index.Dereference(shape)
	seen := map[domain.ShapeID]bool{current.ID: true}
	for {
		super := c.index.SuperShape(current)
		if super == nil || seen[super.ID] {
			return current
		}
		seen[super.ID] = true
		current = super
	}
}

// FindInheritingShapes returns the direct subtypes of shape.
func (c *Context) FindInheritingShapes(shape *domain.Shape) []*domain.Shape {
	return c.index.InheritingShapes(shape)
}

// Ancestors returns the inheritance chain of shape from the root down to shape itself.
func (c *Context) Ancestors(shape *domain.Shape) []*domain.Shape {
	current := c.index.Dereference(shape)
	chain := []*domain.Shape{current}
	seen := map[domain.ShapeID]bool{current.ID: true}
	for {
		super := c.index.SuperShape(current)
		if super == nil || seen[super.ID] {
			break
		}
		seen[super.ID] = true
		chain = append(chain, super)
		current = super
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// FindAllProperties returns the properties of shape and all its ancestors, superclass first.
// A property redeclared lower in the hierarchy keeps its original position.
func (c *Context) FindAllProperties(shape *domain.Shape) []*domain.Property {
	if shape == nil {
		return nil
	}
	var props []*domain.Property
	position := make(map[string]int)
	for _, s := range c.Ancestors(shape) {
		for _, p := range index.Container(s).Properties {
			if at, ok := position[p.Name]; ok {
				props[at] = p
				continue
			}
			position[p.Name] = len(props)
			props = append(props, p)
		}
	}
	return props
}
