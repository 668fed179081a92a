package index

import (
	"github.com/griffnb/core-typegen/internal/domain"
)

type builder struct {
	idx      *Index
	visited  map[domain.ShapeID]bool
	seenDocs map[*domain.Document]bool
}

// Build indexes every shape reachable from the declarations and operations of docs,
// including the libraries and fragments they pull in.
func Build(docs ...*domain.Document) (*Index, error) {
	b := &builder{
		idx: &Index{
			refs:          make(map[domain.ShapeID]*domain.Shape),
			inherited:     make(map[domain.ShapeID]*domain.Shape),
			inheriting:    make(map[domain.ShapeID][]*domain.Shape),
			propertyOrder: make(map[domain.ShapeID][]string),
		},
		visited:  make(map[domain.ShapeID]bool),
		seenDocs: make(map[*domain.Document]bool),
	}

	for _, doc := range docs {
		if err := b.document(doc); err != nil {
			return nil, err
		}
	}

	return b.idx, nil
}

func (b *builder) document(doc *domain.Document) error {
	if doc == nil || b.seenDocs[doc] {
		return nil
	}
	b.seenDocs[doc] = true

	for _, use := range doc.Uses {
		if err := b.document(use.Document); err != nil {
			return err
		}
	}
	for _, ref := range doc.References {
		if err := b.document(ref); err != nil {
			return err
		}
	}

	b.idx.documents = append(b.idx.documents, doc)

	for _, decl := range doc.Declarations {
		if err := b.visit(decl); err != nil {
			return err
		}
	}

	for _, endpoint := range doc.Endpoints {
		for _, op := range endpoint.Operations {
			for _, param := range op.Parameters {
				if err := b.visit(param.Schema); err != nil {
					return err
				}
			}
			for _, resp := range op.Responses {
				if err := b.visit(resp.Schema); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func (b *builder) visit(shape *domain.Shape) error {
	if shape == nil {
		return nil
	}
	if shape.ID == 0 {
		return malformed(shape, "shape was not allocated in an arena")
	}
	if b.visited[shape.ID] {
		return nil
	}
	b.visited[shape.ID] = true

	if shape.Link != nil || IsSoftLink(shape) {
		target, err := follow(shape)
		if err != nil {
			return err
		}
		b.idx.refs[shape.ID] = target
		return b.visit(target)
	}

	b.idx.shapes = append(b.idx.shapes, shape)

	if len(shape.AllOf) > 0 {
		return b.aggregation(shape)
	}

	if err := b.properties(shape, shape); err != nil {
		return err
	}
	if err := b.children(shape); err != nil {
		return err
	}

	switch len(shape.Inherits) {
	case 0:
		return nil
	case 1:
		return b.inherit(shape, shape.Inherits[0])
	default:
		return malformed(shape, "more than one inheritance target")
	}
}

func (b *builder) aggregation(shape *domain.Shape) error {
	super, node, ok := Aggregation(shape)
	if !ok {
		return malformed(shape, "aggregation must combine exactly one reference and one object")
	}
	if len(shape.Inherits) > 0 {
		return malformed(shape, "aggregation cannot also declare an inheritance target")
	}

	if err := b.properties(shape, node); err != nil {
		return err
	}
	if err := b.visit(node.AdditionalProperties); err != nil {
		return err
	}

	return b.inherit(shape, super)
}

// properties records the declared order of container's properties under owner and
// visits every property range.
func (b *builder) properties(owner, container *domain.Shape) error {
	if len(container.Properties) == 0 {
		return nil
	}
	names := make([]string, 0, len(container.Properties))
	for _, prop := range container.Properties {
		names = append(names, prop.Name)
	}
	b.idx.propertyOrder[owner.ID] = names

	for _, prop := range container.Properties {
		if err := b.visit(prop.Range); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) children(shape *domain.Shape) error {
	if err := b.visit(shape.Items); err != nil {
		return err
	}
	if err := b.visit(shape.AdditionalProperties); err != nil {
		return err
	}
	for _, branch := range shape.AnyOf {
		if err := b.visit(branch); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) inherit(child, parent *domain.Shape) error {
	super, err := follow(parent)
	if err != nil {
		return err
	}
	if super.ID == child.ID {
		return malformed(child, "shape inherits from itself")
	}

	b.idx.inherited[child.ID] = super
	known := false
	for _, s := range b.idx.inheriting[super.ID] {
		if s.ID == child.ID {
			known = true
			break
		}
	}
	if !known {
		b.idx.inheriting[super.ID] = append(b.idx.inheriting[super.ID], child)
	}

	return b.visit(parent)
}

func malformed(shape *domain.Shape, reason string) error {
	return &domain.ShapeKindError{
		ShapeID:  shape.ID,
		Kind:     shape.Kind,
		Location: shape.Location,
		Reason:   reason,
	}
}
