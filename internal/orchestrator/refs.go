package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/griffnb/core-typegen/internal/domain"
)

// ShapeKey names a declared shape in the map CollectReferencedShapes returns.
// Shapes it reports false for are left out.
type ShapeKey func(shape *domain.Shape) (string, bool)

// DeclaredName keys a shape by its declared name.
func DeclaredName(shape *domain.Shape) (string, bool) {
	return shape.Name, true
}

// CollectReferencedShapes walks the operations of docs and returns the declared
// shapes their parameters and responses reach, directly or through properties.
// Values are source locations describing where the shape was first encountered
// (e.g., "POST /users (users.yaml:42)"). A nil key uses DeclaredName.
func CollectReferencedShapes(docs []*domain.Document, key ShapeKey) map[string]string {
	if key == nil {
		key = DeclaredName
	}
	refs := make(map[string]string)
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		for _, endpoint := range doc.Endpoints {
			for _, op := range endpoint.Operations {
				if op == nil {
					continue
				}
				collectRefsFromOperation(op, key, refs, operationSource(op))
			}
		}
	}
	return refs
}

// operationSource builds a human-readable location string for an operation.
func operationSource(op *domain.Operation) string {
	parts := []string{}
	if op.Method != "" {
		parts = append(parts, op.Method)
	}
	if op.Path != "" {
		parts = append(parts, op.Path)
	}
	loc := strings.Join(parts, " ")
	if op.Location.File != "" {
		// Use just the filename, not full path
		file := filepath.Base(op.Location.File)
		if op.Location.Line > 0 {
			loc += fmt.Sprintf(" (%s:%d)", file, op.Location.Line)
		} else {
			loc += fmt.Sprintf(" (%s)", file)
		}
	}
	return loc
}

func collectRefsFromOperation(op *domain.Operation, key ShapeKey, refs map[string]string, source string) {
	w := refWalker{key: key, refs: refs, source: source, visited: make(map[domain.ShapeID]bool)}
	for _, param := range op.Parameters {
		w.walk(param.Schema)
	}
	for _, resp := range op.Responses {
		w.walk(resp.Schema)
	}
}

type refWalker struct {
	key     ShapeKey
	refs    map[string]string
	source  string
	visited map[domain.ShapeID]bool
}

// walk recursively records every declared shape s reaches.
func (w *refWalker) walk(s *domain.Shape) {
	if s == nil || w.visited[s.ID] {
		return
	}
	w.visited[s.ID] = true

	if s.Declared && s.Name != "" {
		if name, ok := w.key(s); ok && name != "" {
			if _, exists := w.refs[name]; !exists {
				w.refs[name] = w.source
			}
		}
	}

	w.walk(s.Link)
	w.walk(s.Items)
	w.walk(s.AdditionalProperties)
	for _, p := range s.Properties {
		w.walk(p.Range)
	}
	for _, group := range [][]*domain.Shape{s.Inherits, s.AllOf, s.AnyOf} {
		for _, child := range group {
			w.walk(child)
		}
	}
}
