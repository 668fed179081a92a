package resolution

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/domain/domaintest"
	"github.com/griffnb/core-typegen/internal/index"
)

func newContext(t *testing.T, roots ...*domain.Document) *Context {
	t.Helper()
	idx, err := index.Build(roots...)
	require.NoError(t, err)
	return New(idx, roots...)
}

func TestContext_ResolveRef(t *testing.T) {
	b := domaintest.New("api.yaml")
	lib := b.Document("lib.yaml")
	fragment := b.Document("fragment.yaml")

	local := b.Declare("Local", b.Object())
	shared := lib.Declare("Shared", lib.Object())
	fromFragment := fragment.Declare("Inner", fragment.Object(domaintest.Req("x", fragment.String())))
	b.Doc.Uses = []domain.LibraryUse{{Alias: "lib", Document: lib.Doc}}
	b.Doc.References = []*domain.Document{fragment.Doc}

	ctx := newContext(t, b.Doc)

	t.Run("unqualified name resolves in the declaring document", func(t *testing.T) {
		// Act
		shape, doc, err := ctx.ResolveRef("Local", local)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, local, shape)
		assert.Equal(t, b.Doc, doc)
	})

	t.Run("alias qualified name resolves in the library", func(t *testing.T) {
		shape, doc, err := ctx.ResolveRef("lib.Shared", local)

		require.NoError(t, err)
		assert.Equal(t, shared, shape)
		assert.Equal(t, lib.Doc, doc)
	})

	t.Run("json pointer style names are accepted", func(t *testing.T) {
		shape, _, err := ctx.ResolveRef("#/definitions/Local", local)

		require.NoError(t, err)
		assert.Equal(t, local, shape)
	})

	t.Run("fragment falls back to the importing document", func(t *testing.T) {
		shape, doc, err := ctx.ResolveRef("Local", fromFragment)

		require.NoError(t, err)
		assert.Equal(t, local, shape)
		assert.Equal(t, b.Doc, doc)
	})

	t.Run("unresolved reference carries text and location", func(t *testing.T) {
		_, _, err := ctx.ResolveRef("lib.Missing", local)

		require.Error(t, err)
		var refErr *domain.ReferenceError
		require.True(t, errors.As(err, &refErr))
		assert.Equal(t, "lib.Missing", refErr.Ref)
		assert.Equal(t, local.Location, refErr.Location)
		assert.Contains(t, err.Error(), "api.yaml:")
	})

	t.Run("importing unit", func(t *testing.T) {
		assert.Equal(t, b.Doc, ctx.FindImportingUnit(fragment.Doc))
		assert.Nil(t, ctx.FindImportingUnit(b.Doc))
	})
}

func TestContext_Hierarchy(t *testing.T) {
	b := domaintest.New("api.yaml")
	grand := b.Declare("Grandparent", b.Object(domaintest.Req("id", b.String())))
	parent := b.Declare("Parent", b.Inherit(grand, domaintest.Req("name", b.String())))
	child := b.Declare("Child", b.Aggregate(parent,
		domaintest.Opt("age", b.Int("")),
		domaintest.Req("name", b.String()),
	))
	sibling := b.Declare("Sibling", b.Inherit(grand))

	ctx := newContext(t, b.Doc)

	t.Run("super and root", func(t *testing.T) {
		assert.Equal(t, parent, ctx.FindSuperShape(child))
		assert.Equal(t, grand, ctx.FindRootShape(child))
		assert.Equal(t, grand, ctx.FindRootShape(grand))
		assert.Nil(t, ctx.FindSuperShape(grand))
	})

	t.Run("inheriting shapes keep discovery order", func(t *testing.T) {
		assert.Equal(t, []*domain.Shape{parent, sibling}, ctx.FindInheritingShapes(grand))
	})

	t.Run("ancestors run root to leaf", func(t *testing.T) {
		assert.Equal(t, []*domain.Shape{grand, parent, child}, ctx.Ancestors(child))
	})

	t.Run("all properties are superclass first", func(t *testing.T) {
		props := ctx.FindAllProperties(child)

		names := make([]string, 0, len(props))
		for _, p := range props {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"id", "name", "age"}, names)
		// the redeclared property is the child's own
		assert.Equal(t, index.Container(child).Properties[1], props[1])
	})
}
