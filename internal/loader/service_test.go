package loader

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griffnb/core-typegen/internal/domain"
)

func loadPetstore(t *testing.T) (*domain.Document, *domain.Arena) {
	t.Helper()
	docs, arena, err := NewService().Load(context.Background(), []string{"testdata/petstore.yaml"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0], arena
}

func declarationNames(doc *domain.Document) []string {
	names := make([]string, 0, len(doc.Declarations))
	for _, decl := range doc.Declarations {
		names = append(names, decl.Name)
	}
	return names
}

func propertyNames(shape *domain.Shape) []string {
	names := make([]string, 0, len(shape.Properties))
	for _, p := range shape.Properties {
		names = append(names, p.Name)
	}
	return names
}

// TestLoad tests converting a document into the shape graph
func TestLoad(t *testing.T) {
	t.Run("declarations keep source order", func(t *testing.T) {
		// Arrange & Act
		doc, arena := loadPetstore(t)

		// Assert
		assert.Equal(t, []string{"Pet", "Dog", "Status", "Category", "Order", "Puppy"}, declarationNames(doc))
		assert.Equal(t, filepath.Clean("testdata/petstore.yaml"), doc.Location)
		assert.Greater(t, arena.Len(), len(doc.Declarations))
		for _, decl := range doc.Declarations {
			assert.True(t, decl.Declared)
			assert.Same(t, doc, decl.Document)
			assert.Equal(t, doc.Location, decl.Location.File)
			assert.Greater(t, decl.Location.Line, 0)
		}
	})

	t.Run("discriminated root", func(t *testing.T) {
		doc, _ := loadPetstore(t)

		pet := doc.Declaration("Pet")

		require.NotNil(t, pet)
		assert.Equal(t, domain.KindNode, pet.Kind)
		assert.Equal(t, "kind", pet.Discriminator)
		assert.Equal(t, []domain.MappingEntry{{Value: "doggo", Ref: "#/definitions/Dog"}}, pet.DiscriminatorMapping)
		assert.Equal(t, []string{"name", "kind"}, propertyNames(pet))
		assert.True(t, pet.Property("kind").Required)
		require.NotNil(t, pet.Property("name").Range.Constraints.MinLength)
		assert.Equal(t, 1, *pet.Property("name").Range.Constraints.MinLength)
		assert.Empty(t, pet.Annotations)
	})

	t.Run("aggregation of a reference and an object", func(t *testing.T) {
		doc, _ := loadPetstore(t)
		pet := doc.Declaration("Pet")

		dog := doc.Declaration("Dog")

		require.NotNil(t, dog)
		assert.Equal(t, domain.KindAny, dog.Kind)
		assert.Equal(t, "doggo", dog.DiscriminatorValue)
		require.Len(t, dog.AllOf, 2)
		assert.Same(t, pet, dog.AllOf[0].Link)
		assert.Equal(t, domain.KindNode, dog.AllOf[0].Kind)
		assert.Equal(t, domain.KindNode, dog.AllOf[1].Kind)
		assert.Equal(t, []string{"bark"}, propertyNames(dog.AllOf[1]))
	})

	t.Run("single reference in allOf inherits", func(t *testing.T) {
		doc, _ := loadPetstore(t)

		puppy := doc.Declaration("Puppy")

		require.NotNil(t, puppy)
		assert.Equal(t, domain.KindNode, puppy.Kind)
		require.Len(t, puppy.Inherits, 1)
		assert.Same(t, doc.Declaration("Dog"), puppy.Inherits[0].Link)
		assert.Equal(t, domain.KindAny, puppy.Inherits[0].Kind)
	})

	t.Run("enum and closed object", func(t *testing.T) {
		doc, _ := loadPetstore(t)

		status := doc.Declaration("Status")
		category := doc.Declaration("Category")

		assert.True(t, status.IsEnum())
		assert.Equal(t, []string{"available", "sold"}, status.Values)
		assert.True(t, category.Closed)
		assert.Equal(t, "int64", category.Property("id").Range.Format)
	})

	t.Run("object properties", func(t *testing.T) {
		doc, _ := loadPetstore(t)

		order := doc.Declaration("Order")

		require.NotNil(t, order)
		assert.Equal(t, []string{"id", "pet", "price", "shipTo", "metadata", "tags"}, propertyNames(order))
		assert.True(t, order.Property("id").Required)
		assert.False(t, order.Property("pet").Required)

		pkg, ok := order.Annotations.String(domain.AnnotationGoModelPackage, domain.ModeClient)
		assert.True(t, ok)
		assert.Equal(t, "api/shop", pkg)
		assert.True(t, order.Annotations.Bool(domain.AnnotationPatchable, domain.ModeClient))

		pet := order.Property("pet").Range
		assert.Equal(t, domain.KindUnion, pet.Kind)
		require.Len(t, pet.AnyOf, 2)
		assert.Same(t, doc.Declaration("Pet"), pet.AnyOf[0].Link)
		assert.Equal(t, domain.KindNil, pet.AnyOf[1].Kind)

		metadata := order.Property("metadata").Range
		assert.Equal(t, domain.KindNode, metadata.Kind)
		require.NotNil(t, metadata.AdditionalProperties)
		assert.Equal(t, domain.STRING, metadata.AdditionalProperties.DataType)

		tags := order.Property("tags").Range
		assert.Equal(t, domain.KindArray, tags.Kind)
		assert.True(t, tags.UniqueItems)
		assert.Equal(t, domain.STRING, tags.Items.DataType)
	})

	t.Run("library uses and fragments", func(t *testing.T) {
		doc, _ := loadPetstore(t)
		order := doc.Declaration("Order")

		lib := doc.Library("common")
		require.NotNil(t, lib)
		money := lib.Declaration("Money")
		require.NotNil(t, money)
		assert.Same(t, money, order.Property("price").Range.Link)

		address := order.Property("shipTo").Range.Link
		require.NotNil(t, address)
		assert.Equal(t, "Address", address.Name)
		assert.Contains(t, doc.References, address.Document)
		assert.Contains(t, doc.References, lib)

		// the fragment does not declare Category, the importing document does
		assert.Same(t, doc.Declaration("Category"), address.Property("owner").Range.Link)
	})

	t.Run("document annotations", func(t *testing.T) {
		doc, _ := loadPetstore(t)

		group, ok := doc.Annotations.String(domain.AnnotationServiceGroup, domain.ModeClient)

		assert.True(t, ok)
		assert.Equal(t, "Store", group)
		_, hasUses := doc.Annotations.Lookup("uses", domain.ModeClient)
		assert.False(t, hasUses)
	})

	t.Run("operations", func(t *testing.T) {
		doc, _ := loadPetstore(t)

		require.Len(t, doc.Endpoints, 1)
		endpoint := doc.Endpoints[0]
		require.Len(t, endpoint.Operations, 2)
		create, list := endpoint.Operations[0], endpoint.Operations[1]

		assert.Equal(t, "/pets", endpoint.Path)
		assert.Equal(t, "createPet", create.Name)
		assert.Equal(t, "POST", create.Method)
		assert.Equal(t, "listPets", list.Name)
		assert.Equal(t, "GET", list.Method)

		group, _ := create.Annotations.String(domain.AnnotationServiceGroup, domain.ModeClient)
		assert.Equal(t, "Pets", group)

		body := create.Body()
		require.NotNil(t, body)
		assert.True(t, body.Required)
		assert.Same(t, doc.Declaration("Pet"), body.Schema.Link)

		require.Len(t, list.Parameters, 3)
		assert.Equal(t, "X-Trace", list.Parameters[0].Name)
		assert.Equal(t, domain.ParamHeader, list.Parameters[0].Kind)
		limit := list.Parameters[1]
		assert.Equal(t, domain.ParamQuery, limit.Kind)
		assert.Equal(t, domain.INTEGER, limit.Schema.DataType)
		require.NotNil(t, limit.Schema.Constraints.Maximum)
		assert.Equal(t, 100.0, *limit.Schema.Constraints.Maximum)
		assert.Equal(t, domain.KindArray, list.Parameters[2].Schema.Kind)

		require.Len(t, list.Responses, 2)
		assert.Equal(t, 200, list.Responses[0].Status)
		assert.Equal(t, domain.KindArray, list.Responses[0].Schema.Kind)
		assert.Equal(t, 404, list.Responses[1].Status)
		assert.Nil(t, list.Responses[1].Schema)
	})

	t.Run("json documents", func(t *testing.T) {
		docs, _, err := NewService().Load(context.Background(), []string{"testdata/minimal.json"})

		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, []string{"Zebra", "Apple"}, declarationNames(docs[0]))
		assert.Equal(t, domain.KindScalar, docs[0].Declaration("Apple").Kind)
	})

	t.Run("documents follow input order", func(t *testing.T) {
		paths := []string{"testdata/minimal.json", "testdata/petstore.yaml", "testdata/minimal.json"}

		docs, _, err := NewService(WithConcurrency(2)).Load(context.Background(), paths)

		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, filepath.Clean("testdata/minimal.json"), docs[0].Location)
		assert.Equal(t, filepath.Clean("testdata/petstore.yaml"), docs[1].Location)
	})

	t.Run("unresolved references are collected", func(t *testing.T) {
		_, _, err := NewService().Load(context.Background(), []string{"testdata/broken.yaml"})

		require.Error(t, err)
		var merr *multierror.Error
		require.ErrorAs(t, err, &merr)
		assert.Len(t, merr.Errors, 2)
		var refErr *domain.ReferenceError
		require.ErrorAs(t, err, &refErr)
		assert.Equal(t, "#/definitions/Part", refErr.Ref)
		assert.Equal(t, filepath.Clean("testdata/broken.yaml"), refErr.Location.File)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := NewService().Load(context.Background(), []string{"testdata/nope.yaml"})

		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := NewService().Load(ctx, []string{"testdata/petstore.yaml"})

		assert.Error(t, err)
	})
}

func TestReadFileCache(t *testing.T) {
	t.Run("repeated reads are served from the cache", func(t *testing.T) {
		// Arrange
		s := NewService()

		// Act
		first, err := s.readFile(context.Background(), "testdata/lib.yaml")
		require.NoError(t, err)
		second, err := s.readFile(context.Background(), "./testdata/../testdata/lib.yaml")
		require.NoError(t, err)

		// Assert
		assert.Same(t, first, second)
	})

	t.Run("zero size disables the cache", func(t *testing.T) {
		s := NewService(WithCacheSize(0))

		first, err := s.readFile(context.Background(), "testdata/lib.yaml")
		require.NoError(t, err)
		second, err := s.readFile(context.Background(), "testdata/lib.yaml")
		require.NoError(t, err)

		assert.NotSame(t, first, second)
	})
}

func TestNewService(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := NewService()

		assert.Equal(t, DefaultCacheSize, s.cacheSize)
		assert.GreaterOrEqual(t, s.concurrency, 1)
		assert.NotNil(t, s.cache)
		assert.NotNil(t, s.debug)
	})

	t.Run("options", func(t *testing.T) {
		debug := &recordingDebugger{}

		s := NewService(WithConcurrency(0), WithCacheSize(0), WithDebugger(debug))
		_, _, err := s.Load(context.Background(), []string{"testdata/lib.yaml"})

		require.NoError(t, err)
		assert.Equal(t, 1, s.concurrency)
		assert.Nil(t, s.cache)
		assert.NotEmpty(t, debug.lines)
	})
}

type recordingDebugger struct {
	lines []string
}

func (r *recordingDebugger) Printf(format string, v ...interface{}) {
	r.lines = append(r.lines, format)
}
