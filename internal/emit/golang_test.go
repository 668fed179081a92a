package emit

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/domain/domaintest"
	"github.com/griffnb/core-typegen/internal/orchestrator"
)

func generate(t *testing.T, b *domaintest.Builder, config *orchestrator.Config) map[string]string {
	t.Helper()
	result := resolve(t, b, config)
	files, err := NewDriver(nil).Run(result, NewGoTarget(result, "example.com/shop"))
	require.NoError(t, err)

	out := make(map[string]string, len(files))
	for name, src := range files {
		out[name] = string(src)
	}
	return out
}

func generateErr(b *domaintest.Builder, config *orchestrator.Config) error {
	result, err := orchestrator.New(config).Resolve([]*domain.Document{b.Doc})
	if err != nil {
		return err
	}
	_, err = NewDriver(nil).Run(result, NewGoTarget(result, "example.com/shop"))
	return err
}

// block returns the declaration starting at header up to its closing brace.
func block(src, header string) string {
	start := strings.Index(src, header)
	if start < 0 {
		return ""
	}
	end := strings.Index(src[start:], "\n}")
	if end < 0 {
		return src[start:]
	}
	return src[start : start+end+2]
}

func TestGoTarget(t *testing.T) {
	t.Run("one file per package", func(t *testing.T) {
		// Arrange
		b := shopDocument()

		// Act
		files := generate(t, b, nil)

		// Assert
		assert.Len(t, files, 2)
		assert.Contains(t, files, "api/client/model/model.go")
		assert.Contains(t, files, "api/client/service/service.go")
		for _, src := range files {
			assert.Contains(t, src, "// Code generated by core-typegen. DO NOT EDIT.")
		}
	})

	t.Run("interfaces with a model struct", func(t *testing.T) {
		files := generate(t, shopDocument(), nil)

		model := files["api/client/model/model.go"]

		assert.Contains(t, model, "package model")
		assert.Contains(t, model, "type Pet interface {")
		assert.Contains(t, model, "\tGetName() string\n")
		assert.Contains(t, model, "\tGetAge() *int32\n")
		assert.Contains(t, model, "type PetModel struct {")
		assert.Contains(t, model, "`json:\"age,omitempty\"`")
		assert.Contains(t, model, "func (m *PetModel) GetAge() *int32 {")
		assert.Contains(t, model, "// Pet is generated from shop.yaml")
	})

	t.Run("enums", func(t *testing.T) {
		files := generate(t, shopDocument(), nil)

		model := files["api/client/model/model.go"]

		assert.Contains(t, model, "\tGetStatus() *Status\n")
		assert.Contains(t, model, "type Status string")
		assert.Contains(t, model, "StatusAvailable")
		assert.Contains(t, model, "StatusSoldOut")
		assert.Contains(t, model, `"sold-out"`)
	})

	t.Run("client services", func(t *testing.T) {
		files := generate(t, shopDocument(), nil)

		service := files["api/client/service/service.go"]

		assert.Contains(t, service, "package service")
		assert.Contains(t, service, `"context"`)
		assert.Contains(t, service, `"example.com/shop/api/client/model"`)
		assert.Contains(t, service, "type APIService interface {")
		assert.Contains(t, service, "// ListPets serves GET /pets.")
		assert.Contains(t, service, "ListPets(ctx context.Context, limit *int32) ([]model.Pet, error)")
		assert.Contains(t, service, "CreatePet(ctx context.Context, pet model.Pet) error")
	})

	t.Run("server handlers", func(t *testing.T) {
		files := generate(t, shopDocument(), &orchestrator.Config{Mode: domain.ModeServer})

		service := files["api/server/service/service.go"]

		assert.Contains(t, service, "type APIHandler interface {")
		assert.Contains(t, service, `"example.com/shop/api/server/model"`)
	})

	t.Run("classes with discriminators", func(t *testing.T) {
		b := domaintest.New("zoo.yaml")
		pet := b.Declare("Pet", b.Object(
			domaintest.Req("kind", b.String()),
			domaintest.Req("name", b.String()),
		))
		pet.Discriminator = "kind"
		b.Declare("Dog", b.Inherit(pet, domaintest.Opt("bark", b.Scalar(domain.BOOLEAN, ""))))

		files := generate(t, b, &orchestrator.Config{ImplementModel: true, IncludeDeclarations: true})
		model := files["api/client/model/model.go"]

		assert.Contains(t, model, "type Pet struct {")
		assert.Contains(t, model, "type Dog struct {")
		assert.NotContains(t, model, "type Pet interface")
		assert.Contains(t, model, "`json:\"kind\"`")
		assert.Contains(t, model, "var PetSubtypes = map[string]string{")
		assert.Contains(t, model, `"Dog": "api/client/model.Dog",`)
		assert.Contains(t, model, "func (Dog) DiscriminatorValue() string {")
		assert.Contains(t, model, `return "Dog"`)
	})

	t.Run("patch records", func(t *testing.T) {
		b := domaintest.New("orders.yaml")
		order := b.Declare("Order", b.Object(
			domaintest.Req("id", b.Int("int64")),
			domaintest.Opt("note", b.String()),
		))
		domaintest.Annotate(order, domain.AnnotationPatchable, true)

		files := generate(t, b, &orchestrator.Config{ImplementModel: true, IncludeDeclarations: true})
		model := files["api/client/model/model.go"]

		assert.Contains(t, model, `"encoding/json"`)
		assert.Contains(t, model, "type PatchField[T any] struct {")
		assert.Contains(t, model, "type OrderPatch struct {")
		assert.Contains(t, model, "PatchField[int64]")
		assert.Contains(t, model, "PatchField[string]")
	})

	t.Run("validation tags", func(t *testing.T) {
		b := domaintest.New("tags.yaml")
		minLen, maxLen := 1, 20
		name := b.String()
		name.Constraints = domain.Constraints{MinLength: &minLen, MaxLength: &maxLen}
		b.Declare("Tag", b.Object(domaintest.Req("name", name)))

		files := generate(t, b, &orchestrator.Config{
			ImplementModel:        true,
			ValidationConstraints: true,
			IncludeDeclarations:   true,
		})

		assert.Contains(t, files["api/client/model/model.go"], "`json:\"name\" validate:\"min=1,max=20\"`")
	})
}

func TestGoTarget_Collisions(t *testing.T) {
	t.Run("nested name flattens onto a declared name", func(t *testing.T) {
		// Arrange
		b := domaintest.New("shop.yaml")
		b.Declare("Pet", b.Object(domaintest.Opt("status", b.Enum("available", "sold"))))
		b.Declare("PetStatus", b.Enum("active"))

		// Act
		err := generateErr(b, &orchestrator.Config{IncludeDeclarations: true})

		// Assert
		var collision *domain.CollisionError
		require.True(t, errors.As(err, &collision))
		assert.Equal(t, "api/client/model.PetStatus", collision.Name)
		assert.Equal(t, identCollisionHint, collision.Hint)
	})

	t.Run("model struct meets a declared name", func(t *testing.T) {
		b := domaintest.New("shop.yaml")
		b.Declare("Pet", b.Object(domaintest.Req("name", b.String())))
		b.Declare("PetModel", b.Object(domaintest.Req("id", b.Int("int64"))))

		err := generateErr(b, &orchestrator.Config{IncludeDeclarations: true})

		var collision *domain.CollisionError
		require.True(t, errors.As(err, &collision))
		assert.Equal(t, "api/client/model.PetModel", collision.Name)
	})

	t.Run("enum constant meets a declared name", func(t *testing.T) {
		b := domaintest.New("shop.yaml")
		b.Declare("Status", b.Enum("active"))
		b.Declare("StatusActive", b.Object(domaintest.Req("since", b.String())))

		err := generateErr(b, &orchestrator.Config{ImplementModel: true, IncludeDeclarations: true})

		var collision *domain.CollisionError
		require.True(t, errors.As(err, &collision))
		assert.Equal(t, "api/client/model.StatusActive", collision.Name)
	})

	t.Run("two properties map to one field", func(t *testing.T) {
		b := domaintest.New("shop.yaml")
		b.Declare("Pet", b.Object(
			domaintest.Req("a-b", b.String()),
			domaintest.Req("a_b", b.String()),
		))

		err := generateErr(b, &orchestrator.Config{ImplementModel: true, IncludeDeclarations: true})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "both map to field Ab of Pet")
	})

	t.Run("two operations map to one method", func(t *testing.T) {
		b := domaintest.New("shop.yaml")
		b.Operation("GET", "/pets", "getPet", nil, &domain.Response{Status: 204})
		b.Operation("GET", "/animals", "getPet", nil, &domain.Response{Status: 204})

		err := generateErr(b, nil)

		var collision *domain.CollisionError
		require.True(t, errors.As(err, &collision))
		assert.Equal(t, "api/client/service.APIService.GetPet", collision.Name)
	})
}

func TestGoTarget_Classes(t *testing.T) {
	t.Run("colliding enum literals", func(t *testing.T) {
		// Arrange
		b := domaintest.New("modes.yaml")
		b.Declare("Mode", b.Enum("a-b", "a_b"))

		// Act
		files := generate(t, b, &orchestrator.Config{IncludeDeclarations: true})

		// Assert
		model := files["api/client/model/model.go"]
		assert.Regexp(t, `ModeAB\s+Mode = "a-b"`, model)
		assert.Regexp(t, `ModeAB2\s+Mode = "a_b"`, model)
	})

	t.Run("redeclared property appears once", func(t *testing.T) {
		b := domaintest.New("zoo.yaml")
		pet := b.Declare("Pet", b.Object(
			domaintest.Opt("name", b.String()),
			domaintest.Opt("age", b.Int("int32")),
		))
		b.Declare("Dog", b.Inherit(pet, domaintest.Req("name", b.String())))

		files := generate(t, b, &orchestrator.Config{ImplementModel: true, IncludeDeclarations: true})

		dog := block(files["api/client/model/model.go"], "type Dog struct {")
		require.NotEmpty(t, dog)
		assert.Equal(t, 1, strings.Count(dog, "\tName "))
		assert.Regexp(t, `Name\s+string\s+`+"`"+`json:"name"`+"`", dog)
		assert.Contains(t, dog, "Age ")
	})

	t.Run("leaves of an externally discriminated root", func(t *testing.T) {
		b := domaintest.New("events.yaml")
		event := b.Declare("Event", b.Object(
			domaintest.Req("type", b.String()),
			domaintest.Req("at", b.String()),
		))
		event.Discriminator = "type"
		domaintest.Annotate(event, domain.AnnotationExternallyDiscriminated, true)
		b.Declare("Click", b.Inherit(event, domaintest.Req("x", b.Int("int32"))))

		files := generate(t, b, &orchestrator.Config{ImplementModel: true, IncludeDeclarations: true})
		model := files["api/client/model/model.go"]

		click := block(model, "type Click struct {")
		require.NotEmpty(t, click)
		assert.NotContains(t, click, `json:"type"`)
		assert.NotContains(t, block(model, "type Event struct {"), `json:"type"`)
		assert.Contains(t, model, "func (Click) DiscriminatorValue() string {")
	})
}

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"exported word", exported, "name", "Name"},
		{"exported drops separators", exported, "ship-to", "Shipto"},
		{"exported leading digit", exported, "3d", "X3d"},
		{"exported empty", exported, "", "Value"},
		{"param keyword", paramIdent, "type", "typeParam"},
		{"param context", paramIdent, "ctx", "ctxParam"},
		{"param header", paramIdent, "X-Trace", "XTrace"},
		{"param leading digit", paramIdent, "1st", "p1st"},
		{"package from path", packageName, "api/client/model", "model"},
		{"package strips separators", packageName, "api/v2/my-models", "mymodels"},
		{"package leading digit", packageName, "api/2024", "p2024"},
		{"package empty", packageName, "", "model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.in))
		})
	}
}

func TestValidateRules(t *testing.T) {
	t.Run("nil constraints", func(t *testing.T) {
		assert.Empty(t, validateRules(nil))
	})

	t.Run("numeric bounds", func(t *testing.T) {
		minimum, maximum := 0.5, 10.0

		rules := validateRules(&domain.Constraints{Minimum: &minimum, Maximum: &maximum})

		assert.Equal(t, "gte=0.5,lte=10", rules)
	})
}
