package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griffnb/core-typegen/internal/domain"
	"github.com/griffnb/core-typegen/internal/domain/domaintest"
)

const (
	modelPkg   = "api/client/model"
	servicePkg = "api/client/service"
)

func storeDocument() *domaintest.Builder {
	b := domaintest.New("store.yaml")
	pet := b.Declare("Pet", b.Object(domaintest.Req("name", b.String())))
	b.Declare("Tag", b.Object(domaintest.Req("label", b.String())))
	owner := b.Declare("Owner", b.Object(domaintest.Req("pet", b.Ref(pet))))

	b.Operation("GET", "/pets", "listPets",
		[]*domain.Parameter{
			{Name: "limit", Kind: domain.ParamQuery, Schema: b.Int("int32")},
			{Name: "status", Kind: domain.ParamQuery, Schema: b.Enum("available", "sold"), Required: true},
		},
		&domain.Response{Status: 404},
		&domain.Response{Status: 200, Schema: b.Array(b.Ref(pet), false)},
	)
	create := b.Operation("POST", "/pets", "",
		[]*domain.Parameter{{Name: "pet", Kind: domain.ParamBody, Schema: b.Ref(pet), Required: true}},
		&domain.Response{Status: 201, Schema: b.Ref(pet)},
	)
	create.Annotations = domain.Annotations{{Name: domain.AnnotationServiceGroup, Value: "admin"}}
	b.Operation("GET", "/owners/{id}", "getOwner",
		[]*domain.Parameter{{Name: "id", Kind: domain.ParamPath, Schema: b.Int("int64"), Required: true}},
		&domain.Response{Status: 200, Schema: b.Ref(owner)},
	)
	b.Operation("DELETE", "/owners/{id}", "deleteOwner", nil, &domain.Response{Status: 204})
	return b
}

func TestNew(t *testing.T) {
	t.Run("creates orchestrator with default config", func(t *testing.T) {
		// Act
		service := New(nil)

		// Assert
		require.NotNil(t, service)
		assert.Equal(t, domain.ModeClient, service.Config().Mode)
		assert.NotNil(t, service.Config().Overrides)
		assert.NotNil(t, service.Config().Debug)
	})

	t.Run("keeps custom config", func(t *testing.T) {
		// Arrange
		config := &Config{Mode: domain.ModeServer, ImplementModel: true}

		// Act
		service := New(config)

		// Assert
		assert.Same(t, config, service.Config())
		assert.Equal(t, domain.ModeServer, service.Config().Mode)
	})
}

func TestService_Resolve(t *testing.T) {
	t.Run("operations drive resolution", func(t *testing.T) {
		// Arrange
		b := storeDocument()

		// Act
		result, err := New(nil).Resolve([]*domain.Document{b.Doc})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []string{
			modelPkg + ".ListPetsStatusEnum",
			modelPkg + ".Pet",
			modelPkg + ".Owner",
		}, definitionNames(result))
	})

	t.Run("included declarations come first in declaration order", func(t *testing.T) {
		b := storeDocument()

		result, err := New(&Config{IncludeDeclarations: true}).Resolve([]*domain.Document{b.Doc})

		require.NoError(t, err)
		assert.Equal(t, []string{
			modelPkg + ".Pet",
			modelPkg + ".Tag",
			modelPkg + ".Owner",
			modelPkg + ".ListPetsStatusEnum",
		}, definitionNames(result))
	})

	t.Run("unreached declarations are never resolved", func(t *testing.T) {
		// Arrange
		b := storeDocument()
		b.Declare("Legacy", b.Object(domaintest.Req("blob", b.Scalar("blob", ""))))

		// Act
		result, err := New(nil).Resolve([]*domain.Document{b.Doc})
		_, included := New(&Config{IncludeDeclarations: true}).Resolve([]*domain.Document{b.Doc})

		// Assert
		require.NoError(t, err)
		_, ok := result.Graph.Lookup(modelPkg + ".Legacy")
		assert.False(t, ok)
		var kindErr *domain.ShapeKindError
		assert.ErrorAs(t, included, &kindErr)
	})

	t.Run("operations are grouped into services", func(t *testing.T) {
		b := storeDocument()

		result, err := New(nil).Resolve([]*domain.Document{b.Doc})

		require.NoError(t, err)
		require.Len(t, result.Services, 2)
		api, admin := result.Services[0], result.Services[1]
		assert.Equal(t, DefaultServiceGroup, api.Name)
		assert.Equal(t, servicePkg, api.Package)
		assert.Equal(t, "Admin", admin.Name)

		var methods []string
		for _, m := range api.Methods {
			methods = append(methods, m.Name)
		}
		assert.Equal(t, []string{"ListPets", "GetOwner", "DeleteOwner"}, methods)
		require.Len(t, admin.Methods, 1)
		assert.Equal(t, "Method1", admin.Methods[0].Name)
	})

	t.Run("parameters, bodies and results", func(t *testing.T) {
		b := storeDocument()

		result, err := New(nil).Resolve([]*domain.Document{b.Doc})

		require.NoError(t, err)
		types := result.Types()
		list := result.Services[0].Methods[0]
		assert.Equal(t, "GET", list.HTTPMethod)
		assert.Equal(t, "/pets", list.Path)
		require.Len(t, list.Params, 2)
		assert.Equal(t, "limit", list.Params[0].WireName)
		assert.Equal(t, "Int32", types.String(list.Params[0].Type))
		assert.True(t, list.Params[0].Optional)
		assert.Equal(t, modelPkg+".ListPetsStatusEnum", types.String(list.Params[1].Type))
		assert.False(t, list.Params[1].Optional)
		assert.Nil(t, list.Body)
		assert.Equal(t, "List<"+modelPkg+".Pet>", types.String(list.Result))

		create := result.Services[1].Methods[0]
		require.NotNil(t, create.Body)
		assert.Equal(t, domain.ParamBody, create.Body.Kind)
		assert.Equal(t, modelPkg+".Pet", types.String(create.Body.Type))
		assert.Equal(t, modelPkg+".Pet", types.String(create.Result))

		remove := result.Services[0].Methods[2]
		assert.Equal(t, "Unit", types.String(remove.Result))
	})

	t.Run("referenced shapes", func(t *testing.T) {
		b := storeDocument()

		result, err := New(nil).Resolve([]*domain.Document{b.Doc})

		require.NoError(t, err)
		assert.Len(t, result.Referenced, 2)
		assert.Contains(t, result.Referenced[modelPkg+".Pet"], "GET /pets (store.yaml:")
		assert.Contains(t, result.Referenced[modelPkg+".Owner"], "GET /owners/{id} (store.yaml:")
		assert.NotContains(t, result.Referenced, modelPkg+".Tag")
	})

	t.Run("referenced shapes of two documents stay apart", func(t *testing.T) {
		// Arrange
		first := domaintest.New("billing.yaml")
		second := first.Document("crm.yaml")
		invoice := first.Declare("Account", first.Object(domaintest.Req("iban", first.String())))
		customer := second.Declare("Account", second.Object(domaintest.Req("email", second.String())))
		domaintest.Annotate(customer, domain.AnnotationGoModelPackage, "example.com/crm")
		first.Operation("GET", "/invoice", "getInvoice", nil, &domain.Response{Status: 200, Schema: first.Ref(invoice)})
		second.Operation("GET", "/customer", "getCustomer", nil, &domain.Response{Status: 200, Schema: second.Ref(customer)})

		// Act
		result, err := New(nil).Resolve([]*domain.Document{first.Doc, second.Doc})

		// Assert
		require.NoError(t, err)
		assert.Len(t, result.Referenced, 2)
		assert.Contains(t, result.Referenced[modelPkg+".Account"], "GET /invoice")
		assert.Contains(t, result.Referenced["example.com/crm.Account"], "GET /customer")
	})

	t.Run("server mode uses server packages", func(t *testing.T) {
		b := storeDocument()

		result, err := New(&Config{Mode: domain.ModeServer}).Resolve([]*domain.Document{b.Doc})

		require.NoError(t, err)
		assert.Equal(t, domain.ModeServer, result.Mode)
		assert.Equal(t, "api/server/service", result.Services[0].Package)
		_, ok := result.Graph.Lookup("api/server/model.Pet")
		assert.True(t, ok)
	})

	t.Run("overrides reach the registry", func(t *testing.T) {
		b := storeDocument()

		result, err := New(&Config{
			Overrides:           map[string]string{"Tag": ""},
			IncludeDeclarations: true,
		}).Resolve([]*domain.Document{b.Doc})

		require.NoError(t, err)
		_, ok := result.Graph.Lookup(modelPkg + ".Tag")
		assert.False(t, ok)
	})

	t.Run("index failures are reported", func(t *testing.T) {
		b := domaintest.New("bad.yaml")
		a := b.Declare("A", b.Object())
		c := b.Declare("C", b.Object())
		a.Inherits = []*domain.Shape{c, c}

		_, err := New(nil).Resolve([]*domain.Document{b.Doc})

		var kindErr *domain.ShapeKindError
		assert.ErrorAs(t, err, &kindErr)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := New(&Config{Mode: "desktop"}).Resolve(nil)

		assert.Error(t, err)
	})

	t.Run("debug steps are logged", func(t *testing.T) {
		debug := &recordingDebugger{}
		b := storeDocument()

		_, err := New(&Config{Debug: debug}).Resolve([]*domain.Document{b.Doc})

		require.NoError(t, err)
		assert.Contains(t, debug.lines, "Orchestrator: Step 1 - Indexing %d documents")
		assert.Contains(t, debug.lines, "Orchestrator: Step 5 - Building definition graph")
	})
}

func definitionNames(result *Result) []string {
	var names []string
	for _, def := range result.Graph.Definitions() {
		names = append(names, def.Name.String())
	}
	return names
}

type recordingDebugger struct {
	lines []string
}

func (r *recordingDebugger) Printf(format string, v ...interface{}) {
	r.lines = append(r.lines, format)
}
