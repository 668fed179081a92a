package patch

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/griffnb/core-typegen/internal/domain"
)

func itemPatch() *domain.TypeDef {
	return &domain.TypeDef{
		Name: domain.NewQualifiedName("api/client/model", "Item", "Patch"),
		Kind: domain.DefPatch,
		Properties: []domain.PropertyDef{
			{Name: "a", WireName: "a", Optional: true},
			{Name: "b", WireName: "b", Optional: true},
			{Name: "createdAt", WireName: "created_at", Optional: true},
		},
	}
}

func TestDerive(t *testing.T) {
	t.Run("presence follows the source key set", func(t *testing.T) {
		// Arrange
		current := map[string]any{"a": "", "b": 7}
		source := map[string]any{"a": "ignored"}

		// Act
		record, err := Derive(itemPatch(), current, source)

		// Assert
		require.NoError(t, err)
		assert.True(t, record.Present("a"))
		assert.False(t, record.Present("b"))
		value, ok := record.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "", value)
		_, ok = record.Get("b")
		assert.False(t, ok)
	})

	t.Run("null values are still present", func(t *testing.T) {
		record, err := Derive(itemPatch(), map[string]any{}, map[string]any{"b": nil})

		require.NoError(t, err)
		assert.True(t, record.Present("b"))
		value, ok := record.Get("b")
		assert.True(t, ok)
		assert.Nil(t, value)
	})

	t.Run("wire names are matched, not identifiers", func(t *testing.T) {
		current := map[string]any{"createdAt": "2024-01-01"}

		byWire, err := Derive(itemPatch(), current, map[string]any{"created_at": "x"})
		require.NoError(t, err)
		byIdentifier, err := Derive(itemPatch(), current, map[string]any{"createdAt": "x"})
		require.NoError(t, err)

		assert.True(t, byWire.Present("createdAt"))
		assert.False(t, byIdentifier.Present("createdAt"))
	})

	t.Run("fields keep declaration order", func(t *testing.T) {
		record, err := Derive(itemPatch(), nil, map[string]any{})

		require.NoError(t, err)
		fields := record.Fields()
		require.Len(t, fields, 3)
		assert.Equal(t, "created_at", fields[2].WireName)
		assert.Equal(t, "api/client/model.Item.Patch", record.Type)
	})

	t.Run("enums cannot be patched", func(t *testing.T) {
		_, err := Derive(&domain.TypeDef{Kind: domain.DefEnum}, nil, nil)

		assert.Error(t, err)
	})
}

func TestDeriveJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		presentA bool
		presentB bool
		wantErr  bool
	}{
		{name: "only a", raw: `{"a": ""}`, presentA: true},
		{name: "only b", raw: `{"b": 12}`, presentB: true},
		{name: "both null", raw: `{"a": null, "b": null}`, presentA: true, presentB: true},
		{name: "empty object", raw: `{}`},
		{name: "array", raw: `[1, 2]`, wantErr: true},
		{name: "invalid", raw: `{"a":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := DeriveJSON(itemPatch(), map[string]any{"a": "x", "b": 1}, []byte(tt.raw))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.presentA, record.Present("a"))
			assert.Equal(t, tt.presentB, record.Present("b"))
		})
	}

	t.Run("class definitions patch their own properties", func(t *testing.T) {
		class := &domain.TypeDef{
			Kind:       domain.DefClass,
			Properties: []domain.PropertyDef{{Name: "count", WireName: "count"}},
		}
		current := map[string]any{"count": json.Number("3")}

		record, err := DeriveJSON(class, current, []byte(`{"count": 3}`))

		require.NoError(t, err)
		value, _ := record.Get("count")
		assert.Equal(t, json.Number("3"), value)
	})
}
